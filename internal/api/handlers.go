package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solitude-labs/meshgatewayd/internal/forwarding"
	"github.com/solitude-labs/meshgatewayd/internal/topology"
	"github.com/solitude-labs/meshgatewayd/internal/wire"
)

func (s *Server) handleHealth(c *gin.Context) {
	uptime := int64(time.Since(s.node.StartedAt).Seconds())
	c.JSON(http.StatusOK, wire.HealthResponse{
		Status:        "healthy",
		NodeID:        s.node.SelfID,
		UptimeSeconds: uptime,
	})
}

func (s *Server) handlePeerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, wire.PeerInfoResponse{
		NodeID:     s.node.SelfID,
		ListenAddr: s.node.ListenAddr,
		Peers:      s.node.Table.NodeIDs(),
		Version:    Version,
	})
}

func (s *Server) handlePeers(c *gin.Context) {
	entries := s.node.Table.List()
	views := make([]wire.PeerView, 0, len(entries))
	for _, e := range entries {
		view := wire.PeerView{
			NodeID:  e.NodeID,
			Address: e.Address,
			Status:  string(e.Status),
		}
		if e.LastSeen != nil {
			ts := wire.RFC3339(*e.LastSeen)
			view.LastSeen = &ts
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, wire.PeersResponse{Peers: views})
}

func (s *Server) handleMessageSend(c *gin.Context) {
	var req wire.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.To == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'to' is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), forwarding.Timeout)
	defer cancel()

	resp := s.node.Forwarder.Originate(ctx, req.To, req.Content)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMessageReceive(c *gin.Context) {
	var msg wire.RelayMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if msg.To == "" || msg.From == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'from' and 'to' are required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), forwarding.Timeout)
	defer cancel()

	resp := s.node.Forwarder.Relay(ctx, msg)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleLSA(c *gin.Context) {
	var req wire.LSARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.NodeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'node_id' is required"})
		return
	}

	lsa := topology.LSA{
		NodeID:    req.NodeID,
		Neighbors: req.Neighbors,
		Sequence:  req.Sequence,
		Timestamp: req.Timestamp,
	}

	if s.node.LSADB.Accept(lsa) == topology.Ignored {
		c.JSON(http.StatusOK, wire.LSAResponse{Status: "ignored", Message: "sequence not newer than stored LSA"})
		return
	}

	c.JSON(http.StatusOK, wire.LSAResponse{Status: "accepted", Message: "lsa stored"})

	if req.NodeID != s.node.SelfID {
		sender := senderNodeID(c, s.node.Table)
		s.node.Broadcaster.FloodTo(req, s.node.Table.ConnectedPeers(), sender)
	}
}
