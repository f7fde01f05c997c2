// Package api is the HTTPS Surface: an mTLS-terminating gin router
// exposing the endpoints of SPEC_FULL.md §6. Handlers hand off to the
// Routing Table, LSA Database, Forwarding Engine, and LSA Broadcaster;
// they never touch shared state directly. Grounded on the teacher's
// internal/api/server.go (gin.Engine wrapped in an http.Server with
// graceful Start/Stop), extended with the Trust Store's server
// tls.Config for mTLS termination and request-id logging adapted from
// aldrin-isaac-newtron/pkg/util/log.go's WithField idiom.
package api

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/solitude-labs/meshgatewayd/internal/forwarding"
	"github.com/solitude-labs/meshgatewayd/internal/lsabroadcast"
	"github.com/solitude-labs/meshgatewayd/internal/meshlog"
	"github.com/solitude-labs/meshgatewayd/internal/routing"
	"github.com/solitude-labs/meshgatewayd/internal/topology"
)

// Version is reported in GET /peer/info.
const Version = "0.1.0"

// Node is everything a handler needs, constructed once by internal/meshnode
// and shared by reference across every request.
type Node struct {
	SelfID      string
	ListenAddr  string
	StartedAt   time.Time
	Table       *routing.Table
	LSADB       *topology.Database
	Forwarder   *forwarding.Engine
	Broadcaster *lsabroadcast.Broadcaster
}

// Server is the mTLS HTTPS Surface for one node.
type Server struct {
	node   *Node
	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the HTTPS Surface. tlsConfig must require and verify
// client certificates (see internal/trust.Store.ServerTLSConfig).
func NewServer(node *Node, tlsConfig *tls.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(node.SelfID))

	s := &Server{node: node, engine: engine}
	s.registerRoutes()

	s.http = &http.Server{
		Addr:      node.ListenAddr,
		Handler:   engine,
		TLSConfig: tlsConfig,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/peer/info", s.handlePeerInfo)
	s.engine.GET("/peers", s.handlePeers)
	s.engine.POST("/message/send", s.handleMessageSend)
	s.engine.POST("/message/receive", s.handleMessageReceive)
	s.engine.POST("/topology/lsa", s.handleLSA)
}

// ListenAndServeTLS starts serving. Certificates come from the
// http.Server's TLSConfig, so both arguments are left empty, the
// idiomatic net/http way of doing pre-configured mTLS.
func (s *Server) ListenAndServeTLS() error {
	meshlog.WithNode(s.node.SelfID).Infof("HTTPS surface listening on %s", s.node.ListenAddr)
	err := s.http.ListenAndServeTLS("", "")
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestLogger(selfID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.NewString()
		c.Set("request_id", reqID)
		start := time.Now()
		c.Next()
		meshlog.WithFields(map[string]interface{}{
			"node_id":     selfID,
			"request_id":  reqID,
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("handled request")
	}
}

// senderNodeID identifies the peer that made this request, by matching
// the common name of the client certificate the mTLS handshake already
// verified against the CA against a configured peer id. Returns "" if
// there is no match — flooding then simply excludes nobody, which is
// safe (the worst case is one redundant re-send to the sender itself,
// which the sender's own LSA-sequence check will ignore).
func senderNodeID(c *gin.Context, table *routing.Table) string {
	if c.Request.TLS == nil || len(c.Request.TLS.PeerCertificates) == 0 {
		return ""
	}
	cn := c.Request.TLS.PeerCertificates[0].Subject.CommonName
	for _, id := range table.NodeIDs() {
		if id == cn {
			return id
		}
	}
	return ""
}
