// Package meshclient is the mTLS HTTP client used by the Forwarding
// Engine, the Health Monitor, and the LSA Broadcaster to talk to peers.
// It is the client-side mirror of the Trust Store's server configuration:
// every request presents this node's certificate and verifies the peer's
// certificate chains to the same CA. Grounded on
// internal/counter/counter.go's sendIncrementMessage (context-bound JSON
// POST, status-code check), with the plain http.Client swapped for one
// carrying the Trust Store's ClientTLSConfig.
package meshclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/solitude-labs/meshgatewayd/internal/wire"
)

// Client is a thin, context-aware JSON-over-mTLS client.
type Client struct {
	http *http.Client
}

// New builds a Client that dials peers using tlsConfig for mutual
// authentication. requestTimeout bounds every individual call, in
// addition to any deadline on the caller's context; whichever expires
// first ends the request.
func New(tlsConfig *tls.Config, requestTimeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
	}
}

// Get performs an mTLS GET against https://address/path and reports
// whether the response was 2xx within the caller's deadline.
func (c *Client) Get(ctx context.Context, address, path string) error {
	url := fmt.Sprintf("https://%s%s", address, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, address, path string, body, out interface{}) error {
	url := fmt.Sprintf("https://%s%s", address, path)
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// PostMessage forwards a relay message to the next hop's
// /message/receive endpoint. Implements forwarding.PeerClient.
func (c *Client) PostMessage(ctx context.Context, address string, msg wire.RelayMessage) (wire.MessageResponse, error) {
	var out wire.MessageResponse
	err := c.postJSON(ctx, address, "/message/receive", msg, &out)
	return out, err
}

// PostLSA floods an LSA to a connected peer's /topology/lsa endpoint.
// Implements lsabroadcast.PeerClient.
func (c *Client) PostLSA(ctx context.Context, address string, req wire.LSARequest) error {
	return c.postJSON(ctx, address, "/topology/lsa", req, nil)
}
