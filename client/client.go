// Package client is the caller-side counterpart of the signaling server:
// it issues offer, ICE candidate, and close requests over HTTP and maps
// failures into a retryable/non-retryable taxonomy. Independent clients
// and sessions are safe to drive in parallel; a Client holds only its base
// URL and a reusable connection pool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// RemoteError is a request the server decoded and rejected. Callers should
// not retry these; transport errors, by contrast, are returned as plain
// wrapped errors and may be retried.
type RemoteError struct {
	Code      int
	Message   string
	SessionID string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server error: %s (code: %d)", e.Message, e.Code)
}

// Client talks to a signaling server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client with a 30 second request timeout.
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: defaultTimeout})
}

// NewWithHTTPClient creates a client using a caller-supplied HTTP client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     zap.NewNop(),
	}
}

// SetLogger replaces the client's logger. Call before issuing requests.
func (c *Client) SetLogger(logger *zap.Logger) {
	c.logger = logger
}

// SendOffer submits an SDP offer and returns the server's answer. An empty
// sessionID lets the server allocate one; metadata is echoed back verbatim.
func (c *Client) SendOffer(ctx context.Context, offerSDP, sessionID string, metadata json.RawMessage) (*SdpAnswerResponse, error) {
	req := SdpOfferRequest{
		Sdp: SessionDescription{
			Type: "offer",
			SDP:  offerSDP,
		},
		SessionID: sessionID,
		Metadata:  metadata,
	}

	var resp SdpAnswerResponse
	if err := c.post(ctx, "/webrtc/offer", req, &resp); err != nil {
		return nil, err
	}
	c.logger.Info("received SDP answer", zap.String("session", resp.SessionID))
	return &resp, nil
}

// SendIceCandidate delivers one trickled ICE candidate for a session.
func (c *Client) SendIceCandidate(ctx context.Context, sessionID string, candidate IceCandidate) (*IceCandidateResponse, error) {
	req := IceCandidateRequest{SessionID: sessionID, Candidate: candidate}

	var resp IceCandidateResponse
	if err := c.post(ctx, "/webrtc/ice-candidate", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseSession terminates a session. Closing twice succeeds both times.
func (c *Client) CloseSession(ctx context.Context, sessionID, reason string) (*CloseSessionResponse, error) {
	req := CloseSessionRequest{SessionID: sessionID, Reason: reason}

	var resp CloseSessionResponse
	if err := c.post(ctx, "/webrtc/close", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetICEServers fetches the STUN/TURN server list.
func (c *Client) GetICEServers(ctx context.Context) ([]IceServer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/iceservers", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get ice servers: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var servers []IceServer
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return nil, fmt.Errorf("decode ice servers: %w", err)
	}
	return servers, nil
}

// ExchangeSDP is a plain offer/answer exchange with a server-allocated
// session id. It returns the session id and the answer SDP.
func (c *Client) ExchangeSDP(ctx context.Context, offerSDP string) (string, string, error) {
	resp, err := c.SendOffer(ctx, offerSDP, "", nil)
	if err != nil {
		return "", "", err
	}
	return resp.SessionID, resp.Sdp.SDP, nil
}

// ExchangeSDPWithSession is an offer/answer exchange under a caller-chosen
// session id. It returns the answer SDP.
func (c *Client) ExchangeSDPWithSession(ctx context.Context, offerSDP, sessionID string) (string, error) {
	resp, err := c.SendOffer(ctx, offerSDP, sessionID, nil)
	if err != nil {
		return "", err
	}
	return resp.Sdp.SDP, nil
}

// SetupSession performs the offer/answer exchange and then trickles the
// given candidates. Individual candidate failures are logged and skipped;
// the returned session id and answer reflect only the offer outcome.
func (c *Client) SetupSession(ctx context.Context, offerSDP string, candidates []IceCandidate) (string, string, error) {
	resp, err := c.SendOffer(ctx, offerSDP, "", nil)
	if err != nil {
		return "", "", err
	}

	for _, candidate := range candidates {
		if _, err := c.SendIceCandidate(ctx, resp.SessionID, candidate); err != nil {
			c.logger.Error("failed to send ICE candidate",
				zap.String("session", resp.SessionID),
				zap.Error(err),
			)
		}
	}

	return resp.SessionID, resp.Sdp.SDP, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var e ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return &RemoteError{Code: resp.StatusCode, Message: resp.Status}
	}
	return &RemoteError{Code: e.Code, Message: e.Error, SessionID: e.SessionID}
}
