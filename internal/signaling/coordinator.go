// Package signaling implements the session negotiation core: offer
// validation, session identity, the offer/answer exchange against the media
// engine, ICE candidate relay, and the session close contract.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voicebridge/signaling/internal/engine"
	"github.com/voicebridge/signaling/internal/metrics"
	"github.com/voicebridge/signaling/internal/model"
)

// Record is the negotiation state held for the lifetime of one session.
// It is owned exclusively by the Coordinator.
type Record struct {
	SessionID string
	Offer     string
	Answer    string
	Metadata  json.RawMessage
	CreatedAt time.Time

	track  engine.Track
	cancel context.CancelFunc
}

// Coordinator orchestrates negotiations and owns the session table. All
// access to session state goes through its methods.
type Coordinator struct {
	logger *zap.Logger
	engine engine.Engine

	mu       sync.RWMutex
	sessions map[string]*Record
}

func NewCoordinator(eng engine.Engine, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		logger:   logger,
		engine:   eng,
		sessions: make(map[string]*Record),
	}
}

// Negotiate validates the offer, allocates a session id, performs exactly
// one offer/answer exchange against the media engine, and starts the
// session's serve task in the background.
//
// When an explicit id collides with a live session, the newer negotiation
// wins: the displaced record's task is cancelled and its track released at
// replace time.
func (c *Coordinator) Negotiate(ctx context.Context, offer model.SessionDescription, explicitID string, metadata json.RawMessage) (*Record, error) {
	if err := ValidateOffer(offer); err != nil {
		metrics.NegotiationFailuresTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	sessionID := AllocateSessionID(explicitID)
	logger := c.logger.With(zap.String("session", sessionID))

	start := time.Now()
	answer, track, err := c.engine.SetupTrack(ctx, sessionID, offer.SDP)
	if err != nil {
		metrics.NegotiationFailuresTotal.WithLabelValues("engine").Inc()
		logger.Error("engine setup failed", zap.Error(err))
		return nil, &EngineError{SessionID: sessionID, Err: err}
	}
	metrics.OfferLatency.Observe(float64(time.Since(start).Milliseconds()))

	serveCtx, cancel := context.WithCancel(context.Background())
	rec := &Record{
		SessionID: sessionID,
		Offer:     offer.SDP,
		Answer:    answer,
		Metadata:  metadata,
		CreatedAt: time.Now(),
		track:     track,
		cancel:    cancel,
	}

	c.mu.Lock()
	old := c.sessions[sessionID]
	c.sessions[sessionID] = rec
	c.mu.Unlock()

	if old != nil {
		logger.Warn("session replaced by newer negotiation")
		metrics.SessionsReplacedTotal.Inc()
		c.release(old)
	} else {
		metrics.ActiveSessions.Inc()
	}
	metrics.SessionsCreatedTotal.Inc()

	go func() {
		if err := track.Serve(serveCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("media track ended", zap.Error(err))
		}
	}()

	logger.Info("session negotiated", zap.Int("answerLen", len(answer)))
	return rec, nil
}

// Relay accepts a trickled ICE candidate and acknowledges it. Unknown
// session ids are acknowledged too; trickling clients may deliver
// candidates at least once and out of order with close.
func (c *Coordinator) Relay(sessionID string, candidate model.IceCandidate) model.IceCandidateResponse {
	metrics.IceCandidatesTotal.Inc()
	c.logger.Info("ice candidate received",
		zap.String("session", sessionID),
		zap.Int("candidateLen", len(candidate.Candidate)),
	)
	return model.IceCandidateResponse{SessionID: sessionID, Status: "received"}
}

// Close tears down the session: cancels its serve task, releases the
// engine track, and removes the record. Closing an unknown or already
// closed id succeeds; close is idempotent.
func (c *Coordinator) Close(sessionID, reason string) model.CloseSessionResponse {
	c.mu.Lock()
	rec, ok := c.sessions[sessionID]
	if ok {
		delete(c.sessions, sessionID)
	}
	c.mu.Unlock()

	if ok {
		c.release(rec)
		metrics.ActiveSessions.Dec()
		metrics.SessionsClosedTotal.Inc()
		c.logger.Info("session closed",
			zap.String("session", sessionID),
			zap.String("reason", reason),
		)
	}
	return model.CloseSessionResponse{SessionID: sessionID, Status: "closed"}
}

// Lookup returns the record for a session id, if any.
func (c *Coordinator) Lookup(sessionID string) (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.sessions[sessionID]
	return rec, ok
}

// SessionCount returns the current number of live sessions.
func (c *Coordinator) SessionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Shutdown closes every live session.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[string]*Record)
	c.mu.Unlock()

	for _, rec := range sessions {
		c.release(rec)
	}
	metrics.ActiveSessions.Set(0)
	c.logger.Info("coordinator shutdown complete", zap.Int("closed", len(sessions)))
}

func (c *Coordinator) release(rec *Record) {
	rec.cancel()
	if err := rec.track.Close(); err != nil {
		c.logger.Warn("close track", zap.String("session", rec.SessionID), zap.Error(err))
	}
}
