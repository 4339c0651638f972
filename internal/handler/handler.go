package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/voicebridge/signaling/internal/iceservers"
	"github.com/voicebridge/signaling/internal/model"
	"github.com/voicebridge/signaling/internal/signaling"
)

// Handlers holds dependencies for the signaling HTTP endpoints.
type Handlers struct {
	logger *zap.Logger
	coord  *signaling.Coordinator
	ice    *iceservers.Lookup
}

func New(coord *signaling.Coordinator, ice *iceservers.Lookup, logger *zap.Logger) *Handlers {
	return &Handlers{logger: logger, coord: coord, ice: ice}
}

// Register mounts the signaling endpoints on the given router.
func (h *Handlers) Register(r chi.Router) {
	r.Post("/webrtc/offer", h.Offer)
	r.Post("/webrtc/ice-candidate", h.IceCandidate)
	r.Post("/webrtc/close", h.Close)
	r.Get("/iceservers", h.IceServers)
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Offer handles POST /webrtc/offer.
func (h *Handlers) Offer(w http.ResponseWriter, r *http.Request) {
	var req model.SdpOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	h.logger.Info("received SDP offer",
		zap.String("type", req.Sdp.Type),
		zap.String("session", req.SessionID),
	)

	rec, err := h.coord.Negotiate(r.Context(), req.Sdp, req.SessionID, req.Metadata)
	if err != nil {
		var engineErr *signaling.EngineError
		if errors.As(err, &engineErr) {
			writeError(w, http.StatusInternalServerError, engineErr.Error(), engineErr.SessionID)
			return
		}
		// Validation failure: no session was allocated, echo the caller's id.
		writeError(w, http.StatusBadRequest, err.Error(), req.SessionID)
		return
	}

	writeJSON(w, http.StatusOK, model.SdpAnswerResponse{
		Sdp: model.SessionDescription{
			Type: "answer",
			SDP:  rec.Answer,
		},
		SessionID: rec.SessionID,
		Metadata:  req.Metadata,
	})
}

// IceCandidate handles POST /webrtc/ice-candidate.
func (h *Handlers) IceCandidate(w http.ResponseWriter, r *http.Request) {
	var req model.IceCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	ack := h.coord.Relay(req.SessionID, req.Candidate)
	writeJSON(w, http.StatusOK, ack)
}

// Close handles POST /webrtc/close.
func (h *Handlers) Close(w http.ResponseWriter, r *http.Request) {
	var req model.CloseSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	ack := h.coord.Close(req.SessionID, req.Reason)
	writeJSON(w, http.StatusOK, ack)
}

// IceServers handles GET /iceservers.
func (h *Handlers) IceServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ice.Servers(clientAddr(r)))
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, sessionID string) {
	writeJSON(w, status, model.ErrorResponse{
		Error:     msg,
		Code:      status,
		SessionID: sessionID,
	})
}
