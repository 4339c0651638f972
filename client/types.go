package client

import "encoding/json"

// SessionDescription carries an SDP blob and its direction.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// IceCandidate is a single trickled ICE candidate.
type IceCandidate struct {
	Candidate     string  `json:"candidate"`
	SdpMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
	SdpMid        *string `json:"sdpMid,omitempty"`
}

// SdpOfferRequest is the body of POST /webrtc/offer.
type SdpOfferRequest struct {
	Sdp       SessionDescription `json:"sdp"`
	SessionID string             `json:"session_id,omitempty"`
	Metadata  json.RawMessage    `json:"metadata,omitempty"`
}

// SdpAnswerResponse is the success body of POST /webrtc/offer.
type SdpAnswerResponse struct {
	Sdp           SessionDescription `json:"sdp"`
	SessionID     string             `json:"session_id"`
	IceCandidates []IceCandidate     `json:"ice_candidates,omitempty"`
	Metadata      json.RawMessage    `json:"metadata,omitempty"`
}

// IceCandidateRequest is the body of POST /webrtc/ice-candidate.
type IceCandidateRequest struct {
	SessionID string       `json:"session_id"`
	Candidate IceCandidate `json:"candidate"`
}

// IceCandidateResponse acknowledges a relayed candidate.
type IceCandidateResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// CloseSessionRequest is the body of POST /webrtc/close.
type CloseSessionRequest struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

// CloseSessionResponse acknowledges a session close.
type CloseSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// ErrorResponse is the error payload returned by the server.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code"`
	SessionID string `json:"session_id,omitempty"`
}

// IceServer describes one STUN/TURN server entry.
type IceServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}
