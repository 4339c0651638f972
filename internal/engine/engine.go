// Package engine defines the boundary to the media transport layer. The
// signaling core invokes it exactly once per negotiation and otherwise
// treats it as a black box.
package engine

import "context"

// Engine performs the offer/answer exchange for one session.
type Engine interface {
	// SetupTrack takes an offer SDP, sets up the media transport for the
	// session, and returns the answer SDP together with the running track.
	SetupTrack(ctx context.Context, sessionID, offerSDP string) (string, Track, error)
}

// Track is a live media transport bound to one session. Serve runs until
// the context is cancelled or the transport fails.
type Track interface {
	Serve(ctx context.Context) error
	Close() error
}
