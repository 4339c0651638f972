package signaling

import (
	"errors"
	"strings"

	"github.com/voicebridge/signaling/internal/model"
)

var (
	// ErrInvalidKind is returned when the submitted description is not an offer.
	ErrInvalidKind = errors.New("invalid SDP type, expected 'offer'")
	// ErrEmptyBody is returned when the offer SDP is empty after trimming.
	ErrEmptyBody = errors.New("SDP content cannot be empty")
)

// ValidateOffer enforces the structural preconditions on an incoming offer.
// Checks run in order and the first failure wins. No SDP grammar validation
// happens here; malformed-but-nonempty SDP is the media engine's problem.
func ValidateOffer(desc model.SessionDescription) error {
	if desc.Type != "offer" {
		return ErrInvalidKind
	}
	if strings.TrimSpace(desc.SDP) == "" {
		return ErrEmptyBody
	}
	return nil
}
