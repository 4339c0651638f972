package signaling

import (
	"errors"
	"testing"

	"github.com/voicebridge/signaling/internal/model"
)

func TestValidateOffer(t *testing.T) {
	tests := []struct {
		name string
		desc model.SessionDescription
		want error
	}{
		{"valid offer", model.SessionDescription{Type: "offer", SDP: "v=0\r\n"}, nil},
		{"answer kind", model.SessionDescription{Type: "answer", SDP: "v=0\r\n"}, ErrInvalidKind},
		{"rollback kind", model.SessionDescription{Type: "rollback", SDP: "v=0\r\n"}, ErrInvalidKind},
		{"empty kind", model.SessionDescription{Type: "", SDP: "v=0\r\n"}, ErrInvalidKind},
		{"empty body", model.SessionDescription{Type: "offer", SDP: ""}, ErrEmptyBody},
		{"whitespace body", model.SessionDescription{Type: "offer", SDP: " \r\n\t "}, ErrEmptyBody},
		// Kind is checked before the body; first failure wins.
		{"wrong kind and empty body", model.SessionDescription{Type: "answer", SDP: ""}, ErrInvalidKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateOffer(tt.desc); !errors.Is(err, tt.want) {
				t.Errorf("ValidateOffer = %v, want %v", err, tt.want)
			}
		})
	}
}
