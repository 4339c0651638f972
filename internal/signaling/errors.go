package signaling

import "fmt"

// EngineError wraps a media engine failure. The session id is carried for
// diagnostics even though no record was created.
type EngineError struct {
	SessionID string
	Err       error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("failed to process SDP offer: %v", e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
