package signaling

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voicebridge/signaling/internal/engine"
	"github.com/voicebridge/signaling/internal/model"
)

const testOfferSDP = "v=0\r\no=- 123456789 123456789 IN IP4 192.168.1.1\r\ns=-\r\nt=0 0\r\n"

var sessionIDPattern = regexp.MustCompile(`^[0-9a-f-]{36}$`)

type fakeTrack struct {
	mu        sync.Mutex
	closed    bool
	cancelled chan struct{}
}

func newFakeTrack() *fakeTrack {
	return &fakeTrack{cancelled: make(chan struct{})}
}

func (t *fakeTrack) Serve(ctx context.Context) error {
	<-ctx.Done()
	close(t.cancelled)
	return ctx.Err()
}

func (t *fakeTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTrack) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type fakeEngine struct {
	calls  atomic.Int32
	fail   bool
	mu     sync.Mutex
	tracks []*fakeTrack
}

func (e *fakeEngine) SetupTrack(ctx context.Context, sessionID, offerSDP string) (string, engine.Track, error) {
	e.calls.Add(1)
	if e.fail {
		return "", nil, errors.New("engine exploded")
	}
	t := newFakeTrack()
	e.mu.Lock()
	e.tracks = append(e.tracks, t)
	e.mu.Unlock()
	return "v=0\r\no=- 987654321 987654321 IN IP4 192.168.1.2\r\ns=-\r\nt=0 0\r\n", t, nil
}

func (e *fakeEngine) track(i int) *fakeTrack {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracks[i]
}

func newTestCoordinator(eng engine.Engine) *Coordinator {
	return NewCoordinator(eng, zap.NewNop())
}

func offer(sdp string) model.SessionDescription {
	return model.SessionDescription{Type: "offer", SDP: sdp}
}

func TestNegotiateRejectsInvalidKind(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestCoordinator(eng)

	_, err := c.Negotiate(context.Background(), model.SessionDescription{Type: "answer", SDP: testOfferSDP}, "", nil)
	if !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if n := eng.calls.Load(); n != 0 {
		t.Errorf("engine invoked %d times for invalid offer, want 0", n)
	}
}

func TestNegotiateRejectsEmptyBody(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestCoordinator(eng)

	for _, sdp := range []string{"", "   ", "\r\n\t "} {
		_, err := c.Negotiate(context.Background(), offer(sdp), "", nil)
		if !errors.Is(err, ErrEmptyBody) {
			t.Errorf("sdp %q: expected ErrEmptyBody, got %v", sdp, err)
		}
	}
	if n := eng.calls.Load(); n != 0 {
		t.Errorf("engine invoked %d times for empty offers, want 0", n)
	}
}

func TestNegotiateGeneratesSessionID(t *testing.T) {
	c := newTestCoordinator(&fakeEngine{})

	rec, err := c.Negotiate(context.Background(), offer(testOfferSDP), "", nil)
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if !sessionIDPattern.MatchString(rec.SessionID) {
		t.Errorf("generated session id %q is not canonical", rec.SessionID)
	}
	if rec.Answer == "" {
		t.Error("expected non-empty answer")
	}
}

func TestNegotiateEchoesExplicitID(t *testing.T) {
	c := newTestCoordinator(&fakeEngine{})

	rec, err := c.Negotiate(context.Background(), offer(testOfferSDP), "S", nil)
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if rec.SessionID != "S" {
		t.Errorf("session id = %q, want %q", rec.SessionID, "S")
	}
}

func TestNegotiateEngineFailure(t *testing.T) {
	c := newTestCoordinator(&fakeEngine{fail: true})

	_, err := c.Negotiate(context.Background(), offer(testOfferSDP), "", nil)
	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if engineErr.SessionID == "" {
		t.Error("engine error should carry the allocated session id")
	}
	if c.SessionCount() != 0 {
		t.Errorf("no record should exist after engine failure, have %d", c.SessionCount())
	}
}

func TestCloseIdempotent(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestCoordinator(eng)

	rec, err := c.Negotiate(context.Background(), offer(testOfferSDP), "", nil)
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}

	ack := c.Close(rec.SessionID, "done")
	if ack.Status != "closed" || ack.SessionID != rec.SessionID {
		t.Errorf("first close ack = %+v", ack)
	}

	track := eng.track(0)
	select {
	case <-track.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("serve task did not observe cancellation")
	}
	if !track.isClosed() {
		t.Error("track not released on close")
	}

	ack = c.Close(rec.SessionID, "")
	if ack.Status != "closed" {
		t.Errorf("second close ack = %+v, want closed", ack)
	}
	if c.SessionCount() != 0 {
		t.Errorf("session count = %d after close, want 0", c.SessionCount())
	}
}

func TestRelayAcknowledgesUnknownSession(t *testing.T) {
	c := newTestCoordinator(&fakeEngine{})

	ack := c.Relay("never-negotiated", model.IceCandidate{Candidate: "candidate:1 1 UDP 2013266431 192.168.1.1 54400 typ host"})
	if ack.Status != "received" {
		t.Errorf("relay status = %q, want received", ack.Status)
	}
	if ack.SessionID != "never-negotiated" {
		t.Errorf("relay echoed session id %q", ack.SessionID)
	}
}

func TestExplicitIDReplacementTearsDownLoser(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestCoordinator(eng)

	first, err := c.Negotiate(context.Background(), offer(testOfferSDP), "dup", nil)
	if err != nil {
		t.Fatalf("first negotiate: %v", err)
	}
	second, err := c.Negotiate(context.Background(), offer(testOfferSDP), "dup", nil)
	if err != nil {
		t.Fatalf("second negotiate: %v", err)
	}
	if first.SessionID != second.SessionID {
		t.Fatalf("both records should share the explicit id")
	}

	if !eng.track(0).isClosed() {
		t.Error("displaced track should be released at replace time")
	}
	if eng.track(1).isClosed() {
		t.Error("winning track should stay live")
	}
	if c.SessionCount() != 1 {
		t.Errorf("session count = %d, want 1", c.SessionCount())
	}

	rec, ok := c.Lookup("dup")
	if !ok || rec != second {
		t.Error("table should hold the newer record")
	}
}

func TestConcurrentSessionsNoCrossTalk(t *testing.T) {
	c := newTestCoordinator(&fakeEngine{})

	ids := []string{"session-a", "session-b", "session-c"}
	recs := make([]*Record, len(ids))
	errs := make([]error, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			recs[i], errs[i] = c.Negotiate(context.Background(), offer(testOfferSDP), id, nil)
		}(i, id)
	}
	wg.Wait()

	for i, id := range ids {
		if errs[i] != nil {
			t.Fatalf("session %s: %v", id, errs[i])
		}
		if recs[i].SessionID != id {
			t.Errorf("session %d echoed id %q, want %q", i, recs[i].SessionID, id)
		}
	}
	if c.SessionCount() != len(ids) {
		t.Errorf("session count = %d, want %d", c.SessionCount(), len(ids))
	}
}

func TestShutdownClosesAllSessions(t *testing.T) {
	eng := &fakeEngine{}
	c := newTestCoordinator(eng)

	for _, id := range []string{"x", "y"} {
		if _, err := c.Negotiate(context.Background(), offer(testOfferSDP), id, nil); err != nil {
			t.Fatalf("negotiate %s: %v", id, err)
		}
	}

	c.Shutdown()

	if c.SessionCount() != 0 {
		t.Errorf("session count = %d after shutdown, want 0", c.SessionCount())
	}
	for i := 0; i < 2; i++ {
		if !eng.track(i).isClosed() {
			t.Errorf("track %d not released by shutdown", i)
		}
	}
}

func TestMetadataStoredVerbatim(t *testing.T) {
	c := newTestCoordinator(&fakeEngine{})

	meta := []byte(`{"caller":"alice","tags":[1,2,3]}`)
	rec, err := c.Negotiate(context.Background(), offer(testOfferSDP), "", meta)
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if string(rec.Metadata) != string(meta) {
		t.Errorf("metadata mutated: %s", rec.Metadata)
	}
}
