package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/nack"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/voicebridge/signaling/internal/model"
)

// PionEngine answers offers with a pion PeerConnection per session.
type PionEngine struct {
	api           *webrtc.API
	logger        *zap.Logger
	iceServers    []webrtc.ICEServer
	gatherTimeout time.Duration
}

// NewPion creates an engine with Opus registered and a NACK responder
// configured.
func NewPion(logger *zap.Logger, iceServers []model.IceServer, gatherTimeout time.Duration) (*PionEngine, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   48000,
			Channels:    2,
			SDPFmtpLine: "minptime=10;useinbandfec=1",
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register opus codec: %w", err)
	}

	ir := &interceptor.Registry{}
	responder, err := nack.NewResponderInterceptor()
	if err != nil {
		return nil, fmt.Errorf("create nack responder: %w", err)
	}
	ir.Add(responder)

	ice := make([]webrtc.ICEServer, 0, len(iceServers))
	for _, s := range iceServers {
		ice = append(ice, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	return &PionEngine{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(m),
			webrtc.WithInterceptorRegistry(ir),
		),
		logger:        logger,
		iceServers:    ice,
		gatherTimeout: gatherTimeout,
	}, nil
}

// SetupTrack applies the remote offer, generates the local answer, and waits
// for ICE gathering (bounded) before returning the answer SDP.
func (e *PionEngine) SetupTrack(ctx context.Context, sessionID, offerSDP string) (string, Track, error) {
	logger := e.logger.With(zap.String("session", sessionID))

	pc, err := e.api.NewPeerConnection(webrtc.Configuration{
		ICEServers: e.iceServers,
	})
	if err != nil {
		return "", nil, fmt.Errorf("create peer connection: %w", err)
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}); err != nil {
		pc.Close()
		return "", nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return "", nil, fmt.Errorf("create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return "", nil, fmt.Errorf("set local description: %w", err)
	}

	// Wait for ICE gathering so the answer carries candidates inline.
	gatherDone := webrtc.GatheringCompletePromise(pc)
	select {
	case <-gatherDone:
	case <-time.After(e.gatherTimeout):
		logger.Warn("ICE gathering timed out, proceeding with partial candidates")
	case <-ctx.Done():
		pc.Close()
		return "", nil, ctx.Err()
	}

	track := newPionTrack(pc, logger)

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("peer connection state", zap.String("state", state.String()))
		if state == webrtc.PeerConnectionStateFailed ||
			state == webrtc.PeerConnectionStateClosed {
			track.markDone()
		}
	})

	return pc.LocalDescription().SDP, track, nil
}

type pionTrack struct {
	pc     *webrtc.PeerConnection
	logger *zap.Logger

	once sync.Once
	done chan struct{}
}

func newPionTrack(pc *webrtc.PeerConnection, logger *zap.Logger) *pionTrack {
	return &pionTrack{pc: pc, logger: logger, done: make(chan struct{})}
}

func (t *pionTrack) markDone() {
	t.once.Do(func() { close(t.done) })
}

// Serve blocks until cancellation or transport failure, then tears down the
// peer connection.
func (t *pionTrack) Serve(ctx context.Context) error {
	select {
	case <-ctx.Done():
		t.markDone()
		if err := t.pc.Close(); err != nil {
			t.logger.Warn("close peer connection", zap.Error(err))
		}
		return ctx.Err()
	case <-t.done:
		return t.pc.Close()
	}
}

func (t *pionTrack) Close() error {
	t.markDone()
	return t.pc.Close()
}
