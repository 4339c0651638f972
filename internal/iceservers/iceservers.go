// Package iceservers resolves the STUN/TURN server list handed to clients.
package iceservers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/voicebridge/signaling/internal/config"
	"github.com/voicebridge/signaling/internal/model"
)

const upstreamTimeout = 5 * time.Second

// Lookup resolves ICE servers, preferring the upstream credential service
// when a token is configured and degrading to static configuration on any
// failure. It never fails outward.
type Lookup struct {
	logger     *zap.Logger
	cfg        *config.Config
	httpClient *http.Client
}

func New(cfg *config.Config, logger *zap.Logger) *Lookup {
	return &Lookup{
		logger:     logger,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: upstreamTimeout},
	}
}

// Servers returns a usable ICE server list for the given client address.
func (l *Lookup) Servers(clientAddr string) []model.IceServer {
	if l.cfg.IceServiceToken == "" {
		return l.static()
	}

	start := time.Now()
	reqURL := fmt.Sprintf("%s?token=%s&client=%s",
		l.cfg.IceServiceURL,
		url.QueryEscape(l.cfg.IceServiceToken),
		url.QueryEscape(clientAddr),
	)

	resp, err := l.httpClient.Get(reqURL)
	if err != nil {
		l.logger.Error("ice server lookup failed", zap.Error(err))
		return l.static()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Error("ice server lookup non-success status", zap.Int("status", resp.StatusCode))
		return l.static()
	}

	var servers []model.IceServer
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		l.logger.Error("decode ice servers failed", zap.Error(err))
		return l.static()
	}

	l.logger.Info("fetched ice servers",
		zap.Int("count", len(servers)),
		zap.String("clientAddr", clientAddr),
		zap.Int64("durationMs", time.Since(start).Milliseconds()),
	)
	return servers
}

// static returns the configured list, or a single default STUN-only entry
// when nothing is configured.
func (l *Lookup) static() []model.IceServer {
	if len(l.cfg.IceServers) > 0 {
		return l.cfg.IceServers
	}
	return []model.IceServer{{URLs: []string{l.cfg.DefaultStunURL}}}
}
