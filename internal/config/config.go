package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/voicebridge/signaling/internal/model"
)

type Config struct {
	Port             string
	IceServers       []model.IceServer
	IceServiceURL    string
	IceServiceToken  string
	DefaultStunURL   string
	IceGatherTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		IceServers:       parseIceServers(os.Getenv("ICE_SERVERS")),
		IceServiceURL:    getEnv("ICE_SERVICE_URL", "https://restsend.com/api/iceservers"),
		IceServiceToken:  os.Getenv("ICE_SERVICE_TOKEN"),
		DefaultStunURL:   getEnv("DEFAULT_STUN_URL", "stun:restsend.com:3478"),
		IceGatherTimeout: time.Duration(getEnvInt("ICE_GATHER_TIMEOUT_SEC", 10)) * time.Second,
	}
}

// parseIceServers decodes the ICE_SERVERS env var, a JSON array of
// {urls, username?, credential?}. Invalid JSON yields no static servers.
func parseIceServers(raw string) []model.IceServer {
	if raw == "" {
		return nil
	}
	var servers []model.IceServer
	if err := json.Unmarshal([]byte(raw), &servers); err != nil {
		return nil
	}
	return servers
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
