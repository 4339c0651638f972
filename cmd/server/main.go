package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voicebridge/signaling/internal/config"
	"github.com/voicebridge/signaling/internal/engine"
	"github.com/voicebridge/signaling/internal/handler"
	"github.com/voicebridge/signaling/internal/iceservers"
	"github.com/voicebridge/signaling/internal/middleware"
	"github.com/voicebridge/signaling/internal/signaling"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("signaling server starting",
		zap.String("port", cfg.Port),
		zap.Int("staticIceServers", len(cfg.IceServers)),
		zap.Bool("iceServiceConfigured", cfg.IceServiceToken != ""),
	)

	eng, err := engine.NewPion(logger, cfg.IceServers, cfg.IceGatherTimeout)
	if err != nil {
		logger.Fatal("failed to create media engine", zap.Error(err))
	}

	coord := signaling.NewCoordinator(eng, logger)
	h := handler.New(coord, iceservers.New(cfg, logger), logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	coord.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
