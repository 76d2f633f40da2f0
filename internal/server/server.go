package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/firelink/firebridge/internal/assist"
	"github.com/firelink/firebridge/internal/channel"
	"github.com/firelink/firebridge/internal/config"
	"github.com/firelink/firebridge/internal/coordinator"
	"github.com/firelink/firebridge/internal/dom"
	"github.com/firelink/firebridge/internal/logging"
	"github.com/firelink/firebridge/internal/middleware"
	"github.com/firelink/firebridge/internal/page"
	"github.com/firelink/firebridge/internal/peer"
	"github.com/firelink/firebridge/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const emptyDocument = "<!DOCTYPE html><html><head></head><body></body></html>"

// Server wires the bridge together: peer channel, request coordinator,
// transaction engine, page fetcher and the WebSocket UI surface.
type Server struct {
	cfg         *config.Config
	log         *logging.Logger
	router      *gin.Engine
	coordinator *coordinator.Coordinator
	engine      *dom.Engine
	httpServer  *http.Server
}

// New creates a server from configuration.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	if log == nil {
		log = logging.NewDefault()
	}

	manifest, err := peer.LoadManifest(cfg.Peer.ManifestPath)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := coordinator.NewMetrics(registry)

	dial := func(handlers channel.Handlers) (channel.Transport, error) {
		return peer.Spawn(context.Background(), manifest, handlers,
			cfg.Peer.MaxFrameSize, log.Named("peer"))
	}
	coord := coordinator.New(dial, cfg.Peer.RequestTimeout, log.Named("coordinator"), metrics)

	fetcher := page.NewFetcher(page.Config{
		Timeout:      cfg.Page.FetchTimeout,
		AllowedHosts: cfg.Page.AllowedHosts,
	}, log.Named("page"))

	assistant := assist.New(coord, fetcher,
		cfg.Page.ContentLimit, cfg.Page.HTMLLimit, log.Named("assist"))

	engine, err := dom.FromHTML(emptyDocument, log.Named("dom"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document engine: %w", err)
	}
	highlighter := dom.NewHighlighter(engine)

	wsHandler := ws.NewHandler(assistant, engine, highlighter, log.Named("ws"))

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	s := &Server{
		cfg:         cfg,
		log:         log,
		router:      router,
		coordinator: coord,
		engine:      engine,
	}
	s.registerRoutes(wsHandler, registry)
	return s, nil
}

func (s *Server) registerRoutes(wsHandler *ws.Handler, registry *prometheus.Registry) {
	s.router.GET("/ws", wsHandler.HandleConnection)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"pending":    s.coordinator.Pending(),
			"undo_depth": s.engine.Depth(),
		})
	})
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.log.Info("bridge listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Close()
	}
}

// Close shuts the server down and tears down the peer channel.
func (s *Server) Close() error {
	if err := s.coordinator.Close(); err != nil {
		s.log.Warn("peer channel close failed", zap.Error(err))
	}
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
