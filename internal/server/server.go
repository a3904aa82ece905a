package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sghtao/companion-camp-backend/internal/evaluation"
	"github.com/sghtao/companion-camp-backend/internal/metrics"
)

const ServiceName = "Companion Camp Backend API"

// Server exposes the evaluation, coin and advertisement endpoints.
type Server struct {
	evaluator evaluation.Evaluator
	coins     CoinService
	ads       AdService
	metrics   *metrics.Metrics
	version   string
	logger    *slog.Logger

	router *gin.Engine
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

func New(evaluator evaluation.Evaluator, coins CoinService, ads AdService, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		evaluator: evaluator,
		coins:     coins,
		ads:       ads,
		version:   "1.0.0",
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(Recovery(s.logger))
	router.Use(RequestID())
	router.Use(Logging(s.logger))
	router.Use(CORS())
	if s.metrics != nil {
		router.Use(s.metrics.Middleware())
		router.GET("/metrics", s.metrics.Handler())
	}

	router.GET("/", s.root)
	router.GET("/health", s.health)

	router.POST("/evaluation/analyze/:username", s.analyze)

	coins := router.Group("/coins")
	{
		coins.GET("", s.listCoins)
		coins.POST("/purchase", s.purchase)
		coins.GET("/history/:username", s.purchaseHistory)
	}

	ads := router.Group("/advertisements")
	{
		ads.GET("/recommendations/:username", s.recommendations)
		ads.POST("/select", s.selectAd)
		ads.GET("/selected/:username", s.selectedAd)
	}

	return router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}
