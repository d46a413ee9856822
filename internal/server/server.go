package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironsheep/image-enhancer/internal/config"
	"github.com/ironsheep/image-enhancer/internal/enhance"
	"github.com/ironsheep/image-enhancer/internal/model"
	"github.com/ironsheep/image-enhancer/internal/replicate"
	"github.com/sirupsen/logrus"
)

// ModelStatus reports the state of the model loader. *model.Loader
// satisfies it.
type ModelStatus interface {
	Status() model.Status
}

// Server serves the enhancement API over HTTP.
type Server struct {
	cfg      *config.Config
	enhancer *enhance.Enhancer
	models   ModelStatus
	log      *logrus.Logger
	engine   *gin.Engine

	// replicate is nil when no API token is configured.
	replicate *replicate.Client

	httpServer *http.Server
}

// New creates a server. models may be nil when no loader is configured, in
// which case /status reports the fallback path. The Replicate proxy routes
// answer 503 unless cfg carries an API token.
func New(cfg *config.Config, enhancer *enhance.Enhancer, models ModelStatus, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		cfg:      cfg,
		enhancer: enhancer,
		models:   models,
		log:      logger,
	}
	client, err := replicate.NewClient(replicate.Options{
		Token:          cfg.ReplicateAPIToken,
		BaseURL:        cfg.ReplicateBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		logger.WithError(err).Info("Replicate proxy disabled")
	} else {
		s.replicate = client
	}
	s.engine = s.routes()
	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.engine,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          log.New(s.log.WriterLevel(logrus.ErrorLevel), "", 0),
	}
	return s
}

// Handler returns the router, for use with httptest or a custom listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address and blocks until the server stops.
// A stop caused by Shutdown returns nil.
func (s *Server) Run() error {
	s.log.WithField("addr", s.cfg.Addr()).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
