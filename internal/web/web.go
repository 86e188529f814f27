// Package web provides the HTTP API server: rule management, the alert
// event log, and the cron-triggered run endpoint.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/v-momentum/momentum/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address      string
	CronSecret   string // shared secret for the scheduled run endpoint
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Verbose      bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout == 0 {
		// Runs call GA4 and SMTP inline; give them room.
		c.WriteTimeout = 5 * time.Minute
	}
}

// Server is the HTTP API server.
type Server struct {
	config      *Config
	storage     storage.Storage
	coordinator AlertRunner
	logger      *zap.Logger
	server      *http.Server
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, coordinator AlertRunner, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if coordinator == nil {
		return nil, fmt.Errorf("coordinator is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:      cfg,
		storage:     store,
		coordinator: coordinator,
		logger:      logger,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP API listening", zap.String("address", s.config.Address))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
