// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api serves the contract state and block ingestion over HTTP
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const DefaultListenAddress = ":8080"

type Config struct {
	ListenAddress string
	// EnableAdmin exposes the trim, undo and reset endpoints
	EnableAdmin bool
	// MaxConcurrentPerIP limits in-flight requests per client address. Zero
	// means no limit.
	MaxConcurrentPerIP int
}

// Server is the REST API server
type Server struct {
	config     Config
	logger     *slog.Logger
	indexer    Indexer
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new API server instance
func New(
	cfg Config,
	indexer Indexer,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	return &Server{
		config:  cfg,
		logger:  logger,
		indexer: indexer,
	}
}

// Handler returns the routes served by the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/members", s.handleMembers)
	mux.HandleFunc("GET /api/v1/members/{account}", s.handleMember)
	mux.HandleFunc(
		"GET /api/v1/members/{account}/elections",
		s.handleMemberElections,
	)
	mux.HandleFunc("GET /api/v1/elections", s.handleElections)
	mux.HandleFunc("GET /api/v1/elections/{time}", s.handleElection)
	mux.HandleFunc(
		"GET /api/v1/elections/{time}/groups",
		s.handleElectionGroups,
	)
	mux.HandleFunc("GET /api/v1/inductions", s.handleInductions)
	mux.HandleFunc("GET /api/v1/blocks", s.handleBlockLog)
	mux.HandleFunc("GET /api/v1/blocks/{num}", s.handleBlock)
	mux.HandleFunc("GET /api/v1/headers", s.handleBlockHeaders)
	mux.HandleFunc("GET /api/v1/faults", s.handleFaults)
	mux.HandleFunc("POST /api/v1/blocks", s.handleAddBlock)
	mux.HandleFunc("POST /api/v1/irreversible", s.handleSetIrreversible)
	if s.config.EnableAdmin {
		mux.HandleFunc("POST /api/v1/admin/trim", s.handleTrim)
		mux.HandleFunc("POST /api/v1/admin/undo", s.handleUndo)
		mux.HandleFunc("POST /api/v1/admin/reset", s.handleReset)
	}
	if s.config.MaxConcurrentPerIP > 0 {
		return newIPLimiter(s.config.MaxConcurrentPerIP).middleware(mux)
	}
	return mux
}

// Start starts the HTTP server in a background goroutine
func (s *Server) Start(
	ctx context.Context,
) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	// Bind first so port conflicts are reported here
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return fmt.Errorf("failed to listen for API server: %w", err)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()

	s.logger.Info(
		"API listener started on " + ln.Addr().String(),
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := s.Stop(shutdownCtx); err != nil {
			s.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(
	ctx context.Context,
) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv != nil {
		s.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown API server: %w", err)
		}
	}
	return nil
}
