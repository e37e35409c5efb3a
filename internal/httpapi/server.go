// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Acctpool Contributors

// Package httpapi exposes the account service as a JSON HTTP API.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/acctpool/acctpool/internal/account"
	"github.com/acctpool/acctpool/internal/auth"
	"github.com/acctpool/acctpool/internal/observability"
)

// Server serves the account API over HTTP.
type Server struct {
	addr       string
	handler    http.Handler
	listener   net.Listener
	httpServer *http.Server
	logger     *slog.Logger
	running    atomic.Bool
}

// NewServer creates an API server. metrics may be nil, which disables
// request counters.
func NewServer(addr string, accounts *account.Service, gate *auth.Gate, metrics *observability.Metrics, logger *slog.Logger) (*Server, error) {
	if accounts == nil {
		return nil, oops.Code("API_SERVER_INVALID").Errorf("account service is required")
	}
	if gate == nil {
		return nil, oops.Code("API_SERVER_INVALID").Errorf("auth gate is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{
		accounts: accounts,
		gate:     gate,
		metrics:  metrics,
		logger:   logger,
	}

	return &Server{
		addr:    addr,
		handler: h.routes(),
		logger:  logger,
	}, nil
}

// Handler returns the routed handler, exported for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving the API. It returns an error channel that receives
// any server failure and is closed on graceful stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown api server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the address the server is listening on, or empty if stopped.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
