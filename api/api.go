// Copyright 2026 Blink Labs Software
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

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const defaultListenAddress = ":3000"

// Server is the governance REST API server. It also answers gRPC
// health checks over h2c on the same listener.
type Server struct {
	config     Config
	logger     *slog.Logger
	node       Node
	limiter    *rateLimiter
	httpServer *http.Server
	listenAddr net.Addr
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg Config,
	node Node,
	logger *slog.Logger,
) (*Server, error) {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListenAddress
	}
	s := &Server{
		config: cfg,
		logger: logger,
		node:   node,
	}
	if cfg.RateLimit > 0 {
		limiter, err := newRateLimiter(cfg.RateLimit, cfg.RateBurst)
		if err != nil {
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
		s.limiter = limiter
	}
	return s, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/v0/epoch", s.handleEpoch)
	mux.HandleFunc("POST /api/v0/epoch/advance", s.handleAdvanceEpoch)
	mux.HandleFunc("GET /api/v0/registry", s.handleRegistry)
	mux.HandleFunc("GET /api/v0/proposals", s.handleListProposals)
	mux.HandleFunc("POST /api/v0/proposals", s.handleCreateProposal)
	mux.HandleFunc("GET /api/v0/proposals/{id}", s.handleGetProposal)
	mux.HandleFunc(
		"GET /api/v0/proposals/{id}/result",
		s.handleProposalResult,
	)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/votes",
		s.handleCastVote,
	)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/resolve",
		s.handleResolve,
	)
	mux.HandleFunc(
		"POST /api/v0/proposals/{id}/execute",
		s.handleExecute,
	)
	mux.HandleFunc(
		"POST /api/v0/receipts/{id}/redeem",
		s.handleRedeem,
	)
	mux.HandleFunc(
		"GET /api/v0/accounts/{address}/balance/{resource}",
		s.handleBalance,
	)
	mux.HandleFunc("GET /api/v0/counter", s.handleCounter)

	compress1KB := connect.WithCompressMinBytes(1024)
	mux.Handle(
		grpchealth.NewHandler(
			&healthChecker{node: s.node},
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1(
			grpcreflect.NewStaticReflector(
				grpchealth.HealthV1ServiceName,
			),
			compress1KB,
		),
	)

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = s.limiter.middleware(handler)
	}
	// Use h2c so we can serve HTTP/2 without TLS
	return h2c.NewHandler(handler, &http2.Server{})
}

// Start starts the HTTP server in a background goroutine.
func (s *Server) Start(
	ctx context.Context,
) error {
	s.mu.Lock()
	if s.httpServer != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	server := &http.Server{
		Addr:              s.config.ListenAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	s.httpServer = server
	s.mu.Unlock()

	// Bind first so port conflicts are reported by Start
	addr, err := s.startServer(server)
	if err != nil {
		s.mu.Lock()
		s.httpServer = nil
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.listenAddr = addr
	s.mu.Unlock()

	s.logger.Info(
		"API listener started on " + addr.String(),
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		srv := s.httpServer
		s.httpServer = nil
		s.mu.Unlock()

		if srv != nil {
			s.logger.Debug(
				"context cancelled, shutting down API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listenAddr
}

// Stop gracefully shuts down the HTTP server.
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
			return fmt.Errorf(
				"failed to shutdown API server: %w",
				err,
			)
		}
	}
	return nil
}

func (s *Server) startServer(
	server *http.Server,
) (net.Addr, error) {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to listen for API server: %w",
			err,
		)
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
	return ln.Addr(), nil
}

// healthChecker reports serving while the governance registry is readable
type healthChecker struct {
	node Node
}

func (h *healthChecker) Check(
	ctx context.Context,
	req *grpchealth.CheckRequest,
) (*grpchealth.CheckResponse, error) {
	if req.Service != "" && req.Service != grpchealth.HealthV1ServiceName {
		return nil, connect.NewError(
			connect.CodeNotFound,
			fmt.Errorf("unknown service %q", req.Service),
		)
	}
	if _, err := h.node.RegistryInfo(ctx); err != nil {
		return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
}
