// Scrape endpoint for the motion host
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrNotServing is reported by /ready before Serve and after Shutdown.
var ErrNotServing = errors.New("metrics: not serving")

// Gatherer renders metrics in Prometheus text format.
type Gatherer interface {
	Gather() string
}

// ServerConfig holds the scrape endpoint settings.
type ServerConfig struct {
	Address string

	// Basic auth for /metrics. Both empty disables it.
	Username string
	Password string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Ready reports why the engine cannot serve, or nil. Nil means ready
	// whenever the server is up.
	Ready func() error
}

// DefaultServerConfig listens on :9464.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":9464",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server serves /metrics, /health and /ready.
type Server struct {
	src   Gatherer
	cfg   ServerConfig
	http  *http.Server
	ready func() error

	mu      sync.RWMutex
	addr    string
	serving bool
	since   time.Time
}

// NewServer returns a server for src. It does not listen until Start or
// Serve.
func NewServer(src Gatherer, cfg ServerConfig) *Server {
	s := &Server{src: src, cfg: cfg, addr: cfg.Address, ready: cfg.Ready}
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the endpoint mux, for embedding or tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("metrics: listen %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.serving = true
	s.since = time.Now()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// StartAsync runs Start in a goroutine. The channel yields its error, if
// any, and is closed when the server stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown stops accepting scrapes and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.serving = false
	s.mu.Unlock()
	return s.http.Shutdown(ctx)
}

// Addr returns the listen address, resolved once serving.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Err returns nil when the server is up and the engine is ready.
func (s *Server) Err() error {
	s.mu.RLock()
	serving := s.serving
	s.mu.RUnlock()
	if !serving {
		return ErrNotServing
	}
	if s.ready != nil {
		return s.ready()
	}
	return nil
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="rotanim"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := s.src.Gather()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(out))
}

// handleHealth answers as long as the process serves HTTP.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	up := time.Since(s.since)
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "OK %.0fs\n", up.Seconds())
}

// handleReady is 200 only while the engine ticks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if err := s.Err(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Not Ready: %v\n", err)
		return
	}
	_, _ = w.Write([]byte("Ready\n"))
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.Username == "" && s.cfg.Password == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.Password)) == 1
	return userOK && passOK
}
