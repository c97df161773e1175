// Package telemetry serves a JSON-RPC API over HTTP and WebSocket for
// querying and triggering animated objects. WebSocket clients may subscribe
// to objects and receive notify_status_update pushes.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package telemetry

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"rotanim/pkg/anim"
	"rotanim/pkg/errors"
	"rotanim/pkg/host"
	"rotanim/pkg/log"
	"rotanim/pkg/pool"
	"rotanim/pkg/subsys"
)

var logger = log.GetLogger("telemetry")

// Version is reported by server.info.
const Version = "0.3.0"

// Engine is the part of the motion host the API drives.
type Engine interface {
	Objects(ctx context.Context) ([]string, error)
	Snapshot(ctx context.Context, names ...string) ([]host.ObjectStatus, error)
	Trigger(ctx context.Context, object string, req subsys.Request) (subsys.Dispatch, error)
	Push(ctx context.Context, id int, object string, req subsys.Request) (bool, error)
	Pop(ctx context.Context, id int) (bool, error)
	ETA(ctx context.Context, object string, kind anim.TriggerKind, subtype int) (time.Duration, error)
	SetHits(ctx context.Context, object, part string, hits float64) error
}

// Config holds server configuration.
type Config struct {
	// Addr to listen on, e.g. ":7125".
	Addr string
	// CallTimeout bounds each engine call. Default 2s.
	CallTimeout time.Duration
	// AllowedOrigins lists WebSocket origins; empty allows any.
	AllowedOrigins []string
}

// Server is the telemetry API server.
type Server struct {
	engine Engine
	cfg    Config

	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[string]*wsClient

	originsMu sync.RWMutex
	origins   []string

	running   atomic.Bool
	startTime time.Time
}

// New creates a server for engine.
func New(engine Engine, cfg Config) *Server {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 2 * time.Second
	}
	s := &Server{
		engine:    engine,
		cfg:       cfg,
		mux:       http.NewServeMux(),
		clients:   make(map[string]*wsClient),
		origins:   cfg.AllowedOrigins,
		startTime: time.Now(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	s.mux.HandleFunc("/jsonrpc", s.handleJSONRPC)
	s.mux.HandleFunc("/websocket", s.handleWebSocket)
	s.mux.HandleFunc("/api/", s.handleREST)
	return s
}

// Handler returns the HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrRuntimeInit, "telemetry listen")
	}
	return s.Serve(ln)
}

// Serve serves on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.running.Store(true)
	logger.WithField("addr", ln.Addr().String()).Info("telemetry server listening")
	err := s.httpServer.Serve(ln)
	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop closes every client and the listener.
func (s *Server) Stop() error {
	s.running.Store(false)
	s.clientsMu.Lock()
	for _, c := range s.clients {
		c.Close()
	}
	s.clients = make(map[string]*wsClient)
	s.clientsMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// SetAllowedOrigins replaces the WebSocket origin list for new connections.
func (s *Server) SetAllowedOrigins(origins []string) {
	s.originsMu.Lock()
	defer s.originsMu.Unlock()
	s.origins = origins
}

func (s *Server) checkOrigin(r *http.Request) bool {
	s.originsMu.RLock()
	defer s.originsMu.RUnlock()
	if len(s.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range s.origins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id,omitempty"`
}

type rpcNotification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

func decodeParams(raw json.RawMessage) (params, *rpcError) {
	p := params{}
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: "params must be an object"}
	}
	return p, nil
}

// call runs one method and converts failures to JSON-RPC errors.
func (s *Server) call(ctx context.Context, method string, raw json.RawMessage, c *wsClient) (any, *rpcError) {
	p, perr := decodeParams(raw)
	if perr != nil {
		return nil, perr
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	result, err := s.dispatch(ctx, method, p, c)
	if err != nil {
		return nil, toRPCError(err)
	}
	return result, nil
}

func toRPCError(err error) *rpcError {
	var re *rpcError
	if stderrors.As(err, &re) {
		return re
	}
	e := &rpcError{Code: codeServer, Message: err.Error()}
	if code, ok := errors.CodeOf(err); ok {
		e.Data = map[string]any{"code": string(code)}
	}
	return e
}

func (s *Server) dispatch(ctx context.Context, method string, p params, c *wsClient) (any, error) {
	switch method {
	case "server.info":
		return s.methodServerInfo(), nil
	case "server.connection.identify":
		return s.methodIdentify(p, c)
	case "objects.list":
		return s.methodObjectsList(ctx)
	case "objects.query":
		return s.methodObjectsQuery(ctx, p)
	case "objects.subscribe":
		return s.methodObjectsSubscribe(ctx, p, c)
	case "anim.trigger":
		return s.methodTrigger(ctx, p)
	case "anim.push":
		return s.methodPush(ctx, p)
	case "anim.pop":
		return s.methodPop(ctx, p)
	case "anim.eta":
		return s.methodETA(ctx, p)
	case "anim.set_hits":
		return s.methodSetHits(ctx, p)
	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + method}
	}
}

func (s *Server) methodServerInfo() map[string]any {
	hostname, _ := os.Hostname()
	return map[string]any{
		"version":         Version,
		"hostname":        hostname,
		"websocket_count": s.ClientCount(),
		"uptime":          time.Since(s.startTime).Seconds(),
	}
}

func (s *Server) methodIdentify(p params, c *wsClient) (any, error) {
	if c == nil {
		return nil, &rpcError{Code: codeInvalidRequest, Message: "identify requires a WebSocket connection"}
	}
	name := "unknown"
	if v, ok := p["client_name"].(string); ok && v != "" {
		name = v
	}
	c.setName(name)
	logger.WithFields(log.Fields{"client": c.id, "name": name}).Info("client identified")
	return map[string]any{"connection_id": c.id}, nil
}

func (s *Server) methodObjectsList(ctx context.Context) (any, error) {
	names, err := s.engine.Objects(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"objects": names}, nil
}

// statusMap indexes snapshots by object name.
func statusMap(snaps []host.ObjectStatus) map[string]any {
	m := pool.GetStatusMap()
	for _, st := range snaps {
		m[st.Name] = st
	}
	return m
}

func (s *Server) query(ctx context.Context, names []string) (map[string]any, error) {
	snaps, err := s.engine.Snapshot(ctx, names...)
	if err != nil {
		return nil, err
	}
	var eventtime float64
	if len(snaps) > 0 {
		eventtime = snaps[0].Time
	}
	return map[string]any{"eventtime": eventtime, "status": statusMap(snaps)}, nil
}

func (s *Server) methodObjectsQuery(ctx context.Context, p params) (any, error) {
	names, err := p.strings("objects")
	if err != nil {
		return nil, err
	}
	return s.query(ctx, names)
}

func (s *Server) methodObjectsSubscribe(ctx context.Context, p params, c *wsClient) (any, error) {
	if c == nil {
		return nil, &rpcError{Code: codeInvalidRequest, Message: "subscription requires a WebSocket connection"}
	}
	names, err := p.strings("objects")
	if err != nil {
		return nil, err
	}
	res, err := s.query(ctx, names)
	if err != nil {
		return nil, err
	}
	c.subscribe(names)
	return res, nil
}

func request(p params) (string, subsys.Request, error) {
	object, err := p.str("object")
	if err != nil {
		return "", subsys.Request{}, err
	}
	kind, err := p.kind("kind")
	if err != nil {
		return "", subsys.Request{}, err
	}
	subtype, err := p.integer("subtype", anim.SubtypeAll)
	if err != nil {
		return "", subsys.Request{}, err
	}
	dir, err := p.direction("direction")
	if err != nil {
		return "", subsys.Request{}, err
	}
	instant, err := p.boolean("instant")
	if err != nil {
		return "", subsys.Request{}, err
	}
	return object, subsys.Request{Kind: kind, Subtype: subtype, Direction: dir, Instant: instant}, nil
}

func dispatchResult(d subsys.Dispatch) map[string]any {
	return map[string]any{
		"matched":   d.Matched,
		"started":   d.Started,
		"queued":    d.Queued,
		"cancelled": d.Cancelled,
		"dropped":   d.Dropped,
		"snapped":   d.Snapped,
	}
}

func (s *Server) methodTrigger(ctx context.Context, p params) (any, error) {
	object, req, err := request(p)
	if err != nil {
		return nil, err
	}
	d, err := s.engine.Trigger(ctx, object, req)
	if err != nil {
		return nil, err
	}
	return dispatchResult(d), nil
}

func (s *Server) methodPush(ctx context.Context, p params) (any, error) {
	id, err := p.integer("stack", 0)
	if err != nil {
		return nil, err
	}
	object, req, err := request(p)
	if err != nil {
		return nil, err
	}
	ok, err := s.engine.Push(ctx, id, object, req)
	if err != nil {
		return nil, err
	}
	return map[string]any{"matched": ok}, nil
}

func (s *Server) methodPop(ctx context.Context, p params) (any, error) {
	id, err := p.integer("stack", 0)
	if err != nil {
		return nil, err
	}
	ok, err := s.engine.Pop(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]any{"matched": ok}, nil
}

func (s *Server) methodETA(ctx context.Context, p params) (any, error) {
	object, err := p.str("object")
	if err != nil {
		return nil, err
	}
	kind, err := p.kind("kind")
	if err != nil {
		return nil, err
	}
	subtype, err := p.integer("subtype", anim.SubtypeAll)
	if err != nil {
		return nil, err
	}
	eta, err := s.engine.ETA(ctx, object, kind, subtype)
	if err != nil {
		return nil, err
	}
	return map[string]any{"eta": eta.Seconds()}, nil
}

func (s *Server) methodSetHits(ctx context.Context, p params) (any, error) {
	object, err := p.str("object")
	if err != nil {
		return nil, err
	}
	part, err := p.str("part")
	if err != nil {
		return nil, err
	}
	hits, err := p.number("hits", 0)
	if err != nil {
		return nil, err
	}
	if err := s.engine.SetHits(ctx, object, part, hits); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

// PublishStatus pushes snapshots to subscribed clients. It runs on the tick
// goroutine and never blocks.
func (s *Server) PublishStatus(now time.Duration, objects []host.ObjectStatus) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		status := c.filter(objects)
		if status == nil {
			continue
		}
		c.SendPooled(rpcNotification{
			JSONRPC: "2.0",
			Method:  "notify_status_update",
			Params:  []any{status, now.Seconds()},
		}, status)
	}
}

func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParse, Message: "Parse error"}})
		return
	}
	result, rerr := s.call(r.Context(), req.Method, req.Params, nil)
	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", Result: result, Error: rerr, ID: req.ID})
}

// handleREST maps /api/<method> to the JSON-RPC method of the same name.
// GET takes no parameters, POST takes them as the JSON body.
func (s *Server) handleREST(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/")
	var raw json.RawMessage
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": &rpcError{Code: codeParse, Message: "Parse error"}})
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	result, rerr := s.call(r.Context(), method, raw, nil)
	if rerr != nil {
		status := http.StatusBadRequest
		if rerr.Code == codeMethodNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]any{"error": rerr})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	buf := pool.GetByteBuffer()
	defer pool.PutByteBuffer(buf)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
