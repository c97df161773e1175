package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rotanim/pkg/host"
	"rotanim/pkg/log"
	"rotanim/pkg/pool"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512 * 1024
	sendQueue      = 64
)

// outgoing is a queued message. pooled, if set, goes back to the status map
// pool once written.
type outgoing struct {
	msg    any
	pooled map[string]any
}

// wsClient is one WebSocket connection.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	server *Server
	sendCh chan outgoing
	done   chan struct{}

	mu   sync.Mutex
	name string
	// subs is nil until the client subscribes. An empty set means every
	// object.
	subs map[string]bool
}

func (s *Server) newClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		sendCh: make(chan outgoing, sendQueue),
		done:   make(chan struct{}),
	}
}

func (c *wsClient) log() *log.Entry {
	return logger.WithField("client", c.id)
}

func (c *wsClient) setName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

func (c *wsClient) subscribe(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = make(map[string]bool, len(names))
	for _, n := range names {
		c.subs[n] = true
	}
}

// filter returns the subscribed part of objects, or nil when there is
// nothing to send.
func (c *wsClient) filter(objects []host.ObjectStatus) map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		return nil
	}
	var out map[string]any
	for _, st := range objects {
		if len(c.subs) > 0 && !c.subs[st.Name] {
			continue
		}
		if out == nil {
			out = pool.GetStatusMap()
		}
		out[st.Name] = st
	}
	return out
}

// Send queues msg without blocking. Messages to a full queue are dropped.
func (c *wsClient) Send(msg any) {
	c.SendPooled(msg, nil)
}

func (c *wsClient) SendPooled(msg any, pooled map[string]any) {
	select {
	case c.sendCh <- outgoing{msg: msg, pooled: pooled}:
	case <-c.done:
		pool.PutStatusMap(pooled)
	default:
		pool.PutStatusMap(pooled)
		c.log().Warn("dropping message, send queue full")
	}
}

// Close closes the connection. Safe to call more than once.
func (c *wsClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return
	default:
		close(c.done)
	}
	c.conn.Close()
}

func (c *wsClient) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log().WithError(err).Warn("websocket read error")
			}
			return
		}
		c.handleMessage(message)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case out := <-c.sendCh:
			err := c.write(out.msg)
			pool.PutStatusMap(out.pooled)
			if err != nil {
				c.log().WithError(err).Debug("websocket write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) write(msg any) error {
	buf := pool.GetByteBuffer()
	defer pool.PutByteBuffer(buf)
	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

func (c *wsClient) handleMessage(data []byte) {
	var req rpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.Send(rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParse, Message: "Parse error"}})
		return
	}
	result, rerr := c.server.call(context.Background(), req.Method, req.Params, c)
	c.Send(rpcResponse{JSONRPC: "2.0", Result: result, Error: rerr, ID: req.ID})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := s.newClient(conn)

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
	c.log().Info("websocket client connected")

	go c.writePump()
	c.Send(rpcNotification{JSONRPC: "2.0", Method: "notify_connected", Params: map[string]any{"connection_id": c.id}})
	c.readPump()
}

func (s *Server) removeClient(c *wsClient) {
	s.clientsMu.Lock()
	delete(s.clients, c.id)
	s.clientsMu.Unlock()
	c.log().Info("websocket client disconnected")
}
