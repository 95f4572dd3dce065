package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-actuation/internal/dispatch"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-actuation/internal/infrastructure/logging"
)

// Message types exchanged with WebSocket clients.
const (
	msgSubscribe   = "subscribe"
	msgUnsubscribe = "unsubscribe"
	msgPing        = "ping"
	msgPong        = "pong"
	msgEvent       = "event"
	msgAck         = "ack"
	msgError       = "error"
)

// clientBuffer is how many messages a client may fall behind before it is
// disconnected. A client that lost events must resync from GET /dispatches.
const clientBuffer = 64

// dispatchChannels are the channels a client can subscribe to. A subscribe
// without channels selects all of them.
var dispatchChannels = []string{
	dispatch.ChannelStarted,
	dispatch.ChannelFinished,
	dispatch.ChannelRejected,
}

// clientMessage is a request from a client:
//
//	{"type":"subscribe","id":"1","channels":["dispatch.finished"]}
type clientMessage struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// serverMessage is anything sent to a client. Events carry Channel and Data;
// acks echo the request ID and the channels affected.
type serverMessage struct {
	Type     string   `json:"type"`
	ID       string   `json:"id,omitempty"`
	Channel  string   `json:"channel,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Data     any      `json:"data,omitempty"`
	Error    string   `json:"error,omitempty"`
	Time     string   `json:"time"`
}

func encode(msg serverMessage) ([]byte, error) {
	msg.Time = time.Now().UTC().Format(time.RFC3339Nano)
	return json.Marshal(msg)
}

// Hub fans dispatch events out to connected WebSocket clients.
//
// The hub owns every client's send channel: it is only written and closed
// under the hub lock, so a send can never race a close.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// wsClient is one connected client.
type wsClient struct {
	conn    *websocket.Conn
	subject string
	send    chan []byte

	mu       sync.Mutex
	channels map[string]bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS middleware already restricts origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates a hub. Call Run to tie its lifetime to a context.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	for c := range clients {
		close(c.send)
	}
	h.mu.Unlock()

	h.logger.Debug("websocket hub stopped", "clients", len(clients))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "subject", c.subject, "clients", n)
}

// remove disconnects c. It is safe to call more than once.
func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if ok {
		h.logger.Debug("websocket client disconnected", "subject", c.subject)
	}
}

// Broadcast sends payload to every client subscribed to channel. Clients
// whose buffer is full are disconnected.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := encode(serverMessage{Type: msgEvent, Channel: channel, Data: payload})
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}

	var slow []*wsClient
	h.mu.RLock()
	for c := range h.clients {
		if c.subscribed(channel) && !c.offer(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("websocket client too slow, disconnecting", "subject", c.subject, "channel", channel)
		h.remove(c)
	}
}

// reply queues a direct answer to c if it is still connected.
func (h *Hub) reply(c *wsClient, msg serverMessage) {
	data, err := encode(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		c.offer(data)
	}
}

// offer queues data without blocking. The caller holds the hub lock.
func (c *wsClient) offer(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) subscribed(channel string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channels[channel]
}

// setChannels subscribes to or unsubscribes from channels.
func (c *wsClient) setChannels(channels []string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		if on {
			c.channels[ch] = true
		} else {
			delete(c.channels, ch)
		}
	}
}

// handleWebSocket upgrades an authenticated request to a WebSocket. The
// ticket comes from POST /auth/ws-ticket and is valid once.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	if ticket == "" {
		writeUnauthorized(w, "ticket query parameter is required")
		return
	}
	entry, ok := s.tickets.consume(ticket)
	if !ok {
		writeUnauthorized(w, "invalid or expired ticket")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		conn:     conn,
		subject:  entry.subject,
		send:     make(chan []byte, clientBuffer),
		channels: make(map[string]bool),
	}
	s.hub.add(c)

	go s.hub.writeLoop(c)
	go s.hub.readLoop(c)
}

// keepalive returns the ping interval and pong timeout, falling back to
// 30s and 10s when unset.
func (h *Hub) keepalive() (ping, pongWait time.Duration) {
	ping, pongWait = 30*time.Second, 10*time.Second
	if h.cfg.PingInterval > 0 {
		ping = time.Duration(h.cfg.PingInterval) * time.Second
	}
	if h.cfg.PongTimeout > 0 {
		pongWait = time.Duration(h.cfg.PongTimeout) * time.Second
	}
	return ping, pongWait
}

// readLoop handles client requests until the connection fails.
func (h *Hub) readLoop(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	ping, pongWait := h.keepalive()
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(ping + pongWait)) }

	c.conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	if err := extend(); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		// Application messages count as liveness too.
		if err := extend(); err != nil {
			return
		}
		h.reply(c, h.answer(c, data))
	}
}

// answer applies one client request and returns the response.
func (h *Hub) answer(c *wsClient, data []byte) serverMessage {
	var req clientMessage
	if err := json.Unmarshal(data, &req); err != nil {
		return serverMessage{Type: msgError, Error: "invalid JSON message"}
	}

	switch req.Type {
	case msgPing:
		return serverMessage{Type: msgPong, ID: req.ID}
	case msgSubscribe, msgUnsubscribe:
		channels := req.Channels
		if len(channels) == 0 {
			channels = dispatchChannels
		}
		for _, ch := range channels {
			if !slices.Contains(dispatchChannels, ch) {
				return serverMessage{Type: msgError, ID: req.ID, Error: "unknown channel: " + ch}
			}
		}
		c.setChannels(channels, req.Type == msgSubscribe)
		return serverMessage{Type: msgAck, ID: req.ID, Channels: channels}
	default:
		return serverMessage{Type: msgError, ID: req.ID, Error: "unknown message type: " + req.Type}
	}
}

// writeLoop drains c.send and keeps the connection alive with pings.
func (h *Hub) writeLoop(c *wsClient) {
	ping, pongWait := h.keepalive()
	ticker := time.NewTicker(ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		if err := c.conn.SetWriteDeadline(time.Now().Add(pongWait)); err != nil {
			return err
		}
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}
