package websocket

// PROPRIETARY AND CONFIDENTIAL
// This code contains trade secrets and confidential material of Finimen Sniper / FSC.
// Any unauthorized use, disclosure, or duplication is strictly prohibited.
// © 2025 Finimen Sniper / FSC. All rights reserved.

import (
	"chatapp/internal/ports"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventSetup           = "setup"
	EventConnected       = "connected"
	EventJoinChat        = "join chat"
	EventLeaveChat       = "leave chat"
	EventTyping          = "typing"
	EventStopTyping      = "stop typing"
	EventNewMessage      = "new message"
	EventMessageReceived = "message received"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 64 << 10
	sendBufferSize = 256
	accessTimeout  = 5 * time.Second
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame is the envelope of every relay message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string

	send   chan []byte
	mu     sync.Mutex
	closed bool
	// guarded by Hub.mu
	rooms map[string]struct{}
}

func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	access ports.IChatAccess
	active prometheus.Gauge
	logger *slog.Logger
}

// NewHub builds a relay hub. active may be nil; access may be nil, in which
// case any authenticated client can join any room.
func NewHub(access ports.IChatAccess, active prometheus.Gauge, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		access:  access,
		active:  active,
		logger:  logger,
	}
}

// Serve registers an upgraded connection and starts its pumps.
func (h *Hub) Serve(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		Hub:    h,
		Conn:   conn,
		UserID: userID,
		send:   make(chan []byte, sendBufferSize),
		rooms:  make(map[string]struct{}),
	}

	h.register(client)

	go client.WritePump()
	go client.ReadPump()

	return client
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	if h.active != nil {
		h.active.Inc()
	}
	h.logger.Info("client registered", "userID", client.UserID)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for room := range client.rooms {
		h.leaveLocked(client, room)
	}
	h.mu.Unlock()

	client.closeSend()

	if h.active != nil {
		h.active.Dec()
	}
	h.logger.Info("client unregistered", "userID", client.UserID)
}

func (h *Hub) join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (h *Hub) leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) leaveLocked(client *Client, room string) {
	delete(client.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) inRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := client.rooms[room]
	return ok
}

// RoomSize reports how many connections are in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// emit delivers a frame to every connection in room except skip.
// Connections whose buffer is full are dropped.
func (h *Hub) emit(room string, frame []byte, skip *Client) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		if client != skip {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.enqueue(frame) {
			h.logger.Warn("client send buffer full, disconnecting", "userID", client.UserID)
			h.unregister(client)
		}
	}
}

// BroadcastToUser sends an event to every connection of a user.
func (h *Hub) BroadcastToUser(userID, event string, data interface{}) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		h.logger.Error("failed to marshal event", "event", event, "error", err)
		return
	}
	h.emit(userID, frame, nil)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.unregister(client)
	}
	h.logger.Info("websocket hub closed", "clients", len(clients))
}

func (h *Hub) handle(client *Client, frame Frame) {
	switch frame.Event {
	case EventSetup:
		h.join(client, client.UserID)
		h.reply(client, EventConnected, nil)

	case EventJoinChat:
		chatID, ok := roomID(frame.Data)
		if !ok {
			h.logger.Warn("invalid join chat payload", "userID", client.UserID)
			return
		}
		if !h.canJoin(client, chatID) {
			h.logger.Warn("join chat refused", "userID", client.UserID, "chatID", chatID)
			return
		}
		h.join(client, chatID)
		h.logger.Debug("user joined chat", "userID", client.UserID, "chatID", chatID)

	case EventLeaveChat:
		if chatID, ok := roomID(frame.Data); ok {
			h.leave(client, chatID)
		}

	case EventTyping, EventStopTyping:
		chatID, ok := roomID(frame.Data)
		if !ok || !h.inRoom(client, chatID) {
			return
		}
		out, err := encodeFrame(frame.Event, chatID)
		if err != nil {
			return
		}
		h.emit(chatID, out, client)

	case EventNewMessage:
		h.relayMessage(client, frame.Data)

	default:
		h.logger.Debug("unknown event", "event", frame.Event, "userID", client.UserID)
	}
}

func (h *Hub) canJoin(client *Client, chatID string) bool {
	if h.access == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), accessTimeout)
	defer cancel()

	ok, err := h.access.IsChatMember(ctx, chatID, client.UserID)
	if err != nil {
		h.logger.Warn("chat membership check failed", "chatID", chatID, "error", err)
		return false
	}
	return ok
}

// relayMessage fans a freshly persisted message out to the personal room of
// every chat member except its sender.
func (h *Hub) relayMessage(client *Client, data json.RawMessage) {
	var payload relayedMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Warn("invalid new message payload", "userID", client.UserID, "error", err)
		return
	}
	if payload.Chat == nil || len(payload.Chat.Users) == 0 {
		h.logger.Warn("chat users not defined", "userID", client.UserID)
		return
	}
	if string(payload.Sender) != client.UserID {
		h.logger.Warn("message sender does not match connection", "userID", client.UserID, "sender", string(payload.Sender))
		return
	}

	out, err := encodeFrame(EventMessageReceived, data)
	if err != nil {
		return
	}
	for _, member := range payload.Chat.Users {
		if member == payload.Sender || member == "" {
			continue
		}
		h.emit(string(member), out, nil)
	}
}

func (h *Hub) reply(client *Client, event string, data interface{}) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		return
	}
	if !client.enqueue(frame) {
		h.unregister(client)
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("websocket error", "error", err, "userID", c.UserID)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.Hub.logger.Warn("failed to parse frame", "error", err, "userID", c.UserID)
			continue
		}

		c.Hub.handle(c, frame)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeFrame(event string, data interface{}) ([]byte, error) {
	frame := Frame{Event: event}
	if data != nil {
		raw, ok := data.(json.RawMessage)
		if !ok {
			var err error
			if raw, err = json.Marshal(data); err != nil {
				return nil, err
			}
		}
		frame.Data = raw
	}
	return json.Marshal(frame)
}

func roomID(data json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}
