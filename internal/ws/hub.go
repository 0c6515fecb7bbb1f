// Package ws implements the real-time layer of the chat service: a
// connection registry (presence), room-based fan-out, typing relay, and the
// live side of message delivery and seen-state reconciliation.
//
// All state is in-memory and single-instance; clients reconnect and
// re-register after a restart.
package ws

import (
	"context"

	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/metrics"
)

type Hub struct {
	registry *Registry
	rooms    *Rooms
	typing   *TypingCoordinator

	maxConns       int
	sendBufSize    int
	maxMessageSize int64

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub creates a hub. Zero or negative sizes fall back to the defaults
// (10000 connections, 256-event send buffer, 4 KiB messages).
func NewHub(maxConns, sendBufSize, maxMessageSize int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	if sendBufSize <= 0 {
		sendBufSize = defaultSendBufSize
	}
	if maxMessageSize <= 0 {
		maxMessageSize = defaultMaxMessageSize
	}
	rooms := NewRooms()
	return &Hub{
		registry:       NewRegistry(),
		rooms:          rooms,
		typing:         NewTypingCoordinator(rooms, defaultTypingTTL),
		maxConns:       maxConns,
		sendBufSize:    sendBufSize,
		maxMessageSize: int64(maxMessageSize),
		register:       make(chan *Client, 64),
		unregister:     make(chan *Client, 64),
		done:           make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// done must close before shutdown waits on the pumps: every
			// exiting readPump calls Unregister, which would otherwise block
			// on the unregister channel once this loop stops draining it.
			close(h.done)
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	_, all := h.registry.Snapshot()
	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	if h.registry.Len() >= h.maxConns {
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	h.registry.Add(c)
	metrics.WSConnections.Inc()
	if c.userID != "" {
		// Personal room: receives chat-list updates for chats the user is
		// not currently viewing.
		h.rooms.Join(UserRoom(c.userID), c)
		logger.Infof("ws connected user=%s", c.userID)
	} else {
		logger.Info("ws connected without principal id (presence only)")
	}
	h.broadcastOnline()
}

func (h *Hub) removeClient(c *Client) {
	h.rooms.LeaveAll(c)
	h.typing.Disconnect(c)
	removed, onlineChanged := h.registry.Remove(c)
	c.Close()
	if !removed {
		return
	}
	metrics.WSConnections.Dec()
	if onlineChanged {
		logger.Infof("ws disconnected user=%s", c.userID)
		h.broadcastOnline()
	}
}

// broadcastOnline sends the current online set to every connection. The set
// and the target list come from one consistent registry snapshot.
func (h *Hub) broadcastOnline() {
	online, targets := h.registry.Snapshot()
	ev := OutgoingEvent{Type: EventGetOnlineUser, Payload: online}
	for _, c := range targets {
		c.trySend(ev)
	}
}

// HandleEvent dispatches an incoming client event. Events from connections
// without a principal id are dropped: the server only trusts the identity
// bound at connect time.
func (h *Hub) HandleEvent(c *Client, ev IncomingEvent) {
	metrics.WSEvents.WithLabelValues(string(ev.Type)).Inc()
	if c.userID == "" {
		logger.Errorf("ws event %q from unauthenticated connection dropped", ev.Type)
		return
	}
	if ev.ChatID == "" {
		logger.Errorf("ws event %q without chatId from user=%s dropped", ev.Type, c.userID)
		return
	}
	switch ev.Type {
	case EventJoinChat:
		h.rooms.Join(ChatRoom(ev.ChatID), c)
	case EventLeaveChat:
		h.rooms.Leave(ChatRoom(ev.ChatID), c)
	case EventTyping:
		h.typing.Typing(ev.ChatID, c)
	case EventStoppedTyping:
		h.typing.StoppedTyping(ev.ChatID, c)
	default:
		logger.Errorf("ws unknown event type %q from user=%s dropped", ev.Type, c.userID)
	}
}

// EmitToChat fans an event out to every connection currently viewing the
// chat. A room with no members silently drops the event.
func (h *Hub) EmitToChat(chatID string, ev OutgoingEvent) {
	h.rooms.Emit(ChatRoom(chatID), ev, nil)
}

// EmitToPersonal fans an event out to a principal's personal room (chat-list
// updates for chats they are not viewing).
func (h *Hub) EmitToPersonal(userID string, ev OutgoingEvent) {
	h.rooms.Emit(UserRoom(userID), ev, nil)
}

// OnlineUsers returns the ids of currently connected principals.
func (h *Hub) OnlineUsers() []string {
	return h.registry.OnlineUsers()
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
