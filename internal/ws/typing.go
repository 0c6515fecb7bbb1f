package ws

import (
	"sync"
	"time"
)

// defaultTypingTTL is how long a typing state lives without a refresh before
// the server emits userStoppedTyping on the client's behalf.
const defaultTypingTTL = 5 * time.Second

type typingKey struct {
	chatID string
	userID string
}

// TypingCoordinator relays typing/stoppedTyping signals to the chat room,
// excluding the sender. Nothing is persisted.
//
// Clients own the debounce (idle timer firing stoppedTyping), but the server
// keeps a per-(chat, user) expiry timer as a backstop so a client that goes
// away mid-keystroke cannot leave receivers showing "typing" forever.
type TypingCoordinator struct {
	rooms *Rooms
	ttl   time.Duration

	mu     sync.Mutex
	timers map[typingKey]*time.Timer
}

func NewTypingCoordinator(rooms *Rooms, ttl time.Duration) *TypingCoordinator {
	if ttl <= 0 {
		ttl = defaultTypingTTL
	}
	return &TypingCoordinator{
		rooms:  rooms,
		ttl:    ttl,
		timers: make(map[typingKey]*time.Timer),
	}
}

// Typing relays userTyping to everyone else in the chat room and arms (or
// refreshes) the expiry timer for this (chat, user) pair.
func (t *TypingCoordinator) Typing(chatID string, c *Client) {
	payload := TypingPayload{ChatID: chatID, UserID: c.userID}
	t.rooms.Emit(ChatRoom(chatID), OutgoingEvent{Type: EventUserTyping, Payload: payload}, c)

	key := typingKey{chatID: chatID, userID: c.userID}
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[key]; ok {
		timer.Reset(t.ttl)
		return
	}
	t.timers[key] = time.AfterFunc(t.ttl, func() {
		t.expire(key, c)
	})
}

// StoppedTyping cancels the expiry timer and relays userStoppedTyping.
func (t *TypingCoordinator) StoppedTyping(chatID string, c *Client) {
	key := typingKey{chatID: chatID, userID: c.userID}
	t.mu.Lock()
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}
	t.mu.Unlock()

	payload := TypingPayload{ChatID: chatID, UserID: c.userID}
	t.rooms.Emit(ChatRoom(chatID), OutgoingEvent{Type: EventUserStoppedTyping, Payload: payload}, c)
}

// Disconnect expires every typing state held by the connection, emitting
// stoppedTyping for each so receivers do not stay stuck on "typing".
func (t *TypingCoordinator) Disconnect(c *Client) {
	if c.userID == "" {
		return
	}
	t.mu.Lock()
	var expired []typingKey
	for key, timer := range t.timers {
		if key.userID == c.userID {
			timer.Stop()
			delete(t.timers, key)
			expired = append(expired, key)
		}
	}
	t.mu.Unlock()

	for _, key := range expired {
		payload := TypingPayload{ChatID: key.chatID, UserID: key.userID}
		t.rooms.Emit(ChatRoom(key.chatID), OutgoingEvent{Type: EventUserStoppedTyping, Payload: payload}, c)
	}
}

func (t *TypingCoordinator) expire(key typingKey, c *Client) {
	t.mu.Lock()
	if _, ok := t.timers[key]; !ok {
		t.mu.Unlock()
		return
	}
	delete(t.timers, key)
	t.mu.Unlock()

	payload := TypingPayload{ChatID: key.chatID, UserID: key.userID}
	t.rooms.Emit(ChatRoom(key.chatID), OutgoingEvent{Type: EventUserStoppedTyping, Payload: payload}, c)
}
