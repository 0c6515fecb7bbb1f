package ws

import "sync"

// Room keys are a tagged union: "user:<id>" for personal rooms and
// "chat:<id>" for chat rooms, so a chat id and a principal id can never
// collide in the address space.
func UserRoom(userID string) string { return "user:" + userID }
func ChatRoom(chatID string) string { return "chat:" + chatID }

// Rooms groups live connections into named fan-out rooms. A personal room is
// joined once at connect time; chat rooms are joined and left as the client
// navigates. Join and Leave are idempotent.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	byConn map[*Client]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[*Client]struct{}),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

func (r *Rooms) Join(key string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[key]; !ok {
		r.rooms[key] = make(map[*Client]struct{})
	}
	r.rooms[key][c] = struct{}{}
	if _, ok := r.byConn[c]; !ok {
		r.byConn[c] = make(map[string]struct{})
	}
	r.byConn[c][key] = struct{}{}
}

func (r *Rooms) Leave(key string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(key, c)
}

func (r *Rooms) leaveLocked(key string, c *Client) {
	if members, ok := r.rooms[key]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, key)
		}
	}
	if keys, ok := r.byConn[c]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(r.byConn, c)
		}
	}
}

// LeaveAll removes a connection from every room it joined (disconnect path).
func (r *Rooms) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.byConn[c] {
		r.leaveLocked(key, c)
	}
}

// Members returns a snapshot of the room's connections. A room with zero
// members yields nil; emitting into it silently drops the event.
func (r *Rooms) Members(key string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.rooms[key]
	if !ok {
		return nil
	}
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// Contains reports whether the connection is currently in the room.
func (r *Rooms) Contains(key string, c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[key][c]
	return ok
}

// Emit fans an event out to every connection in the room, optionally
// excluding one (the sender of a relayed event). Sends happen outside the
// room lock.
func (r *Rooms) Emit(key string, ev OutgoingEvent, exclude *Client) {
	for _, c := range r.Members(key) {
		if c == exclude {
			continue
		}
		c.trySend(ev)
	}
}
