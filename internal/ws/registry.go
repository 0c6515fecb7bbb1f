package ws

import "sync"

// Registry maps a principal id to its live connection and tracks every
// connection (authenticated or not) for whole-server broadcasts.
//
// At most one entry per principal: a later connection for the same principal
// silently overwrites the earlier one (last-connect-wins for presence). All
// state is process-lifetime scoped and rebuilt from zero on restart.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
	conns  map[*Client]struct{}
	total  int
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Client),
		conns:  make(map[*Client]struct{}),
	}
}

// Add registers a connection. Connections without a principal id still count
// toward the connection set (they receive broadcasts) but never appear in
// the online set.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
	r.total++
	if c.userID != "" {
		r.byUser[c.userID] = c
	}
}

// Remove unregisters a connection. The principal mapping is cleared only if
// this exact connection still owns it: a stale session disconnecting after
// its principal reconnected elsewhere must not evict the newer mapping.
// Reports whether the connection was registered and whether the online set
// changed.
func (r *Registry) Remove(c *Client) (removed, onlineChanged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return false, false
	}
	delete(r.conns, c)
	r.total--
	if c.userID != "" && r.byUser[c.userID] == c {
		delete(r.byUser, c.userID)
		return true, true
	}
	return true, false
}

// OnlineUsers returns the set of currently registered principal ids.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns the online set and the broadcast targets from a single
// consistent view of the registry, so a presence broadcast never reflects a
// partially updated map.
func (r *Registry) Snapshot() (online []string, targets []*Client) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	online = make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		online = append(online, id)
	}
	targets = make([]*Client, 0, len(r.conns))
	for c := range r.conns {
		targets = append(targets, c)
	}
	return online, targets
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
