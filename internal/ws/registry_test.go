package ws

import (
	"sort"
	"testing"
)

func TestRegistryLastConnectWins(t *testing.T) {
	r := NewRegistry()
	first := newTestClient(nil, "alice")
	second := newTestClient(nil, "alice")

	r.Add(first)
	r.Add(second)

	if got := r.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
	online := r.OnlineUsers()
	if len(online) != 1 || online[0] != "alice" {
		t.Fatalf("OnlineUsers = %v, want [alice]", online)
	}

	// The stale first connection disconnecting must not evict the newer one.
	removed, onlineChanged := r.Remove(first)
	if !removed || onlineChanged {
		t.Fatalf("Remove(first) = (%v, %v), want (true, false)", removed, onlineChanged)
	}
	if online := r.OnlineUsers(); len(online) != 1 {
		t.Fatalf("alice went offline after stale disconnect: %v", online)
	}

	removed, onlineChanged = r.Remove(second)
	if !removed || !onlineChanged {
		t.Fatalf("Remove(second) = (%v, %v), want (true, true)", removed, onlineChanged)
	}
	if online := r.OnlineUsers(); len(online) != 0 {
		t.Fatalf("OnlineUsers after full disconnect = %v, want empty", online)
	}
}

func TestRegistryRemoveUnknown(t *testing.T) {
	r := NewRegistry()
	c := newTestClient(nil, "bob")
	removed, onlineChanged := r.Remove(c)
	if removed || onlineChanged {
		t.Fatalf("Remove(unregistered) = (%v, %v), want (false, false)", removed, onlineChanged)
	}
}

func TestRegistryUnauthenticatedConnection(t *testing.T) {
	r := NewRegistry()
	anon := newTestClient(nil, "")
	named := newTestClient(nil, "carol")
	r.Add(anon)
	r.Add(named)

	online, targets := r.Snapshot()
	if len(online) != 1 || online[0] != "carol" {
		t.Fatalf("online = %v, want [carol]", online)
	}
	// Both connections are broadcast targets.
	if len(targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(targets))
	}
}

func TestRegistrySnapshotConsistent(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"a", "b", "c"} {
		r.Add(newTestClient(nil, id))
	}
	online, targets := r.Snapshot()
	sort.Strings(online)
	want := []string{"a", "b", "c"}
	for i := range want {
		if online[i] != want[i] {
			t.Fatalf("online = %v, want %v", online, want)
		}
	}
	if len(targets) != 3 {
		t.Fatalf("targets = %d, want 3", len(targets))
	}
}
