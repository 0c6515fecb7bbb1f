package ws

import (
	"context"
	"strconv"
	"testing"
	"time"
)

func startHub(t *testing.T, maxConns int) *Hub {
	t.Helper()
	hub := NewHub(maxConns, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

func onlineSet(t *testing.T, ev OutgoingEvent) map[string]bool {
	t.Helper()
	if ev.Type != EventGetOnlineUser {
		t.Fatalf("event type = %q, want %q", ev.Type, EventGetOnlineUser)
	}
	ids, ok := ev.Payload.([]string)
	if !ok {
		t.Fatalf("payload = %T, want []string", ev.Payload)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func TestHubRegisterBroadcastsOnline(t *testing.T) {
	hub := startHub(t, 8)

	alice := newTestClient(hub, "alice")
	hub.Register(alice)
	if set := onlineSet(t, recv(t, alice)); !set["alice"] || len(set) != 1 {
		t.Fatalf("online = %v, want {alice}", set)
	}

	bob := newTestClient(hub, "bob")
	hub.Register(bob)
	if set := onlineSet(t, recv(t, bob)); !set["alice"] || !set["bob"] {
		t.Fatalf("online = %v, want {alice, bob}", set)
	}
	// The earlier connection sees the updated set too.
	if set := onlineSet(t, recv(t, alice)); !set["bob"] {
		t.Fatalf("alice's view = %v, want bob present", set)
	}
}

func TestHubUnregisterBroadcastsAndCloses(t *testing.T) {
	hub := startHub(t, 8)
	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)
	recv(t, alice) // {alice}
	recv(t, alice) // {alice, bob}
	recv(t, bob)   // {alice, bob}

	hub.Unregister(alice)

	if set := onlineSet(t, recv(t, bob)); set["alice"] {
		t.Fatalf("alice still online after unregister: %v", set)
	}
	fc := alice.conn.(*fakeConn)
	deadline := time.Now().Add(2 * time.Second)
	for !fc.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("connection not closed after unregister")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubChatRoomFlow(t *testing.T) {
	hub := startHub(t, 8)
	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)
	recv(t, alice)
	recv(t, alice)
	recv(t, bob)

	hub.HandleEvent(alice, IncomingEvent{Type: EventJoinChat, ChatID: "c1"})
	hub.HandleEvent(bob, IncomingEvent{Type: EventJoinChat, ChatID: "c1"})

	hub.EmitToChat("c1", OutgoingEvent{Type: EventNewMessage, Payload: "hi"})
	if ev := recv(t, alice); ev.Type != EventNewMessage {
		t.Fatalf("alice got %q", ev.Type)
	}
	if ev := recv(t, bob); ev.Type != EventNewMessage {
		t.Fatalf("bob got %q", ev.Type)
	}

	hub.HandleEvent(bob, IncomingEvent{Type: EventLeaveChat, ChatID: "c1"})
	hub.EmitToChat("c1", OutgoingEvent{Type: EventNewMessage, Payload: "again"})
	recv(t, alice)
	expectNone(t, bob)
}

func TestHubTypingRelay(t *testing.T) {
	hub := startHub(t, 8)
	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	hub.Register(alice)
	hub.Register(bob)
	recv(t, alice)
	recv(t, alice)
	recv(t, bob)

	hub.HandleEvent(alice, IncomingEvent{Type: EventJoinChat, ChatID: "c1"})
	hub.HandleEvent(bob, IncomingEvent{Type: EventJoinChat, ChatID: "c1"})

	hub.HandleEvent(alice, IncomingEvent{Type: EventTyping, ChatID: "c1"})
	if ev := recv(t, bob); ev.Type != EventUserTyping {
		t.Fatalf("bob got %q, want %q", ev.Type, EventUserTyping)
	}
	expectNone(t, alice)
}

func TestHubPersonalRoom(t *testing.T) {
	hub := startHub(t, 8)
	alice := newTestClient(hub, "alice")
	hub.Register(alice)
	recv(t, alice)

	hub.EmitToPersonal("alice", OutgoingEvent{Type: EventNewMessage, Payload: "direct"})
	if ev := recv(t, alice); ev.Type != EventNewMessage {
		t.Fatalf("got %q, want %q", ev.Type, EventNewMessage)
	}
	// A personal room for an offline user drops the event.
	hub.EmitToPersonal("nobody", OutgoingEvent{Type: EventNewMessage})
}

func TestHubDropsEventsWithoutPrincipal(t *testing.T) {
	hub := startHub(t, 8)
	anon := newTestClient(hub, "")
	hub.Register(anon)
	recv(t, anon) // broadcasts still reach unauthenticated connections

	hub.HandleEvent(anon, IncomingEvent{Type: EventJoinChat, ChatID: "c1"})
	if hub.rooms.Contains(ChatRoom("c1"), anon) {
		t.Fatal("unauthenticated connection joined a chat room")
	}
}

func TestHubDropsEventsWithoutChatID(t *testing.T) {
	hub := startHub(t, 8)
	alice := newTestClient(hub, "alice")
	hub.Register(alice)
	recv(t, alice)

	hub.HandleEvent(alice, IncomingEvent{Type: EventJoinChat})
	if len(hub.rooms.Members(ChatRoom(""))) != 0 {
		t.Fatal("joined a room with empty chat id")
	}
}

func TestHubConnectionLimit(t *testing.T) {
	hub := startHub(t, 1)
	first := newTestClient(hub, "alice")
	hub.Register(first)
	recv(t, first)

	second := newTestClient(hub, "bob")
	hub.Register(second)

	fc := second.conn.(*fakeConn)
	deadline := time.Now().Add(2 * time.Second)
	for !fc.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("connection over the limit was not rejected")
		}
		time.Sleep(5 * time.Millisecond)
	}
	online := hub.OnlineUsers()
	if len(online) != 1 || online[0] != "alice" {
		t.Fatalf("online = %v, want [alice]", online)
	}
}

// Shutdown must complete even when the exiting pumps outnumber the
// unregister channel buffer; every readPump calls Unregister on its way out.
func TestHubShutdownWithManyActivePumps(t *testing.T) {
	hub := NewHub(0, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		hub.Run(ctx)
	}()

	const n = 100
	for i := 0; i < n; i++ {
		c := NewClient(hub, newPumpConn(), "user-"+strconv.Itoa(i))
		pumpCtx, pumpCancel := context.WithCancel(context.Background())
		c.Start(pumpCtx, pumpCancel)
		hub.Register(c)
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(hub.OnlineUsers()) != n {
		if time.Now().After(deadline) {
			t.Fatalf("online = %d, want %d", len(hub.OnlineUsers()), n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("hub did not shut down while pumps were unregistering")
	}
}

func TestHubAppliesConfiguredSizes(t *testing.T) {
	hub := NewHub(8, 3, 512)

	pc := newPumpConn()
	c := NewClient(hub, pc, "alice")
	if got := cap(c.send); got != 3 {
		t.Fatalf("send buffer = %d, want 3", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx, cancel)
	deadline := time.Now().Add(2 * time.Second)
	for pc.readLimit.Load() != 512 {
		if time.Now().After(deadline) {
			t.Fatalf("read limit = %d, want 512", pc.readLimit.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	c.Close()
	c.Wait()

	// Zero values keep the defaults.
	def := NewClient(NewHub(8, 0, 0), &fakeConn{}, "bob")
	if got := cap(def.send); got != defaultSendBufSize {
		t.Fatalf("default send buffer = %d, want %d", got, defaultSendBufSize)
	}
}
