package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeConn satisfies the conn interface for tests that never start the
// pumps; only Close is expected to be called.
type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error)      { select {} }
func (f *fakeConn) WriteMessage(mt int, data []byte) error { return nil }
func (f *fakeConn) SetReadLimit(limit int64)               {}
func (f *fakeConn) SetReadDeadline(t time.Time) error      { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error     { return nil }
func (f *fakeConn) SetPongHandler(h func(string) error)    {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestClient(hub *Hub, userID string) *Client {
	return NewClient(hub, &fakeConn{}, userID)
}

// pumpConn supports tests that run the pump goroutines: ReadMessage blocks
// until Close, then fails like a closed network connection.
type pumpConn struct {
	closed    chan struct{}
	once      sync.Once
	readLimit atomic.Int64
}

func newPumpConn() *pumpConn {
	return &pumpConn{closed: make(chan struct{})}
}

func (p *pumpConn) ReadMessage() (int, []byte, error) {
	<-p.closed
	return 0, nil, errors.New("use of closed connection")
}

func (p *pumpConn) WriteMessage(mt int, data []byte) error {
	select {
	case <-p.closed:
		return errors.New("use of closed connection")
	default:
		return nil
	}
}

func (p *pumpConn) SetReadLimit(limit int64)            { p.readLimit.Store(limit) }
func (p *pumpConn) SetReadDeadline(t time.Time) error   { return nil }
func (p *pumpConn) SetWriteDeadline(t time.Time) error  { return nil }
func (p *pumpConn) SetPongHandler(h func(string) error) {}

func (p *pumpConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// recv pops the next queued event or fails the test.
func recv(t *testing.T, c *Client) OutgoingEvent {
	t.Helper()
	select {
	case ev := <-c.send:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("no event for user=%q", c.userID)
		return OutgoingEvent{}
	}
}

func expectNone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case ev := <-c.send:
		t.Fatalf("unexpected event %q for user=%q", ev.Type, c.userID)
	case <-time.After(50 * time.Millisecond):
	}
}
