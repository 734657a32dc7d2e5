package testutil

import (
	"sync"
	"time"

	"github.com/mcoot/flightlobby/internal/transport"
)

// FakeConn is an in-memory transport.Conn for tests: inbound frames are
// queued by the test, outbound frames are recorded for assertions.
type FakeConn struct {
	mu      sync.Mutex
	inbox   [][]byte
	written [][]byte
	dead    bool
	started bool
	remote  string
}

var _ transport.Conn = (*FakeConn)(nil)

// NewFakeConn creates a live FakeConn.
func NewFakeConn() *FakeConn {
	return &FakeConn{remote: "fake:0"}
}

// QueueFrame stages an inbound frame for the next PollFrames (or ReadFrame).
func (c *FakeConn) QueueFrame(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, frame)
}

// Written returns all frames written so far.
func (c *FakeConn) Written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([][]byte, len(c.written))
	copy(result, c.written)
	return result
}

// ClearWritten drops the recorded outbound frames.
func (c *FakeConn) ClearWritten() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = nil
}

// Kill marks the connection dead without going through Close.
func (c *FakeConn) Kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead = true
}

// Started reports whether Start has been called.
func (c *FakeConn) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *FakeConn) ReadFrame(_ time.Duration) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead || len(c.inbox) == 0 {
		return nil, transport.ErrConnClosed
	}
	frame := c.inbox[0]
	c.inbox = c.inbox[1:]
	return frame, nil
}

func (c *FakeConn) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
}

func (c *FakeConn) PollFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	frames := c.inbox
	c.inbox = nil
	return frames
}

func (c *FakeConn) WriteFrame(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return transport.ErrConnClosed
	}
	c.written = append(c.written, payload)
	return nil
}

func (c *FakeConn) IsLive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dead
}

func (c *FakeConn) RemoteAddr() string {
	return c.remote
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead = true
	return nil
}
