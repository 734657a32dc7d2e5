// Package transport frames messages over TCP. A frame is a little-endian
// int32 byte length followed by the payload; the payload encoding is owned by
// the protocol package.
package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrFrameTooLarge is returned when an inbound frame exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds size limit")

// ErrConnClosed is returned by writes on a dead connection.
var ErrConnClosed = errors.New("connection closed")

// MaxFrameSize bounds inbound frames. A client has no legitimate reason to
// send anything close to this.
const MaxFrameSize = 1 << 20

// inboxSize is the per-connection buffer of undelivered inbound frames.
const inboxSize = 64

// Conn is a framed, full-duplex connection. ReadFrame is used once during the
// handshake; after Start, inbound frames arrive on the inbox and are drained
// with PollFrames each tick.
type Conn interface {
	// ReadFrame blocks for one frame, failing after the given timeout.
	// Only valid before Start.
	ReadFrame(timeout time.Duration) ([]byte, error)

	// Start launches the background read pump feeding PollFrames.
	Start()

	// PollFrames drains and returns all buffered inbound frames without
	// blocking. It returns nil when nothing is pending.
	PollFrames() [][]byte

	// WriteFrame sends one frame. Safe for concurrent use.
	WriteFrame(payload []byte) error

	// IsLive reports whether the connection is still usable.
	IsLive() bool

	// RemoteAddr describes the peer, for logging.
	RemoteAddr() string

	Close() error
}

// TCPConn implements Conn over a net.Conn.
type TCPConn struct {
	conn net.Conn
	br   *bufio.Reader

	writeMu sync.Mutex

	inbox chan []byte
	done  chan struct{}
	dead  atomic.Bool
	once  sync.Once
}

var _ Conn = (*TCPConn)(nil)

// NewTCPConn wraps an accepted socket.
func NewTCPConn(c net.Conn) *TCPConn {
	return &TCPConn{
		conn:  c,
		br:    bufio.NewReader(c),
		inbox: make(chan []byte, inboxSize),
		done:  make(chan struct{}),
	}
}

func (c *TCPConn) ReadFrame(timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
		defer c.conn.SetReadDeadline(time.Time{})
	}
	return c.readFrame()
}

func (c *TCPConn) readFrame() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(c.br, lenBuf[:]); err != nil {
		return nil, err
	}
	n := int32(binary.LittleEndian.Uint32(lenBuf[:]))
	if n < 0 || n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(c.br, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *TCPConn) Start() {
	go c.readPump()
}

func (c *TCPConn) readPump() {
	defer close(c.inbox)
	for {
		frame, err := c.readFrame()
		if err != nil {
			c.dead.Store(true)
			_ = c.conn.Close()
			return
		}
		// A full inbox with nobody polling must not pin this goroutine
		// past Close.
		select {
		case c.inbox <- frame:
		case <-c.done:
			return
		}
	}
}

func (c *TCPConn) PollFrames() [][]byte {
	var frames [][]byte
	for {
		select {
		case frame, ok := <-c.inbox:
			if !ok {
				return frames
			}
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func (c *TCPConn) WriteFrame(payload []byte) error {
	if c.dead.Load() {
		return ErrConnClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := c.conn.Write(lenBuf[:]); err != nil {
		c.dead.Store(true)
		return err
	}
	if _, err := c.conn.Write(payload); err != nil {
		c.dead.Store(true)
		return err
	}
	return nil
}

func (c *TCPConn) IsLive() bool {
	return !c.dead.Load()
}

func (c *TCPConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *TCPConn) Close() error {
	c.dead.Store(true)
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

