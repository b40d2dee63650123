package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrChannelClosed is returned when the peer went away or the channel
	// was closed locally.
	ErrChannelClosed = errors.New("ipc channel closed")
	// ErrTimeout is returned when a receive deadline passed.
	ErrTimeout = errors.New("ipc receive timeout")
)

var socketCounter atomic.Int64

// socketPath returns a fresh socket path. It stays short because Unix
// socket paths are limited to ~104 bytes on macOS.
func socketPath() string {
	n := socketCounter.Add(1)
	return filepath.Join(os.TempDir(), fmt.Sprintf("clipime-%d-%d.sock", os.Getpid(), n))
}

// OneShotServer accepts exactly one connection on a fresh socket.
type OneShotServer struct {
	listener net.Listener
	name     string
}

// NewOneShotServer listens on a new socket. Name returns its address.
func NewOneShotServer() (*OneShotServer, error) {
	path := socketPath()
	// Remove stale socket file if it exists
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	return &OneShotServer{listener: listener, name: path}, nil
}

// Name returns the address peers pass to Connect.
func (s *OneShotServer) Name() string {
	return s.name
}

// Accept waits for the single peer and stops listening. Cancelling ctx
// aborts the wait.
func (s *OneShotServer) Accept(ctx context.Context) (*ReceiveChannel, error) {
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()

	conn, err := s.listener.Accept()
	s.listener.Close()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("accept %s: %w", s.name, ctx.Err())
		}
		return nil, fmt.Errorf("accept %s: %w", s.name, err)
	}
	return newReceiveChannel(conn), nil
}

// Close stops listening without accepting.
func (s *OneShotServer) Close() error {
	return s.listener.Close()
}

// SendChannel is the writing end of a channel.
type SendChannel struct {
	mu   sync.Mutex
	conn net.Conn
	enc  *cbor.Encoder
}

// Connect dials the channel advertised as name.
func Connect(ctx context.Context, name string) (*SendChannel, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", name)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	return &SendChannel{conn: conn, enc: newEncoder(conn)}, nil
}

// Send writes one message.
func (c *SendChannel) Send(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(m); err != nil {
		return fmt.Errorf("send %s: %w: %v", m.Kind, ErrChannelClosed, err)
	}
	return nil
}

// Close closes the connection; the peer's receive loop sees ErrChannelClosed.
func (c *SendChannel) Close() error {
	return c.conn.Close()
}

// ReceiveChannel is the reading end of a channel.
type ReceiveChannel struct {
	conn net.Conn
	dec  *cbor.Decoder
}

func newReceiveChannel(conn net.Conn) *ReceiveChannel {
	return &ReceiveChannel{conn: conn, dec: newDecoder(conn)}
}

// Recv blocks until the next message arrives.
func (c *ReceiveChannel) Recv() (Message, error) {
	return c.RecvTimeout(0)
}

// RecvTimeout is Recv bounded by timeout. A zero timeout waits forever.
func (c *ReceiveChannel) RecvTimeout(timeout time.Duration) (Message, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}

	var m Message
	if err := c.dec.Decode(&m); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Message{}, ErrTimeout
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return Message{}, ErrChannelClosed
		}
		return Message{}, fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return m, nil
}

// Close closes the connection.
func (c *ReceiveChannel) Close() error {
	return c.conn.Close()
}
