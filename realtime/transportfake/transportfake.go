// Package transportfake provides in-memory realtime transports for tests.
package transportfake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-social-client/realtime"
)

var ErrClosed = errors.New("fake connection closed")

var (
	_ realtime.Conn   = (*Conn)(nil)
	_ realtime.Dialer = (*Dialer)(nil)
)

// Conn is an in-memory socket. Frames pushed by the test are read by the
// connection under test; frames it writes are recorded.
type Conn struct {
	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written []realtime.Frame
}

func NewConn() *Conn {
	return &Conn{
		incoming: make(chan []byte),
		closed:   make(chan struct{}),
	}
}

func (c *Conn) ReadJSON(v any) error {
	select {
	case data := <-c.incoming:
		return json.Unmarshal(data, v)
	case <-c.closed:
		return ErrClosed
	}
}

func (c *Conn) WriteJSON(v any) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var f realtime.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.mu.Lock()
	c.written = append(c.written, f)
	c.mu.Unlock()
	return nil
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Drop simulates the server going away.
func (c *Conn) Drop() {
	_ = c.Close()
}

// IsClosed reports whether the socket was closed by either side.
func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Push hands f to the reader, blocking until it is read or the socket closes.
func (c *Conn) Push(f realtime.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case c.incoming <- data:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

// Deliver pushes a message frame carrying body to topic.
func (c *Conn) Deliver(topic string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.Push(realtime.Frame{Type: realtime.FrameMessage, Destination: topic, Body: raw})
}

// Written returns a copy of every frame written so far.
func (c *Conn) Written() []realtime.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]realtime.Frame(nil), c.written...)
}

// WrittenOfType filters Written by frame type.
func (c *Conn) WrittenOfType(t realtime.FrameType) []realtime.Frame {
	var out []realtime.Frame
	for _, f := range c.Written() {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// Dialer fails or succeeds per a script. Dials past the end of the script
// succeed.
type Dialer struct {
	mu      sync.Mutex
	script  []error
	calls   int
	conns   []*Conn
	headers []http.Header
}

// NewDialer scripts the outcome of each dial; nil means success.
func NewDialer(script ...error) *Dialer {
	return &Dialer{script: script}
}

func (d *Dialer) Dial(_ context.Context, _ string, header http.Header) (realtime.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.calls
	d.calls++
	d.headers = append(d.headers, header.Clone())
	if idx < len(d.script) && d.script[idx] != nil {
		return nil, d.script[idx]
	}
	conn := NewConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

// Attempts returns the number of dials made.
func (d *Dialer) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Conns returns every socket handed out, oldest first.
func (d *Dialer) Conns() []*Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Conn(nil), d.conns...)
}

// Last returns the most recent socket, or nil.
func (d *Dialer) Last() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// Headers returns the headers of each dial.
func (d *Dialer) Headers() []http.Header {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]http.Header(nil), d.headers...)
}
