package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// Connection is one logical realtime channel. It survives socket drops by
// redialing within the manager's retry policy and re-subscribing every live
// subscription.
type Connection struct {
	m        *Manager
	identity string
	ctx      context.Context
	cancel   context.CancelFunc

	mu     sync.Mutex
	conn   Conn
	subs   []*Subscription
	state  RetryState
	closed bool
	err    error

	writeMu sync.Mutex
}

func newConnection(ctx context.Context, m *Manager, identity string) *Connection {
	ctx, cancel := context.WithCancel(ctx)
	return &Connection{
		m:        m,
		identity: identity,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscription is a handler bound to a topic on a Connection.
type Subscription struct {
	ID    string
	Topic string

	handler  Handler
	conn     *Connection
	once     sync.Once
	disposed atomic.Bool
}

// Dispose stops delivery to this subscription. Safe to call more than once.
func (s *Subscription) Dispose() {
	s.once.Do(func() {
		s.disposed.Store(true)
		c := s.conn

		c.mu.Lock()
		removed := c.removeLocked(s)
		conn := c.conn
		c.mu.Unlock()

		if removed && conn != nil {
			if err := c.writeTo(conn, Frame{Type: FrameUnsubscribe, ID: s.ID, Destination: s.Topic}); err != nil {
				log.Debug().Err(err).Str("topic", s.Topic).Msg("unsubscribe not sent")
			}
		}
	})
}

// Disposed reports whether the subscription no longer receives messages.
func (s *Subscription) Disposed() bool {
	return s.disposed.Load()
}

// Subscribe binds handler to topic. On a closed connection the returned
// subscription is already disposed.
func (c *Connection) Subscribe(topic string, handler Handler) *Subscription {
	sub := &Subscription{ID: uuid.NewString(), Topic: topic, handler: handler, conn: c}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.disposed.Store(true)
		log.Debug().Str("topic", topic).Msg("subscribe on closed connection ignored")
		return sub
	}
	c.subs = append(c.subs, sub)
	conn := c.conn
	c.mu.Unlock()

	// Without a socket the subscription is sent when the next dial attaches.
	if conn != nil {
		if err := c.writeTo(conn, Frame{Type: FrameSubscribe, ID: sub.ID, Destination: topic}); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("subscribe not sent, will resend on reconnect")
		}
	}
	return sub
}

// Publish sends payload as JSON to destination.
func (c *Connection) Publish(ctx context.Context, destination string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("publish %s: encode: %w", destination, err)
	}

	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed || conn == nil {
		return fmt.Errorf("publish %s: %w", destination, interrors.ErrConnectionClosed)
	}
	if err := c.writeTo(conn, Frame{Type: FrameSend, ID: uuid.NewString(), Destination: destination, Body: body}); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	return nil
}

// State returns the current retry state.
func (c *Connection) State() RetryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscriptions returns the number of live subscriptions.
func (c *Connection) Subscriptions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Err returns the terminal failure of a connection that gave up
// reconnecting, or nil.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed once the connection is closed, gives up reconnecting, or
// its context ends.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close unsubscribes everything and closes the socket. Idempotent.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, s := range subs {
		s.disposed.Store(true)
	}
	if conn != nil {
		for _, s := range subs {
			if err := c.writeTo(conn, Frame{Type: FrameUnsubscribe, ID: s.ID, Destination: s.Topic}); err != nil {
				log.Debug().Err(err).Msg("unsubscribe on close not sent")
				break
			}
		}
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Msg("socket close")
		}
	}
	c.cancel()
	c.transition(EventClose, nil)
	log.Info().Msg("realtime connection closed")
}

// shutdown releases a connection that never established.
func (c *Connection) shutdown() {
	c.mu.Lock()
	c.closed = true
	c.subs = nil
	c.mu.Unlock()
	c.cancel()
}

func (c *Connection) watchContext() {
	<-c.ctx.Done()
	c.Close()
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// transition advances the retry machine and reports the new status. A move
// into PhaseFailed turns err into the terminal failure, which is returned.
func (c *Connection) transition(ev Event, err error) (RetryState, error) {
	c.mu.Lock()
	prev := c.state
	c.state = c.m.policy.Next(c.state, ev)
	next := c.state
	c.mu.Unlock()

	if next.Phase == PhaseFailed && prev.Phase != PhaseFailed {
		err = fmt.Errorf("%w after %d attempts: %w", interrors.ErrConnectionFailed, next.Attempts, err)
	}
	if next != prev || err != nil {
		c.m.notify(Status{Phase: next.Phase, Attempts: next.Attempts, Err: err})
	}
	return next, err
}

// establish dials until a socket attaches or the cycle's attempts run out.
// The caller has already moved the machine into PhaseConnecting.
func (c *Connection) establish() error {
	for {
		if c.isClosed() {
			return fmt.Errorf("[Connect] %w", interrors.ErrConnectionClosed)
		}
		conn, err := c.m.dial(c.ctx, c.identity)
		if err == nil {
			err = c.attach(conn)
		}
		if err == nil {
			state, _ := c.transition(EventDialSucceeded, nil)
			log.Info().Int("attempt", state.Attempts).Msg("realtime connected")
			go c.readLoop(conn)
			return nil
		}

		state, termErr := c.transition(EventDialFailed, err)
		log.Warn().Err(err).Int("attempt", state.Attempts).Msg("realtime dial failed")
		if state.Phase == PhaseFailed {
			log.Error().Err(termErr).Msg("realtime giving up")
			return termErr
		}
		if waitErr := c.m.wait(c.ctx, c.m.delay); waitErr != nil {
			return fmt.Errorf("[Connect] %w: %w", interrors.ErrConnectionClosed, waitErr)
		}
		c.transition(EventWaitElapsed, nil)
	}
}

// attach installs conn and replays the subscriptions onto it.
func (c *Connection) attach(conn Conn) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return interrors.ErrConnectionClosed
	}
	c.conn = conn
	subs := append([]*Subscription(nil), c.subs...)
	c.mu.Unlock()

	for _, s := range subs {
		if err := c.writeTo(conn, Frame{Type: FrameSubscribe, ID: s.ID, Destination: s.Topic}); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			_ = conn.Close()
			return fmt.Errorf("subscribe %s: %w", s.Topic, err)
		}
	}
	return nil
}

func (c *Connection) readLoop(conn Conn) {
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			c.dropped(conn, err)
			return
		}
		switch f.Type {
		case FrameMessage:
			c.dispatch(f)
		case FrameError:
			log.Warn().Str("id", f.ID).Str("destination", f.Destination).Str("body", string(f.Body)).Msg("realtime error frame")
		default:
			log.Debug().Str("type", string(f.Type)).Msg("ignoring realtime frame")
		}
	}
}

func (c *Connection) dispatch(f Frame) {
	c.mu.Lock()
	var targets []*Subscription
	for _, s := range c.subs {
		if s.Topic == f.Destination {
			targets = append(targets, s)
		}
	}
	c.mu.Unlock()

	msg := Message{Topic: f.Destination, Body: f.Body}
	for _, s := range targets {
		if s.Disposed() || s.handler == nil {
			continue
		}
		deliver(s, msg)
	}
}

func deliver(s *Subscription, msg Message) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("topic", s.Topic).Msg("realtime handler panicked")
		}
	}()
	s.handler(msg)
}

// dropped handles the loss of an established socket by running a new
// bounded retry cycle.
func (c *Connection) dropped(conn Conn, cause error) {
	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()
	_ = conn.Close()

	log.Warn().Err(cause).Msg("realtime connection dropped")
	c.transition(EventDropped, cause)
	if err := c.m.wait(c.ctx, c.m.delay); err != nil {
		return
	}
	if c.isClosed() {
		return
	}
	c.transition(EventWaitElapsed, nil)
	if err := c.establish(); err != nil {
		log.Error().Err(err).Msg("realtime reconnect abandoned")
		c.closeFailed(err)
	}
}

// closeFailed releases a connection whose reconnect cycle ran out. The
// machine stays in PhaseFailed and err is kept for Err.
func (c *Connection) closeFailed(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = err
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, s := range subs {
		s.disposed.Store(true)
	}
	c.cancel()
}

func (c *Connection) writeTo(conn Conn, f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(f)
}

func (c *Connection) removeLocked(s *Subscription) bool {
	for i, existing := range c.subs {
		if existing == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return true
		}
	}
	return false
}
