package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultReconnectAttempts = 3
	defaultReconnectDelay    = 3 * time.Second
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Status is reported on every lifecycle transition. Err is set on failed
// dials and on the terminal failure.
type Status struct {
	Phase    Phase
	Attempts int
	Err      error
}

// StatusFunc observes connection status changes.
type StatusFunc func(Status)

// Manager creates realtime connections. It holds configuration only; each
// Connection owns its own socket and retry state.
type Manager struct {
	url      string
	dialer   Dialer
	policy   RetryPolicy
	delay    time.Duration
	wait     WaitFunc
	onStatus StatusFunc
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithRetry sets the per-cycle dial limit and the delay between dials.
func WithRetry(attempts int, delay time.Duration) ManagerOption {
	return func(m *Manager) {
		m.policy.MaxAttempts = attempts
		m.delay = delay
	}
}

// WithWaitFunc replaces the wait between dials.
func WithWaitFunc(wait WaitFunc) ManagerOption {
	return func(m *Manager) {
		m.wait = wait
	}
}

// WithClock drives the wait between dials from clk.
func WithClock(clk clock.Clock) ManagerOption {
	return func(m *Manager) {
		m.wait = clockWait(clk)
	}
}

// WithStatusFunc registers fn for status changes of every connection.
func WithStatusFunc(fn StatusFunc) ManagerOption {
	return func(m *Manager) {
		m.onStatus = fn
	}
}

// NewManager returns a manager dialing url with dialer.
func NewManager(url string, dialer Dialer, options ...ManagerOption) *Manager {
	m := &Manager{
		url:    url,
		dialer: dialer,
		policy: RetryPolicy{MaxAttempts: defaultReconnectAttempts},
		delay:  defaultReconnectDelay,
		wait:   clockWait(clock.New()),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Connect dials the socket, retrying per the manager's policy, and
// subscribes onMessage to each topic. The connection lives until Disconnect
// or until ctx is done. When every attempt fails the status func receives
// the terminal failure and Connect returns it; no further retries happen.
func (m *Manager) Connect(ctx context.Context, identity string, topics []string, onMessage Handler) (*Connection, error) {
	c := newConnection(ctx, m, identity)
	for _, topic := range topics {
		c.Subscribe(topic, onMessage)
	}

	c.transition(EventConnect, nil)
	if err := c.establish(); err != nil {
		c.shutdown()
		return nil, err
	}
	go c.watchContext()
	return c, nil
}

// Disconnect unsubscribes everything and closes the socket. A nil or already
// closed connection is a no-op.
func (m *Manager) Disconnect(c *Connection) {
	if c == nil {
		return
	}
	c.Close()
}

func (m *Manager) dial(ctx context.Context, identity string) (Conn, error) {
	header := http.Header{}
	if identity != "" {
		header.Set("Authorization", "Bearer "+identity)
	}
	conn, err := m.dialer.Dial(ctx, m.url, header)
	if err != nil {
		return nil, errors.Wrap(err, "[Connect]")
	}
	return conn, nil
}

func clockWait(clk clock.Clock) WaitFunc {
	return func(ctx context.Context, d time.Duration) error {
		timer := clk.Timer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

func (m *Manager) notify(s Status) {
	if m.onStatus == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("realtime status callback panicked")
		}
	}()
	m.onStatus(s)
}
