// Package presence announces the signed-in user's liveness and reads the
// advisory online status of others.
package presence

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	interrors "github.com/jrsteele09/go-social-client/internal/errors"
	"github.com/jrsteele09/go-social-client/internal/utils"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPingInterval = 10 * time.Second
	DefaultPollInterval = 30 * time.Second
)

// Requester performs authenticated REST calls. *api.Client satisfies it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

func statusPath(userID string) string     { return "/api/online-status/" + userID }
func pingPath(userID string) string       { return "/api/online-status/ping/" + userID }
func minutesAgoPath(userID string) string { return "/api/online-status/minutes-ago/" + userID }

// Record is the presence of one user. LastSeenMinutesAgo is nil when unknown.
type Record struct {
	IsOnline           bool
	LastSeenMinutesAgo *int
}

// Unknown is reported when presence could not be read.
var Unknown = Record{}

// Equal reports whether both records describe the same presence.
func (r Record) Equal(o Record) bool {
	return r.IsOnline == o.IsOnline && utils.Equal(r.LastSeenMinutesAgo, o.LastSeenMinutesAgo)
}

// LastSeen renders the record for display.
func (r Record) LastSeen() string {
	switch {
	case r.IsOnline:
		return "online"
	case r.LastSeenMinutesAgo == nil:
		return "last seen unknown"
	case *r.LastSeenMinutesAgo < 1:
		return "last seen just now"
	case *r.LastSeenMinutesAgo == 1:
		return "last seen 1 minute ago"
	case *r.LastSeenMinutesAgo < 60:
		return fmt.Sprintf("last seen %d minutes ago", *r.LastSeenMinutesAgo)
	case *r.LastSeenMinutesAgo < 24*60:
		return fmt.Sprintf("last seen %d hours ago", *r.LastSeenMinutesAgo/60)
	}
	return fmt.Sprintf("last seen %d days ago", *r.LastSeenMinutesAgo/(24*60))
}

type settings struct {
	clock    clock.Clock
	interval time.Duration
}

// Option configures a Pinger or Watcher.
type Option func(*settings)

// WithClock replaces the wall clock driving the schedule.
func WithClock(clk clock.Clock) Option {
	return func(s *settings) {
		s.clock = clk
	}
}

// WithInterval replaces the schedule interval.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

func newSettings(interval time.Duration, options []Option) settings {
	s := settings{clock: clock.New(), interval: interval}
	for _, opt := range options {
		opt(&s)
	}
	return s
}

// Pinger talks to the online-status endpoints.
type Pinger struct {
	client Requester
	settings
}

func NewPinger(client Requester, options ...Option) *Pinger {
	return &Pinger{client: client, settings: newSettings(DefaultPingInterval, options)}
}

// Ping announces userID as online once.
func (p *Pinger) Ping(ctx context.Context, userID string) error {
	if err := p.client.Do(ctx, http.MethodPost, pingPath(userID), nil, nil); err != nil {
		return interrors.Wrapf(err, "ping %s", userID)
	}
	return nil
}

// StartPing announces userID now and on every interval until stop is called
// or ctx ends. Each announcement runs on its own goroutine so a slow call
// never delays the next tick. Failures are logged and the schedule continues.
func (p *Pinger) StartPing(ctx context.Context, userID string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	ticker := p.clock.Ticker(p.interval)

	go p.announce(ctx, userID)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go p.announce(ctx, userID)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

func (p *Pinger) announce(ctx context.Context, userID string) {
	if ctx.Err() != nil {
		return
	}
	if err := p.Ping(ctx, userID); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("user", userID).Msg("presence ping failed")
	}
}

// QueryPresence reads the online flag and last-seen minutes for userID. The
// two reads run concurrently and neither cancels the other; if either fails
// the user is reported offline with an unknown last-seen time.
func (p *Pinger) QueryPresence(ctx context.Context, userID string) Record {
	var (
		g       errgroup.Group
		online  bool
		minutes *int
	)
	g.Go(func() error {
		return p.client.Do(ctx, http.MethodGet, statusPath(userID), nil, &online)
	})
	g.Go(func() error {
		return p.client.Do(ctx, http.MethodGet, minutesAgoPath(userID), nil, &minutes)
	})
	if err := g.Wait(); err != nil {
		log.Debug().Err(err).Str("user", userID).Msg("presence unavailable")
		return Unknown
	}
	return Record{IsOnline: online, LastSeenMinutesAgo: minutes}
}
