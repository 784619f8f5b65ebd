package presence

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Querier reads one user's presence. *Pinger satisfies it.
type Querier interface {
	QueryPresence(ctx context.Context, userID string) Record
}

// Watcher keeps a cache of presence records for a set of users, re-polling
// them on a fixed interval.
type Watcher struct {
	querier Querier
	settings
	group singleflight.Group

	mu       sync.RWMutex
	watched  map[string]struct{}
	records  map[string]Record
	onChange func(userID string, r Record)
}

func NewWatcher(querier Querier, options ...Option) *Watcher {
	return &Watcher{
		querier:  querier,
		settings: newSettings(DefaultPollInterval, options),
		watched:  make(map[string]struct{}),
		records:  make(map[string]Record),
	}
}

// OnChange registers fn to run whenever a user's record changes.
func (w *Watcher) OnChange(fn func(userID string, r Record)) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// Watch adds users to the polled set.
func (w *Watcher) Watch(userIDs ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range userIDs {
		w.watched[id] = struct{}{}
	}
}

// Unwatch removes a user and drops its cached record.
func (w *Watcher) Unwatch(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watched, userID)
	delete(w.records, userID)
}

// Get returns the cached record for userID.
func (w *Watcher) Get(userID string) (Record, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.records[userID]
	return r, ok
}

// Refresh queries userID now. Concurrent refreshes of the same user share
// one query.
func (w *Watcher) Refresh(ctx context.Context, userID string) Record {
	v, _, _ := w.group.Do(userID, func() (any, error) {
		return w.querier.QueryPresence(ctx, userID), nil
	})
	r := v.(Record)

	w.mu.Lock()
	if _, ok := w.watched[userID]; !ok {
		w.mu.Unlock()
		return r
	}
	prev, had := w.records[userID]
	w.records[userID] = r
	onChange := w.onChange
	w.mu.Unlock()

	if onChange != nil && (!had || !prev.Equal(r)) {
		onChange(userID, r)
	}
	return r
}

// Run polls every watched user immediately and then on each interval until
// ctx ends. Queries run in the background, so a hung query never holds up
// the next tick; a user whose query is still running joins it.
func (w *Watcher) Run(ctx context.Context) {
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	w.mu.RLock()
	ids := make([]string, 0, len(w.watched))
	for id := range w.watched {
		ids = append(ids, id)
	}
	w.mu.RUnlock()

	for _, id := range ids {
		go w.Refresh(ctx, id)
	}
	log.Debug().Int("users", len(ids)).Msg("presence poll dispatched")
}

