// Package flight coalesces concurrent calls to an operation into a single
// execution whose outcome is shared by every caller. A caller may stop
// waiting through its own context without cancelling the execution.
package flight

import (
	"context"
	"fmt"
	"sync"
)

type result[T any] struct {
	value T
	err   error
}

// Group runs at most one execution at a time. The zero value is ready to use.
type Group[T any] struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan result[T]
	calls    int
}

// Do starts fn if no execution is in flight, otherwise it joins the current
// one. Every caller observes the same value and error. shared is false only
// for the caller that started the execution.
//
// fn runs with a context detached from the caller's cancellation so one
// impatient caller cannot fail the others; ctx only bounds this caller's wait.
func (g *Group[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (value T, shared bool, err error) {
	ch := make(chan result[T], 1)

	g.mu.Lock()
	g.waiters = append(g.waiters, ch)
	leader := !g.inFlight
	if leader {
		g.inFlight = true
		g.calls++
	}
	g.mu.Unlock()

	if leader {
		go g.run(context.WithoutCancel(ctx), fn)
	}

	select {
	case r := <-ch:
		return r.value, !leader, r.err
	case <-ctx.Done():
		var zero T
		return zero, !leader, ctx.Err()
	}
}

func (g *Group[T]) run(ctx context.Context, fn func(context.Context) (T, error)) {
	var r result[T]
	func() {
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("flight: panic: %v", p)
			}
		}()
		r.value, r.err = fn(ctx)
	}()

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.inFlight = false
	g.mu.Unlock()

	// Buffered channels: abandoned waiters never block the fan-out.
	for _, w := range waiters {
		w <- r
	}
}

// InFlight reports whether an execution is currently running.
func (g *Group[T]) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Waiting returns how many callers are queued on the current execution.
func (g *Group[T]) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiters)
}

// Calls returns how many executions have been started.
func (g *Group[T]) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
