// Package worker runs background tasks of the client (deferred refreshes and
// other fire-and-forget work) on a bounded ants goroutine pool.
package worker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned when submitting to a released pool.
var ErrClosed = errors.New("worker pool closed")

// Pool is a bounded goroutine pool with support for delayed tasks.
type Pool struct {
	ants *ants.Pool

	mu     sync.Mutex
	closed bool
	timers map[*time.Timer]struct{}
}

// New creates a pool running at most size tasks concurrently.
// Panics inside tasks are recovered and logged.
func New(size int) (*Pool, error) {
	p, err := ants.NewPool(size,
		ants.WithExpiryDuration(60*time.Second),
		ants.WithNonblocking(false),
		ants.WithPanicHandler(func(v any) {
			log.Error().Str("component", "worker").Interface("panic", v).Msg("background task panic recovered")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Pool{ants: p, timers: make(map[*time.Timer]struct{})}, nil
}

// Go submits task for immediate execution.
func (p *Pool) Go(task func()) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := p.ants.Submit(task); err != nil {
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// After submits task once d has elapsed. The returned function cancels the
// task if it has not started yet.
func (p *Pool) After(d time.Duration, task func()) (cancel func(), err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return func() {}, ErrClosed
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		p.mu.Lock()
		delete(p.timers, t)
		p.mu.Unlock()
		if err := p.Go(task); err != nil {
			log.Warn().Err(err).Str("component", "worker").Msg("delayed task dropped")
		}
	})
	p.timers[t] = struct{}{}

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.timers[t]; ok {
			t.Stop()
			delete(p.timers, t)
		}
	}, nil
}

// Running returns the number of tasks currently executing.
func (p *Pool) Running() int { return p.ants.Running() }

// Pending returns the number of delayed tasks not yet submitted.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.timers)
}

// Release stops pending delayed tasks and waits up to timeout for running
// tasks to finish.
func (p *Pool) Release(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for t := range p.timers {
		t.Stop()
	}
	p.timers = map[*time.Timer]struct{}{}
	p.mu.Unlock()

	return p.ants.ReleaseTimeout(timeout)
}
