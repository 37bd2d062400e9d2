// Package worker runs detached background work (farm initialization, plan
// generation, yield predictions) with bounded concurrency.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/kiranshivaraju/farmdesk/internal/metrics"
)

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("worker pool is shut down")

// DefaultConcurrency is used when the configured concurrency is not positive.
const DefaultConcurrency = 8

// Task is a unit of background work. The context is detached from any request
// and is cancelled only when the pool is force-stopped.
type Task func(ctx context.Context) error

// Pool runs tasks on at most N goroutines at a time. Submit never blocks:
// tasks beyond the limit wait for a free slot.
type Pool struct {
	slots  chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewPool(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		slots:  make(chan struct{}, concurrency),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit schedules fn under name (used in logs and metrics).
func (p *Pool) Submit(name string, fn Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	metrics.BackgroundQueued.WithLabelValues(name).Inc()
	go func() {
		defer p.wg.Done()
		select {
		case p.slots <- struct{}{}:
		case <-p.ctx.Done():
			metrics.BackgroundQueued.WithLabelValues(name).Dec()
			slog.Warn("background task dropped before start", "task", name)
			return
		}
		metrics.BackgroundQueued.WithLabelValues(name).Dec()
		defer func() { <-p.slots }()
		p.run(name, fn)
	}()
	return nil
}

func (p *Pool) run(name string, fn Task) {
	timer := metrics.NewBackgroundTimer(name)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in background task",
					"task", name,
					"error", r,
					"stack", string(debug.Stack()),
				)
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn(p.ctx)
	}()
	timer.Observe(err)
	if err != nil {
		slog.Error("background task failed", "task", name, "error", err)
	}
}

// Shutdown stops accepting work and waits for queued and running tasks. If ctx
// expires first, running tasks are cancelled and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
