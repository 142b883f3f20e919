// Package uiloop runs the single goroutine that owns all UI logic. Work from
// other goroutines, such as completions of file loads, is posted onto the loop
// and runs there in posting order.
package uiloop

import (
	"context"
	"errors"
	"sync"

	"github.com/ahrav/fringeproc/pkg/common/logger"
)

// ErrStopped is returned when work is offered to a loop that has stopped.
var ErrStopped = errors.New("ui loop stopped")

// Task is a unit of UI work.
type Task func(ctx context.Context)

// Loop executes posted tasks one at a time on the goroutine calling Run.
type Loop struct {
	tasks    chan Task
	done     chan struct{}
	stopOnce sync.Once

	logger *logger.Logger
}

// New creates a Loop whose queue holds up to buffer pending tasks before Post blocks.
func New(buffer int, logger *logger.Logger) *Loop {
	return &Loop{
		tasks:  make(chan Task, buffer),
		done:   make(chan struct{}),
		logger: logger.With("component", "ui_loop"),
	}
}

// Post queues fn for execution on the loop. It reports false if the loop has
// stopped. Tasks from a single goroutine run in the order they were posted.
func (l *Loop) Post(fn Task) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn Task) error {
	finished := make(chan struct{})
	if !l.Post(func(ctx context.Context) {
		defer close(finished)
		fn(ctx)
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends Run after the task in progress. Pending tasks are discarded.
func (l *Loop) Stop() { l.stopOnce.Do(func() { close(l.done) }) }

// Done is closed once the loop is stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Run executes tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug(ctx, "ui loop started")
	defer l.logger.Debug(ctx, "ui loop finished")

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			fn(ctx)
		}
	}
}
