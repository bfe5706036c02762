package engine

import (
	"context"
	stderrors "errors"
	"time"
)

// ErrLoopClosed is returned by Call once the loop stopped running.
var ErrLoopClosed = stderrors.New("event loop closed")

// Loop is the single goroutine that owns game, board, driver and
// narration state. Everything else talks to it through Post and Call.
type Loop struct {
	inbox chan func()
	done  chan struct{}
}

// NewLoop creates a loop with a buffered inbox.
func NewLoop() *Loop {
	return &Loop{inbox: make(chan func(), 256), done: make(chan struct{})}
}

// Post schedules fn on the loop. It never runs fn inline and drops it once
// the loop has exited.
func (l *Loop) Post(fn func()) {
	select {
	case l.inbox <- fn:
	case <-l.done:
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Run processes posted functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.inbox:
			fn()
		}
	}
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	Stop() bool
}

// Scheduler creates one-shot timers whose callbacks run on the loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// LoopScheduler fires timers through a Loop.
type LoopScheduler struct {
	Loop *Loop
}

func (s LoopScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { s.Loop.Post(fn) })
}
