// Package execution provides the single serialized order-execution context
package execution

import (
	"context"
	"hedge_sync/internal/core"
	apperrors "hedge_sync/pkg/errors"
	"sync"
)

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Serial runs submitted tasks one at a time, in submission order, on a
// dedicated goroutine. Everything that touches live orders goes through it,
// mirroring the host venue's requirement that order mutations happen on one
// serialized context.
type Serial struct {
	logger core.ILogger
	tasks  chan task
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSerial creates a serialized executor with the given queue capacity.
func NewSerial(queueSize int, logger core.ILogger) *Serial {
	if queueSize <= 0 {
		queueSize = 128
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Serial{
		logger: logger.WithField("component", "serial_executor"),
		tasks:  make(chan task, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutine.
func (s *Serial) Start() {
	s.wg.Add(1)
	go s.runLoop()
}

// Submit enqueues a task. It never blocks: a full queue returns an error so
// the caller can degrade instead of stalling an event callback.
func (s *Serial) Submit(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	select {
	case <-s.ctx.Done():
		return apperrors.ErrExecutorStopped
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case s.tasks <- task{name: name, fn: fn}:
		return nil
	default:
		s.logger.Error("Execution queue full, dropping task", "task", name)
		return apperrors.ErrQueueFull
	}
}

// Stop drains queued tasks and joins the worker.
func (s *Serial) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Serial) runLoop() {
	defer s.wg.Done()

	for {
		select {
		case t := <-s.tasks:
			s.run(t)
		case <-s.ctx.Done():
			// Drain whatever was accepted before shutdown.
			for {
				select {
				case t := <-s.tasks:
					s.run(t)
				default:
					return
				}
			}
		}
	}
}

func (s *Serial) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Task panicked", "task", t.name, "panic", r)
		}
	}()

	if err := t.fn(context.Background()); err != nil {
		s.logger.Error("Task failed", "task", t.name, "error", err.Error())
	}
}
