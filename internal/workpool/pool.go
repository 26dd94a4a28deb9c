// Package workpool runs pipeline jobs on a fixed set of workers so concurrent
// requests cannot start unbounded OCR processes.
package workpool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrClosed    = errors.New("workpool: shutting down")
	ErrQueueFull = errors.New("workpool: queue full")
)

// Task is one unit of work. It receives a context bounded by the pool's task timeout.
type Task func(ctx context.Context) error

type job struct {
	ctx    context.Context
	task   Task
	done   chan error
	finish func()
}

type Pool struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan job, n)
		}
	}
}

func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func New(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan job, 64),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Debug("worker started", "worker_id", workerID)
				for j := range p.ch {
					err := p.runJob(workerID, j)
					if j.finish != nil {
						j.finish()
					}
					j.done <- err
				}
				p.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (p *Pool) runJob(workerID int, j job) (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(j.ctx, p.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "worker_id", workerID, "panic", r)
			err = errors.New("workpool: task panicked")
		}
	}()
	return j.task(ctx)
}

// Do queues task and waits for it. If the queue is full Do blocks until a slot
// frees up or ctx is done.
func (p *Pool) Do(ctx context.Context, task Task) error {
	return p.wait(ctx, job{ctx: ctx, task: task, done: make(chan error, 1)}, true)
}

// TryDo is like Do but fails fast with ErrQueueFull instead of waiting for a slot.
func (p *Pool) TryDo(ctx context.Context, task Task) error {
	return p.wait(ctx, job{ctx: ctx, task: task, done: make(chan error, 1)}, false)
}

// Submit runs fn on the pool and returns its value. The value comes back over
// the job's channel, so a caller that gives up when ctx ends never shares
// memory with a task still running.
//
// finish, if not nil, runs exactly once when the pool is done with fn: after
// fn returns, after a queued job is skipped because ctx already ended, or
// immediately when the job cannot be queued. Anything fn reads that the caller
// would otherwise clean up (temp files, uploads) should be released there.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error), finish func()) (T, error) {
	out := make(chan T, 1)
	task := func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out <- v
		return nil
	}
	var zero T
	if err := p.wait(ctx, job{ctx: ctx, task: task, done: make(chan error, 1), finish: finish}, true); err != nil {
		return zero, err
	}
	return <-out, nil
}

func (p *Pool) wait(ctx context.Context, j job, block bool) error {
	if err := p.submit(ctx, j, block); err != nil {
		if j.finish != nil {
			j.finish()
		}
		return err
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) submit(ctx context.Context, j job, wait bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.ch <- j:
		return nil
	default:
	}
	if !wait {
		p.logger.Warn("queue full, rejecting task")
		return ErrQueueFull
	}
	p.logger.Warn("queue full, applying backpressure")
	select {
	case p.ch <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting work and waits for queued tasks to finish or ctx to end.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("shutdown interrupted by context")
	case <-done:
		p.logger.Info("work pool drained, shutdown complete")
	}
}
