package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolStopped is returned for work submitted to, or still queued on, a
// pool that has been stopped.
var ErrPoolStopped = errors.New("worker pool stopped")

// PoolConfig configures worker pool behaviour.
type PoolConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

type task struct {
	ctx      context.Context
	run      func(context.Context)
	fail     func(error)
	enqueued time.Time
}

// Pool is a bounded set of goroutines that blocking work is handed to so
// the submitting goroutine only waits at a single await point.
type Pool struct {
	name       string
	workers    int
	bufferSize int
	logger     *zap.Logger

	tasks   chan task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewPool builds a pool; call Start before submitting.
func NewPool(name string, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		name:       name,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		logger:     cfg.Logger,
		tasks:      make(chan task, cfg.BufferSize),
	}
}

// Start launches the workers. Safe to call once.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}
	p.started = true
	p.logger.Sugar().Infow("worker pool started", "pool", p.name, "workers", p.workers)
}

// Stop cancels the workers, waits for them to exit and fails anything still
// queued. Later submissions fail with ErrPoolStopped.
func (p *Pool) Stop() {
	p.mu.RLock()
	started, cancel := p.started, p.cancel
	p.mu.RUnlock()
	if !started {
		return
	}
	cancel()

	// Blocks until in-flight enqueues observe the cancellation.
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()
	p.wg.Wait()

	for {
		select {
		case t := <-p.tasks:
			t.fail(ErrPoolStopped)
		default:
			p.logger.Sugar().Infow("worker pool stopped", "pool", p.name)
			return
		}
	}
}

func (p *Pool) enqueue(t task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	if !p.started {
		return fmt.Errorf("pool %s not started", p.name)
	}
	if p.ctx.Err() != nil {
		return ErrPoolStopped
	}
	t.enqueued = time.Now()

	select {
	case <-p.ctx.Done():
		return ErrPoolStopped
	case <-t.ctx.Done():
		return t.ctx.Err()
	case p.tasks <- t:
		return nil
	}
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t := <-p.tasks:
			p.execute(workerID, t)
		}
	}
}

func (p *Pool) execute(workerID int, t task) {
	if err := t.ctx.Err(); err != nil {
		t.fail(err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Sugar().Errorw("task panicked", "pool", p.name, "worker", workerID, "panic", r)
			t.fail(fmt.Errorf("pool %s: task panicked: %v", p.name, r))
		}
	}()
	if wait := time.Since(t.enqueued); wait > time.Second {
		p.logger.Sugar().Warnw("task waited in queue", "pool", p.name, "wait", wait)
	}
	t.run(t.ctx)
}

// Future is the pending result of work submitted to a Pool.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Await blocks until the work finishes or ctx ends. There are no partial
// results: either the full value or an error is returned.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit hands fn to the pool and returns immediately.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	var zero T
	t := task{
		ctx: ctx,
		run: func(ctx context.Context) {
			f.resolve(fn(ctx))
		},
		fail: func(err error) {
			f.resolve(zero, err)
		},
	}
	if err := p.enqueue(t); err != nil {
		f.resolve(zero, err)
	}
	return f
}
