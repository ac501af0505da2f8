package starlark

import (
	"log/slog"
	"sync"

	"go.starlark.net/starlark"
)

// DefaultMaxSteps bounds the computation steps of a single macro call.
const DefaultMaxSteps = 10_000_000

// ThreadPool recycles Starlark threads between macro calls. Threads print
// to the pool's logger and are cancelled after maxSteps computation steps.
type ThreadPool struct {
	mu       sync.Mutex
	threads  []*starlark.Thread
	maxSize  int
	maxSteps uint64
	logger   *slog.Logger
}

// NewThreadPool creates a new thread pool with the specified maximum size.
func NewThreadPool(maxSize int, logger *slog.Logger) *ThreadPool {
	if maxSize <= 0 {
		maxSize = 10 // default pool size
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ThreadPool{
		threads:  make([]*starlark.Thread, 0, maxSize),
		maxSize:  maxSize,
		maxSteps: DefaultMaxSteps,
		logger:   logger,
	}
}

// SetMaxSteps changes the step limit of threads handed out from now on.
func (p *ThreadPool) SetMaxSteps(n uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxSteps = n
}

// Get retrieves a thread from the pool or creates a new one.
// The thread name is used for error reporting.
func (p *ThreadPool) Get(name string) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.threads); n > 0 {
		thread := p.threads[n-1]
		p.threads = p.threads[:n-1]
		thread.Name = name
		p.limit(thread)
		return thread
	}

	logger := p.logger
	thread := &starlark.Thread{
		Name: name,
		Print: func(t *starlark.Thread, msg string) {
			logger.Info(msg, slog.String("macro", t.Name))
		},
	}
	p.limit(thread)
	return thread
}

// stepLimitKey is the thread-local holding the absolute step limit; a
// thread's step counter keeps growing across reuses.
const stepLimitKey = "conceptc.step_limit"

func (p *ThreadPool) limit(thread *starlark.Thread) {
	limit := thread.ExecutionSteps() + p.maxSteps
	thread.SetMaxExecutionSteps(limit)
	thread.SetLocal(stepLimitKey, limit)
}

// Put returns a thread to the pool for reuse.
// If the pool is full, the thread is discarded. Threads cancelled by the
// step limit are never reused.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limit, ok := thread.Local(stepLimitKey).(uint64); ok && thread.ExecutionSteps() >= limit {
		return
	}
	if len(p.threads) < p.maxSize {
		thread.Name = ""
		p.threads = append(p.threads, thread)
	}
}

// Size returns the current number of threads in the pool.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
