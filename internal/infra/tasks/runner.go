// Package tasks runs best-effort background work, such as ledger
// anchoring and async certificate issuance, on a bounded worker pool.
// Submissions never block the request path: a full queue is reported to
// the caller instead of absorbed.
package tasks

import (
	"context"
	"log"
	"sync"

	"agritrace/internal/usecase"
)

type job struct {
	name string
	task func(ctx context.Context)
}

type Pool struct {
	queue  chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:  make(chan job, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("background task %s panicked: %v", j.name, r)
		}
	}()
	j.task(p.ctx)
}

func (p *Pool) Submit(name string, task func(ctx context.Context)) bool {
	if p == nil || task == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	select {
	case p.queue <- job{name: name, task: task}:
		return true
	default:
		log.Printf("background queue full, dropping task %s", name)
		return false
	}
}

// Stop drains queued tasks, then cancels the context handed to any task
// still running and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

var _ usecase.TaskRunner = (*Pool)(nil)
