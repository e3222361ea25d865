package worker

import (
	"context"
	"errors"
	"log"
	"sync"
)

var (
	// ErrQueueFull 等待队列已满
	ErrQueueFull = errors.New("worker queue is full")
	// ErrPoolStopped 池已关闭
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Pool 有界的任务执行池。每个任务在池里的一个 goroutine 上运行，
// 池关闭时通过 context 通知在跑的任务收尾。
type Pool struct {
	jobs   chan func(ctx context.Context)
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewPool(size, queueSize int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:   make(chan func(ctx context.Context), queueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run(i)
	}

	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			log.Printf("Worker %d shutting down", id)
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			job(p.ctx)
		}
	}
}

// Submit 把任务放进队列，不等待执行。队列满时直接报错，
// 不会阻塞调用方。
func (p *Pool) Submit(job func(ctx context.Context)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop 关闭池并等待在跑的任务退出
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}
