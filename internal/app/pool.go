package app

import (
	"context"
	"sync"

	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/domain"
	"dwarfcopy/internal/logging"
)

// ErrPoolStopped is returned by Enqueue once every worker has exited.
var ErrPoolStopped = errors.New("worker pool stopped")

// Pool runs transfer commands on a fixed number of workers reading one
// FIFO queue. Commands are only ordered per worker. A failed command is
// recorded and the worker moves on; Drain reports the first failure.
type Pool struct {
	exec       *Executor
	logger     logging.Logger
	onProgress func(domain.Progress)

	ctx     context.Context
	workers int
	queue   chan domain.TransferCommand
	done    chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	failures []error
	bytes    int64
}

// NewPool starts workers goroutines. They stop when they receive a Quit
// command or ctx is cancelled.
func NewPool(ctx context.Context, workers int, exec *Executor, logger logging.Logger, onProgress func(domain.Progress)) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		exec:       exec,
		logger:     logger,
		onProgress: onProgress,
		ctx:        ctx,
		workers:    workers,
		queue:      make(chan domain.TransferCommand, workers*4),
		done:       make(chan struct{}),
	}

	p.wg.Add(workers)
	for i := range workers {
		go p.work(i)
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p
}

func (p *Pool) work(id int) {
	defer p.wg.Done()
	for {
		if p.ctx.Err() != nil {
			return
		}

		var cmd domain.TransferCommand
		select {
		case <-p.ctx.Done():
			return
		case cmd = <-p.queue:
		}

		if cmd.IsQuit() {
			return
		}

		n, err := p.exec.Execute(cmd)
		if err != nil {
			p.logger.Warnf("worker %d: %v", id, err)
			p.mu.Lock()
			p.failures = append(p.failures, err)
			p.mu.Unlock()
			continue
		}

		p.mu.Lock()
		p.bytes += n
		p.mu.Unlock()
		if p.onProgress != nil {
			p.onProgress(domain.Progress{Worker: id, Description: cmd.Description(), Bytes: n})
		}
	}
}

// Enqueue hands cmd to the next free worker, blocking while the queue is full.
func (p *Pool) Enqueue(cmd domain.TransferCommand) error {
	select {
	case <-p.done:
		return p.stopped()
	default:
	}

	select {
	case p.queue <- cmd:
		return nil
	case <-p.done:
		return p.stopped()
	}
}

func (p *Pool) stopped() error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	return ErrPoolStopped
}

// Drain sends one Quit per worker and waits for all of them to exit. Every
// command enqueued before Drain has run by the time it returns, unless ctx
// was cancelled.
func (p *Pool) Drain() error {
	for range p.workers {
		select {
		case p.queue <- domain.QuitCommand:
		case <-p.done:
		}
	}
	<-p.done

	if err := p.ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.failures) > 0 {
		return errors.Errorf("%d of the transfer commands failed, first: %w", len(p.failures), p.failures[0])
	}
	return nil
}

// Bytes is the total copied so far.
func (p *Pool) Bytes() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}
