package merge

import (
	"context"
	"sync"
)

// branchQueues serializes merges per target branch through message passing:
// one worker goroutine per target consumes requests in order, so at most
// one merge mutates a given branch ref at a time while merges onto
// different targets proceed in parallel.
type branchQueues struct {
	mu      sync.Mutex
	queues  map[string]chan mergeRequest
	closed  bool
	workers sync.WaitGroup
}

type mergeRequest struct {
	ctx   context.Context
	run   func(ctx context.Context) (*Result, error)
	reply chan mergeReply
}

type mergeReply struct {
	result *Result
	err    error
}

func newBranchQueues() *branchQueues {
	return &branchQueues{queues: make(map[string]chan mergeRequest)}
}

// submit enqueues work for the target branch and waits for its reply or
// context cancellation. Queued work always runs to completion once started;
// cancellation only abandons the wait, never interrupts a merge in flight.
func (b *branchQueues) submit(ctx context.Context, target string, run func(ctx context.Context) (*Result, error)) (*Result, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, context.Canceled
	}
	ch, ok := b.queues[target]
	if !ok {
		ch = make(chan mergeRequest)
		b.queues[target] = ch
		b.workers.Add(1)
		go b.worker(ch)
	}
	b.mu.Unlock()

	req := mergeRequest{ctx: ctx, run: run, reply: make(chan mergeReply, 1)}
	select {
	case ch <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case rep := <-req.reply:
		return rep.result, rep.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *branchQueues) worker(ch chan mergeRequest) {
	defer b.workers.Done()
	for req := range ch {
		// The merge itself runs under the request's context so a caller
		// gone before the merge starts does not hold the branch.
		result, err := req.run(req.ctx)
		req.reply <- mergeReply{result: result, err: err}
	}
}

// close stops all workers after in-flight requests drain.
func (b *branchQueues) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.queues {
		close(ch)
	}
	b.mu.Unlock()
	b.workers.Wait()
}
