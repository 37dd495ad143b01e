package telegram

import (
	"context"
	"sync"

	"github.com/locvowork/attendance_bot/internal/logger"
)

const shardQueueSize = 64

// Job is one unit of work for a principal. It carries its own context.
type Job func()

// Dispatcher runs jobs on a fixed pool of workers. Jobs for the same
// principal always land on the same worker, so they run in arrival order.
type Dispatcher struct {
	shards []chan Job
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher with numWorkers shards. Values below
// one are treated as one.
func NewDispatcher(numWorkers int) *Dispatcher {
	if numWorkers < 1 {
		numWorkers = 1
	}
	d := &Dispatcher{shards: make([]chan Job, numWorkers)}
	for i := range d.shards {
		d.shards[i] = make(chan Job, shardQueueSize)
	}
	return d
}

// Start launches the workers. They exit once Stop is called and their
// queues are drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, queue := range d.shards {
		d.wg.Add(1)
		go d.runWorker(ctx, i, queue)
	}
	logger.InfoLog(ctx, "Dispatcher started with %d workers", len(d.shards))
}

// Submit queues job on the principal's shard. It blocks while the shard is
// full and gives up when ctx is done.
func (d *Dispatcher) Submit(ctx context.Context, principal int64, job Job) bool {
	select {
	case d.shards[d.shardFor(principal)] <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

// Stop closes the queues and waits for queued jobs to finish. Submit must
// not be called afterwards.
func (d *Dispatcher) Stop() {
	for _, queue := range d.shards {
		close(queue)
	}
	d.wg.Wait()
}

func (d *Dispatcher) shardFor(principal int64) int {
	n := principal % int64(len(d.shards))
	if n < 0 {
		n = -n
	}
	return int(n)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, queue <-chan Job) {
	defer d.wg.Done()
	for job := range queue {
		d.run(ctx, id, job)
	}
	logger.DebugLog(ctx, "Dispatcher worker %d shutting down", id)
}

// run executes one job and keeps the worker alive if it panics.
func (d *Dispatcher) run(ctx context.Context, id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorLog(ctx, "Dispatcher worker %d recovered from panic: %v", id, r)
		}
	}()
	job()
}
