package funnel

import (
	"context"

	"go.uber.org/zap"
)

type job func(ctx context.Context)

// worker runs backend calls one at a time off the UI loop. Jobs keep their
// submission order.
type worker struct {
	jobs   chan job
	cancel context.CancelFunc
	done   chan struct{}
	logger *zap.Logger
}

func newWorker(ctx context.Context, size int, logger *zap.Logger) *worker {
	ctx, cancel := context.WithCancel(ctx)
	w := &worker{
		jobs:   make(chan job, size),
		cancel: cancel,
		done:   make(chan struct{}),
		logger: logger,
	}
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case j := <-w.jobs:
				j(ctx)
			}
		}
	}()
	return w
}

// submit never blocks; a full queue drops the job.
func (w *worker) submit(j job) {
	select {
	case w.jobs <- j:
	default:
		w.logger.Warn("Session queue full, dropping call")
	}
}

func (w *worker) close() {
	w.cancel()
	<-w.done
}
