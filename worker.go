package inventory

import (
	"sync"

	"go.uber.org/zap"
)

// WorkerPool runs fire-and-forget tasks (notification publishes, inbound
// event handling) off the request path.
type WorkerPool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewWorkerPool(size int, logger *zap.Logger) *WorkerPool {
	wp := &WorkerPool{
		tasks:  make(chan func(), 1000),
		logger: logger,
	}

	wp.wg.Add(size)
	for i := 0; i < size; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.tasks {
		task()
	}
}

// Submit enqueues a task without blocking the caller. Tasks dropped on a full
// queue are logged; delivery here is best effort.
func (wp *WorkerPool) Submit(task func()) {
	select {
	case wp.tasks <- task:
	default:
		wp.logger.Warn("worker pool queue full, dropping task")
	}
}

// Shutdown stops accepting tasks and waits for in-flight ones to finish.
func (wp *WorkerPool) Shutdown() {
	close(wp.tasks)
	wp.wg.Wait()
}
