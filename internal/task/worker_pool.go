package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue TaskQueueReader

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is passed to every task and cancelled by a non-graceful stop
	ctx context.Context

	// cancel is the function to call to cancel the context
	cancel context.CancelFunc

	// logger for structured logging
	logger *slog.Logger

	// errorHandler is called when a task execution fails
	// If nil, errors are only logged
	errorHandler func(task Task, err error)

	startOnce sync.Once
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler allows setting a custom error handler for task execution failures.
// It must be called before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the workers. Calling Start more than once has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		p.logger.Debug("worker pool started", "worker_count", p.workerCount)
	})
}

// Stop shuts the pool down. With graceful set, it waits for the workers to
// drain the queue, which the caller must already have closed. Otherwise it
// cancels the context handed to running tasks and returns without waiting.
func (p *WorkerPool) Stop(graceful bool) {
	if !graceful {
		p.cancel()
		p.logger.Info("worker pool cancelled")
		return
	}
	p.wg.Wait()
	p.cancel()
	p.logger.Info("worker pool drained")
}

// Wait blocks until every worker has exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// worker processes tasks from the queue until it is closed or the pool is
// cancelled.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	tasks := p.taskQueue.GetChannel()
	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return
		case t, ok := <-tasks:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			// A task received after cancellation still runs, with a
			// cancelled context, so it can release what it holds.
			p.processTask(t, id)
		}
	}
}

// processTask handles execution of a single task, converting a panic into
// an error so one faulty task cannot take the worker down.
func (p *WorkerPool) processTask(t Task, workerID int) {
	logger := p.logger.With(
		"task_id", t.ID(),
		"task_type", t.Type(),
		"worker_id", workerID,
	)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		return t.Execute(p.ctx)
	}()

	if err != nil {
		if p.errorHandler != nil {
			p.errorHandler(t, err)
		} else {
			logger.Error("task execution failed", "error", err)
		}
		return
	}
	logger.Debug("task completed")
}
