package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Task is periodic background work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Worker runs a Task on a fixed interval until stopped
type Worker struct {
	task     Task
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new Worker instance
func NewWorker(task Task, interval time.Duration) *Worker {
	return &Worker{
		task:     task,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the task every interval and blocks until ctx is cancelled or
// Stop is called. A failing or panicking run is logged and does not stop the
// loop.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("worker %s: started with interval %v", w.task.Name(), w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker %s: stopped, context cancelled", w.task.Name())
			return
		case <-w.stopChan:
			log.Printf("worker %s: stopped", w.task.Name())
			return
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				log.Printf("worker %s: run failed: %v", w.task.Name(), err)
			}
		}
	}
}

// runOnce bounds a run by the interval so a stuck task cannot pile up ticks,
// and turns a panic into an error.
func (w *Worker) runOnce(ctx context.Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.task.Run(ctx)
}

// Stop signals the loop to exit and waits for it. It must only be called
// after Start, and is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
}
