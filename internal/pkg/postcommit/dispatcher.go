// internal/pkg/postcommit/dispatcher.go
package postcommit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is work that runs after a transaction has committed. Its failure never
// affects the transaction that queued it.
type Task func(ctx context.Context) error

// FailureRecorder counts failed tasks by name
type FailureRecorder interface {
	PostCommitFailed(task string)
}

// Dispatcher runs best-effort tasks in the background
type Dispatcher struct {
	logger   logrus.FieldLogger
	failures FailureRecorder
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDispatcher creates a dispatcher. failures may be nil.
func NewDispatcher(logger logrus.FieldLogger, failures FailureRecorder, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		logger:   logger,
		failures: failures,
		timeout:  timeout,
	}
}

// Go queues a named task. The task gets a fresh context bounded by the dispatcher
// timeout so it outlives the request that queued it.
func (d *Dispatcher) Go(name string, fields logrus.Fields, task Task) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		log := d.logger.WithField("task", name).WithFields(fields)
		defer func() {
			if r := recover(); r != nil {
				d.fail(name, log, fmt.Errorf("panic: %v", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := task(ctx); err != nil {
			d.fail(name, log, err)
			return
		}
		log.Debug("post-commit task completed")
	}()
}

// Wait blocks until every queued task has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) fail(name string, log logrus.FieldLogger, err error) {
	log.WithError(err).Warn("post-commit task failed")
	if d.failures != nil {
		d.failures.PostCommitFailed(name)
	}
}
