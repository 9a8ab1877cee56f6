// Package scheduler runs background maintenance tasks one at a time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/tliron/commonlog"
	"gitlab.com/tozd/go/errors"
)

var log = commonlog.GetLogger("semtok.scheduler")

var ErrStopped = errors.Base("scheduler stopped")

type Task struct {
	Name    string
	Execute func(ctx context.Context) error
}

// Scheduler executes submitted and periodic tasks sequentially on a single
// worker. Periodic runs are dropped when the queue is full.
type Scheduler struct {
	tasks chan Task
	stop  chan struct{}

	mu      sync.RWMutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	worker sync.WaitGroup
	timers sync.WaitGroup
}

// New creates a Scheduler with room for queueSize pending tasks.
func New(queueSize int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(chan Task, queueSize),
		stop:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run starts the worker.
func (s *Scheduler) Run() {
	s.worker.Add(1)
	go func() {
		defer s.worker.Done()
		for {
			select {
			case task := <-s.tasks:
				s.execute(task)
			case <-s.stop:
				for {
					select {
					case task := <-s.tasks:
						log.Debugf("draining %s", task.Name)
						s.execute(task)
					default:
						return
					}
				}
			}
		}
	}()
}

func (s *Scheduler) execute(task Task) {
	log.Debugf("executing %s", task.Name)
	if err := task.Execute(s.ctx); err != nil {
		log.Errorf("task %s failed: %s", task.Name, err.Error())
	}
}

// Submit queues task, blocking while the queue is full.
func (s *Scheduler) Submit(task Task) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return ErrStopped
	}
	s.tasks <- task
	return nil
}

func (s *Scheduler) offer(task Task) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}
	select {
	case s.tasks <- task:
	default:
		log.Warningf("skipped %s, queue is full", task.Name)
	}
}

// Every queues task now and then once per interval until Stop.
func (s *Scheduler) Every(interval time.Duration, task Task) {
	s.offer(task)

	s.timers.Add(1)
	go func() {
		defer s.timers.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.offer(task)
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop ends periodic scheduling, runs the tasks still queued and waits for
// the worker to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.mu.Unlock()

	log.Debug("stopping scheduler")
	s.timers.Wait()
	s.worker.Wait()
	s.cancel()
	log.Debug("scheduler stopped")
}
