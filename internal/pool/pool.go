// Package pool is a small fixed-size worker pool: a bounded number of
// long-lived goroutines pull tasks off a shared channel and run them,
// supervised by the caller's tomb.Tomb.
package pool

import (
	"github.com/rs/zerolog/log"
	"gopkg.in/tomb.v2"
)

const defaultTaskBuffer = 256

// Task is one unit of pool work. A non-nil error is logged; it does not
// stop the worker that ran it.
type Task func() error

// Pool runs up to size tasks concurrently.
type Pool struct {
	size  int
	tasks chan Task
}

// New creates a Pool with room for defaultTaskBuffer queued tasks.
func New(size int) *Pool {
	return &Pool{size: size, tasks: make(chan Task, defaultTaskBuffer)}
}

// Start spawns size worker goroutines under t. Call once.
func (p *Pool) Start(t *tomb.Tomb) {
	for i := 0; i < p.size; i++ {
		t.Go(func() error { return p.worker(t) })
	}
}

func (p *Pool) worker(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task := <-p.tasks:
			if err := task(); err != nil {
				log.Error().Err(err).Msg("pool task failed")
			}
		}
	}
}

// Submit enqueues task for a worker to run. It blocks if every worker is
// busy and the queue is full.
func (p *Pool) Submit(task Task) {
	p.tasks <- task
}
