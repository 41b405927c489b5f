package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eischet/janitor-sub000/env"
)

// ErrStopped is returned by Do after Stop.
var ErrStopped = errors.New("worker stopped")

// request is a unit of work to be executed on the worker goroutine.
type request struct {
	fn   func(*env.Environment) (any, error)
	done chan result
}

type result struct {
	value any
	err   error
}

// Worker serializes all access to an environment through a single
// goroutine. Dispatch tables can be extended while the server runs, and a
// running script must not see a table change under it.
type Worker struct {
	env      *env.Environment
	requests chan request
	quit     chan struct{}
	stop     sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(e *env.Environment) *Worker {
	w := &Worker{
		env:      e,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn, turning a panic into an error.
func (w *Worker) execute(fn func(*env.Environment) (any, error)) (res result) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("worker panic: %v", r)
			res = result{err: fmt.Errorf("%v", r)}
		}
	}()
	v, err := fn(w.env)
	return result{value: v, err: err}
}

// Do runs fn on the worker goroutine and waits for it.
func (w *Worker) Do(fn func(*env.Environment) (any, error)) (any, error) {
	req := request{fn: fn, done: make(chan result, 1)}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	w.stop.Do(func() { close(w.quit) })
}

// Environment returns the environment, for read-only access that needs no
// serialization.
func (w *Worker) Environment() *env.Environment {
	return w.env
}
