package highlight

import (
	"context"
	"sync"

	"gitlab.com/tozd/go/errors"
)

var ErrNotReady = errors.Base("highlighter failed to initialize")

// State is the readiness of a Provider.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// gate holds requests back until initialization has finished. Every attempt
// gets its own done channel so a retry after a failure does not wake the
// waiters of the next attempt early.
type gate struct {
	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newGate() *gate {
	return &gate{done: make(chan struct{})}
}

// begin moves the gate to Initializing. ok is false when an attempt is
// already running or has succeeded.
func (g *gate) begin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case Initializing, Ready:
		return false
	case Failed:
		g.done = make(chan struct{})
		g.err = nil
	}
	g.state = Initializing
	return true
}

func (g *gate) finish(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.state = Failed
		g.err = err
	} else {
		g.state = Ready
	}
	close(g.done)
}

// wait blocks until the current attempt is over. Before the first attempt it
// waits for it to start and finish.
func (g *gate) wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		state, err, done := g.state, g.err, g.done
		g.mu.Unlock()

		switch state {
		case Ready:
			return nil
		case Failed:
			return errors.WrapWith(err, ErrNotReady)
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
