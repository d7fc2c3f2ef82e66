package processor

import (
	"context"
	"sync"
)

// flightCall is one in-flight operation shared by every caller that asked for
// the same key while it was running.
type flightCall struct {
	done chan struct{}
	val  interface{}
	err  error
}

type flightGroup struct {
	mu    sync.Mutex
	calls map[string]*flightCall
}

func newFlightGroup() *flightGroup {
	return &flightGroup{calls: make(map[string]*flightCall)}
}

// Do runs fn under key with single-flight semantics: concurrent calls with an
// equal key share the first call's result, error included. The key is removed
// once the call settles, so a later call starts fresh. A waiting caller whose
// context expires detaches without cancelling the shared operation.
func (g *flightGroup) Do(ctx context.Context, key string, fn func() (interface{}, error)) (interface{}, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &flightCall{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err
}
