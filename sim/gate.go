package sim

import "sync"

// feedGate is the single-slot cooperative wait between the engine and its
// consumer. When feed confirmation is enabled the engine arms the gate,
// notifies listeners, then blocks in wait until NextFeed resolves the
// outstanding waiter. There is deliberately no timeout: a consumer that
// never acknowledges stalls the simulation forever, which is the intended
// trade-off (a silent timeout would let the engine advance past data the
// strategy has not finished reacting to).
//
// At most one waiter is outstanding at any moment. Resolving an unarmed
// gate is a no-op, so a consumer acknowledging more than once is harmless.
type feedGate struct {
	mu     sync.Mutex
	waiter chan struct{}
}

func (g *feedGate) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.waiter == nil {
		g.waiter = make(chan struct{})
	}
}

func (g *feedGate) wait() {
	g.mu.Lock()
	w := g.waiter
	g.mu.Unlock()
	if w == nil {
		return
	}
	<-w
}

func (g *feedGate) resolve() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.waiter != nil {
		close(g.waiter)
		g.waiter = nil
	}
}
