package events

import "context"

// Gate is the capacity-1, edge-triggered wake channel each SSE connection
// waits on (spec §4.6: "multiple appends while one claim is in-flight
// collapse to a single wake"). Grounded on DESIGN NOTES §9's suggestion to
// replace the source's asyncio Event with "a single-reader channel fed by
// a fan-out broadcaster".
type Gate struct {
	ch chan struct{}
}

// NewGate returns a Gate initialised to "signalled" (spec §4.6: "Maintain a
// per-subscriber asynchronous gate initialised to signalled"), so the first
// loop iteration claims immediately instead of waiting for an event.
func NewGate() *Gate {
	g := &Gate{ch: make(chan struct{}, 1)}
	g.Signal()
	return g
}

// Signal wakes the gate; a pending, unconsumed signal is not duplicated.
func (g *Gate) Signal() {
	select {
	case g.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the gate is signalled or ctx is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
