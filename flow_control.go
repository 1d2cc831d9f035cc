package mqtt311

import "context"

// FlowController bounds the number of inbound publishes being handled
// concurrently on a connection. When the limit is reached the read loop
// stops pulling frames off the wire, which pushes back on the peer through
// the transport instead of buffering without bound.
type FlowController struct {
	slots chan struct{}
}

// NewFlowController creates a flow controller admitting up to limit
// concurrent in-flight publishes. Limit must be at least 1.
func NewFlowController(limit int) *FlowController {
	if limit < 1 {
		limit = 1
	}
	return &FlowController{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is available or the context is done.
func (f *FlowController) Acquire(ctx context.Context) error {
	select {
	case f.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire acquires a slot without blocking.
// Returns true if a slot was acquired.
func (f *FlowController) TryAcquire() bool {
	select {
	case f.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a previously acquired slot.
func (f *FlowController) Release() {
	select {
	case <-f.slots:
	default:
	}
}

// InFlight returns the number of slots currently held.
func (f *FlowController) InFlight() int {
	return len(f.slots)
}

// Limit returns the maximum number of concurrent in-flight publishes.
func (f *FlowController) Limit() int {
	return cap(f.slots)
}
