package webauth

import "sync"

// Barrier is a binary mutual-exclusion gate preventing two concurrent
// browser-delegated operations. Raising an already-raised barrier fails:
// the caller must reject the new operation rather than queue it.
type Barrier interface {
	// Raise returns false if the barrier is already raised.
	Raise() bool

	// Lower clears the barrier. Always safe to call, even when already
	// lowered.
	Lower()
}

type mutexBarrier struct {
	mu     sync.Mutex
	raised bool
}

// NewBarrier creates a Barrier safe for concurrent use; exactly one Raise
// succeeds at a time.
func NewBarrier() Barrier {
	return &mutexBarrier{}
}

func (b *mutexBarrier) Raise() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.raised {
		return false
	}
	b.raised = true
	return true
}

func (b *mutexBarrier) Lower() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raised = false
}
