package reactive

import "sync/atomic"

// idCounter is the global counter for generating unique IDs.
var idCounter uint64

// nextID returns a unique identifier for a signal, scope or subscription.
func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}
