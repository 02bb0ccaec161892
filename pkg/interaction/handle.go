package interaction

import "sync/atomic"

// HandleFactory issues process-unique handles. Every call to Next returns a
// value strictly greater than all previously returned values. Each client
// instance owns its own factory; there is no global counter.
type HandleFactory struct {
	next atomic.Uint32
}

// NewHandleFactory creates a factory whose first handle is seed+1.
func NewHandleFactory(seed uint32) *HandleFactory {
	f := &HandleFactory{}
	f.next.Store(seed)
	return f
}

// Next returns the next handle.
func (f *HandleFactory) Next() uint32 {
	return f.next.Add(1)
}
