// Package trace holds the observation ring and the motivation-trace JSON
// export.
package trace

import "github.com/cognicore/actlearn/pkg/actlearn/logic"

// Ring is a bounded buffer of observations, most recent first. Each
// observation is consumed exactly once by the reviser; the ring only
// serves restarts and logging.
type Ring struct {
	capacity int
	items    []logic.Trace
}

// NewRing creates a ring holding at most capacity observations; capacity
// zero or below means unbounded.
func NewRing(capacity int) *Ring {
	return &Ring{capacity: capacity}
}

// Push records an observation as the most recent one.
func (r *Ring) Push(t logic.Trace) {
	r.items = append([]logic.Trace{t}, r.items...)
	if r.capacity > 0 && len(r.items) > r.capacity {
		r.items = r.items[:r.capacity]
	}
}

// Len returns the number of buffered observations.
func (r *Ring) Len() int {
	return len(r.items)
}

// At returns the i-th most recent observation.
func (r *Ring) At(i int) logic.Trace {
	return r.items[i]
}

// Last returns the most recent observation.
func (r *Ring) Last() (logic.Trace, bool) {
	if len(r.items) == 0 {
		return logic.Trace{}, false
	}
	return r.items[0], true
}

// Slice returns the observations, most recent first.
func (r *Ring) Slice() []logic.Trace {
	out := make([]logic.Trace, len(r.items))
	copy(out, r.items)
	return out
}

// Clear drops every buffered observation.
func (r *Ring) Clear() {
	r.items = nil
}
