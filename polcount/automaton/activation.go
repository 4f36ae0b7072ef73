package automaton

import "go.uber.org/atomic"

// Activation is the only mutable part of a built automaton: one flag per
// state, kept apart from the graph itself. Only entry states are ever set.
type Activation struct {
	bits []atomic.Bool
}

// NewActivation returns an all-inactive set for an automaton of n states.
func NewActivation(n int) *Activation {
	return &Activation{bits: make([]atomic.Bool, n)}
}

func (a *Activation) Get(s State) bool {
	return a.bits[s].Load()
}

func (a *Activation) Set(s State, active bool) {
	a.bits[s].Store(active)
}

// Count returns the number of active states.
func (a *Activation) Count() int {
	n := 0
	for i := range a.bits {
		if a.bits[i].Load() {
			n++
		}
	}
	return n
}
