// Package automaton
// Aho-Corasick automaton over any comparable alphabet. Nodes live in an arena
// and are addressed by State; links between nodes are arena indices.

package automaton

import "sync"

// State is an index into the node arena of an Automaton.
type State uint32

// Root is the start state of every automaton.
const Root State = 0

// None marks an absent suffix or terminal link.
const None State = ^State(0)

type node[S comparable] struct {
	children map[S]State // trie edges, the only structural edges
	suffix   State
	terminal State
	entry    bool // some pattern ends here
}

// Automaton is immutable after Build, except for the lazily filled
// transition cache, which is guarded by cacheMtx.
type Automaton[S comparable] struct {
	nodes []node[S]

	cacheMtx *sync.RWMutex
	cache    []map[S]State // memoized suffix fallbacks, never trie edges
}

func newAutomaton[S comparable](nodes []node[S]) *Automaton[S] {
	return &Automaton[S]{
		nodes:    nodes,
		cacheMtx: &sync.RWMutex{},
		cache:    make([]map[S]State, len(nodes)),
	}
}

// Len returns the number of states, root included.
func (a *Automaton[S]) Len() int {
	return len(a.nodes)
}

// Goto is the automaton transition function. It is total: symbols that were
// never seen while building lead back to Root.
func (a *Automaton[S]) Goto(s State, sym S) State {
	n := &a.nodes[s]
	if next, ok := n.children[sym]; ok {
		return next
	}
	if n.suffix == None { // root loops on missing edges
		return s
	}
	if next, ok := a.cached(s, sym); ok {
		return next
	}
	next := a.Goto(n.suffix, sym)
	a.remember(s, sym, next)
	return next
}

func (a *Automaton[S]) cached(s State, sym S) (State, bool) {
	a.cacheMtx.RLock()
	defer a.cacheMtx.RUnlock()
	next, ok := a.cache[s][sym]
	return next, ok
}

func (a *Automaton[S]) remember(s State, sym S, next State) {
	a.cacheMtx.Lock()
	defer a.cacheMtx.Unlock()
	if a.cache[s] == nil {
		a.cache[s] = make(map[S]State)
	}
	a.cache[s][sym] = next
}

// ResetCache drops every memoized transition. Results of Goto do not change.
func (a *Automaton[S]) ResetCache() {
	a.cacheMtx.Lock()
	defer a.cacheMtx.Unlock()
	a.cache = make([]map[S]State, len(a.nodes))
}

// CachedTransitions returns how many fallback transitions are memoized.
func (a *Automaton[S]) CachedTransitions() int {
	a.cacheMtx.RLock()
	defer a.cacheMtx.RUnlock()
	total := 0
	for _, m := range a.cache {
		total += len(m)
	}
	return total
}

// Child returns the trie edge of s on sym, if any.
func (a *Automaton[S]) Child(s State, sym S) (State, bool) {
	next, ok := a.nodes[s].children[sym]
	return next, ok
}

// Suffix returns the suffix link of s, None for Root.
func (a *Automaton[S]) Suffix(s State) State {
	return a.nodes[s].suffix
}

// Terminal returns the nearest entry state strictly up the suffix chain of s,
// or None.
func (a *Automaton[S]) Terminal(s State) State {
	return a.nodes[s].terminal
}

// IsEntry reports whether some pattern ends at s.
func (a *Automaton[S]) IsEntry(s State) bool {
	return a.nodes[s].entry
}

// ForEachMatch walks s and then its terminal chain, calling visit with the
// activation of each state. Every entry state reached is a pattern ending at
// the current position.
func (a *Automaton[S]) ForEachMatch(s State, act *Activation, visit func(active bool)) {
	for cur := s; cur != None; cur = a.nodes[cur].terminal {
		visit(act.Get(cur))
	}
}
