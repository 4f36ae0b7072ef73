package automaton

// Builder collects patterns into a trie. Build turns it into an Automaton;
// the builder must not be used afterwards.
type Builder[S comparable] struct {
	nodes   []node[S]
	entries []State
}

func NewBuilder[S comparable]() *Builder[S] {
	return &Builder[S]{
		nodes: []node[S]{{children: make(map[S]State)}},
	}
}

// Add inserts a pattern and returns its entry state. The entry starts
// inactive. Identical patterns share one entry state.
func (b *Builder[S]) Add(pattern []S) State {
	cur := Root
	for _, sym := range pattern {
		next, ok := b.nodes[cur].children[sym]
		if !ok { // take a new path from cur
			next = State(len(b.nodes))
			b.nodes = append(b.nodes, node[S]{children: make(map[S]State)})
			b.nodes[cur].children[sym] = next
		}
		cur = next
	}
	b.nodes[cur].entry = true
	b.entries = append(b.entries, cur)
	return cur
}

// Build computes suffix and terminal links and returns the automaton together
// with the entry states, in the order the patterns were added.
func (b *Builder[S]) Build() (*Automaton[S], []State) {
	nodes := b.nodes
	nodes[Root].suffix = None
	nodes[Root].terminal = None

	// breadth first, so every parent's suffix link is known before its children
	queue := []State{Root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for sym, child := range nodes[cur].children {
			queue = append(queue, child)

			link := Root
			for p := nodes[cur].suffix; p != None; p = nodes[p].suffix {
				if next, ok := nodes[p].children[sym]; ok {
					link = next
					break
				}
			}
			nodes[child].suffix = link
			if nodes[link].entry {
				nodes[child].terminal = link
			} else {
				nodes[child].terminal = nodes[link].terminal
			}
		}
	}

	entries := b.entries
	b.nodes, b.entries = nil, nil
	return newAutomaton(nodes), entries
}
