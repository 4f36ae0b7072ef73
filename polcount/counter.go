package polcount

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/SharzyL/polcount/polcount/automaton"
)

var ErrInvalidIndex = errors.New("invalid entry index")

// Counter counts occurrences of active dictionary entries in query strings.
// Entries are addressed by their 1-based position in the dictionary. Entries
// with identical text share one activation flag.
//
// Enable, Disable and Query may be called concurrently.
type Counter struct {
	automaton *automaton.Automaton[byte]
	entries   []automaton.State
	active    *automaton.Activation
	patterns  []string

	logger *zap.SugaredLogger
}

// NewCounter builds the automaton over patterns. Every entry starts inactive.
func NewCounter(patterns []string, logger *zap.SugaredLogger) *Counter {
	builder := automaton.NewBuilder[byte]()
	for _, p := range patterns {
		builder.Add([]byte(p))
	}
	a, entries := builder.Build()

	logger.Debugw("automaton built",
		zap.Int("entries", len(entries)),
		zap.Int("states", a.Len()))

	return &Counter{
		automaton: a,
		entries:   entries,
		active:    automaton.NewActivation(a.Len()),
		patterns:  append([]string(nil), patterns...),
		logger:    logger,
	}
}

func (c *Counter) entry(idx int) (automaton.State, error) {
	if idx <= 0 || idx > len(c.entries) {
		return 0, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidIndex, idx, len(c.entries))
	}
	return c.entries[idx-1], nil
}

func (c *Counter) Enable(idx int) error {
	return c.set(idx, true)
}

func (c *Counter) Disable(idx int) error {
	return c.set(idx, false)
}

func (c *Counter) set(idx int, active bool) error {
	s, err := c.entry(idx)
	if err != nil {
		return err
	}
	c.active.Set(s, active)
	return nil
}

// EnableAll activates every entry.
func (c *Counter) EnableAll() {
	for _, s := range c.entries {
		c.active.Set(s, true)
	}
}

// Query returns the number of (position, active entry) pairs where the entry
// ends at that position of text. Overlapping and repeated occurrences all
// count.
func (c *Counter) Query(text string) uint64 {
	cnt := uint64(0)
	state := automaton.Root
	for i := 0; i < len(text); i++ {
		state = c.automaton.Goto(state, text[i])
		c.automaton.ForEachMatch(state, c.active, func(active bool) {
			if active {
				cnt++
			}
		})
	}
	return cnt
}

func (c *Counter) IsActive(idx int) (bool, error) {
	s, err := c.entry(idx)
	if err != nil {
		return false, err
	}
	return c.active.Get(s), nil
}

// ActiveEntries returns the indices of all active entries, ascending.
func (c *Counter) ActiveEntries() []int {
	var idxs []int
	for i, s := range c.entries {
		if c.active.Get(s) {
			idxs = append(idxs, i+1)
		}
	}
	return idxs
}

// ActiveCount returns the number of distinct active patterns. Duplicate
// entries share a flag and count once.
func (c *Counter) ActiveCount() int {
	return c.active.Count()
}

// Len returns the number of dictionary entries.
func (c *Counter) Len() int {
	return len(c.entries)
}

// States returns the number of automaton states.
func (c *Counter) States() int {
	return c.automaton.Len()
}

func (c *Counter) Patterns() []string {
	return c.patterns
}
