package markov

import (
	"fmt"
	"sort"
)

// Transition is the serializable form of a single recorded transition. A nil
// Next means the context transitioned to the end-of-sequence marker.
type Transition[T comparable] struct {
	Context []T `json:"context" yaml:"context"`
	Next    *T  `json:"next,omitempty" yaml:"next,omitempty"`
	Weight  int `json:"weight" yaml:"weight"`
}

// Snapshot is the complete recoverable state of a chain: its order, its
// start contexts, and every recorded transition. Any codec that round-trips
// a Snapshot reproduces a chain indistinguishable from the original under
// Lookup and Generate.
type Snapshot[T comparable] struct {
	Order       int             `json:"order" yaml:"order"`
	Starts      [][]T           `json:"starts" yaml:"starts"`
	Transitions []Transition[T] `json:"transitions" yaml:"transitions"`
}

// Snapshot extracts the chain's persistence triple. Contexts are emitted in
// a stable order so repeated snapshots of the same chain are identical.
func (c *Chain[T]) Snapshot() *Snapshot[T] {
	snap := &Snapshot[T]{
		Order:  c.order,
		Starts: make([][]T, 0, len(c.startKeys)),
	}

	for _, key := range c.startKeys {
		ids, err := parseContextKey(key)
		if err != nil {
			continue
		}
		snap.Starts = append(snap.Starts, c.resolve(ids))
	}

	keys := make([]string, 0, len(c.table))
	for key := range c.table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		ids, err := parseContextKey(key)
		if err != nil {
			continue
		}
		context := c.resolve(ids)
		for _, ch := range c.table[key].choices {
			tr := Transition[T]{Context: context, Weight: ch.weight}
			if ch.id != endID {
				item := c.items[ch.id]
				tr.Next = &item
			}
			snap.Transitions = append(snap.Transitions, tr)
		}
	}
	return snap
}

// FromSnapshot rebuilds a chain from its persistence triple. The snapshot is
// validated against the chain invariants: order at least 1, every context of
// exactly order items, every weight positive.
func FromSnapshot[T comparable](snap *Snapshot[T]) (*Chain[T], error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrBadSnapshot)
	}
	c, err := New[T](snap.Order)
	if err != nil {
		return nil, fmt.Errorf("%w: order %d", ErrBadSnapshot, snap.Order)
	}

	for _, tr := range snap.Transitions {
		if len(tr.Context) != snap.Order {
			return nil, fmt.Errorf("%w: context of length %d in a chain of order %d", ErrBadSnapshot, len(tr.Context), snap.Order)
		}
		if tr.Weight < 1 {
			return nil, fmt.Errorf("%w: transition weight %d", ErrBadSnapshot, tr.Weight)
		}
		ids := make([]int, len(tr.Context))
		for i, item := range tr.Context {
			ids[i] = c.intern(item)
		}
		next := endID
		if tr.Next != nil {
			next = c.intern(*tr.Next)
		}
		c.record(contextKey(ids), next, tr.Weight)
	}

	for _, start := range snap.Starts {
		if len(start) != snap.Order {
			return nil, fmt.Errorf("%w: start context of length %d in a chain of order %d", ErrBadSnapshot, len(start), snap.Order)
		}
		ids := make([]int, len(start))
		for i, item := range start {
			ids[i] = c.intern(item)
		}
		c.addStart(contextKey(ids))
	}

	return c, nil
}
