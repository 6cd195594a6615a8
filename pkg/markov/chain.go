package markov

import (
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

// endID is the reserved intern ID representing the end-of-sequence marker.
// Real items are interned with IDs starting at 0.
const endID = -1

var (
	// ErrInvalidOrder is returned when a chain is constructed with an order
	// below 1.
	ErrInvalidOrder = errors.New("markov: chain order must be at least 1")
	// ErrEmptyChain is returned by generation when the chain has no start
	// contexts, either because it was never trained or because every trained
	// sequence was shorter than the chain order.
	ErrEmptyChain = errors.New("markov: chain has no start contexts")
	// ErrOrderMismatch is returned when merging chains of different orders.
	ErrOrderMismatch = errors.New("markov: chain orders differ")
	// ErrBadSnapshot is returned when rebuilding a chain from a snapshot that
	// violates the persistence contract.
	ErrBadSnapshot = errors.New("markov: malformed snapshot")
	// ErrUnknownStart is returned when generation is asked to begin from a
	// context containing items the chain has never seen.
	ErrUnknownStart = errors.New("markov: start context contains unknown items")
)

// choice is a single outcome within a context's distribution: the interned ID
// of the next item (or endID) and its occurrence count.
type choice struct {
	id     int
	weight int
}

// distribution holds the weighted outcomes recorded for one context.
// Outcomes keep insertion order; only relative weight matters for sampling.
type distribution struct {
	choices []choice
	index   map[int]int // next ID -> position in choices
	total   int
}

func (d *distribution) add(id, weight int) {
	if pos, ok := d.index[id]; ok {
		d.choices[pos].weight += weight
		d.total += weight
		return
	}
	d.index[id] = len(d.choices)
	d.choices = append(d.choices, choice{id: id, weight: weight})
	d.total += weight
}

// sample picks an outcome with probability proportional to its weight,
// using intN to draw a uniform value in [0, total).
func (d *distribution) sample(intN func(int) int) int {
	n := intN(d.total)
	for _, ch := range d.choices {
		n -= ch.weight
		if n < 0 {
			return ch.id
		}
	}
	// Unreachable while weights stay positive.
	return d.choices[len(d.choices)-1].id
}

// Chain is a Markov chain of fixed order over items of type T.
//
// Items are interned to integer IDs on first sight; contexts are indexed by
// the space-joined IDs of their N items. A Chain is not safe for concurrent
// training; concurrent generation against an untouched chain is safe as long
// as each caller supplies its own random source.
type Chain[T comparable] struct {
	order     int
	items     []T       // intern ID -> item
	ids       map[T]int // item -> intern ID
	table     map[string]*distribution
	starts    map[string]struct{}
	startKeys []string // stable ordering of starts for uniform selection
	logger    *slog.Logger
}

// New creates an empty chain with the given order. The order is fixed for
// the lifetime of the chain.
func New[T comparable](order int) (*Chain[T], error) {
	if order < 1 {
		return nil, ErrInvalidOrder
	}
	return &Chain[T]{
		order:  order,
		ids:    make(map[T]int),
		table:  make(map[string]*distribution),
		starts: make(map[string]struct{}),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Order returns the order of the chain. This is static from chain to chain.
func (c *Chain[T]) Order() int {
	return c.order
}

// Len returns the number of distinct contexts recorded in the chain.
func (c *Chain[T]) Len() int {
	return len(c.table)
}

// IsEmpty reports whether the chain has recorded no transitions at all.
func (c *Chain[T]) IsEmpty() bool {
	return len(c.table) == 0
}

// SetLogger sets the logger for the chain. By default, all logs are
// discarded.
func (c *Chain[T]) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Outcome is one possible continuation of a context: the next item, or the
// end of the sequence when Next is nil, together with its recorded weight.
type Outcome[T comparable] struct {
	Next   *T
	Weight int
}

// Lookup returns the recorded outcomes for a context in insertion order,
// and whether the context has been seen at all. A context of the wrong
// length is never present.
func (c *Chain[T]) Lookup(context []T) ([]Outcome[T], bool) {
	if len(context) != c.order {
		return nil, false
	}
	ids := make([]int, len(context))
	for i, item := range context {
		id, ok := c.ids[item]
		if !ok {
			return nil, false
		}
		ids[i] = id
	}
	d, ok := c.table[contextKey(ids)]
	if !ok {
		return nil, false
	}
	outcomes := make([]Outcome[T], 0, len(d.choices))
	for _, ch := range d.choices {
		o := Outcome[T]{Weight: ch.weight}
		if ch.id != endID {
			item := c.items[ch.id]
			o.Next = &item
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, true
}

// StartContexts returns a copy of every context eligible to begin a
// generated sequence.
func (c *Chain[T]) StartContexts() [][]T {
	out := make([][]T, 0, len(c.startKeys))
	for _, key := range c.startKeys {
		ids, err := parseContextKey(key)
		if err != nil {
			continue
		}
		out = append(out, c.resolve(ids))
	}
	return out
}

// intern returns the ID for item, assigning a new one on first sight.
func (c *Chain[T]) intern(item T) int {
	if id, ok := c.ids[item]; ok {
		return id
	}
	id := len(c.items)
	c.items = append(c.items, item)
	c.ids[item] = id
	return id
}

// record adds weight to the (context -> next) transition, creating the
// context and the outcome on first sight. Weights never decrease.
func (c *Chain[T]) record(key string, next, weight int) {
	d, ok := c.table[key]
	if !ok {
		d = &distribution{index: make(map[int]int)}
		c.table[key] = d
	}
	d.add(next, weight)
}

// addStart marks a context key as eligible to begin generation.
func (c *Chain[T]) addStart(key string) {
	if _, ok := c.starts[key]; ok {
		return
	}
	c.starts[key] = struct{}{}
	c.startKeys = append(c.startKeys, key)
}

// resolve maps interned IDs back to their items. endID must not appear.
func (c *Chain[T]) resolve(ids []int) []T {
	items := make([]T, len(ids))
	for i, id := range ids {
		items[i] = c.items[id]
	}
	return items
}

// contextKey builds the table key for a window of interned IDs.
func contextKey(ids []int) string {
	var buf []byte
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	return string(buf)
}

// parseContextKey reverses contextKey.
func parseContextKey(key string) ([]int, error) {
	parts := strings.Split(key, " ")
	ids := make([]int, len(parts))
	for i, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
