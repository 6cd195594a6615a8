package markov

import (
	"fmt"
	"log/slog"
)

// Train records every order-length window of seq and the item that follows
// it, marking the first window as a start context and the final window as
// transitioning to the end-of-sequence marker. Sequences shorter than the
// chain order contribute nothing; use TrainWindows to detect that case.
//
// Train returns the chain so training calls can be chained, each call
// contributing independently to the same table.
func (c *Chain[T]) Train(seq []T) *Chain[T] {
	c.TrainWindows(seq)
	return c
}

// TrainWindows trains exactly as Train does and returns the number of
// context windows the sequence contributed. A return of 0 means the sequence
// was shorter than the chain order and the chain is unchanged.
func (c *Chain[T]) TrainWindows(seq []T) int {
	if len(seq) < c.order {
		c.logger.Debug("sequence shorter than chain order, nothing recorded",
			slog.Int("length", len(seq)),
			slog.Int("order", c.order),
		)
		return 0
	}

	ids := make([]int, len(seq))
	for i, item := range seq {
		ids[i] = c.intern(item)
	}

	windows := 0
	for i := 0; i+c.order <= len(ids); i++ {
		key := contextKey(ids[i : i+c.order])
		if i == 0 {
			c.addStart(key)
		}
		next := endID
		if i+c.order < len(ids) {
			next = ids[i+c.order]
		}
		c.record(key, next, 1)
		windows++
	}

	c.logger.Debug("sequence trained",
		slog.Int("length", len(seq)),
		slog.Int("windows", windows),
	)
	return windows
}

// Merge adds every transition weight and start context from other into c.
// Both chains are left usable; other is not modified. Merging a chain into
// itself doubles every weight. The orders must match.
func (c *Chain[T]) Merge(other *Chain[T]) error {
	if c.order != other.order {
		return fmt.Errorf("%w: %d and %d", ErrOrderMismatch, c.order, other.order)
	}

	// Collect first so that merging a chain into itself reads a stable view.
	type pending struct {
		key    string
		next   int
		weight int
	}
	var transitions []pending
	for key, d := range other.table {
		otherIDs, err := parseContextKey(key)
		if err != nil {
			return fmt.Errorf("markov: corrupt context key %q: %w", key, err)
		}
		ids := make([]int, len(otherIDs))
		for i, id := range otherIDs {
			ids[i] = c.intern(other.items[id])
		}
		newKey := contextKey(ids)
		for _, ch := range d.choices {
			next := endID
			if ch.id != endID {
				next = c.intern(other.items[ch.id])
			}
			transitions = append(transitions, pending{key: newKey, next: next, weight: ch.weight})
		}
	}
	var startKeys []string
	for _, key := range other.startKeys {
		otherIDs, err := parseContextKey(key)
		if err != nil {
			return fmt.Errorf("markov: corrupt start key %q: %w", key, err)
		}
		ids := make([]int, len(otherIDs))
		for i, id := range otherIDs {
			ids[i] = c.intern(other.items[id])
		}
		startKeys = append(startKeys, contextKey(ids))
	}

	for _, tr := range transitions {
		c.record(tr.key, tr.next, tr.weight)
	}
	for _, key := range startKeys {
		c.addStart(key)
	}

	c.logger.Debug("chains merged",
		slog.Int("contexts_merged", other.Len()),
		slog.Int("contexts_total", c.Len()),
	)
	return nil
}
