package markov

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
)

// generateOptions is used by the generate functions to configure default
// options.
type generateOptions struct {
	maxLength int
	rng       *rand.Rand
}

// GenerateOption is a function that configures generation parameters. It is
// used as a variadic argument in Generate and GenerateFrom.
type GenerateOption func(*generateOptions)

// WithMaxLength bounds the generated sequence to at most n items. A value of
// 0 removes the bound; unbounded generation on a cyclic chain may not
// terminate.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithRand supplies the random source driving both start-context selection
// and weighted sampling. Generation with a seeded source is reproducible.
// Without this option the process-global generator is used.
func WithRand(rng *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = rng }
}

// intN draws a uniform value in [0, n) from the configured source.
func (o *generateOptions) intN(n int) int {
	if o.rng != nil {
		return o.rng.IntN(n)
	}
	return rand.IntN(n)
}

func applyOptions(opts []GenerateOption) *generateOptions {
	o := &generateOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Generate produces a new sequence by walking the chain from a start context
// chosen uniformly at random. The walk ends when the end-of-sequence marker
// is sampled, when the current context has no recorded successors, or when
// the max-length bound is reached.
//
// Generate returns ErrEmptyChain when no start contexts exist.
func (c *Chain[T]) Generate(opts ...GenerateOption) ([]T, error) {
	o := applyOptions(opts)
	if len(c.startKeys) == 0 {
		return nil, ErrEmptyChain
	}
	key := c.startKeys[o.intN(len(c.startKeys))]
	ids, err := parseContextKey(key)
	if err != nil {
		return nil, fmt.Errorf("markov: corrupt start key %q: %w", key, err)
	}
	return c.walk(ids, o)
}

// GenerateFrom walks the chain starting from a caller-supplied context
// instead of a random start context. The context must have exactly Order
// items, all previously seen in training; a context that was seen but has no
// recorded successors yields just its own items.
func (c *Chain[T]) GenerateFrom(start []T, opts ...GenerateOption) ([]T, error) {
	o := applyOptions(opts)
	if len(start) != c.order {
		return nil, fmt.Errorf("%w: got %d items, chain order is %d", ErrUnknownStart, len(start), c.order)
	}
	ids := make([]int, len(start))
	for i, item := range start {
		id, ok := c.ids[item]
		if !ok {
			return nil, fmt.Errorf("%w: item at position %d", ErrUnknownStart, i)
		}
		ids[i] = id
	}
	return c.walk(ids, o)
}

// walk emits the items of the initial window and then extends the sequence
// one sampled item at a time.
func (c *Chain[T]) walk(window []int, o *generateOptions) ([]T, error) {
	out := c.resolve(window)
	if o.maxLength > 0 && len(out) >= o.maxLength {
		return out[:o.maxLength], nil
	}

	// The window slice is mutated in place as the context slides forward.
	window = append([]int(nil), window...)
	for {
		key := contextKey(window)
		d, ok := c.table[key]
		if !ok {
			c.logger.Debug("generation stopped at dead end",
				slog.String("context", key),
				slog.Int("generated_length", len(out)),
			)
			return out, nil
		}

		next := d.sample(o.intN)
		if next == endID {
			c.logger.Debug("generation terminated by end marker",
				slog.Int("generated_length", len(out)),
			)
			return out, nil
		}

		out = append(out, c.items[next])
		window = append(window[1:], next)

		if o.maxLength > 0 && len(out) >= o.maxLength {
			c.logger.Debug("generation reached max length",
				slog.Int("max_length", o.maxLength),
			)
			return out, nil
		}
	}
}
