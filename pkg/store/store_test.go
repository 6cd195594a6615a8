package store

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/halfmoss/ngram/pkg/markov"
)

func newSQLStore(t *testing.T) Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, SetupSchema(db))
	// Safe to run twice.
	require.NoError(t, SetupSchema(db))

	s, err := NewSQLStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newBoltStore(t *testing.T) Store {
	t.Helper()
	s, err := OpenBolt(filepath.Join(t.TempDir(), "test.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var backends = map[string]func(*testing.T) Store{
	"sqlite": newSQLStore,
	"bolt":   newBoltStore,
}

func trainedSnapshot(t *testing.T, texts ...string) *markov.Snapshot[string] {
	t.Helper()
	tc, err := markov.NewText(2, nil)
	require.NoError(t, err)
	for _, text := range texts {
		tc.TrainText(text)
	}
	return tc.Chain().Snapshot()
}

func TestStoreRoundTrip(t *testing.T) {
	snap := trainedSnapshot(t, "one fish two fish. red fish blue fish.")

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, "fish", snap))

			loaded, err := s.Load(ctx, "fish")
			require.NoError(t, err)
			assert.Equal(t, snap.Order, loaded.Order)
			assert.ElementsMatch(t, snap.Starts, loaded.Starts)
			assert.ElementsMatch(t, snap.Transitions, loaded.Transitions)

			// The loaded triple must rebuild an equivalent chain.
			original, err := markov.FromSnapshot(snap)
			require.NoError(t, err)
			restored, err := markov.FromSnapshot(loaded)
			require.NoError(t, err)
			assert.Equal(t, original.Stats(), restored.Stats())

			a, err := original.Generate(markov.WithMaxLength(16), markov.WithRand(rand.New(rand.NewPCG(8, 8))))
			require.NoError(t, err)
			b, err := restored.Generate(markov.WithMaxLength(16), markov.WithRand(rand.New(rand.NewPCG(8, 8))))
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestStoreItemsWithSpaces(t *testing.T) {
	// Context encoding must not rely on any separator that can appear inside
	// an item.
	chain, err := markov.New[string](1)
	require.NoError(t, err)
	chain.Train([]string{"a b", "c d", "e, f"})
	snap := chain.Snapshot()

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, "spaced", snap))
			loaded, err := s.Load(ctx, "spaced")
			require.NoError(t, err)
			assert.ElementsMatch(t, snap.Transitions, loaded.Transitions)
		})
	}
}

func TestStoreSaveReplaces(t *testing.T) {
	first := trainedSnapshot(t, "a b c.")
	second := trainedSnapshot(t, "x y z. x y w.")

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, "m", first))
			require.NoError(t, s.Save(ctx, "m", second))

			loaded, err := s.Load(ctx, "m")
			require.NoError(t, err)
			assert.ElementsMatch(t, second.Transitions, loaded.Transitions)
			assert.ElementsMatch(t, second.Starts, loaded.Starts)
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			models, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, models)

			require.NoError(t, s.Save(ctx, "beta", trainedSnapshot(t, "a b.")))
			require.NoError(t, s.Save(ctx, "alpha", trainedSnapshot(t, "c d.")))

			models, err = s.List(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, []ModelInfo{
				{Name: "alpha", Order: 2},
				{Name: "beta", Order: 2},
			}, models)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, "m", trainedSnapshot(t, "a b c.")))
			require.NoError(t, s.Delete(ctx, "m"))

			_, err := s.Load(ctx, "m")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, s.Delete(ctx, "m"), ErrNotFound)
		})
	}
}

func TestStoreLoadMissing(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			_, err := s.Load(context.Background(), "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
