package markov

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
)

func TestGenerateEmptyChain(t *testing.T) {
	c := mustChain[int](t, 2)
	if _, err := c.Generate(); !errors.Is(err, ErrEmptyChain) {
		t.Errorf("Generate on untrained chain error = %v, want ErrEmptyChain", err)
	}

	// Sequences shorter than the order contribute no start contexts either.
	c.Train([]int{1})
	if _, err := c.Generate(); !errors.Is(err, ErrEmptyChain) {
		t.Errorf("Generate after too-short training error = %v, want ErrEmptyChain", err)
	}
}

func TestGenerateSingleDeterministicPath(t *testing.T) {
	c := mustChain[string](t, 2)
	c.Train([]string{"a", "b", "c"})

	want := []string{"a", "b", "c"}
	for i := 0; i < 50; i++ {
		got, err := c.Generate()
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Generate() = %v, want %v", got, want)
		}
	}
}

func TestGenerateFollowsObservedTransitions(t *testing.T) {
	c := mustChain[int](t, 1)
	c.Train([]int{1, 2, 3, 2, 1, 2, 3, 4, 3, 2, 1}).
		Train([]int{5, 4, 3, 2, 1})

	successors := map[int]map[int]bool{
		1: {2: true},
		2: {3: true, 1: true},
		3: {2: true, 4: true},
		4: {3: true},
		5: {4: true},
	}

	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 200; i++ {
		seq, err := c.Generate(WithMaxLength(64), WithRand(rng))
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(seq) == 0 {
			t.Fatal("Generate returned an empty sequence")
		}
		if seq[0] != 1 && seq[0] != 5 {
			t.Fatalf("sequence starts with %d, want a start context item (1 or 5)", seq[0])
		}
		for j := 1; j < len(seq); j++ {
			if !successors[seq[j-1]][seq[j]] {
				t.Fatalf("transition %d -> %d at position %d was never observed in training", seq[j-1], seq[j], j)
			}
		}
	}
}

func TestGenerateMaxLength(t *testing.T) {
	// A pure cycle with no end marker at all: only the bound can stop the
	// walk. Built from a snapshot since training always records an end.
	c, err := FromSnapshot(&Snapshot[int]{
		Order:  1,
		Starts: [][]int{{1}},
		Transitions: []Transition[int]{
			{Context: []int{1}, Next: ptr(2), Weight: 1},
			{Context: []int{2}, Next: ptr(1), Weight: 1},
		},
	})
	if err != nil {
		t.Fatalf("FromSnapshot failed: %v", err)
	}

	rng := rand.New(rand.NewPCG(3, 3))
	for _, max := range []int{1, 2, 5, 17} {
		seq, err := c.Generate(WithMaxLength(max), WithRand(rng))
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(seq) > max {
			t.Errorf("len(seq) = %d, want <= %d", len(seq), max)
		}
	}
}

func TestGenerateReproducible(t *testing.T) {
	c := mustChain[string](t, 1)
	c.Train([]string{"a", "b", "a", "c", "a", "d"}).
		Train([]string{"b", "c", "b", "d"})

	a, err := c.Generate(WithMaxLength(32), WithRand(rand.New(rand.NewPCG(99, 1))))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := c.Generate(WithMaxLength(32), WithRand(rand.New(rand.NewPCG(99, 1))))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same seed produced different sequences: %v vs %v", a, b)
	}
}

func TestGenerateFrom(t *testing.T) {
	c := mustChain[int](t, 2)
	c.Train([]int{1, 2, 3, 4})

	seq, err := c.GenerateFrom([]int{2, 3})
	if err != nil {
		t.Fatalf("GenerateFrom failed: %v", err)
	}
	want := []int{2, 3, 4}
	if !reflect.DeepEqual(seq, want) {
		t.Errorf("GenerateFrom(2 3) = %v, want %v", seq, want)
	}

	// A context that was seen only as the tail of a sequence is a dead end:
	// generation returns just the start items.
	seq, err = c.GenerateFrom([]int{3, 4})
	if err != nil {
		t.Fatalf("GenerateFrom failed: %v", err)
	}
	if want := []int{3, 4}; !reflect.DeepEqual(seq, want) {
		t.Errorf("GenerateFrom(3 4) = %v, want %v", seq, want)
	}

	if _, err := c.GenerateFrom([]int{1, 2, 3}); !errors.Is(err, ErrUnknownStart) {
		t.Errorf("GenerateFrom with wrong length error = %v, want ErrUnknownStart", err)
	}
	if _, err := c.GenerateFrom([]int{1, 9}); !errors.Is(err, ErrUnknownStart) {
		t.Errorf("GenerateFrom with unseen item error = %v, want ErrUnknownStart", err)
	}
}

func TestGenerateTruncatesBelowOrder(t *testing.T) {
	c := mustChain[int](t, 3)
	c.Train([]int{1, 2, 3, 4})

	seq, err := c.Generate(WithMaxLength(2))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(seq) != 2 {
		t.Errorf("len(seq) = %d, want 2", len(seq))
	}
}

func BenchmarkGenerate(b *testing.B) {
	rng := rand.New(rand.NewPCG(42, 42))
	seq := make([]int, 8192)
	for i := range seq {
		seq[i] = rng.IntN(128)
	}
	c, err := New[int](2)
	if err != nil {
		b.Fatalf("New failed: %v", err)
	}
	c.Train(seq)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Generate(WithMaxLength(100), WithRand(rng)); err != nil {
			b.Fatalf("Generate failed: %v", err)
		}
	}
}
