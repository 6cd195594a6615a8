package markov

import (
	"log/slog"
	"strings"
)

// TextChain specializes a Chain[string] for prose: training input is
// tokenized and split into sentences, and generated token sequences are
// joined back into text by the tokenizer's separator rules.
type TextChain struct {
	chain     *Chain[string]
	tokenizer Tokenizer
}

// NewText creates a text chain of the given order. A nil tokenizer selects
// NewDefaultTokenizer().
func NewText(order int, tokenizer Tokenizer) (*TextChain, error) {
	chain, err := New[string](order)
	if err != nil {
		return nil, err
	}
	if tokenizer == nil {
		tokenizer = NewDefaultTokenizer()
	}
	return &TextChain{chain: chain, tokenizer: tokenizer}, nil
}

// NewTextFromSnapshot rebuilds a text chain from a persisted snapshot.
// A nil tokenizer selects NewDefaultTokenizer().
func NewTextFromSnapshot(snap *Snapshot[string], tokenizer Tokenizer) (*TextChain, error) {
	chain, err := FromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	if tokenizer == nil {
		tokenizer = NewDefaultTokenizer()
	}
	return &TextChain{chain: chain, tokenizer: tokenizer}, nil
}

// Chain returns the underlying generic chain, for codecs, stores, and direct
// inspection.
func (t *TextChain) Chain() *Chain[string] {
	return t.chain
}

// SetLogger sets the logger for the underlying chain.
func (t *TextChain) SetLogger(logger *slog.Logger) {
	t.chain.SetLogger(logger)
}

// TrainText tokenizes text and trains the chain on it. The token stream is
// split into sentences at end-of-sequence tokens; each sentence, including
// its terminator token, is trained as an independent sequence. TrainText
// returns the text chain so training calls can be chained.
func (t *TextChain) TrainText(text string) *TextChain {
	t.TrainTextWindows(text)
	return t
}

// TrainTextWindows trains exactly as TrainText does and returns the total
// number of context windows contributed across all sentences. A return of 0
// means every sentence was shorter than the chain order.
func (t *TextChain) TrainTextWindows(text string) int {
	tokens := t.tokenizer.Split(text)
	windows := 0
	start := 0
	for i, token := range tokens {
		if t.tokenizer.EndOfSequence(token) {
			windows += t.chain.TrainWindows(tokens[start : i+1])
			start = i + 1
		}
	}
	if start < len(tokens) {
		windows += t.chain.TrainWindows(tokens[start:])
	}
	return windows
}

// GenerateText generates a token sequence and joins it into text. It accepts
// the same options as Chain.Generate and fails with ErrEmptyChain on an
// untrained chain.
func (t *TextChain) GenerateText(opts ...GenerateOption) (string, error) {
	tokens, err := t.chain.Generate(opts...)
	if err != nil {
		return "", err
	}
	return t.join(tokens), nil
}

// GenerateTextFrom generates text beginning from a caller-supplied context.
// The start text must tokenize to exactly Order tokens, all known to the
// chain.
func (t *TextChain) GenerateTextFrom(start string, opts ...GenerateOption) (string, error) {
	tokens, err := t.chain.GenerateFrom(t.tokenizer.Split(start), opts...)
	if err != nil {
		return "", err
	}
	return t.join(tokens), nil
}

func (t *TextChain) join(tokens []string) string {
	var b strings.Builder
	for i, token := range tokens {
		if i > 0 {
			b.WriteString(t.tokenizer.Separator(tokens[i-1], token))
		}
		b.WriteString(token)
	}
	return b.String()
}
