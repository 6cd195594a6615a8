package markov

import "regexp"

// Tokenizer defines the contract for splitting text into items for a
// Chain[string] and reassembling generated items into text. This keeps the
// text layer independent of the tokenization strategy.
type Tokenizer interface {
	// Split breaks text into tokens in order of appearance.
	Split(text string) []string
	// EndOfSequence reports whether a token terminates a training sequence
	// (e.g. sentence-ending punctuation).
	EndOfSequence(token string) bool
	// Separator returns the string to place between prev and next when
	// joining generated tokens into the final text.
	Separator(prev, next string) string
}

// DefaultTokenizer is a regex-driven implementation of the Tokenizer
// interface. It splits text into words and punctuation, treats
// sentence-ending punctuation as sequence terminators, and joins tokens with
// a single space except before punctuation. Its behavior can be customized
// with functional options.
type DefaultTokenizer struct {
	separator    string
	splitRegex   *regexp.Regexp
	endRegex     *regexp.Regexp
	noSpaceRegex *regexp.Regexp
}

// TokenizerOption is a function that configures a DefaultTokenizer.
type TokenizerOption func(*DefaultTokenizer)

// WithSeparator sets the string used for joining tokens during generation.
// Default: " "
func WithSeparator(sep string) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.separator = sep
	}
}

// WithSplitRegex sets the regex used to split input text into tokens.
// Default: `[\w']+|[.,!?;]`
func WithSplitRegex(expr string) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.splitRegex = regexp.MustCompile(expr)
	}
}

// WithEndRegex sets the regex deciding whether a token ends a training
// sequence. Default: `^[.!?]$`
func WithEndRegex(expr string) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.endRegex = regexp.MustCompile(expr)
	}
}

// WithNoSpaceRegex sets the regex deciding which tokens get no separator
// placed before them. Default: `^[.,!?;]`
func WithNoSpaceRegex(expr string) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.noSpaceRegex = regexp.MustCompile(expr)
	}
}

// NewDefaultTokenizer creates a tokenizer with default settings, which can
// be overridden by providing one or more TokenizerOption functions.
func NewDefaultTokenizer(opts ...TokenizerOption) *DefaultTokenizer {
	t := &DefaultTokenizer{
		separator: " ",
		// Sequences of word characters OR single instances of common punctuation.
		splitRegex: regexp.MustCompile(`[\w']+|[.,!?;]`),
		// Sentence-ending punctuation marks.
		endRegex: regexp.MustCompile(`^[.!?]$`),
		// Tokens that don't get a separator put before them.
		noSpaceRegex: regexp.MustCompile(`^[.,!?;]`),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Split returns all regex matches in text, in order.
func (t *DefaultTokenizer) Split(text string) []string {
	return t.splitRegex.FindAllString(text, -1)
}

// EndOfSequence reports whether token matches the end regex.
func (t *DefaultTokenizer) EndOfSequence(token string) bool {
	return t.endRegex.MatchString(token)
}

// Separator returns the configured separator, or nothing when next is a
// token that attaches directly to the previous one.
func (t *DefaultTokenizer) Separator(_, next string) string {
	if t.noSpaceRegex.MatchString(next) {
		return ""
	}
	return t.separator
}
