/*
Package markov provides a generic, in-memory N-gram (Markov chain) engine
for training on and generating sequences of arbitrary comparable items.

A Chain is created with a fixed order N and trained on item sequences; it
records weighted transitions from every N-item context window to the item
that followed it (or to an end-of-sequence marker). Generation walks the
chain from a randomly chosen start context, sampling each next item with
probability proportional to its recorded weight.

TextChain layers a tokenizer on top of Chain[string] for training on and
generating prose. The Snapshot type captures a chain's complete state for
external codecs and stores.
*/
package markov
