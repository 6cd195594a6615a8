/*
Package codec provides serialization of chain snapshots. Each codec
round-trips the full persistence triple (order, start contexts, transitions)
exactly, so a decoded chain is indistinguishable from the one that was
encoded. Codecs for chain files are selected by file extension.
*/
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/halfmoss/ngram/pkg/markov"
)

var (
	// ErrFormat is returned when persisted chain data cannot be decoded.
	ErrFormat = errors.New("codec: malformed chain data")
	// ErrUnknownExtension is returned by ForPath for file extensions with no
	// registered codec.
	ErrUnknownExtension = errors.New("codec: no codec for file extension")
)

// Codec serializes and deserializes chain snapshots in one concrete format.
type Codec[T comparable] interface {
	// Name identifies the format (e.g. "json").
	Name() string
	// Encode writes the snapshot to w.
	Encode(w io.Writer, snap *markov.Snapshot[T]) error
	// Decode reads a snapshot from r. Malformed input yields an error
	// wrapping ErrFormat.
	Decode(r io.Reader) (*markov.Snapshot[T], error)
}

// JSON encodes snapshots as indented JSON.
type JSON[T comparable] struct{}

// Name returns "json".
func (JSON[T]) Name() string { return "json" }

// Encode writes the snapshot as indented JSON.
func (JSON[T]) Encode(w io.Writer, snap *markov.Snapshot[T]) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Decode reads a JSON snapshot.
func (JSON[T]) Decode(r io.Reader) (*markov.Snapshot[T], error) {
	var snap markov.Snapshot[T]
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &snap, nil
}

// YAML encodes snapshots as YAML documents.
type YAML[T comparable] struct{}

// Name returns "yaml".
func (YAML[T]) Name() string { return "yaml" }

// Encode writes the snapshot as a YAML document.
func (YAML[T]) Encode(w io.Writer, snap *markov.Snapshot[T]) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads a YAML snapshot.
func (YAML[T]) Decode(r io.Reader) (*markov.Snapshot[T], error) {
	var snap markov.Snapshot[T]
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &snap, nil
}

// ForPath selects a codec by the file extension of path. Known extensions
// are .json, .yaml, and .yml.
func ForPath[T comparable](path string) (Codec[T], error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON[T]{}, nil
	case ".yaml", ".yml":
		return YAML[T]{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, filepath.Ext(path))
	}
}

// Extensions lists the file extensions with a registered codec.
func Extensions() []string {
	return []string{".json", ".yaml", ".yml"}
}
