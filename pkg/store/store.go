/*
Package store persists named chain models. Two backends are provided: an
SQL-backed store for SQLite databases and a Bolt-backed store for single-file
key/value databases. Both round-trip the full snapshot triple of a chain and
share the Store interface, so the CLI can switch backends by path.
*/
package store

import (
	"context"
	"errors"

	"github.com/halfmoss/ngram/pkg/markov"
)

// ErrNotFound is returned when a named model does not exist in the store.
var ErrNotFound = errors.New("store: model not found")

// ModelInfo holds the essential metadata of a stored model.
type ModelInfo struct {
	Name  string
	Order int
}

// Store is a named collection of persisted chain models. Save replaces any
// existing model of the same name wholesale.
type Store interface {
	Save(ctx context.Context, name string, snap *markov.Snapshot[string]) error
	Load(ctx context.Context, name string) (*markov.Snapshot[string], error)
	List(ctx context.Context) ([]ModelInfo, error)
	Delete(ctx context.Context, name string) error
	Close() error
}
