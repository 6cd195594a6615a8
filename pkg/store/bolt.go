package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/halfmoss/ngram/pkg/markov"
)

// Bucket keys within a model's bucket.
var (
	boltKeySnapshot = []byte("snapshot")
	boltKeyOrder    = []byte("order")
)

// BoltStore persists chain models in a Bolt database file, one bucket per
// model holding the JSON-encoded snapshot.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// OpenBolt opens (creating if necessary) a Bolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}
	return &BoltStore{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the store. By default, all logs are
// discarded.
func (s *BoltStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save writes the snapshot under name, replacing any existing model of that
// name.
func (s *BoltStore) Save(ctx context.Context, name string, snap *markov.Snapshot[string]) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %q: %w", name, err)
	}
	order := []byte(fmt.Sprintf("%d", snap.Order))

	err = s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(name)) != nil {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket([]byte(name))
		if err != nil {
			return err
		}
		if err := b.Put(boltKeyOrder, order); err != nil {
			return err
		}
		return b.Put(boltKeySnapshot, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save model %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("order", snap.Order),
		slog.Int("transitions", len(snap.Transitions)),
	)
	return nil
}

// Load reads the named model's snapshot. It returns ErrNotFound when no
// model of that name exists.
func (s *BoltStore) Load(ctx context.Context, name string) (*markov.Snapshot[string], error) {
	var snap *markov.Snapshot[string]
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(name))
		if b == nil {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		data := b.Get(boltKeySnapshot)
		if data == nil {
			return fmt.Errorf("%w: %q has no snapshot", ErrNotFound, name)
		}
		snap = new(markov.Snapshot[string])
		if err := json.Unmarshal(data, snap); err != nil {
			return fmt.Errorf("failed to decode snapshot for %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns metadata for every stored model.
func (s *BoltStore) List(_ context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			info := ModelInfo{Name: string(name)}
			if data := b.Get(boltKeyOrder); data != nil {
				if _, err := fmt.Sscanf(string(data), "%d", &info.Order); err != nil {
					return fmt.Errorf("corrupt order for model %q: %w", name, err)
				}
			}
			models = append(models, info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

// Delete removes the named model. It returns ErrNotFound when no model of
// that name exists.
func (s *BoltStore) Delete(ctx context.Context, name string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.DeleteBucket([]byte(name))
	})
	if errors.Is(err, bolt.ErrBucketNotFound) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete model %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Model removed",
		slog.String("model_name", name),
	)
	return nil
}
