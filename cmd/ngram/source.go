package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/halfmoss/ngram/pkg/codec"
	"github.com/halfmoss/ngram/pkg/markov"
	"github.com/halfmoss/ngram/pkg/store"
)

// chainRef locates a chain: either a standalone chain file handled by a
// codec, or a named model inside a model store.
type chainRef struct {
	chainPath string
	dbPath    string
	model     string
	logger    *slog.Logger
}

func (r *chainRef) addFlags(fs *flag.FlagSet) {
	fs.StringVar(&r.chainPath, "chain", "", "path to a chain file (one of: "+strings.Join(codec.Extensions(), " ")+")")
	fs.StringVar(&r.dbPath, "db", "", "path to a model store (.bolt for bolt, anything else sqlite)")
	fs.StringVar(&r.model, "model", "", "model name within the store")
}

// validate checks that exactly one source is specified.
func (r *chainRef) validate() error {
	if r.chainPath != "" && r.dbPath != "" {
		return errors.New("specify either -chain or -db, not both")
	}
	if r.chainPath == "" && r.dbPath == "" {
		return errors.New("no chain specified: use -chain or -db with -model")
	}
	if r.dbPath != "" && r.model == "" {
		return errors.New("-db requires -model")
	}
	return nil
}

// load reads the referenced snapshot. Missing chain files and missing store
// models both surface as store.ErrNotFound so callers can treat "not there
// yet" uniformly.
func (r *chainRef) load(ctx context.Context) (*markov.Snapshot[string], error) {
	if r.chainPath != "" {
		snap, err := codec.LoadFile[string](r.chainPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, r.chainPath)
		}
		return snap, err
	}

	s, err := r.openStore()
	if err != nil {
		return nil, err
	}
	defer func(s store.Store) {
		_ = s.Close()
	}(s)
	return s.Load(ctx, r.model)
}

// save writes the snapshot to the referenced destination.
func (r *chainRef) save(ctx context.Context, snap *markov.Snapshot[string]) error {
	if r.chainPath != "" {
		return codec.SaveFile(r.chainPath, snap)
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}
	defer func(s store.Store) {
		_ = s.Close()
	}(s)
	return s.Save(ctx, r.model, snap)
}

// openStore opens the model store at r.dbPath, choosing the backend by file
// extension.
func (r *chainRef) openStore() (store.Store, error) {
	return openStore(r.dbPath, r.logger)
}

func openStore(path string, logger *slog.Logger) (store.Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bolt", ".bbolt":
		s, err := store.OpenBolt(path)
		if err != nil {
			return nil, err
		}
		s.SetLogger(logger)
		return s, nil
	default:
		db, err := initDB(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database %s: %w", path, err)
		}
		if err := store.SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		s, err := store.NewSQLStore(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		s.SetLogger(logger)
		return &sqlStoreHandle{SQLStore: s, db: db}, nil
	}
}

// sqlStoreHandle owns the database handle the store was opened over, so
// Close tears down both.
type sqlStoreHandle struct {
	*store.SQLStore
	db *sql.DB
}

func (h *sqlStoreHandle) Close() error {
	_ = h.SQLStore.Close()
	return h.db.Close()
}
