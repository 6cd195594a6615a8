package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/halfmoss/ngram/pkg/markov"
)

// SetupSchema initializes the tables used by SQLStore in the provided
// database. It should be called once before any other operation. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS ngram_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaStarts = `
CREATE TABLE IF NOT EXISTS ngram_starts (
    model_id INTEGER NOT NULL,
    context TEXT NOT NULL,
    PRIMARY KEY (model_id, context)
);
`
		schemaTransitions = `
CREATE TABLE IF NOT EXISTS ngram_transitions (
    model_id INTEGER NOT NULL,
    context TEXT NOT NULL,
    next TEXT,
    weight INTEGER NOT NULL
);
`
		schemaTransitionsIdx = `
CREATE INDEX IF NOT EXISTS ngram_transitions_model_context
    ON ngram_transitions (model_id, context);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, stmt := range []string{schemaModels, schemaStarts, schemaTransitions, schemaTransitionsIdx} {
		if _, err = tx.Exec(stmt); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// SQLStore persists chain models in a SQLite database. The database handle
// is owned by the caller; Close releases only the prepared statements.
type SQLStore struct {
	db                 *sql.DB
	stmtGetModel       *sql.Stmt
	stmtListModels     *sql.Stmt
	stmtInsertModel    *sql.Stmt
	stmtUpdateModel    *sql.Stmt
	stmtDeleteModel    *sql.Stmt
	stmtDeleteStarts   *sql.Stmt
	stmtDeleteChains   *sql.Stmt
	stmtInsertStart    *sql.Stmt
	stmtInsertChain    *sql.Stmt
	stmtGetStarts      *sql.Stmt
	stmtGetTransitions *sql.Stmt
	logger             *slog.Logger
}

// NewSQLStore creates an SQLStore over db, pre-compiling all necessary SQL
// statements. SetupSchema must have been run against db.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	stmtGetModel, err := db.Prepare(`SELECT model_id, model_order FROM ngram_models WHERE model_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtListModels, err := db.Prepare(`SELECT model_name, model_order FROM ngram_models ORDER BY model_name;`)
	if err != nil {
		return nil, err
	}

	stmtInsertModel, err := db.Prepare(`INSERT INTO ngram_models (model_name, model_order) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtUpdateModel, err := db.Prepare(`UPDATE ngram_models SET model_order = ? WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteModel, err := db.Prepare(`DELETE FROM ngram_models WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteStarts, err := db.Prepare(`DELETE FROM ngram_starts WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteChains, err := db.Prepare(`DELETE FROM ngram_transitions WHERE model_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtInsertStart, err := db.Prepare(`INSERT OR IGNORE INTO ngram_starts (model_id, context) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtInsertChain, err := db.Prepare(`INSERT INTO ngram_transitions (model_id, context, next, weight) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtGetStarts, err := db.Prepare(`SELECT context FROM ngram_starts WHERE model_id = ? ORDER BY rowid;`)
	if err != nil {
		return nil, err
	}

	stmtGetTransitions, err := db.Prepare(`SELECT context, next, weight FROM ngram_transitions WHERE model_id = ? ORDER BY rowid;`)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		db:                 db,
		stmtGetModel:       stmtGetModel,
		stmtListModels:     stmtListModels,
		stmtInsertModel:    stmtInsertModel,
		stmtUpdateModel:    stmtUpdateModel,
		stmtDeleteModel:    stmtDeleteModel,
		stmtDeleteStarts:   stmtDeleteStarts,
		stmtDeleteChains:   stmtDeleteChains,
		stmtInsertStart:    stmtInsertStart,
		stmtInsertChain:    stmtInsertChain,
		stmtGetStarts:      stmtGetStarts,
		stmtGetTransitions: stmtGetTransitions,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the store. By default, all logs are
// discarded.
func (s *SQLStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Close releases all prepared SQL statements held by the store.
func (s *SQLStore) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModel, s.stmtListModels, s.stmtInsertModel, s.stmtUpdateModel,
		s.stmtDeleteModel, s.stmtDeleteStarts, s.stmtDeleteChains,
		s.stmtInsertStart, s.stmtInsertChain, s.stmtGetStarts, s.stmtGetTransitions,
	} {
		_ = stmt.Close()
	}
	return nil
}

// Save writes the snapshot under name, replacing any existing model of that
// name. The operation is performed within a single transaction.
func (s *SQLStore) Save(ctx context.Context, name string, snap *markov.Snapshot[string]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID int
	err = tx.StmtContext(ctx, s.stmtGetModel).QueryRowContext(ctx, name).Scan(&modelID, new(int))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.StmtContext(ctx, s.stmtInsertModel).ExecContext(ctx, name, snap.Order)
		if err != nil {
			return fmt.Errorf("failed to insert model %q: %w", name, err)
		}
		newID, _ := res.LastInsertId()
		modelID = int(newID)
	case err != nil:
		return fmt.Errorf("failed to query model %q: %w", name, err)
	default:
		if _, err := tx.StmtContext(ctx, s.stmtUpdateModel).ExecContext(ctx, snap.Order, modelID); err != nil {
			return fmt.Errorf("failed to update model %q: %w", name, err)
		}
		if _, err := tx.StmtContext(ctx, s.stmtDeleteStarts).ExecContext(ctx, modelID); err != nil {
			return fmt.Errorf("failed to clear starts for model %q: %w", name, err)
		}
		if _, err := tx.StmtContext(ctx, s.stmtDeleteChains).ExecContext(ctx, modelID); err != nil {
			return fmt.Errorf("failed to clear transitions for model %q: %w", name, err)
		}
	}

	insertStart := tx.StmtContext(ctx, s.stmtInsertStart)
	for _, start := range snap.Starts {
		key, err := encodeContext(start)
		if err != nil {
			return err
		}
		if _, err := insertStart.ExecContext(ctx, modelID, key); err != nil {
			return fmt.Errorf("failed to insert start context %s: %w", key, err)
		}
	}

	insertChain := tx.StmtContext(ctx, s.stmtInsertChain)
	for _, tr := range snap.Transitions {
		key, err := encodeContext(tr.Context)
		if err != nil {
			return err
		}
		next := sql.NullString{}
		if tr.Next != nil {
			next = sql.NullString{String: *tr.Next, Valid: true}
		}
		if _, err := insertChain.ExecContext(ctx, modelID, key, next, tr.Weight); err != nil {
			return fmt.Errorf("failed to insert transition for %s: %w", key, err)
		}
	}

	s.logger.InfoContext(ctx, "Model saved",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
		slog.Int("order", snap.Order),
		slog.Int("starts", len(snap.Starts)),
		slog.Int("transitions", len(snap.Transitions)),
	)

	return tx.Commit()
}

// Load reads the named model's snapshot. It returns ErrNotFound when no
// model of that name exists.
func (s *SQLStore) Load(ctx context.Context, name string) (*markov.Snapshot[string], error) {
	var modelID, order int
	err := s.stmtGetModel.QueryRowContext(ctx, name).Scan(&modelID, &order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model %q: %w", name, err)
	}

	snap := &markov.Snapshot[string]{Order: order}

	rows, err := s.stmtGetStarts.QueryContext(ctx, modelID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			_ = rows.Close()
			return nil, err
		}
		start, err := decodeContext(key)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		snap.Starts = append(snap.Starts, start)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	rows, err = s.stmtGetTransitions.QueryContext(ctx, modelID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)
	for rows.Next() {
		var (
			key    string
			next   sql.NullString
			weight int
		)
		if err := rows.Scan(&key, &next, &weight); err != nil {
			return nil, err
		}
		context, err := decodeContext(key)
		if err != nil {
			return nil, err
		}
		tr := markov.Transition[string]{Context: context, Weight: weight}
		if next.Valid {
			tr.Next = &next.String
		}
		snap.Transitions = append(snap.Transitions, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}

// List returns metadata for every stored model, ordered by name.
func (s *SQLStore) List(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.stmtListModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var models []ModelInfo
	for rows.Next() {
		var info ModelInfo
		if err := rows.Scan(&info.Name, &info.Order); err != nil {
			return nil, err
		}
		models = append(models, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// Delete removes the named model and all of its chain data. It returns
// ErrNotFound when no model of that name exists.
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var modelID, order int
	err = tx.StmtContext(ctx, s.stmtGetModel).QueryRowContext(ctx, name).Scan(&modelID, &order)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to query model %q: %w", name, err)
	}

	if _, err := tx.StmtContext(ctx, s.stmtDeleteStarts).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("failed to remove starts for model %d: %w", modelID, err)
	}
	if _, err := tx.StmtContext(ctx, s.stmtDeleteChains).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("failed to remove transitions for model %d: %w", modelID, err)
	}
	if _, err := tx.StmtContext(ctx, s.stmtDeleteModel).ExecContext(ctx, modelID); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", modelID, err)
	}

	s.logger.InfoContext(ctx, "Model removed",
		slog.String("model_name", name),
		slog.Int("model_id", modelID),
	)

	return tx.Commit()
}

// encodeContext serializes a context as a JSON array so items containing
// spaces or other separators survive the round trip.
func encodeContext(context []string) (string, error) {
	data, err := json.Marshal(context)
	if err != nil {
		return "", fmt.Errorf("failed to encode context: %w", err)
	}
	return string(data), nil
}

func decodeContext(key string) ([]string, error) {
	var context []string
	if err := json.Unmarshal([]byte(key), &context); err != nil {
		return nil, fmt.Errorf("failed to decode context %q: %w", key, err)
	}
	return context, nil
}
