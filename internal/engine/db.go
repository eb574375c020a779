package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"jsondb/internal/model"
	"jsondb/internal/query"
	"jsondb/internal/store"
)

// DB ties the store and the commit log together under one lock. It is the
// query.Backend the evaluator runs against: reads take the lock shared,
// each set holds it exclusively across both the durable append and the
// in-memory apply, so the two never diverge and log order is application
// order.
type DB struct {
	mu    sync.RWMutex
	store *store.Store
	clog  *CommitLog
	log   *slog.Logger
}

// Open rebuilds the store by replaying the commit log, single-threaded,
// before anything else can touch it, then starts the commit log writer.
// The returned cancel func shuts the writer down; acknowledged appends are
// already on disk at that point.
func Open(ctx context.Context, cfg CommitLogCfg, logger *slog.Logger) (*DB, context.CancelFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := LoadCommitLog(cfg.Path, logger)
	if err != nil {
		return nil, nil, err
	}

	st := store.New()
	replay := &replayBackend{store: st}
	var lastSeq uint64
	for _, rec := range records {
		if _, err := query.Eval(rec.Cmd, replay); err != nil {
			// CRC-clean but unevaluable: treat like a corrupt tail.
			logger.Warn("replay stopped at unevaluable record", "seq", rec.Sequence, "error", err)
			break
		}
		lastSeq = rec.Sequence
	}
	logger.Info("store reconstructed", "records", len(records), "keys", st.Len())

	runCtx, cancel := context.WithCancel(ctx)
	clog, err := NewCommitLog(runCtx, cfg, lastSeq, logger)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	return &DB{store: st, clog: clog, log: logger}, cancel, nil
}

// Eval runs one command against the database.
func (db *DB) Eval(cmd *model.Value) (*model.Value, error) {
	return query.Eval(cmd, db)
}

// Get returns a clone of the value at key, or nil if absent. Cloning keeps
// values from being shared across the lock boundary.
func (db *DB) Get(key string) (*model.Value, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	v, ok := db.store.Get(key)
	if !ok {
		return nil, nil
	}
	return v.Clone(), nil
}

// Set records the mutation durably and applies it in memory as one atomic
// unit. Append comes first: if it fails, the store is untouched and only
// this one request sees the error.
func (db *DB) Set(key string, v *model.Value) (*model.Value, error) {
	cmd := query.SetCommand(key, v)
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.clog.Append(cmd); err != nil {
		return nil, fmt.Errorf("commit log: %w", err)
	}
	prev, _ := db.store.Apply(key, v.Clone())
	return prev, nil
}

// Len returns the number of keys currently stored.
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.store.Len()
}

// Keys returns the stored keys in lexical order.
func (db *DB) Keys() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.store.Keys()
}

// replayBackend applies logged commands without re-appending them: what
// is being replayed is already durable. Replay is single-threaded, so no
// locking and no defensive clones.
type replayBackend struct {
	store *store.Store
}

func (r *replayBackend) Get(key string) (*model.Value, error) {
	v, ok := r.store.Get(key)
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (r *replayBackend) Set(key string, v *model.Value) (*model.Value, error) {
	prev, _ := r.store.Apply(key, v)
	return prev, nil
}
