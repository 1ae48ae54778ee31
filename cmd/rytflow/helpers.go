package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/rytflow/rytflow/internal/config"
	"github.com/rytflow/rytflow/internal/dedupe"
	"github.com/rytflow/rytflow/internal/grid"
	"github.com/rytflow/rytflow/internal/rules"
	"github.com/rytflow/rytflow/internal/service"
	"github.com/rytflow/rytflow/internal/storage"
)

// initStorage opens the database from config and brings the schema current.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/rytflow/rytflow.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadRuleSet loads the rule set named in config, falling back to the
// built-in Malaysian payroll rules.
func loadRuleSet() (*rules.RuleSet, error) {
	path := viper.GetString("rules.path")
	if path == "" {
		return rules.DefaultRuleSet(), nil
	}
	return rules.Load(config.ExpandPath(path))
}

// loadDedupeIndex builds the duplicate index from persisted transaction
// history. An empty database seeds the demo history so duplicate flags are
// exercisable out of the box.
func loadDedupeIndex(ctx context.Context, store service.Storage) (*dedupe.Index, error) {
	records, err := store.GetTransactionRecords(ctx)
	if err != nil {
		return nil, err
	}

	index := dedupe.NewIndex()
	if len(records) == 0 {
		index.Seed()
		if err := store.SaveTransactionRecords(ctx, index.Records()); err != nil {
			return nil, err
		}
		return index, nil
	}

	index.Load(records)
	return index, nil
}

// session bundles the restored batch with its storage handle.
type session struct {
	store service.Storage
	batch *grid.Batch
}

// loadSession restores the most recent batch, its full ledger, and the rule
// set it was imported under.
func loadSession(ctx context.Context, store service.Storage) (*session, error) {
	snapshot, err := store.LoadLatestBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("no batch found, run 'rytflow import' first: %w", err)
	}

	ruleSet, err := loadRuleSet()
	if err != nil {
		return nil, err
	}

	history, err := store.GetAllHistory(ctx)
	if err != nil {
		return nil, err
	}

	batch := grid.Restore(snapshot, ruleSet, history)
	return &session{store: store, batch: batch}, nil
}

// persist saves the batch state and the ledger. Appending is idempotent per
// entry ID, so re-persisting entries restored from a previous session is
// harmless. Persisted entries are never retracted; the stored ledger is an
// audit trail, and an in-session undo only rewinds the in-memory view.
func (s *session) persist(ctx context.Context) error {
	if err := s.store.SaveBatch(ctx, s.batch.Snapshot()); err != nil {
		return err
	}

	for _, entry := range s.batch.History() {
		if err := s.store.AppendHistory(ctx, &entry); err != nil {
			return err
		}
	}
	return nil
}
