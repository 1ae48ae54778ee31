package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS batches (
					id TEXT PRIMARY KEY,
					file_name TEXT NOT NULL,
					columns TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS rows (
					id TEXT PRIMARY KEY,
					batch_id TEXT NOT NULL,
					row_index INTEGER NOT NULL,
					data TEXT NOT NULL,
					status TEXT NOT NULL,
					locked INTEGER NOT NULL DEFAULT 0,
					phone_number TEXT,
					outbound_thread_id TEXT,
					FOREIGN KEY (batch_id) REFERENCES batches(id)
				)`,
				`CREATE INDEX idx_rows_batch ON rows(batch_id)`,

				`CREATE TABLE IF NOT EXISTS whatsapp_requests (
					id TEXT PRIMARY KEY,
					row_id TEXT NOT NULL,
					recipient_name TEXT NOT NULL,
					recipient_phone TEXT NOT NULL,
					target_fields TEXT NOT NULL,
					sent_at DATETIME NOT NULL,
					status TEXT NOT NULL,
					replied_at DATETIME,
					form_link TEXT,
					message_sid TEXT
				)`,
				`CREATE INDEX idx_requests_row ON whatsapp_requests(row_id)`,
				`CREATE INDEX idx_requests_status ON whatsapp_requests(status)`,

				`CREATE TABLE IF NOT EXISTS history_entries (
					id TEXT PRIMARY KEY,
					row_id TEXT NOT NULL,
					column_key TEXT NOT NULL,
					previous_value TEXT NOT NULL DEFAULT '',
					new_value TEXT NOT NULL DEFAULT '',
					action TEXT NOT NULL,
					timestamp DATETIME NOT NULL,
					reason TEXT
				)`,
				`CREATE INDEX idx_history_row_column ON history_entries(row_id, column_key)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute migration query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Transaction history for duplicate detection",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transaction_history (
					id TEXT PRIMARY KEY,
					fingerprint TEXT NOT NULL,
					name TEXT NOT NULL,
					amount TEXT NOT NULL,
					account_number TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_transaction_history_fingerprint ON transaction_history(fingerprint)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute migration query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("Applied migration", "version", migration.Version, "description", migration.Description)
	}

	return nil
}

// Reset clears all data while keeping the schema in place.
func (s *SQLiteStorage) Reset(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tables := []string{"rows", "batches", "whatsapp_requests", "history_entries", "transaction_history"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}
