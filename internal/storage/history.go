package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rytflow/rytflow/internal/model"
)

// AppendHistory persists one ledger entry. Entries are immutable, so an
// entry already present is left untouched and re-appending is safe.
func (s *SQLiteStorage) AppendHistory(ctx context.Context, entry *model.HistoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHistoryEntry(entry); err != nil {
		return err
	}

	reason := sql.NullString{String: entry.Reason, Valid: entry.Reason != ""}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO history_entries (id, row_id, column_key, previous_value, new_value, action, timestamp, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		entry.ID, entry.RowID, entry.ColumnKey, entry.PreviousValue, entry.NewValue,
		string(entry.Action), entry.Timestamp, reason); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// GetHistory returns the ledger entries for one row in append order.
func (s *SQLiteStorage) GetHistory(ctx context.Context, rowID string) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(rowID, "rowID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, row_id, column_key, previous_value, new_value, action, timestamp, reason
		 FROM history_entries WHERE row_id = ? ORDER BY timestamp, id`, rowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanHistory(rows)
}

// GetAllHistory returns the full ledger in append order, for rebuilding
// undo/redo state across sessions.
func (s *SQLiteStorage) GetAllHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, row_id, column_key, previous_value, new_value, action, timestamp, reason
		 FROM history_entries ORDER BY timestamp, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	for rows.Next() {
		var entry model.HistoryEntry
		var action string
		var reason sql.NullString

		if err := rows.Scan(&entry.ID, &entry.RowID, &entry.ColumnKey, &entry.PreviousValue,
			&entry.NewValue, &action, &entry.Timestamp, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Action = model.HistoryAction(action)
		entry.Reason = reason.String
		out = append(out, entry)
	}
	return out, rows.Err()
}
