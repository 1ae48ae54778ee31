package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/model"
)

// SaveBatch persists a batch snapshot, replacing any previous rows of the
// same batch. The next import is a full replace, so stale rows never leak
// across saves.
func (s *SQLiteStorage) SaveBatch(ctx context.Context, batch *model.BatchSnapshot) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if batch == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}
	if err := validateString(batch.ID, "batch.ID"); err != nil {
		return err
	}
	for i := range batch.Rows {
		if err := validateRow(&batch.Rows[i]); err != nil {
			return fmt.Errorf("row at index %d: %w", i, err)
		}
	}

	columns, err := json.Marshal(batch.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, file_name, columns, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET file_name = excluded.file_name, columns = excluded.columns`,
		batch.ID, batch.FileName, string(columns), batch.CreatedAt); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rows WHERE batch_id = ?`, batch.ID); err != nil {
		return fmt.Errorf("failed to clear batch rows: %w", err)
	}

	for i := range batch.Rows {
		if err := insertRow(ctx, tx, batch.ID, &batch.Rows[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func insertRow(ctx context.Context, tx *sql.Tx, batchID string, row *model.Row) error {
	data, err := json.Marshal(row.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal row data: %w", err)
	}
	status, err := json.Marshal(row.Status)
	if err != nil {
		return fmt.Errorf("failed to marshal row status: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rows (id, batch_id, row_index, data, status, locked, phone_number, outbound_thread_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, batchID, row.RowIndex, string(data), string(status),
		boolToInt(row.Locked), row.PhoneNumber, row.OutboundThreadID); err != nil {
		return fmt.Errorf("failed to insert row %s: %w", row.ID, err)
	}
	return nil
}

// LoadBatch loads one batch snapshot by ID.
func (s *SQLiteStorage) LoadBatch(ctx context.Context, batchID string) (*model.BatchSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	var batch model.BatchSnapshot
	var columns string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, columns, created_at FROM batches WHERE id = ?`, batchID).
		Scan(&batch.ID, &batch.FileName, &columns, &batch.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %s", common.ErrNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	if err := json.Unmarshal([]byte(columns), &batch.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}

	rows, err := s.loadRows(ctx, batch.ID)
	if err != nil {
		return nil, err
	}
	batch.Rows = rows
	return &batch, nil
}

// LoadLatestBatch loads the most recently created batch, or ErrNotFound
// when none has been imported yet.
func (s *SQLiteStorage) LoadLatestBatch(ctx context.Context) (*model.BatchSnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var batchID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM batches ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no batches", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest batch: %w", err)
	}

	return s.LoadBatch(ctx, batchID)
}

func (s *SQLiteStorage) loadRows(ctx context.Context, batchID string) ([]model.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, row_index, data, status, locked, phone_number, outbound_thread_id
		 FROM rows WHERE batch_id = ? ORDER BY row_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Row
	for rows.Next() {
		var row model.Row
		var data, status string
		var locked int
		var phone, thread sql.NullString

		if err := rows.Scan(&row.ID, &row.RowIndex, &data, &status, &locked, &phone, &thread); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &row.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row data: %w", err)
		}
		if err := json.Unmarshal([]byte(status), &row.Status); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row status: %w", err)
		}
		row.Locked = locked != 0
		row.PhoneNumber = phone.String
		row.OutboundThreadID = thread.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpdateRow persists the current state of a single row.
func (s *SQLiteStorage) UpdateRow(ctx context.Context, batchID string, row *model.Row) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRow(row); err != nil {
		return err
	}

	data, err := json.Marshal(row.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal row data: %w", err)
	}
	status, err := json.Marshal(row.Status)
	if err != nil {
		return fmt.Errorf("failed to marshal row status: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE rows SET data = ?, status = ?, locked = ?, phone_number = ?, outbound_thread_id = ?
		 WHERE id = ? AND batch_id = ?`,
		string(data), string(status), boolToInt(row.Locked), row.PhoneNumber, row.OutboundThreadID,
		row.ID, batchID)
	if err != nil {
		return fmt.Errorf("failed to update row: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", common.ErrRowNotFound, row.ID)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
