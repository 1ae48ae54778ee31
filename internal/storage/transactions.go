package storage

import (
	"context"
	"fmt"

	"github.com/rytflow/rytflow/internal/model"
)

// SaveTransactionRecords persists duplicate-detection history records.
// Existing records with the same ID are left untouched so the corpus stays
// append-only.
func (s *SQLiteStorage) SaveTransactionRecords(ctx context.Context, records []model.TransactionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, record := range records {
		if record.ID == "" {
			return fmt.Errorf("%w: transaction record ID", ErrEmptyString)
		}
		fingerprint := record.Fingerprint
		if fingerprint == "" {
			fingerprint = model.GenerateFingerprint(record.Name, record.Amount, record.AccountNumber)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_history (id, fingerprint, name, amount, account_number, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			record.ID, fingerprint, record.Name, record.Amount, record.AccountNumber, record.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert transaction record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction records: %w", err)
	}
	return nil
}

// GetTransactionRecords loads the whole duplicate-detection corpus.
func (s *SQLiteStorage) GetTransactionRecords(ctx context.Context) ([]model.TransactionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fingerprint, name, amount, account_number, created_at
		 FROM transaction_history ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.TransactionRecord
	for rows.Next() {
		var record model.TransactionRecord
		if err := rows.Scan(&record.ID, &record.Fingerprint, &record.Name, &record.Amount,
			&record.AccountNumber, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
