package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rytflow/rytflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRow   = errors.New("invalid row")
	ErrInvalidEntry = errors.New("invalid history entry")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRow validates a single row before persistence.
func validateRow(row *model.Row) error {
	if row == nil {
		return fmt.Errorf("%w: row", ErrNilParameter)
	}
	if row.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRow)
	}
	if row.Data == nil {
		return fmt.Errorf("%w: missing data map", ErrInvalidRow)
	}
	return nil
}

// validateHistoryEntry validates a ledger entry before persistence.
func validateHistoryEntry(entry *model.HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if entry.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEntry)
	}
	if entry.RowID == "" {
		return fmt.Errorf("%w: missing row ID", ErrInvalidEntry)
	}
	if entry.ColumnKey == "" {
		return fmt.Errorf("%w: missing column key", ErrInvalidEntry)
	}
	if entry.Action == "" {
		return fmt.Errorf("%w: missing action", ErrInvalidEntry)
	}
	return nil
}
