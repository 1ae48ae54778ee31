// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/rytflow/rytflow/internal/model"
)

// Storage defines the contract for our persistence layer. Row, request and
// history records must round-trip without loss; everything else the core
// keeps in memory.
type Storage interface {
	// Batch operations
	SaveBatch(ctx context.Context, batch *model.BatchSnapshot) error
	LoadBatch(ctx context.Context, batchID string) (*model.BatchSnapshot, error)
	LoadLatestBatch(ctx context.Context) (*model.BatchSnapshot, error)
	UpdateRow(ctx context.Context, batchID string, row *model.Row) error

	// Reconciliation request operations
	SaveRequest(ctx context.Context, req *model.WhatsAppRequest) error
	GetRequest(ctx context.Context, id string) (*model.WhatsAppRequest, error)
	GetPendingRequests(ctx context.Context) ([]model.WhatsAppRequest, error)
	MarkRequestReplied(ctx context.Context, id string, repliedAt time.Time) error
	MarkRequestExpired(ctx context.Context, id string) error
	DeleteRequest(ctx context.Context, id string) error

	// History ledger operations
	AppendHistory(ctx context.Context, entry *model.HistoryEntry) error
	GetHistory(ctx context.Context, rowID string) ([]model.HistoryEntry, error)
	GetAllHistory(ctx context.Context) ([]model.HistoryEntry, error)

	// Transaction history for duplicate detection
	SaveTransactionRecords(ctx context.Context, records []model.TransactionRecord) error
	GetTransactionRecords(ctx context.Context) ([]model.TransactionRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	Reset(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for transport operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
