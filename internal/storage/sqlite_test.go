package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func sampleSnapshot(id string, createdAt time.Time) *model.BatchSnapshot {
	return &model.BatchSnapshot{
		ID:        id,
		FileName:  "payments.csv",
		CreatedAt: createdAt,
		Columns: []model.ColumnDef{
			{Key: "name", Header: "Payee Name"},
			{Key: "amount", Header: "Amount (RM)"},
		},
		Rows: []model.Row{
			{
				ID:       id + "-row-1",
				RowIndex: 1,
				Data:     map[string]string{"name": "Ali Ahmad", "amount": "5000.00"},
				Status: map[string]model.CellStatus{
					"amount": model.SuggestionStatus("rm 5,000", "5000.00", 0.95, "Reformatted", model.SourceAI),
				},
				PhoneNumber: "+60123456789",
			},
			{
				ID:       id + "-row-2",
				RowIndex: 2,
				Data:     map[string]string{"name": "Sarah Lee", "amount": "3500.00"},
				Status:   map[string]model.CellStatus{},
				Locked:   true,
			},
		},
	}
}

func TestSaveAndLoadBatch(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	snapshot := sampleSnapshot("batch-1", time.Now().UTC())
	require.NoError(t, store.SaveBatch(ctx, snapshot))

	loaded, err := store.LoadBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, "payments.csv", loaded.FileName)
	assert.Equal(t, snapshot.Columns, loaded.Columns)
	require.Len(t, loaded.Rows, 2)

	row := loaded.Rows[0]
	assert.Equal(t, "Ali Ahmad", row.Data["name"])
	assert.Equal(t, "+60123456789", row.PhoneNumber)
	status := row.Status["amount"]
	assert.Equal(t, model.StateAISuggestion, status.State)
	assert.Equal(t, "5000.00", status.Suggestion)

	assert.True(t, loaded.Rows[1].Locked)
}

func TestSaveBatchReplacesRows(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	snapshot := sampleSnapshot("batch-1", time.Now().UTC())
	require.NoError(t, store.SaveBatch(ctx, snapshot))

	// Re-saving with fewer rows must not leave stale rows behind.
	snapshot.Rows = snapshot.Rows[:1]
	require.NoError(t, store.SaveBatch(ctx, snapshot))

	loaded, err := store.LoadBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Len(t, loaded.Rows, 1)
}

func TestLoadBatchNotFound(t *testing.T) {
	store := newTestStorage(t)
	_, err := store.LoadBatch(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoadLatestBatch(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveBatch(ctx, sampleSnapshot("batch-old", base)))
	require.NoError(t, store.SaveBatch(ctx, sampleSnapshot("batch-new", base.Add(time.Hour))))

	latest, err := store.LoadLatestBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "batch-new", latest.ID)
}

func TestLoadLatestBatchEmpty(t *testing.T) {
	store := newTestStorage(t)
	_, err := store.LoadLatestBatch(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateRow(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	snapshot := sampleSnapshot("batch-1", time.Now().UTC())
	require.NoError(t, store.SaveBatch(ctx, snapshot))

	row := snapshot.Rows[0]
	row.Data["amount"] = "6000.00"
	row.Locked = true
	require.NoError(t, store.UpdateRow(ctx, "batch-1", &row))

	loaded, err := store.LoadBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, "6000.00", loaded.Rows[0].Data["amount"])
	assert.True(t, loaded.Rows[0].Locked)
}

func TestUpdateRowNotFound(t *testing.T) {
	store := newTestStorage(t)
	err := store.UpdateRow(context.Background(), "batch-1", &model.Row{
		ID:   "ghost",
		Data: map[string]string{},
	})
	assert.ErrorIs(t, err, common.ErrRowNotFound)
}

func TestRequestLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	request := &model.WhatsAppRequest{
		ID:             "req-1",
		RowID:          "row-1",
		RecipientName:  "Ali Ahmad",
		RecipientPhone: "+60123456789",
		TargetFields:   []string{"bank", "accountNumber"},
		SentAt:         time.Now().UTC(),
		Status:         model.RequestPending,
		FormLink:       "https://x/verify/req-1",
		MessageSID:     "SM123",
	}
	require.NoError(t, store.SaveRequest(ctx, request))

	loaded, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, request.TargetFields, loaded.TargetFields)
	assert.Equal(t, model.RequestPending, loaded.Status)
	assert.Equal(t, "SM123", loaded.MessageSID)
	assert.Nil(t, loaded.RepliedAt)

	pending, err := store.GetPendingRequests(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	repliedAt := time.Now().UTC()
	require.NoError(t, store.MarkRequestReplied(ctx, "req-1", repliedAt))

	loaded, err = store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestReplied, loaded.Status)
	require.NotNil(t, loaded.RepliedAt)

	pending, err = store.GetPendingRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMarkRequestExpired(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRequest(ctx, &model.WhatsAppRequest{
		ID:             "req-1",
		RowID:          "row-1",
		RecipientName:  "Ali",
		RecipientPhone: "+60123456789",
		TargetFields:   []string{"bank"},
		SentAt:         time.Now().UTC(),
		Status:         model.RequestPending,
	}))

	require.NoError(t, store.MarkRequestExpired(ctx, "req-1"))

	loaded, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.RequestExpired, loaded.Status)
}

func TestRequestNotFound(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.GetRequest(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrRequestNotFound)

	err = store.MarkRequestReplied(ctx, "missing", time.Now())
	assert.ErrorIs(t, err, common.ErrRequestNotFound)
}

func TestDeleteRequest(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRequest(ctx, &model.WhatsAppRequest{
		ID:             "req-1",
		RowID:          "row-1",
		RecipientName:  "Ali",
		RecipientPhone: "+60123456789",
		TargetFields:   []string{"bank"},
		SentAt:         time.Now().UTC(),
		Status:         model.RequestPending,
	}))
	require.NoError(t, store.DeleteRequest(ctx, "req-1"))

	_, err := store.GetRequest(ctx, "req-1")
	assert.ErrorIs(t, err, common.ErrRequestNotFound)
}

func TestHistoryAppendAndGet(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	entries := []model.HistoryEntry{
		{ID: "h-1", RowID: "row-1", ColumnKey: "amount", PreviousValue: "rm 5,000", NewValue: "5000.00", Action: model.ActionAIFix, Timestamp: base},
		{ID: "h-2", RowID: "row-1", ColumnKey: "name", NewValue: "Ali Ahmad", Action: model.ActionManual, Timestamp: base.Add(time.Minute)},
		{ID: "h-3", RowID: "row-2", ColumnKey: "bank", NewValue: "MBB", Action: model.ActionCriticalOverride, Reason: "Verified by phone", Timestamp: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, store.AppendHistory(ctx, &entries[i]))
	}

	rowHistory, err := store.GetHistory(ctx, "row-1")
	require.NoError(t, err)
	require.Len(t, rowHistory, 2)
	assert.Equal(t, "h-1", rowHistory[0].ID)
	assert.Equal(t, "rm 5,000", rowHistory[0].PreviousValue)
	assert.Equal(t, model.ActionAIFix, rowHistory[0].Action)

	all, err := store.GetAllHistory(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "h-3", all[2].ID)
	assert.Equal(t, "Verified by phone", all[2].Reason)
}

func TestAppendHistoryIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	entry := model.HistoryEntry{
		ID: "h-1", RowID: "row-1", ColumnKey: "amount",
		NewValue: "5000.00", Action: model.ActionAIFix, Timestamp: time.Now().UTC(),
	}
	require.NoError(t, store.AppendHistory(ctx, &entry))
	require.NoError(t, store.AppendHistory(ctx, &entry))

	all, err := store.GetAllHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAppendHistoryValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	err := store.AppendHistory(ctx, &model.HistoryEntry{RowID: "row-1", ColumnKey: "amount", Action: model.ActionManual})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	err = store.AppendHistory(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)
}

func TestTransactionRecordsRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []model.TransactionRecord{
		{ID: "tx-1", Name: "Tenaga Nasional", Amount: "500.00", AccountNumber: "8001112220", CreatedAt: base},
		{ID: "tx-2", Name: "Ali Ahmad", Amount: "5000.00", AccountNumber: "123456789012", CreatedAt: base.Add(time.Hour)},
	}
	require.NoError(t, store.SaveTransactionRecords(ctx, records))

	loaded, err := store.GetTransactionRecords(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "tx-1", loaded[0].ID)

	// Fingerprints are computed on insert when missing.
	expected := model.GenerateFingerprint("Tenaga Nasional", "500.00", "8001112220")
	assert.Equal(t, expected, loaded[0].Fingerprint)
}

func TestSaveTransactionRecordsIgnoresDuplicates(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	record := model.TransactionRecord{ID: "tx-1", Name: "Ali", Amount: "100.00", AccountNumber: "123456789", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveTransactionRecords(ctx, []model.TransactionRecord{record}))

	// Same ID with changed data: the original wins.
	record.Amount = "999.00"
	require.NoError(t, store.SaveTransactionRecords(ctx, []model.TransactionRecord{record}))

	loaded, err := store.GetTransactionRecords(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "100.00", loaded[0].Amount)
}

func TestMigrateIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// Already migrated by the helper; running again must be a no-op.
	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestReset(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBatch(ctx, sampleSnapshot("batch-1", time.Now().UTC())))
	require.NoError(t, store.AppendHistory(ctx, &model.HistoryEntry{
		ID: "h-1", RowID: "r-1", ColumnKey: "amount", Action: model.ActionManual, Timestamp: time.Now().UTC(),
	}))

	require.NoError(t, store.Reset(ctx))

	_, err := store.LoadLatestBatch(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	all, err := store.GetAllHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewSQLiteStorageValidation(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.ErrorIs(t, err, ErrEmptyString)
}
