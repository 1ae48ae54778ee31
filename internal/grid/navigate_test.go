package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rytflow/rytflow/internal/model"
)

func TestNextIssueRowMajorOrder(t *testing.T) {
	b := importBatch(t, []map[string]string{messyRow(), cleanRow()}, nil)
	rowID := b.Rows()[0].ID

	// The messy row has suggestions on five of six fields; the clean row
	// contributes nothing, so the scan walks the first row in column order.
	for _, want := range []string{"name", "amount", "accountNumber", "bank", "date"} {
		cursor := b.NextIssue()
		require.NotNil(t, cursor, want)
		assert.Equal(t, rowID, cursor.RowID)
		assert.Equal(t, want, cursor.ColumnKey)
	}

	// Nothing resolved yet, so the scan wraps back to the first issue.
	cursor := b.NextIssue()
	require.NotNil(t, cursor)
	assert.Equal(t, "name", cursor.ColumnKey)
}

func TestNextIssueSkipsResolvedCells(t *testing.T) {
	b := importBatch(t, []map[string]string{messyRow()}, nil)
	rowID := b.Rows()[0].ID

	require.NoError(t, b.ApplySuggestion(rowID, "name"))

	cursor := b.NextIssue()
	require.NotNil(t, cursor)
	assert.Equal(t, "amount", cursor.ColumnKey)
}

func TestNextIssueNilWhenClean(t *testing.T) {
	b := importBatch(t, []map[string]string{cleanRow()}, nil)

	assert.Nil(t, b.NextIssue())
	assert.Nil(t, b.ActiveCell())
}

func TestNextIssueEmptyBatch(t *testing.T) {
	b := importBatch(t, nil, nil)
	assert.Nil(t, b.NextIssue())
}

func TestNextIssueWrapsPastEnd(t *testing.T) {
	b := importBatch(t, []map[string]string{cleanRow(), messyRow()}, nil)
	lastRow := b.Rows()[1]

	// Cursor parked on the final cell; the only issues are behind it.
	b.SetActiveCell(&Cursor{RowID: lastRow.ID, ColumnKey: "phone"})

	cursor := b.NextIssue()
	require.NotNil(t, cursor)
	assert.Equal(t, lastRow.ID, cursor.RowID)
	assert.Equal(t, "name", cursor.ColumnKey)
}

func TestNextIssueAdvancesCursor(t *testing.T) {
	b := importBatch(t, []map[string]string{messyRow()}, nil)

	cursor := b.NextIssue()
	require.NotNil(t, cursor)

	active := b.ActiveCell()
	require.NotNil(t, active)
	assert.Equal(t, *cursor, *active)
}

func TestSetActiveCell(t *testing.T) {
	b := importBatch(t, []map[string]string{cleanRow()}, nil)
	rowID := b.Rows()[0].ID

	b.SetActiveCell(&Cursor{RowID: rowID, ColumnKey: "amount"})

	active := b.ActiveCell()
	require.NotNil(t, active)
	assert.Equal(t, rowID, active.RowID)
	assert.Equal(t, "amount", active.ColumnKey)

	// Mutating the returned copy must not move the real cursor.
	active.ColumnKey = "name"
	assert.Equal(t, "amount", b.ActiveCell().ColumnKey)

	b.SetActiveCell(nil)
	assert.Nil(t, b.ActiveCell())
}

func TestNeedsReviewCounts(t *testing.T) {
	missing := cleanRow()
	missing["name"] = ""
	b := importBatch(t, []map[string]string{messyRow(), cleanRow(), missing}, nil)

	counts := b.NeedsReview()
	assert.Equal(t, 5, counts.Suggestions)
	assert.Equal(t, 1, counts.Critical)
	assert.Zero(t, counts.Duplicates)
	assert.Zero(t, counts.Skipped)
	assert.Equal(t, 6, counts.Total())
}

func TestReviewCountsSkippedExcludedFromTotal(t *testing.T) {
	counts := ReviewCounts{Suggestions: 2, Duplicates: 1, Critical: 1, Skipped: 3}
	assert.Equal(t, 4, counts.Total())
}

func TestCompletion(t *testing.T) {
	b := importBatch(t, []map[string]string{messyRow()}, nil)
	rowID := b.Rows()[0].ID

	// Five of six cells pending.
	assert.InDelta(t, 1.0/6.0, b.Completion(), 1e-9)

	require.NoError(t, b.ApplySuggestion(rowID, "name"))
	assert.InDelta(t, 2.0/6.0, b.Completion(), 1e-9)

	clean := importBatch(t, []map[string]string{cleanRow()}, nil)
	assert.Equal(t, 1.0, clean.Completion())
}

func TestCompletionEmptyBatch(t *testing.T) {
	b := importBatch(t, nil, nil)
	assert.Equal(t, 1.0, b.Completion())
}

func TestExportRecords(t *testing.T) {
	b := importBatch(t, []map[string]string{cleanRow(), messyRow()}, nil)

	records := b.ExportRecords()
	require.Len(t, records, 2)

	// Export reflects current data, not suggestions.
	assert.Equal(t, "Clean Data Co", records[0]["name"])
	assert.Equal(t, "mr. ali ahmad", records[1]["name"])
	assert.Equal(t, "rm 5,000", records[1]["amount"])

	for _, record := range records {
		assert.Len(t, record, 6)
	}
}

func TestExportRecordsReflectAcceptedFixes(t *testing.T) {
	b := importBatch(t, []map[string]string{messyRow()}, nil)
	rowID := b.Rows()[0].ID

	require.NoError(t, b.ApplySuggestion(rowID, "amount"))

	records := b.ExportRecords()
	require.Len(t, records, 1)
	assert.Equal(t, "5000.00", records[0]["amount"])
}

func TestFilterRows(t *testing.T) {
	missing := cleanRow()
	missing["name"] = ""
	b := importBatch(t, []map[string]string{messyRow(), cleanRow(), missing}, nil)

	assert.Len(t, b.FilterRows(model.StateAISuggestion), 1)
	assert.Len(t, b.FilterRows(model.StateCritical), 1)
	assert.Empty(t, b.FilterRows(model.StateDuplicate))
}
