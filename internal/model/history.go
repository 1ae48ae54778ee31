package model

import "time"

// HistoryAction identifies what kind of operation a ledger entry records.
type HistoryAction string

// History action constants.
const (
	ActionAIFix             HistoryAction = "ai-fix"
	ActionManual            HistoryAction = "manual"
	ActionManualForm        HistoryAction = "manual-form"
	ActionReconciled        HistoryAction = "reconciled"
	ActionUndo              HistoryAction = "undo"
	ActionRedo              HistoryAction = "redo"
	ActionDuplicateResolved HistoryAction = "duplicate-resolved"
	ActionCriticalOverride  HistoryAction = "critical-override"
	ActionSkipRow           HistoryAction = "skip-row"
)

// HistoryEntry is an immutable record of one state-changing operation against
// a cell. Entries are never mutated after creation; undo moves them to the
// redo stack and redo appends a fresh entry.
type HistoryEntry struct {
	Timestamp     time.Time     `json:"timestamp"`
	ID            string        `json:"id"`
	RowID         string        `json:"row_id"`
	ColumnKey     string        `json:"column_key"`
	PreviousValue string        `json:"previous_value"`
	NewValue      string        `json:"new_value"`
	Action        HistoryAction `json:"action"`
	Reason        string        `json:"reason,omitempty"`
}
