package grid

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/model"
	"github.com/rytflow/rytflow/internal/rules"
)

// ApplySuggestion accepts a pending ai-suggestion: the suggested value
// becomes the cell value and the cell is validated. Recorded as an ai-fix.
func (b *Batch) ApplySuggestion(rowID, columnKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	status := row.StatusFor(columnKey)
	if status.State != model.StateAISuggestion || status.Suggestion == "" {
		return fmt.Errorf("%w: row %s column %s", common.ErrNoSuggestion, rowID, columnKey)
	}

	previous := row.Data[columnKey]
	row.Data[columnKey] = status.Suggestion
	row.Status[columnKey] = model.ValidatedStatus(status.Source, "")

	b.record(model.HistoryEntry{
		RowID:         rowID,
		ColumnKey:     columnKey,
		PreviousValue: previous,
		NewValue:      status.Suggestion,
		Action:        model.ActionAIFix,
	})
	return nil
}

// RejectSuggestion declines a pending suggestion; the value stays as
// imported and the cell returns to clean. No history entry is recorded.
func (b *Batch) RejectSuggestion(rowID, columnKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	row.Status[columnKey] = model.CleanStatus()
	b.redoStack = nil
	return nil
}

// ApplyColumnFix accepts every pending suggestion in a column. Cells without
// a suggestion payload are skipped, not errored; each applied cell produces
// its own history entry. Returns the number of cells fixed.
func (b *Batch) ApplyColumnFix(columnKey string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.column(columnKey); err != nil {
		return 0, err
	}

	fixed := 0
	for _, row := range b.rows {
		status := row.StatusFor(columnKey)
		if status.State != model.StateAISuggestion || status.Suggestion == "" {
			continue
		}

		previous := row.Data[columnKey]
		row.Data[columnKey] = status.Suggestion
		row.Status[columnKey] = model.ValidatedStatus(status.Source, "")

		b.record(model.HistoryEntry{
			RowID:         row.ID,
			ColumnKey:     columnKey,
			PreviousValue: previous,
			NewValue:      status.Suggestion,
			Action:        model.ActionAIFix,
		})
		fixed++
	}

	slog.Debug("Applied column fix", "column", columnKey, "fixed", fixed)
	return fixed, nil
}

// UpdateCell applies a manual edit. Manual edits always win and are
// normalized through the same per-field transform used at import, then the
// cell is validated. Recorded as a manual action.
func (b *Batch) UpdateCell(rowID, columnKey, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	normalized := value
	if rule := b.ruleSet.RuleByKey(columnKey); rule != nil {
		normalized = rules.Transform(rule, value).Value
	}

	previous := row.Data[columnKey]
	row.Data[columnKey] = normalized
	row.Status[columnKey] = model.ValidatedStatus(model.SourceManual, "")

	b.record(model.HistoryEntry{
		RowID:         rowID,
		ColumnKey:     columnKey,
		PreviousValue: previous,
		NewValue:      normalized,
		Action:        model.ActionManual,
	})
	return nil
}

// SubmitMissingField fills a value supplied through the out-of-band form,
// normalizes it, validates the cell and releases the row lock.
func (b *Batch) SubmitMissingField(rowID, columnKey, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	normalized := value
	if rule := b.ruleSet.RuleByKey(columnKey); rule != nil {
		normalized = rules.Transform(rule, value).Value
	}

	previous := row.Data[columnKey]
	row.Data[columnKey] = normalized
	row.Status[columnKey] = model.ValidatedStatus(model.SourceMissing, fmt.Sprintf("Provided via form (%s)", b.fileName))
	row.Locked = false

	b.record(model.HistoryEntry{
		RowID:         rowID,
		ColumnKey:     columnKey,
		PreviousValue: previous,
		NewValue:      normalized,
		Action:        model.ActionManualForm,
		Reason:        "User provided missing value",
	})
	return nil
}

// ResolveDuplicateAction selects how a flagged duplicate is handled.
type ResolveDuplicateAction string

// Duplicate resolution actions.
const (
	DuplicateProceed ResolveDuplicateAction = "proceed"
	DuplicateSkip    ResolveDuplicateAction = "skip"
)

// ResolveDuplicate settles a duplicate-flagged cell: proceed marks the
// payment as intentional, skip excludes the cell from review counts and the
// row from export while keeping it visible.
func (b *Batch) ResolveDuplicate(rowID, columnKey string, action ResolveDuplicateAction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	var historyAction model.HistoryAction
	switch action {
	case DuplicateProceed:
		row.Status[columnKey] = model.ValidatedStatus(model.SourceDuplicate, "Marked as intentional duplicate")
		historyAction = model.ActionDuplicateResolved
	case DuplicateSkip:
		row.Status[columnKey] = model.SkippedStatus("Skipped - duplicate transaction")
		historyAction = model.ActionSkipRow
	default:
		return fmt.Errorf("unknown duplicate resolution %q", action)
	}

	value := row.Data[columnKey]
	b.record(model.HistoryEntry{
		RowID:         rowID,
		ColumnKey:     columnKey,
		PreviousValue: value,
		NewValue:      value,
		Action:        historyAction,
	})
	return nil
}

// OverrideCritical validates a critical cell with an operator-supplied
// reason. The reason must be non-empty; it is retained in the cell message
// and the ledger.
func (b *Batch) OverrideCritical(rowID, columnKey, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return common.ErrEmptyReason
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	source := row.StatusFor(columnKey).Source
	row.Status[columnKey] = model.ValidatedStatus(source, fmt.Sprintf("Override approved: %s", reason))

	value := row.Data[columnKey]
	b.record(model.HistoryEntry{
		RowID:         rowID,
		ColumnKey:     columnKey,
		PreviousValue: value,
		NewValue:      value,
		Action:        model.ActionCriticalOverride,
		Reason:        reason,
	})
	return nil
}

// ApplyExternalSuggestion attaches advice from an external service to a
// cell. It is treated exactly like a rule-engine change: the cell moves to
// ai-suggestion and nothing is recorded until the suggestion is accepted.
func (b *Batch) ApplyExternalSuggestion(rowID, columnKey, suggestion string, confidence float64, message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	row.Status[columnKey] = model.SuggestionStatus(row.Data[columnKey], suggestion, confidence, message, model.SourceAI)
	return nil
}

// LockRow marks a row as having an outbound reconciliation request in
// flight. Manual edits remain permitted while locked.
func (b *Batch) LockRow(rowID, threadID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	row.Locked = true
	row.OutboundThreadID = threadID
	return nil
}

// UnlockRow releases a row lock and clears the outbound thread.
func (b *Batch) UnlockRow(rowID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	row.Locked = false
	row.OutboundThreadID = ""
	return nil
}

// ApplyReconciledValue writes one field from an inbound reply. The
// previous value is read at application time, not request time, so an
// intervening manual edit stays the undo baseline; last write observed
// wins. The cell moves to live-update and is recorded as reconciled.
func (b *Batch) ApplyReconciledValue(rowID, columnKey, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	previous := row.Data[columnKey]
	row.Data[columnKey] = value
	row.Status[columnKey] = model.LiveUpdateStatus(model.SourceWhatsApp)

	b.record(model.HistoryEntry{
		RowID:         rowID,
		ColumnKey:     columnKey,
		PreviousValue: previous,
		NewValue:      value,
		Action:        model.ActionReconciled,
	})
	return nil
}

// ConfirmLiveUpdates promotes live-update cells to validated. Both phases
// mean "resolved"; the intermediate state exists so a consumer can show a
// just-arrived value before it settles. The caller decides the delay and
// invokes this when it elapses. Returns the confirmed cursors.
func (b *Batch) ConfirmLiveUpdates() []Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()

	var confirmed []Cursor
	for _, row := range b.rows {
		for key, status := range row.Status {
			if status.State == model.StateLiveUpdate {
				row.Status[key] = model.ValidatedStatus(status.Source, status.Message)
				confirmed = append(confirmed, Cursor{RowID: row.ID, ColumnKey: key})
			}
		}
	}
	return confirmed
}

// RevertToCritical puts a cell back into the critical state, used when an
// outbound request expires without a reply.
func (b *Batch) RevertToCritical(rowID, columnKey, message string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, err := b.row(rowID)
	if err != nil {
		return err
	}
	if err := b.column(columnKey); err != nil {
		return err
	}

	row.Status[columnKey] = model.CriticalStatus(message, model.SourceMissing)
	return nil
}
