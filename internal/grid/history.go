package grid

import (
	"time"

	"github.com/google/uuid"

	"github.com/rytflow/rytflow/internal/model"
)

// record appends a forward ledger entry and clears the redo stack: a new
// forward action invalidates any pending redo. Callers must hold b.mu.
func (b *Batch) record(entry model.HistoryEntry) {
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now()
	b.history = append(b.history, entry)
	b.redoStack = nil
}

// History returns a copy of the forward ledger in append order.
func (b *Batch) History() []model.HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.HistoryEntry, len(b.history))
	copy(out, b.history)
	return out
}

// HistoryByAction groups ledger entries by action kind for display. Order
// within each group is unchanged; grouping has no semantic effect.
func (b *Batch) HistoryByAction() map[model.HistoryAction][]model.HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	grouped := make(map[model.HistoryAction][]model.HistoryEntry)
	for _, entry := range b.history {
		grouped[entry.Action] = append(grouped[entry.Action], entry)
	}
	return grouped
}

// Undo reverts the most recent ledger entry touching (rowID, columnKey):
// the previous value is restored and the cell is given an
// ai-suggestion-shaped status whose suggestion is the undone value, so the
// same fix can be re-accepted. The entry moves to the redo stack. Undo with
// no matching history is a no-op, not an error.
func (b *Batch) Undo(rowID, columnKey string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entryIdx := -1
	for i := len(b.history) - 1; i >= 0; i-- {
		if b.history[i].RowID == rowID && b.history[i].ColumnKey == columnKey {
			entryIdx = i
			break
		}
	}
	if entryIdx == -1 {
		return false
	}

	row, ok := b.byID[rowID]
	if !ok {
		return false
	}

	entry := b.history[entryIdx]
	prior := row.StatusFor(columnKey)

	row.Data[columnKey] = entry.PreviousValue

	message := prior.Message
	if message == "" {
		message = "Previous suggestion restored"
	}
	source := prior.Source
	if source == "" {
		source = model.SourceAI
	}
	row.Status[columnKey] = model.CellStatus{
		State:         model.StateAISuggestion,
		OriginalValue: entry.PreviousValue,
		Suggestion:    entry.NewValue,
		Message:       message,
		Confidence:    prior.Confidence,
		Source:        source,
	}

	b.history = append(b.history[:entryIdx], b.history[entryIdx+1:]...)
	b.redoStack = append(b.redoStack, entry)
	return true
}

// Redo re-applies the most recently undone change: the value is restored,
// the cell is validated, and a fresh forward entry tagged redo is appended
// for audit purposes. Redo on an empty stack is a no-op.
func (b *Batch) Redo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.redoStack) == 0 {
		return false
	}

	entry := b.redoStack[len(b.redoStack)-1]
	row, ok := b.byID[entry.RowID]
	if !ok {
		return false
	}
	b.redoStack = b.redoStack[:len(b.redoStack)-1]

	previous := row.Data[entry.ColumnKey]
	row.Data[entry.ColumnKey] = entry.NewValue

	source := row.StatusFor(entry.ColumnKey).Source
	if source == "" {
		source = model.SourceAI
	}
	row.Status[entry.ColumnKey] = model.ValidatedStatus(source, "")

	// Appended directly rather than through record: redo must not clear
	// the remaining redo stack.
	b.history = append(b.history, model.HistoryEntry{
		ID:            uuid.NewString(),
		Timestamp:     time.Now(),
		RowID:         entry.RowID,
		ColumnKey:     entry.ColumnKey,
		PreviousValue: previous,
		NewValue:      entry.NewValue,
		Action:        model.ActionRedo,
	})
	return true
}

// RedoDepth reports how many undone changes can be re-applied.
func (b *Batch) RedoDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.redoStack)
}
