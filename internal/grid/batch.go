// Package grid holds the authoritative in-memory model of one imported
// batch: every cell carries a review state, and the transition methods on
// Batch are the only way state changes. The aggregate is guarded by a single
// mutex so there is exactly one logical mutator at a time.
package grid

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/model"
	"github.com/rytflow/rytflow/internal/rules"
)

// Cursor identifies one cell of the batch.
type Cursor struct {
	RowID     string
	ColumnKey string
}

// Batch is the single-writer aggregate over all rows of one import.
type Batch struct {
	id        string
	fileName  string
	createdAt time.Time
	columns   []model.ColumnDef
	rows      []*model.Row
	byID      map[string]*model.Row
	ruleSet   *rules.RuleSet
	history   []model.HistoryEntry
	redoStack []model.HistoryEntry
	active    *Cursor
	mu        sync.Mutex
}

// New creates an empty batch bound to a rule set.
func New(fileName string, columns []model.ColumnDef, ruleSet *rules.RuleSet) *Batch {
	return &Batch{
		id:        uuid.NewString(),
		fileName:  fileName,
		createdAt: time.Now(),
		columns:   columns,
		byID:      make(map[string]*model.Row),
		ruleSet:   ruleSet,
	}
}

// Restore rebuilds a batch from a persisted snapshot.
func Restore(snapshot *model.BatchSnapshot, ruleSet *rules.RuleSet, history []model.HistoryEntry) *Batch {
	b := &Batch{
		id:        snapshot.ID,
		fileName:  snapshot.FileName,
		createdAt: snapshot.CreatedAt,
		columns:   snapshot.Columns,
		byID:      make(map[string]*model.Row, len(snapshot.Rows)),
		ruleSet:   ruleSet,
		history:   history,
	}
	for i := range snapshot.Rows {
		row := snapshot.Rows[i]
		b.rows = append(b.rows, &row)
		b.byID[row.ID] = &row
	}
	return b
}

// ID returns the batch identifier.
func (b *Batch) ID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// FileName returns the name of the imported source file.
func (b *Batch) FileName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fileName
}

// Columns returns the batch's column definitions.
func (b *Batch) Columns() []model.ColumnDef {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.ColumnDef, len(b.columns))
	copy(out, b.columns)
	return out
}

// RowCount returns the number of rows in the batch.
func (b *Batch) RowCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// Row returns a copy of the row with the given ID.
func (b *Batch) Row(rowID string) (*model.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.byID[rowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrRowNotFound, rowID)
	}
	return copyRow(row), nil
}

// Rows returns copies of all rows in import order.
func (b *Batch) Rows() []*model.Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*model.Row, len(b.rows))
	for i, row := range b.rows {
		out[i] = copyRow(row)
	}
	return out
}

// FilterRows returns copies of the rows that have at least one cell in the
// given state. Skipped cells never qualify a row.
func (b *Batch) FilterRows(state model.CellState) []*model.Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []*model.Row
	for _, row := range b.rows {
		for _, status := range row.Status {
			if status.State == model.StateSkipped {
				continue
			}
			if status.State == state {
				out = append(out, copyRow(row))
				break
			}
		}
	}
	return out
}

// Snapshot renders the batch in its persistable form.
func (b *Batch) Snapshot() *model.BatchSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := &model.BatchSnapshot{
		ID:        b.id,
		FileName:  b.fileName,
		CreatedAt: b.createdAt,
		Columns:   append([]model.ColumnDef(nil), b.columns...),
		Rows:      make([]model.Row, 0, len(b.rows)),
	}
	for _, row := range b.rows {
		snapshot.Rows = append(snapshot.Rows, *copyRow(row))
	}
	return snapshot
}

// RuleSet returns the rule set the batch was imported with.
func (b *Batch) RuleSet() *rules.RuleSet {
	return b.ruleSet
}

// Reset drops all rows, history and cursor state.
func (b *Batch) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rows = nil
	b.byID = make(map[string]*model.Row)
	b.history = nil
	b.redoStack = nil
	b.active = nil
}

// row looks up a live row pointer. Callers must hold b.mu.
func (b *Batch) row(rowID string) (*model.Row, error) {
	row, ok := b.byID[rowID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrRowNotFound, rowID)
	}
	return row, nil
}

// column verifies a column key exists. Callers must hold b.mu.
func (b *Batch) column(columnKey string) error {
	for _, col := range b.columns {
		if col.Key == columnKey {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", common.ErrColumnNotFound, columnKey)
}

func copyRow(row *model.Row) *model.Row {
	out := *row
	out.Data = make(map[string]string, len(row.Data))
	for k, v := range row.Data {
		out.Data[k] = v
	}
	out.Status = make(map[string]model.CellStatus, len(row.Status))
	for k, v := range row.Status {
		out.Status[k] = v
	}
	return &out
}
