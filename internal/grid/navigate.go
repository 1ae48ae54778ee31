package grid

import "github.com/rytflow/rytflow/internal/model"

// ActiveCell returns the current cursor, or nil when none is set.
func (b *Batch) ActiveCell() *Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active == nil {
		return nil
	}
	c := *b.active
	return &c
}

// SetActiveCell moves the cursor. A nil cursor clears it.
func (b *Batch) SetActiveCell(cursor *Cursor) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cursor == nil {
		b.active = nil
		return
	}
	c := *cursor
	b.active = &c
}

// NextIssue scans row-major order starting just after the cursor, wrapping
// to the beginning, for the next cell that needs review. The scan covers
// every cell at most once, so it always terminates; nil means the batch has
// no outstanding issues. The cursor is advanced to the returned cell.
func (b *Batch) NextIssue() *Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()

	startRow, startCol := 0, 0
	if b.active != nil {
		for i, row := range b.rows {
			if row.ID == b.active.RowID {
				startRow = i
				break
			}
		}
		for j, col := range b.columns {
			if col.Key == b.active.ColumnKey {
				startCol = j + 1
				break
			}
		}
		if startCol >= len(b.columns) {
			startCol = 0
			startRow++
		}
	}

	total := len(b.rows) * len(b.columns)
	if total == 0 {
		b.active = nil
		return nil
	}

	pos := startRow*len(b.columns) + startCol
	for scanned := 0; scanned < total; scanned++ {
		i := (pos + scanned) % total
		row := b.rows[i/len(b.columns)]
		col := b.columns[i%len(b.columns)]

		if row.StatusFor(col.Key).NeedsReview() {
			cursor := Cursor{RowID: row.ID, ColumnKey: col.Key}
			b.active = &cursor
			c := cursor
			return &c
		}
	}

	b.active = nil
	return nil
}

// ReviewCounts breaks the outstanding review backlog down by state.
type ReviewCounts struct {
	Suggestions int
	Duplicates  int
	Critical    int
	Skipped     int
}

// Total returns the number of cells still needing review. Skipped cells are
// excluded.
func (c ReviewCounts) Total() int {
	return c.Suggestions + c.Duplicates + c.Critical
}

// NeedsReview counts the cells in each reviewable state across the batch.
func (b *Batch) NeedsReview() ReviewCounts {
	b.mu.Lock()
	defer b.mu.Unlock()

	var counts ReviewCounts
	for _, row := range b.rows {
		for _, col := range b.columns {
			switch row.StatusFor(col.Key).State {
			case model.StateAISuggestion:
				counts.Suggestions++
			case model.StateDuplicate:
				counts.Duplicates++
			case model.StateCritical:
				counts.Critical++
			case model.StateSkipped:
				counts.Skipped++
			}
		}
	}
	return counts
}

// Completion reports batch progress as the fraction of cells not awaiting
// review, so partial fixes within a row move the number. Returns a value in
// [0, 1]; an empty batch counts as complete.
func (b *Batch) Completion() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := len(b.rows) * len(b.columns)
	if total == 0 {
		return 1.0
	}

	pending := 0
	for _, row := range b.rows {
		for _, col := range b.columns {
			if row.StatusFor(col.Key).NeedsReview() {
				pending++
			}
		}
	}
	return float64(total-pending) / float64(total)
}

// ExportRecords renders the current data of every exportable row as a flat
// record in column order. Rows containing a skipped cell are excluded from
// export; serialization is the caller's concern.
func (b *Batch) ExportRecords() []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]string
	for _, row := range b.rows {
		skipped := false
		for _, status := range row.Status {
			if status.State == model.StateSkipped {
				skipped = true
				break
			}
		}
		if skipped {
			continue
		}

		record := make(map[string]string, len(b.columns))
		for _, col := range b.columns {
			record[col.Key] = row.Data[col.Key]
		}
		out = append(out, record)
	}
	return out
}
