package model

// Row represents a single imported record and the review status of each of
// its cells. Rows are created in bulk at import time and mutated only through
// the grid.Batch transition methods.
type Row struct {
	Data             map[string]string     `json:"data"`
	Status           map[string]CellStatus `json:"status"`
	ID               string                `json:"id"`
	PhoneNumber      string                `json:"phone_number,omitempty"`
	OutboundThreadID string                `json:"outbound_thread_id,omitempty"`
	RowIndex         int                   `json:"row_index"`
	Locked           bool                  `json:"locked"`
}

// StatusFor returns the cell status for a column, defaulting to clean when
// the rule engine recorded nothing for it.
func (r *Row) StatusFor(columnKey string) CellStatus {
	if s, ok := r.Status[columnKey]; ok {
		return s
	}
	return CleanStatus()
}

// NeedsReview reports whether any cell in the row still needs attention.
func (r *Row) NeedsReview() bool {
	for _, s := range r.Status {
		if s.NeedsReview() {
			return true
		}
	}
	return false
}

// ColumnDef describes one logical column of the batch.
type ColumnDef struct {
	Key    string `json:"key"`
	Header string `json:"header"`
}
