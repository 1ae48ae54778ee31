package model

import "time"

// BatchSnapshot is the persistable form of one imported batch. The live
// aggregate lives in grid.Batch; snapshots exist so a batch can round-trip
// through storage between CLI invocations.
type BatchSnapshot struct {
	CreatedAt time.Time   `json:"created_at"`
	ID        string      `json:"id"`
	FileName  string      `json:"file_name"`
	Columns   []ColumnDef `json:"columns"`
	Rows      []Row       `json:"rows"`
}
