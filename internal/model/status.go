// Package model defines the core domain models used throughout the application.
package model

import "time"

// CellState identifies where a cell sits in the review lifecycle.
type CellState string

// Cell state constants.
const (
	StateClean        CellState = "clean"
	StateAISuggestion CellState = "ai-suggestion"
	StateDuplicate    CellState = "duplicate"
	StateCritical     CellState = "critical"
	StateLiveUpdate   CellState = "live-update"
	StateValidated    CellState = "validated"
	StateSkipped      CellState = "skipped"
)

// StatusSource records which subsystem produced a cell status.
type StatusSource string

// Status source constants.
const (
	SourceAI        StatusSource = "ai"
	SourceDuplicate StatusSource = "duplicate"
	SourceManual    StatusSource = "manual"
	SourceMissing   StatusSource = "missing"
	SourcePDF       StatusSource = "pdf"
	SourceWhatsApp  StatusSource = "whatsapp"
)

// DuplicateInfo describes the historical transaction a cell matched against.
type DuplicateInfo struct {
	MatchedAt    time.Time `json:"matched_at"`
	MatchedRowID string    `json:"matched_row_id"`
	MatchedData  MatchData `json:"matched_data"`
	Similarity   float64   `json:"similarity"`
}

// MatchData holds the identifying fields of a matched historical transaction.
type MatchData struct {
	Name          string `json:"name"`
	Amount        string `json:"amount"`
	AccountNumber string `json:"account_number"`
}

// CellStatus is a tagged union over CellState. Only the fields valid for the
// active state are populated; use the constructors below rather than building
// one by hand so the payload stays consistent with the state.
type CellStatus struct {
	State         CellState      `json:"state"`
	OriginalValue string         `json:"original_value,omitempty"`
	Suggestion    string         `json:"suggestion,omitempty"`
	Confidence    float64        `json:"confidence,omitempty"`
	Message       string         `json:"message,omitempty"`
	Source        StatusSource   `json:"source,omitempty"`
	DuplicateInfo *DuplicateInfo `json:"duplicate_info,omitempty"`
}

// CleanStatus returns the status of a cell with no outstanding issues.
func CleanStatus() CellStatus {
	return CellStatus{State: StateClean}
}

// SuggestionStatus returns an ai-suggestion status carrying the proposed fix.
func SuggestionStatus(original, suggestion string, confidence float64, message string, source StatusSource) CellStatus {
	return CellStatus{
		State:         StateAISuggestion,
		OriginalValue: original,
		Suggestion:    suggestion,
		Confidence:    confidence,
		Message:       message,
		Source:        source,
	}
}

// CriticalStatus returns a critical status for a cell that blocks export.
func CriticalStatus(message string, source StatusSource) CellStatus {
	return CellStatus{State: StateCritical, Message: message, Source: source}
}

// DuplicateStatus returns a duplicate status carrying the match details.
func DuplicateStatus(message string, info *DuplicateInfo) CellStatus {
	return CellStatus{
		State:         StateDuplicate,
		Message:       message,
		Source:        SourceDuplicate,
		DuplicateInfo: info,
	}
}

// ValidatedStatus returns a validated status, retaining the source and an
// optional resolution message.
func ValidatedStatus(source StatusSource, message string) CellStatus {
	return CellStatus{State: StateValidated, Source: source, Message: message}
}

// LiveUpdateStatus marks a cell as just updated by an asynchronous reply.
func LiveUpdateStatus(source StatusSource) CellStatus {
	return CellStatus{State: StateLiveUpdate, Source: source}
}

// SkippedStatus marks a cell as deliberately excluded from export.
func SkippedStatus(message string) CellStatus {
	return CellStatus{State: StateSkipped, Source: SourceDuplicate, Message: message}
}

// NeedsReview reports whether the state counts toward the review backlog.
// Skipped cells are excluded but remain visible.
func (s CellStatus) NeedsReview() bool {
	switch s.State {
	case StateAISuggestion, StateDuplicate, StateCritical:
		return true
	default:
		return false
	}
}
