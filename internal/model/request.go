package model

import "time"

// RequestStatus tracks the lifecycle of an outbound reconciliation request.
type RequestStatus string

// Request status constants.
const (
	RequestPending RequestStatus = "pending"
	RequestReplied RequestStatus = "replied"
	RequestExpired RequestStatus = "expired"
)

// WhatsAppRequest records one outbound request for missing or disputed data.
// While a request is pending its row is locked; the reconcile coordinator is
// the only writer of these records.
type WhatsAppRequest struct {
	SentAt         time.Time     `json:"sent_at"`
	RepliedAt      *time.Time    `json:"replied_at,omitempty"`
	ID             string        `json:"id"`
	RowID          string        `json:"row_id"`
	RecipientName  string        `json:"recipient_name"`
	RecipientPhone string        `json:"recipient_phone"`
	TargetFields   []string      `json:"target_fields"`
	Status         RequestStatus `json:"status"`
	FormLink       string        `json:"form_link,omitempty"`
	MessageSID     string        `json:"message_sid,omitempty"`
}

// Targets reports whether the request covers exactly the given field set,
// ignoring order. Request issuance is idempotent per (row, field set).
func (r *WhatsAppRequest) Targets(fields []string) bool {
	if len(r.TargetFields) != len(fields) {
		return false
	}
	seen := make(map[string]bool, len(r.TargetFields))
	for _, f := range r.TargetFields {
		seen[f] = true
	}
	for _, f := range fields {
		if !seen[f] {
			return false
		}
	}
	return true
}
