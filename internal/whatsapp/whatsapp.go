// Package whatsapp provides the outbound notification channel: phone number
// normalization, the Sender and Poller boundary contracts, and a Twilio
// implementation of both. The reconciliation core never talks to the network
// itself; it consumes these as supplied effects.
package whatsapp

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// SendResult reports the outcome of one outbound message.
type SendResult struct {
	MessageSID string
	Success    bool
}

// Sender delivers a rendered message to a phone address.
type Sender interface {
	Send(ctx context.Context, to, body string) (*SendResult, error)
}

// Submission is one inbound reply discovered by polling: either a single
// targeted field or a whole form's worth of data for a row.
type Submission struct {
	SubmittedAt time.Time         `json:"submittedAt,omitempty"`
	RequestID   string            `json:"requestId,omitempty"`
	RowID       string            `json:"rowId,omitempty"`
	Data        map[string]string `json:"data"`
}

// Poller returns newly-submitted replies. Redelivery of already-returned
// submissions is allowed; consumers must deduplicate by request ID.
type Poller interface {
	Poll(ctx context.Context) ([]Submission, error)
}

var countryCodes = map[string]string{
	"MY": "+60",
	"SG": "+65",
	"ID": "+62",
	"TH": "+66",
	"PH": "+63",
	"VN": "+84",
	"US": "+1",
	"UK": "+44",
	"AU": "+61",
	"IN": "+91",
	"CN": "+86",
	"JP": "+81",
	"KR": "+82",
}

var phoneSeparators = regexp.MustCompile(`[\s\-().]`)
var bareNumber = regexp.MustCompile(`^\d{9,15}$`)

// NormalizePhone converts a free-form phone number to E.164, using the
// default country for numbers without a country prefix. Returns "" when the
// number cannot be normalized.
func NormalizePhone(phone, defaultCountry string) string {
	if phone == "" {
		return ""
	}

	cleaned := phoneSeparators.ReplaceAllString(phone, "")
	cleaned = strings.TrimPrefix(cleaned, "whatsapp:")

	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "00") {
		return "+" + cleaned[2:]
	}

	code, ok := countryCodes[defaultCountry]
	if !ok {
		code = "+60"
	}

	if strings.HasPrefix(cleaned, "0") {
		return code + cleaned[1:]
	}
	if bareNumber.MatchString(cleaned) {
		return code + cleaned
	}
	return ""
}
