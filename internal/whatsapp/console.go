package whatsapp

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ConsoleSender writes messages to a writer instead of sending them. It is
// the dry-run channel used when no Twilio credentials are configured.
type ConsoleSender struct {
	writer io.Writer
}

// NewConsoleSender creates a sender that prints to the given writer.
func NewConsoleSender(writer io.Writer) *ConsoleSender {
	return &ConsoleSender{writer: writer}
}

// Send prints the message and fabricates a message SID.
func (s *ConsoleSender) Send(ctx context.Context, to, body string) (*SendResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fmt.Fprintf(s.writer, "--- dry-run message to %s ---\n%s\n---\n", to, body)
	return &SendResult{MessageSID: "dry-" + uuid.NewString(), Success: true}, nil
}
