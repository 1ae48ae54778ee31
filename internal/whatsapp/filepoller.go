package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FilePoller reads form submissions from a JSON file. It exists for operating
// without a webhook endpoint: an operator exports the collected form replies
// and feeds the file to the poll cycle. The file holds an array of
// Submission objects.
type FilePoller struct {
	path string
}

// NewFilePoller creates a poller over the given submissions file.
func NewFilePoller(path string) *FilePoller {
	return &FilePoller{path: path}
}

// Poll decodes the whole file on every call. Deduplication is the
// consumer's job, so rereading the same file is safe.
func (p *FilePoller) Poll(ctx context.Context) ([]Submission, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read submissions file: %w", err)
	}

	var submissions []Submission
	if err := json.Unmarshal(data, &submissions); err != nil {
		return nil, fmt.Errorf("failed to decode submissions file: %w", err)
	}
	return submissions, nil
}
