// Package importer decodes tabular source files into the raw row form the
// grid builds batches from. Only the decode and column-mapping concerns live
// here; cleaning and validation happen downstream in the rule engine.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rytflow/rytflow/internal/rules"
)

// ParsedFile is the decoded form of one uploaded file.
type ParsedFile struct {
	FileName string
	Headers  []string
	Rows     []map[string]string
}

// RowCount returns the number of data rows (excluding the header).
func (p *ParsedFile) RowCount() int {
	return len(p.Rows)
}

// SampleRows returns up to count rows for mapping previews.
func (p *ParsedFile) SampleRows(count int) []map[string]string {
	if count > len(p.Rows) {
		count = len(p.Rows)
	}
	return p.Rows[:count]
}

// Parser decodes delimited payment files.
type Parser struct{}

// NewParser creates a new file parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile decodes the named file from reader. The extension selects the
// decoder; only CSV is supported.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader, fileName string) (*ParsedFile, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return p.parseCSV(reader, fileName)
	default:
		return nil, fmt.Errorf("unsupported file type %q: only .csv files are supported", ext)
	}
}

func (p *Parser) parseCSV(reader io.Reader, fileName string) (*ParsedFile, error) {
	r := csv.NewReader(reader)
	r.TrimLeadingSpace = true
	// Source exports are often ragged; tolerate short records and pad them.
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file %s is empty", fileName)
	}

	headers := make([]string, 0, len(records[0]))
	for _, h := range records[0] {
		headers = append(headers, strings.TrimSpace(h))
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = strings.TrimSpace(record[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}

	slog.Info("CSV parsed",
		"file", fileName,
		"headers", len(headers),
		"rows", len(rows))

	return &ParsedFile{
		FileName: fileName,
		Headers:  headers,
		Rows:     rows,
	}, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// DetectMappings guesses a source-column to target-field mapping by matching
// normalized header names against the rule set's keys and labels. Unmatched
// headers are left out and the caller can fill them in interactively.
func DetectMappings(headers []string, ruleSet *rules.RuleSet) map[string]string {
	mappings := make(map[string]string)
	claimed := make(map[string]bool)

	for _, header := range headers {
		normalized := normalizeHeader(header)
		if normalized == "" {
			continue
		}
		for _, col := range ruleSet.TargetSchema() {
			if claimed[col.Key] {
				continue
			}
			if normalized == normalizeHeader(col.Key) || normalized == normalizeHeader(col.Label) {
				mappings[header] = col.Key
				claimed[col.Key] = true
				break
			}
		}
	}

	// Second pass with looser matching for any fields still unclaimed.
	for _, header := range headers {
		if _, done := mappings[header]; done {
			continue
		}
		normalized := normalizeHeader(header)
		for _, col := range ruleSet.TargetSchema() {
			if claimed[col.Key] {
				continue
			}
			key := normalizeHeader(col.Key)
			label := normalizeHeader(col.Label)
			if strings.Contains(normalized, key) || strings.Contains(label, normalized) {
				mappings[header] = col.Key
				claimed[col.Key] = true
				break
			}
		}
	}

	return mappings
}

func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(header) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
