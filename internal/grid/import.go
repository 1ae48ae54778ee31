package grid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rytflow/rytflow/internal/common"
	"github.com/rytflow/rytflow/internal/dedupe"
	"github.com/rytflow/rytflow/internal/model"
	"github.com/rytflow/rytflow/internal/rules"
)

// DefaultPhoneFallback is used for rows that arrive without a contact
// number, so reconciliation requests always have somewhere to go.
const DefaultPhoneFallback = "+60138509983"

// suggestionConfidence is attached to suggestions produced by the rule
// engine's deterministic transforms.
const suggestionConfidence = 0.95

// ImportInput carries one decoded batch across the import boundary.
type ImportInput struct {
	FileName string
	// RawRows are the decoded source records, keyed by source column name.
	RawRows []map[string]string
	// Mappings maps source column names to target field keys.
	Mappings map[string]string
}

// NewFromImport builds a batch from raw imported rows: each row is mapped
// onto the rule set's target schema, run through the rule engine, and
// checked against the duplicate index. The resulting cell statuses are the
// initial states of the review state machine.
func NewFromImport(input ImportInput, ruleSet *rules.RuleSet, index *dedupe.Index) (*Batch, error) {
	if ruleSet == nil || len(ruleSet.Fields) == 0 {
		return nil, fmt.Errorf("%w: rule set", common.ErrInvalidConfig)
	}

	columns := make([]model.ColumnDef, 0, len(ruleSet.Fields))
	for _, col := range ruleSet.TargetSchema() {
		columns = append(columns, model.ColumnDef{Key: col.Key, Header: col.Label})
	}

	inverse := make(map[string]string, len(input.Mappings))
	for src, tgt := range input.Mappings {
		if tgt != "" {
			inverse[tgt] = src
		}
	}

	b := New(input.FileName, columns, ruleSet)

	for i, rawRow := range input.RawRows {
		row := buildRow(rawRow, i+1, inverse, ruleSet, index)
		b.rows = append(b.rows, row)
		b.byID[row.ID] = row
	}

	return b, nil
}

func buildRow(rawRow map[string]string, rowIndex int, inverse map[string]string, ruleSet *rules.RuleSet, index *dedupe.Index) *model.Row {
	row := &model.Row{
		ID:       uuid.NewString(),
		RowIndex: rowIndex,
		Data:     make(map[string]string),
		Status:   make(map[string]model.CellStatus),
	}

	for _, field := range ruleSet.Fields {
		source, mapped := inverse[field.Key]
		if !mapped {
			source = field.Key
		}
		row.Data[field.Key] = rawRow[source]
	}

	phone := row.Data["phone"]
	if phone == "" {
		phone = DefaultPhoneFallback
		row.Data["phone"] = phone
	}
	if phoneRule := ruleSet.RuleByKey("phone"); phoneRule != nil {
		phone = rules.Transform(phoneRule, phone).Value
	}
	row.PhoneNumber = phone

	result := rules.ProcessRow(row.Data, ruleSet)

	for _, change := range result.Changes {
		row.Status[change.Column] = model.SuggestionStatus(
			row.Data[change.Column],
			change.Cleaned,
			suggestionConfidence,
			change.Reason,
			model.SourceAI,
		)
	}

	for _, fieldErr := range result.Errors {
		if _, exists := row.Status[fieldErr.Column]; exists {
			continue
		}
		if fieldErr.Severity == rules.SeverityRed {
			source := model.SourceAI
			if strings.TrimSpace(result.Cleaned[fieldErr.Column]) == "" {
				source = model.SourceMissing
			}
			row.Status[fieldErr.Column] = model.CriticalStatus(fieldErr.Message, source)
			continue
		}
		row.Status[fieldErr.Column] = model.CellStatus{
			State:      model.StateAISuggestion,
			Message:    fieldErr.Message,
			Suggestion: fieldErr.Suggestion,
			Confidence: fieldErr.Confidence,
			Source:     model.SourceAI,
		}
	}

	// A row with several problems usually means the source record is
	// unreliable as a whole; flag the untouched cells for out-of-band
	// confirmation too. The phone column is exempt, it is the channel we
	// reach the payee on.
	if len(result.Errors) >= 2 {
		for key := range row.Data {
			if key == "phone" {
				continue
			}
			if _, exists := row.Status[key]; !exists {
				row.Status[key] = model.CriticalStatus("Request via WhatsApp form", model.SourceMissing)
			}
		}
	}

	if index != nil {
		name := row.Data["name"]
		amount := firstNonEmpty(result.Cleaned["amount"], row.Data["amount"])
		account := firstNonEmpty(result.Cleaned["accountNumber"], row.Data["accountNumber"])

		if match, checked := index.Check(name, amount, account, row.ID); checked && match != nil {
			// A duplicate hit overrides whatever the rule engine
			// concluded about the amount cell.
			row.Status["amount"] = model.DuplicateStatus(
				fmt.Sprintf("Potential duplicate: Same payee+amount paid on %s", match.MatchedAt.Format("2 Jan 2006")),
				&model.DuplicateInfo{
					MatchedRowID: match.MatchedRowID,
					MatchedAt:    match.MatchedAt,
					MatchedData:  match.MatchedData,
					Similarity:   match.Similarity,
				},
			)
		}
	}

	return row
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
