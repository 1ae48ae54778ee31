// Package rules implements the declarative field rule engine: per-field
// transforms and validations driven by a rule set that is pure data plus a
// registry of typed behaviors.
package rules

import "fmt"

// FieldType classifies a logical column.
type FieldType string

// Field type constants.
const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeDate    FieldType = "date"
	TypePhone   FieldType = "phone"
	TypeEnum    FieldType = "enum"
	TypeBoolean FieldType = "boolean"
)

// Severity grades a field error. Yellow errors are advisory; red errors
// block export until resolved.
type Severity string

// Severity constants.
const (
	SeverityYellow Severity = "yellow"
	SeverityRed    Severity = "red"
)

// EnumOption is one canonical value of an enum field plus its accepted
// spellings.
type EnumOption struct {
	Value   string   `yaml:"value" json:"value"`
	Label   string   `yaml:"label" json:"label"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// FieldRule describes one logical column. Rules are pure data; the behavior
// that transforms and validates values is resolved from the registry by the
// Behavior name (or, when empty, by the field type).
type FieldRule struct {
	Key           string       `yaml:"key" json:"key"`
	Label         string       `yaml:"label" json:"label"`
	Type          FieldType    `yaml:"type" json:"type"`
	Behavior      string       `yaml:"behavior,omitempty" json:"behavior,omitempty"`
	Format        string       `yaml:"format,omitempty" json:"format,omitempty"`
	PhoneCountry  string       `yaml:"phone_country,omitempty" json:"phone_country,omitempty"`
	Options       []EnumOption `yaml:"options,omitempty" json:"options,omitempty"`
	MinLength     int          `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	DecimalPlaces int          `yaml:"decimal_places,omitempty" json:"decimal_places,omitempty"`
	Required      bool         `yaml:"required" json:"required"`
}

// RuleSet is an ordered list of field rules for one batch. Order is
// evaluation order only; fields are evaluated independently.
type RuleSet struct {
	Name   string      `yaml:"name" json:"name"`
	Fields []FieldRule `yaml:"fields" json:"fields"`
}

// RuleByKey returns the rule for a column key, or nil when none is defined.
func (rs *RuleSet) RuleByKey(key string) *FieldRule {
	for i := range rs.Fields {
		if rs.Fields[i].Key == key {
			return &rs.Fields[i]
		}
	}
	return nil
}

// TransformResult is the outcome of applying a field transform.
type TransformResult struct {
	Value   string
	Message string
	Changed bool
}

// ValidationResult is the outcome of validating a (possibly transformed)
// field value.
type ValidationResult struct {
	Message    string
	Suggestion string
	Severity   Severity
	Confidence float64
	Valid      bool
}

// Change records a transform that altered a value during row processing.
type Change struct {
	Column   string
	Original string
	Cleaned  string
	Reason   string
}

// FieldError records a validation failure or a missing required field.
type FieldError struct {
	Column     string
	Message    string
	Suggestion string
	Severity   Severity
	Confidence float64
}

// RowResult aggregates the outcome of processing one row against a rule set.
type RowResult struct {
	Cleaned map[string]string
	Changes []Change
	Errors  []FieldError
}

// ProcessRow applies each field rule to the row: transform first, then the
// required check, then validation. Transforms only ever see the raw input
// for their own field and validators read the original row snapshot, so the
// result is deterministic and independent of rule order.
func ProcessRow(rowData map[string]string, ruleSet *RuleSet) RowResult {
	cleaned := make(map[string]string, len(rowData))
	for k, v := range rowData {
		cleaned[k] = v
	}

	var changes []Change
	var errors []FieldError

	for i := range ruleSet.Fields {
		field := &ruleSet.Fields[i]
		original := rowData[field.Key]
		current := original

		behavior := behaviorFor(field)

		if tr := behavior.Transform(field, current); tr.Changed {
			current = tr.Value
			reason := tr.Message
			if reason == "" {
				reason = "Auto-formatted"
			}
			changes = append(changes, Change{
				Column:   field.Key,
				Original: original,
				Cleaned:  current,
				Reason:   reason,
			})
		}

		cleaned[field.Key] = current

		if field.Required && isBlank(current) {
			errors = append(errors, FieldError{
				Column:   field.Key,
				Message:  fmt.Sprintf("Missing required field: %s", field.Label),
				Severity: SeverityRed,
			})
			continue
		}

		if current == "" {
			continue
		}

		if vr := behavior.Validate(field, current, rowData); !vr.Valid {
			severity := vr.Severity
			if severity == "" {
				severity = SeverityYellow
			}
			message := vr.Message
			if message == "" {
				message = "Validation failed"
			}
			errors = append(errors, FieldError{
				Column:     field.Key,
				Message:    message,
				Severity:   severity,
				Suggestion: vr.Suggestion,
				Confidence: vr.Confidence,
			})
		}
	}

	return RowResult{Cleaned: cleaned, Changes: changes, Errors: errors}
}

// Transform runs only the transform half of a field's behavior. Manual edits
// go through this so they are normalized exactly like imported values.
func Transform(field *FieldRule, value string) TransformResult {
	return behaviorFor(field).Transform(field, value)
}
