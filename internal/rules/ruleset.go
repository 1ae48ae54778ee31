package rules

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// MalaysianBankCodes lists the canonical three-letter codes accepted by the
// default payroll rule set, with the spellings seen in real import files.
var MalaysianBankCodes = []EnumOption{
	{Value: "MBB", Label: "Maybank", Aliases: []string{"maybank", "maybank berhad", "malayan banking"}},
	{Value: "CIMB", Label: "CIMB Bank", Aliases: []string{"cimb", "cimb bank", "cimb bank berhad"}},
	{Value: "PBB", Label: "Public Bank", Aliases: []string{"public bank", "public bank berhad", "pbb"}},
	{Value: "RHB", Label: "RHB Bank", Aliases: []string{"rhb", "rhb bank", "rhb bank berhad"}},
	{Value: "HLB", Label: "Hong Leong Bank", Aliases: []string{"hong leong", "hong leong bank", "hlb", "hlbb"}},
	{Value: "AMB", Label: "AmBank", Aliases: []string{"ambank", "am bank", "ambank berhad"}},
	{Value: "BIMB", Label: "Bank Islam", Aliases: []string{"bank islam", "bimb", "bank islam malaysia"}},
	{Value: "BSN", Label: "BSN", Aliases: []string{"bsn", "bank simpanan nasional"}},
	{Value: "OCBC", Label: "OCBC Bank", Aliases: []string{"ocbc", "ocbc bank"}},
	{Value: "UOB", Label: "UOB Bank", Aliases: []string{"uob", "uob bank", "united overseas bank"}},
	{Value: "HSBC", Label: "HSBC Bank", Aliases: []string{"hsbc", "hsbc bank"}},
	{Value: "SCB", Label: "Standard Chartered", Aliases: []string{"standard chartered", "scb", "stanchart"}},
}

// DefaultRuleSet returns the built-in Malaysian payroll rule set.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Name: "Malaysian Payroll",
		Fields: []FieldRule{
			{
				Key:       "name",
				Label:     "Payee Name",
				Type:      TypeString,
				Behavior:  BehaviorName,
				Required:  true,
				Format:    "Title Case",
				MinLength: 2,
			},
			{
				Key:           "amount",
				Label:         "Amount (RM)",
				Type:          TypeNumber,
				Required:      true,
				Format:        "0000.00 (no currency)",
				DecimalPlaces: 2,
			},
			{
				Key:      "accountNumber",
				Label:    "Account Number",
				Type:     TypeString,
				Behavior: BehaviorAccountNumber,
				Required: true,
				Format:   "Digits only (no dashes)",
			},
			{
				Key:     "bank",
				Label:   "Bank Code",
				Type:    TypeEnum,
				Format:  "3-letter code (MBB, PBB)",
				Options: MalaysianBankCodes,
			},
			{
				Key:    "date",
				Label:  "Date",
				Type:   TypeDate,
				Format: "YYYY-MM-DD",
			},
			{
				Key:          "phone",
				Label:        "Phone Number",
				Type:         TypePhone,
				Format:       "+60XXXXXXXXX",
				PhoneCountry: "MY",
			},
		},
	}
}

// Load reads a rule set from a YAML file. Rule sets are immutable once
// loaded for a batch.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set: %w", err)
	}

	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	if err := validateRuleSet(&rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

func validateRuleSet(rs *RuleSet) error {
	if rs.Name == "" {
		return fmt.Errorf("rule set has no name")
	}
	if len(rs.Fields) == 0 {
		return fmt.Errorf("rule set %q has no fields", rs.Name)
	}

	seen := make(map[string]bool, len(rs.Fields))
	for i := range rs.Fields {
		field := &rs.Fields[i]
		if field.Key == "" {
			return fmt.Errorf("rule set %q: field %d has no key", rs.Name, i)
		}
		if seen[field.Key] {
			return fmt.Errorf("rule set %q: duplicate field key %q", rs.Name, field.Key)
		}
		seen[field.Key] = true
		if field.Behavior != "" {
			if _, ok := behaviors[field.Behavior]; !ok {
				return fmt.Errorf("rule set %q: field %q names unknown behavior %q", rs.Name, field.Key, field.Behavior)
			}
		}
		if field.Type == TypeEnum && len(field.Options) == 0 {
			return fmt.Errorf("rule set %q: enum field %q has no options", rs.Name, field.Key)
		}
	}
	return nil
}

// TargetColumn is the import-boundary description of one target field.
type TargetColumn struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Rules    string `json:"rules,omitempty"`
	Required bool   `json:"required"`
}

// TargetSchema renders the rule set as the flat schema handed to the import
// boundary (and to any external column-mapping service).
func (rs *RuleSet) TargetSchema() []TargetColumn {
	schema := make([]TargetColumn, 0, len(rs.Fields))
	for i := range rs.Fields {
		field := &rs.Fields[i]
		schema = append(schema, TargetColumn{
			Key:      field.Key,
			Label:    field.Label,
			Type:     string(field.Type),
			Required: field.Required,
			Rules:    field.Format,
		})
	}
	return schema
}
