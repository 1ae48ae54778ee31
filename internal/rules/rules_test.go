package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameTransform(t *testing.T) {
	field := DefaultRuleSet().RuleByKey("name")

	tests := []struct {
		name        string
		input       string
		want        string
		wantChanged bool
	}{
		{name: "honorific and lowercase", input: "mr. ali ahmad", want: "Ali Ahmad", wantChanged: true},
		{name: "already clean", input: "Ali Ahmad", want: "Ali Ahmad", wantChanged: false},
		{name: "lowercase words", input: "sarah lee", want: "Sarah Lee", wantChanged: true},
		{name: "malay particle stays lowercase", input: "Ahmad bin Hassan", want: "Ahmad bin Hassan", wantChanged: false},
		{name: "particle casing fixed", input: "ahmad BIN hassan", want: "Ahmad bin Hassan", wantChanged: true},
		{name: "corporate suffix uppercased", input: "evil corp sdn bhd", want: "Evil Corp SDN BHD", wantChanged: true},
		{name: "dr honorific", input: "Dr. Lim Wei Ming", want: "Lim Wei Ming", wantChanged: true},
		{name: "empty", input: "", want: "", wantChanged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(field, tt.input)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.wantChanged, got.Changed)
		})
	}
}

func TestAmountTransform(t *testing.T) {
	field := DefaultRuleSet().RuleByKey("amount")

	tests := []struct {
		name        string
		input       string
		want        string
		wantChanged bool
	}{
		{name: "rm prefix and comma", input: "rm 5,000", want: "5000.00", wantChanged: true},
		{name: "uppercase RM", input: "RM 3,500", want: "3500.00", wantChanged: true},
		{name: "dollar sign", input: "$1200", want: "1200.00", wantChanged: true},
		{name: "already normalized", input: "5000.00", want: "5000.00", wantChanged: false},
		{name: "extra precision rounded", input: "10.456", want: "10.46", wantChanged: true},
		{name: "unparseable passes through", input: "abc", want: "abc", wantChanged: false},
		{name: "empty", input: "", want: "", wantChanged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(field, tt.input)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.wantChanged, got.Changed)
		})
	}
}

func TestAmountValidation(t *testing.T) {
	rs := DefaultRuleSet()

	tests := []struct {
		name         string
		amount       string
		wantSeverity Severity
		wantValid    bool
	}{
		{name: "normal amount", amount: "5000.00", wantValid: true},
		{name: "invalid format", amount: "abc", wantSeverity: SeverityRed},
		{name: "zero", amount: "0.00", wantSeverity: SeverityRed},
		{name: "negative", amount: "-50.00", wantSeverity: SeverityRed},
		{name: "over reporting threshold", amount: "1000000.00", wantSeverity: SeverityYellow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := map[string]string{
				"name":          "Ali Ahmad",
				"amount":        tt.amount,
				"accountNumber": "1234567890",
			}
			result := ProcessRow(row, rs)

			var amountErr *FieldError
			for i := range result.Errors {
				if result.Errors[i].Column == "amount" {
					amountErr = &result.Errors[i]
				}
			}

			if tt.wantValid {
				assert.Nil(t, amountErr)
				return
			}
			require.NotNil(t, amountErr)
			assert.Equal(t, tt.wantSeverity, amountErr.Severity)
		})
	}
}

func TestAccountNumberTransform(t *testing.T) {
	field := DefaultRuleSet().RuleByKey("accountNumber")

	got := Transform(field, "1234-5678-9012")
	assert.Equal(t, "123456789012", got.Value)
	assert.True(t, got.Changed)

	// Letters are not stripped, the value surfaces in validation instead.
	got = Transform(field, "12AB34")
	assert.Equal(t, "12AB34", got.Value)
	assert.False(t, got.Changed)
}

func TestBankCodeNormalization(t *testing.T) {
	field := DefaultRuleSet().RuleByKey("bank")

	tests := []struct {
		input string
		want  string
	}{
		{input: "maybank", want: "MBB"},
		{input: "Maybank", want: "MBB"},
		{input: "public bank", want: "PBB"},
		{input: "CIMB", want: "CIMB"},
		{input: "hong leong", want: "HLB"},
		{input: "mystery bank", want: "mystery bank"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Transform(field, tt.input)
			assert.Equal(t, tt.want, got.Value)
		})
	}

	// Unknown codes surface as a low-severity validation error.
	result := ProcessRow(map[string]string{
		"name":          "Ali Ahmad",
		"amount":        "100.00",
		"accountNumber": "1234567890",
		"bank":          "mystery bank",
	}, DefaultRuleSet())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bank", result.Errors[0].Column)
	assert.Equal(t, "Unknown bank code", result.Errors[0].Message)
	assert.Equal(t, SeverityYellow, result.Errors[0].Severity)
}

func TestDateTransform(t *testing.T) {
	field := DefaultRuleSet().RuleByKey("date")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already iso", input: "2024-03-15", want: "2024-03-15"},
		{name: "iso with slashes", input: "2024/03/15", want: "2024-03-15"},
		{name: "day first", input: "15-03-2024", want: "2024-03-15"},
		{name: "day first slashes", input: "15/03/2024", want: "2024-03-15"},
		{name: "ambiguous reads day first", input: "03-04-2024", want: "2024-04-03"},
		{name: "month first only when day first impossible", input: "12-25-2024", want: "2024-12-25"},
		{name: "written month", input: "Mar 15, 2024", want: "2024-03-15"},
		{name: "nonsense passes through", input: "not a date", want: "not a date"},
		{name: "invalid calendar date passes through", input: "31-02-2024", want: "31-02-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(field, tt.input)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestPhoneTransform(t *testing.T) {
	field := DefaultRuleSet().RuleByKey("phone")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "local zero prefix", input: "0123456789", want: "+60123456789"},
		{name: "already e164", input: "+60123456789", want: "+60123456789"},
		{name: "separators stripped", input: "012-345 6789", want: "+60123456789"},
		{name: "bare digits", input: "123456789", want: "+60123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(field, tt.input)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestProcessRowMissingRequired(t *testing.T) {
	rs := DefaultRuleSet()

	result := ProcessRow(map[string]string{
		"name":          "",
		"amount":        "750.00",
		"accountNumber": "6666555544449999",
	}, rs)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "name", result.Errors[0].Column)
	assert.Equal(t, "Missing required field: Payee Name", result.Errors[0].Message)
	assert.Equal(t, SeverityRed, result.Errors[0].Severity)
}

func TestProcessRowScenario(t *testing.T) {
	// The canonical messy row: every field needs a different fix.
	rs := DefaultRuleSet()
	row := map[string]string{
		"name":          "mr. ali ahmad",
		"amount":        "rm 5,000",
		"bank":          "maybank",
		"accountNumber": "1234-5678-9012",
		"date":          "15-03-2024",
	}

	result := ProcessRow(row, rs)

	assert.Empty(t, result.Errors)
	require.Len(t, result.Changes, 5)

	byColumn := make(map[string]Change)
	for _, c := range result.Changes {
		byColumn[c.Column] = c
	}
	assert.Equal(t, "Ali Ahmad", byColumn["name"].Cleaned)
	assert.Equal(t, "5000.00", byColumn["amount"].Cleaned)
	assert.Equal(t, "MBB", byColumn["bank"].Cleaned)
	assert.Equal(t, "123456789012", byColumn["accountNumber"].Cleaned)
	assert.Equal(t, "2024-03-15", byColumn["date"].Cleaned)

	// The input row is never mutated.
	assert.Equal(t, "mr. ali ahmad", row["name"])
}

func TestProcessRowDeterministic(t *testing.T) {
	rs := DefaultRuleSet()
	row := map[string]string{
		"name":          "sarah lee",
		"amount":        "RM 3,500",
		"bank":          "public bank",
		"accountNumber": "7777888899990000",
		"date":          "15-03-2024",
	}

	first := ProcessRow(row, rs)
	second := ProcessRow(row, rs)
	assert.Equal(t, first, second)
}

func TestTransformIdempotent(t *testing.T) {
	// Applying a transform to its own output is a no-op for every behavior.
	rs := DefaultRuleSet()
	row := map[string]string{
		"name":          "mr. ali ahmad",
		"amount":        "rm 5,000",
		"bank":          "maybank",
		"accountNumber": "1234-5678-9012",
		"date":          "15-03-2024",
		"phone":         "0123456789",
	}

	result := ProcessRow(row, rs)
	for key, cleaned := range result.Cleaned {
		field := rs.RuleByKey(key)
		if field == nil {
			continue
		}
		again := Transform(field, cleaned)
		assert.False(t, again.Changed, "transform of %s output %q changed again to %q", key, cleaned, again.Value)
	}
}
