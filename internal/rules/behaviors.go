package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Behavior pairs the transform and validation logic for one kind of field.
// Implementations are stateless; all per-field configuration comes from the
// FieldRule.
type Behavior interface {
	Transform(field *FieldRule, value string) TransformResult
	Validate(field *FieldRule, value string, row map[string]string) ValidationResult
}

// Behavior registry names.
const (
	BehaviorName          = "name"
	BehaviorAmount        = "amount"
	BehaviorAccountNumber = "account-number"
	BehaviorEnum          = "enum"
	BehaviorDate          = "date"
	BehaviorPhone         = "phone"
	BehaviorNone          = "none"
)

var behaviors = map[string]Behavior{
	BehaviorName:          nameBehavior{},
	BehaviorAmount:        amountBehavior{},
	BehaviorAccountNumber: accountNumberBehavior{},
	BehaviorEnum:          enumBehavior{},
	BehaviorDate:          dateBehavior{},
	BehaviorPhone:         phoneBehavior{},
	BehaviorNone:          noopBehavior{},
}

// behaviorFor resolves a field's behavior from the registry, falling back to
// a type-based default when the rule does not name one.
func behaviorFor(field *FieldRule) Behavior {
	if field.Behavior != "" {
		if b, ok := behaviors[field.Behavior]; ok {
			return b
		}
	}
	switch field.Type {
	case TypeNumber:
		return behaviors[BehaviorAmount]
	case TypeDate:
		return behaviors[BehaviorDate]
	case TypePhone:
		return behaviors[BehaviorPhone]
	case TypeEnum:
		return behaviors[BehaviorEnum]
	default:
		return behaviors[BehaviorNone]
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func normalizeEnumString(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// matchEnum finds the canonical option whose value, label or alias matches
// the input, ignoring case and whitespace.
func matchEnum(value string, options []EnumOption) *EnumOption {
	normalized := normalizeEnumString(value)
	for i := range options {
		opt := &options[i]
		if normalizeEnumString(opt.Value) == normalized || normalizeEnumString(opt.Label) == normalized {
			return opt
		}
		for _, alias := range opt.Aliases {
			if normalizeEnumString(alias) == normalized {
				return opt
			}
		}
	}
	return nil
}

// noopBehavior passes values through untouched.
type noopBehavior struct{}

func (noopBehavior) Transform(_ *FieldRule, value string) TransformResult {
	return TransformResult{Value: value}
}

func (noopBehavior) Validate(_ *FieldRule, _ string, _ map[string]string) ValidationResult {
	return ValidationResult{Valid: true}
}

// nameBehavior strips honorifics and title-cases payee names, keeping Malay
// name particles lowercase and corporate suffixes uppercase.
type nameBehavior struct{}

var honorificRe = regexp.MustCompile(`(?i)^(mr\.?|mrs\.?|ms\.?|dr\.?|prof\.?)\s+`)

var nameParticles = map[string]bool{
	"bin":   true,
	"binti": true,
	"bte":   true,
	"b.":    true,
}

var corpSuffixes = map[string]bool{
	"sdn": true,
	"bhd": true,
	"plt": true,
	"llp": true,
}

func (nameBehavior) Transform(_ *FieldRule, value string) TransformResult {
	if value == "" {
		return TransformResult{Value: ""}
	}

	original := value
	stripped := strings.TrimSpace(honorificRe.ReplaceAllString(strings.TrimSpace(value), ""))

	titler := cases.Title(language.Und)
	words := strings.Fields(stripped)
	for i, word := range words {
		lower := strings.ToLower(word)
		switch {
		case nameParticles[lower]:
			words[i] = lower
		case corpSuffixes[lower]:
			words[i] = strings.ToUpper(word)
		default:
			words[i] = titler.String(lower)
		}
	}
	transformed := strings.Join(words, " ")

	changed := transformed != original
	var message string
	if changed {
		message = "Capitalized and removed titles"
	}
	return TransformResult{Value: transformed, Changed: changed, Message: message}
}

func (nameBehavior) Validate(field *FieldRule, value string, _ map[string]string) ValidationResult {
	minLen := field.MinLength
	if minLen == 0 {
		minLen = 2
	}
	if len([]rune(value)) < minLen {
		return ValidationResult{Valid: false, Message: "Name is too short", Severity: SeverityYellow}
	}
	return ValidationResult{Valid: true}
}

// amountBehavior normalizes amount-like fields to a plain decimal with two
// fraction digits. Values that fail to parse are left unchanged and surface
// as a validation error, never defaulted to zero.
type amountBehavior struct{}

var currencyPrefixRe = regexp.MustCompile(`(?i)^(rm|myr)\s*`)

func (amountBehavior) Transform(field *FieldRule, value string) TransformResult {
	if value == "" {
		return TransformResult{Value: ""}
	}

	original := value
	cleaned := currencyPrefixRe.ReplaceAllString(strings.TrimSpace(value), "")
	cleaned = strings.TrimLeft(cleaned, "$€£¥ ")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return TransformResult{Value: value}
	}

	places := field.DecimalPlaces
	if places == 0 {
		places = 2
	}
	transformed := strconv.FormatFloat(num, 'f', places, 64)

	changed := transformed != original
	var message string
	if changed {
		message = "Removed currency symbol, standardized decimal places"
	}
	return TransformResult{Value: transformed, Changed: changed, Message: message}
}

func (amountBehavior) Validate(_ *FieldRule, value string, _ map[string]string) ValidationResult {
	num, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return ValidationResult{Valid: false, Message: "Invalid amount format", Severity: SeverityRed}
	}
	if num <= 0 {
		return ValidationResult{Valid: false, Message: "Amount must be positive", Severity: SeverityRed}
	}
	if num > 50000 {
		return ValidationResult{
			Valid:    false,
			Message:  "High value transaction >RM50,000 - requires BNM approval",
			Severity: SeverityYellow,
		}
	}
	return ValidationResult{Valid: true}
}

// accountNumberBehavior strips separators so account numbers are digits only.
type accountNumberBehavior struct{}

var accountSeparatorRe = regexp.MustCompile(`[\s\-.]`)
var digitsOnlyRe = regexp.MustCompile(`^\d+$`)

func (accountNumberBehavior) Transform(_ *FieldRule, value string) TransformResult {
	if value == "" {
		return TransformResult{Value: ""}
	}

	original := value
	digits := accountSeparatorRe.ReplaceAllString(value, "")
	if !digitsOnlyRe.MatchString(digits) {
		return TransformResult{Value: original}
	}

	changed := digits != original
	var message string
	if changed {
		message = "Removed dashes/spaces - digits only"
	}
	return TransformResult{Value: digits, Changed: changed, Message: message}
}

func (accountNumberBehavior) Validate(_ *FieldRule, value string, _ map[string]string) ValidationResult {
	digits := accountSeparatorRe.ReplaceAllString(value, "")
	if !digitsOnlyRe.MatchString(digits) {
		return ValidationResult{Valid: false, Message: "Account number must contain only digits", Severity: SeverityRed}
	}
	if len(digits) < 10 || len(digits) > 16 {
		return ValidationResult{Valid: false, Message: "Account number must be 10-16 digits", Severity: SeverityYellow}
	}
	return ValidationResult{Valid: true}
}

// enumBehavior maps free-form values onto a canonical enum option. Unmatched
// values pass through unchanged and surface as a low-severity error; they
// are never silently coerced.
type enumBehavior struct{}

func (enumBehavior) Transform(field *FieldRule, value string) TransformResult {
	if value == "" {
		return TransformResult{Value: ""}
	}

	if match := matchEnum(value, field.Options); match != nil {
		changed := match.Value != value
		var message string
		if changed {
			message = fmt.Sprintf("Normalized bank code: %s → %s", value, match.Value)
		}
		return TransformResult{Value: match.Value, Changed: changed, Message: message}
	}
	return TransformResult{Value: value}
}

func (enumBehavior) Validate(field *FieldRule, value string, _ map[string]string) ValidationResult {
	if matchEnum(value, field.Options) == nil {
		return ValidationResult{Valid: false, Message: "Unknown bank code", Severity: SeverityYellow}
	}
	return ValidationResult{Valid: true}
}

// phoneBehavior normalizes phone numbers toward E.164 using the field's
// default country.
type phoneBehavior struct{}

var phoneSeparatorRe = regexp.MustCompile(`[\s\-().]`)
var bareDigitsRe = regexp.MustCompile(`^\d{9,}$`)
var e164Re = regexp.MustCompile(`^\+\d{10,15}$`)

var countryCodes = map[string]string{
	"MY": "+60",
	"SG": "+65",
	"ID": "+62",
	"US": "+1",
}

func (phoneBehavior) Transform(field *FieldRule, value string) TransformResult {
	if value == "" {
		return TransformResult{Value: ""}
	}

	original := value
	cleaned := phoneSeparatorRe.ReplaceAllString(value, "")

	if !strings.HasPrefix(cleaned, "+") {
		country := field.PhoneCountry
		if country == "" {
			country = "MY"
		}
		code, ok := countryCodes[country]
		if !ok {
			code = "+60"
		}

		switch {
		case strings.HasPrefix(cleaned, "0"):
			cleaned = code + cleaned[1:]
		case bareDigitsRe.MatchString(cleaned):
			cleaned = code + cleaned
		}
	}

	changed := cleaned != original
	var message string
	if changed {
		message = "Formatted phone number"
	}
	return TransformResult{Value: cleaned, Changed: changed, Message: message}
}

func (phoneBehavior) Validate(_ *FieldRule, value string, _ map[string]string) ValidationResult {
	cleaned := phoneSeparatorRe.ReplaceAllString(value, "")
	if !e164Re.MatchString(cleaned) {
		return ValidationResult{Valid: false, Message: "Invalid phone number format", Severity: SeverityYellow}
	}
	return ValidationResult{Valid: true}
}
