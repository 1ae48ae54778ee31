package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// dateBehavior normalizes dates to YYYY-MM-DD. Day-first formats are the
// default; MM/DD/YYYY is accepted only when the day-first reading is
// calendar-invalid.
type dateBehavior struct{}

var (
	isoDateRe          = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	dayFirstRe         = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})$`)
	strictISORe        = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	genericDateLayouts = []string{
		"Jan 2, 2006",
		"2 Jan 2006",
		"January 2, 2006",
		"2 January 2006",
		time.RFC3339,
	}
)

func isValidDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func formatISO(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func (dateBehavior) Transform(_ *FieldRule, value string) TransformResult {
	if value == "" {
		return TransformResult{Value: ""}
	}

	original := value

	if m := isoDateRe.FindStringSubmatch(value); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if !isValidDate(year, month, day) {
			return TransformResult{Value: original}
		}
		transformed := formatISO(year, month, day)
		changed := transformed != original
		var message string
		if changed {
			message = "Standardized date format"
		}
		return TransformResult{Value: transformed, Changed: changed, Message: message}
	}

	if m := dayFirstRe.FindStringSubmatch(value); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])

		day, month := first, second
		if !isValidDate(year, month, day) {
			// Day-first reading is impossible; try month-first before
			// giving up.
			if isValidDate(year, first, second) {
				day, month = second, first
			} else {
				return TransformResult{Value: original}
			}
		}
		return TransformResult{
			Value:   formatISO(year, month, day),
			Changed: true,
			Message: "Converted to YYYY-MM-DD",
		}
	}

	for _, layout := range genericDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			transformed := t.Format("2006-01-02")
			changed := transformed != original
			var message string
			if changed {
				message = "Parsed and formatted date"
			}
			return TransformResult{Value: transformed, Changed: changed, Message: message}
		}
	}

	return TransformResult{Value: original}
}

func (dateBehavior) Validate(_ *FieldRule, value string, _ map[string]string) ValidationResult {
	if !strictISORe.MatchString(value) {
		return ValidationResult{Valid: false, Message: "Date must be in YYYY-MM-DD format", Severity: SeverityYellow}
	}
	year, _ := strconv.Atoi(value[0:4])
	month, _ := strconv.Atoi(value[5:7])
	day, _ := strconv.Atoi(value[8:10])
	if !isValidDate(year, month, day) {
		return ValidationResult{Valid: false, Message: "Date is not a valid calendar date", Severity: SeverityYellow}
	}
	return ValidationResult{Valid: true}
}
