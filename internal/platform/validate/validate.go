// Package validate holds the field-level validation rules shared by the
// domain services. Validators are pure: they take a raw value (plus bounds
// where relevant), and return a normalized value and/or a FieldError. They
// never touch storage.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Clinical plausibility bounds. Values outside these ranges are almost
// certainly transcription errors, not real measurements.
const (
	MinHeightCm = 30.0
	MaxHeightCm = 250.0
	MinWeightKg = 1.0
	MaxWeightKg = 500.0

	MaxNameLen = 200
)

// FieldError describes a single rejected field: which field, which rule it
// violated, and a human-readable message. The message is language-neutral;
// translation is the presentation layer's concern.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors aggregates the field errors found while validating a whole record.
type Errors []*FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether any collected error names the given field.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// OrNil returns the aggregate as an error, or nil when empty. Callers build
// up an Errors slice and finish with `return errs.OrNil()`.
func (e Errors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

var (
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	phoneStrip     = regexp.MustCompile(`[\s\-()]`)
	phonePattern   = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	pharmacyIDForm = regexp.MustCompile(`^\d{5}$`)
	arabicRunes    = regexp.MustCompile(`[\x{0600}-\x{06FF}\x{0750}-\x{077F}\x{08A0}-\x{08FF}\x{FB50}-\x{FDFF}\x{FE70}-\x{FEFF}]`)
)

// Sanitize strips ASCII control characters that have no place in stored
// text. Newlines and tabs survive; Arabic and Latin letters pass through
// untouched.
func Sanitize(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// ContainsArabic reports whether the string holds at least one character
// from the Arabic Unicode blocks (base, supplement, extended-A, and the
// presentation forms).
func ContainsArabic(s string) bool {
	return arabicRunes.MatchString(s)
}

// Name normalizes and validates a person name. Arabic and Latin scripts are
// both accepted and preserved verbatim; only surrounding whitespace and
// control characters are removed.
func Name(field, raw string) (string, *FieldError) {
	name := strings.TrimSpace(Sanitize(raw))
	if name == "" {
		return "", &FieldError{Field: field, Rule: "required", Message: "name must not be empty"}
	}
	if len(name) > MaxNameLen {
		return "", &FieldError{Field: field, Rule: "max_length", Message: fmt.Sprintf("name exceeds %d characters", MaxNameLen)}
	}
	return name, nil
}

// Age checks an age against the configured bounds.
func Age(field string, age, min, max int) *FieldError {
	if age < min || age > max {
		return &FieldError{
			Field:   field,
			Rule:    "range",
			Message: fmt.Sprintf("age must be between %d and %d", min, max),
		}
	}
	return nil
}

// Phone normalizes a phone number by stripping spaces, dashes, and
// parentheses, then checks it against a locale-agnostic pattern: optional
// leading +, then 8 to 15 digits not starting with zero.
func Phone(field, raw string) (string, *FieldError) {
	phone := phoneStrip.ReplaceAllString(strings.TrimSpace(raw), "")
	if phone == "" {
		return "", &FieldError{Field: field, Rule: "required", Message: "phone number must not be empty"}
	}
	if !phonePattern.MatchString(phone) {
		return "", &FieldError{Field: field, Rule: "format", Message: "phone number format is invalid"}
	}
	return phone, nil
}

// Height checks a height in centimeters: strictly positive and within
// clinical plausibility bounds.
func Height(field string, cm float64) *FieldError {
	if cm <= 0 {
		return &FieldError{Field: field, Rule: "positive", Message: "height must be positive"}
	}
	if cm < MinHeightCm || cm > MaxHeightCm {
		return &FieldError{
			Field:   field,
			Rule:    "range",
			Message: fmt.Sprintf("height must be between %.0f and %.0f cm", MinHeightCm, MaxHeightCm),
		}
	}
	return nil
}

// Weight checks a weight in kilograms: strictly positive and within
// clinical plausibility bounds.
func Weight(field string, kg float64) *FieldError {
	if kg <= 0 {
		return &FieldError{Field: field, Rule: "positive", Message: "weight must be positive"}
	}
	if kg < MinWeightKg || kg > MaxWeightKg {
		return &FieldError{
			Field:   field,
			Rule:    "range",
			Message: fmt.Sprintf("weight must be between %.0f and %.0f kg", MinWeightKg, MaxWeightKg),
		}
	}
	return nil
}

// Percentage checks a body-composition percentage. The fat, muscle, water,
// and mineral estimates are validated independently; they are separate
// instrument readings and do not have to sum to 100.
func Percentage(field string, v float64) *FieldError {
	if v < 0 || v > 100 {
		return &FieldError{Field: field, Rule: "range", Message: "percentage must be between 0 and 100"}
	}
	return nil
}

// PharmacyID checks the human-facing client identifier: exactly five digits.
func PharmacyID(field, raw string) (string, *FieldError) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", &FieldError{Field: field, Rule: "required", Message: "pharmacy id must not be empty"}
	}
	if !pharmacyIDForm.MatchString(id) {
		return "", &FieldError{Field: field, Rule: "format", Message: "pharmacy id must be exactly 5 digits"}
	}
	return id, nil
}

// Language normalizes a language preference to lowercase and checks it is
// one of the supported codes.
func Language(field, raw string) (string, *FieldError) {
	lang := strings.ToLower(strings.TrimSpace(raw))
	switch lang {
	case "ar", "en":
		return lang, nil
	}
	return "", &FieldError{Field: field, Rule: "enum", Message: `language must be "ar" or "en"`}
}
