// Package validate checks operator input collected by the form flows.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Reasons reported by Error.
const (
	ReasonEmpty       = "empty"
	ReasonEmail       = "email"
	ReasonDateFormat  = "date_format"
	ReasonDateInvalid = "date_invalid"
	ReasonExtension   = "extension"
)

// Error is a validation failure. It never advances the conversation.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validate: %s: %s", e.Field, e.Reason)
}

// Code implements the err_code contract used in handler logs.
func (e *Error) Code() string {
	return "VALIDATION_" + strings.ToUpper(e.Reason)
}

// Is lets errors.Is match on field and reason, with empty fields as wildcards.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return (t.Field == "" || t.Field == e.Field) && (t.Reason == "" || t.Reason == e.Reason)
}

var (
	emailRe     = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)
	dateShapeRe = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	costCleanRe = regexp.MustCompile(`[^\d.,]`)
)

// Email returns the trimmed address or a validation error.
func Email(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !emailRe.MatchString(s) {
		return "", &Error{Field: "email", Reason: ReasonEmail}
	}
	return s, nil
}

// Date accepts DD/MM/YYYY that names a real calendar day. A wrong shape and
// an impossible date are reported with different reasons.
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !dateShapeRe.MatchString(s) {
		return "", &Error{Field: "purchase_date", Reason: ReasonDateFormat}
	}
	day, _ := strconv.Atoi(s[0:2])
	month, _ := strconv.Atoi(s[3:5])
	year, _ := strconv.Atoi(s[6:10])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if year < 1 || t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return "", &Error{Field: "purchase_date", Reason: ReasonDateInvalid}
	}
	return s, nil
}

// NonEmpty returns the trimmed text or a validation error naming field.
func NonEmpty(field, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &Error{Field: field, Reason: ReasonEmpty}
	}
	return s, nil
}

// PDFName accepts file names ending in .pdf, case-insensitively.
func PDFName(name string) error {
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".pdf") {
		return &Error{Field: "pdf_file", Reason: ReasonExtension}
	}
	return nil
}

// FormatCost renders free-text cost for display: everything except digits,
// '.' and ',' is dropped, ',' becomes '.', the value is rounded half away from
// zero and grouped by thousands with spaces. Unparseable input is returned as is.
func FormatCost(raw string) string {
	clean := strings.ReplaceAll(costCleanRe.ReplaceAllString(raw, ""), ",", ".")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return raw
	}
	return GroupThousands(strconv.FormatFloat(math.Round(v), 'f', 0, 64), " ")
}

// GroupThousands inserts sep between groups of three digits of an unsigned
// integer string.
func GroupThousands(digits, sep string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	b.Grow(n + (n-1)/3*len(sep))
	head := n % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(digits[:head])
	for i := head; i < n; i += 3 {
		b.WriteString(sep)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
