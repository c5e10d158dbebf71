package logger

import (
	"regexp"
	"strings"
)

var (
	botTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]{20,}`)
	emailRe    = regexp.MustCompile(`([A-Za-z0-9._%+-])[A-Za-z0-9._%+-]*@([A-Za-z0-9.-]+\.[A-Za-z]{2,})`)
	phoneRe    = regexp.MustCompile(`\+?\d[\d\s()-]{8,}\d`)
)

// freeTextKeys are fields that echo operator input.
var freeTextKeys = []string{"payload"}

// redact masks bot tokens everywhere and customer emails and phone numbers
// in free-text fields. Invoice forms carry both, and update payloads are
// logged verbatim otherwise.
func (f fieldSet) redact() {
	for k, v := range f {
		if s, ok := v.(string); ok && strings.Contains(s, "bot") {
			f[k] = botTokenRe.ReplaceAllString(s, "bot<redacted>")
		}
	}
	for _, k := range freeTextKeys {
		if s, ok := f[k].(string); ok && s != "" {
			f[k] = MaskContacts(s)
		}
	}
}

// MaskContacts hides emails and phone numbers in s, keeping enough to
// tell entries apart: the first letter and domain of an email and the
// last two digits of a phone.
func MaskContacts(s string) string {
	s = emailRe.ReplaceAllString(s, "$1***@$2")
	return phoneRe.ReplaceAllStringFunc(s, func(m string) string {
		var digits []byte
		for i := 0; i < len(m); i++ {
			if m[i] >= '0' && m[i] <= '9' {
				digits = append(digits, m[i])
			}
		}
		if len(digits) < 10 {
			return m
		}
		return "***" + string(digits[len(digits)-2:])
	})
}
