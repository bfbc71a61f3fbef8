package reconcile

import (
	"strings"
	"time"
)

// BirthdayLayout is the canonical storage format for birthdays
const BirthdayLayout = "2006-01-02"

var birthdayInputLayouts = []string{
	"02 Jan 2006",
	"2 Jan 2006",
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"02/01/2006",
	"02 January 2006",
	"20060102",
}

// NormalizeBirthday parses the formats produced by passport OCR and returns
// the canonical YYYY-MM-DD form, or an empty string if the input is not a date.
func NormalizeBirthday(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return ""
	}
	// OCR returns month abbreviations in upper case ("09 JUN 1994")
	if len(s) > 3 {
		s = titleMonth(s)
	}
	for _, layout := range birthdayInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(BirthdayLayout)
		}
	}
	return ""
}

func titleMonth(s string) string {
	parts := strings.Split(s, " ")
	for i, p := range parts {
		if len(p) >= 3 && isLetters(p) {
			parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
		}
	}
	return strings.Join(parts, " ")
}

func isLetters(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
