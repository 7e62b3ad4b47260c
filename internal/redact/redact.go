// Package redact masks personal identifiers in chat text before it is
// persisted to the exchange log.
package redact

import (
	"regexp"
	"sort"
	"strings"
)

// Kind identifies a class of personal identifier
type Kind string

const (
	KindEmail      Kind = "email"
	KindPhone      Kind = "phone"
	KindSSN        Kind = "ssn"
	KindCreditCard Kind = "credit_card"
	KindIPAddress  Kind = "ip_address"
)

// Detection is one identifier found in a text
type Detection struct {
	Kind  Kind
	Value string
	Start int
	End   int
}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s][0-9]{4}\b`),     // US
		regexp.MustCompile(`\+[0-9]{1,3}[-.\s]?[0-9]{2,4}[-.\s]?[0-9]{3,4}[-.\s]?[0-9]{3,4}\b`), // International, "+" required
	}

	ssnPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`),
		regexp.MustCompile(`\b[0-9]{9}\b`),
	}

	creditCardPattern = regexp.MustCompile(`\b(?:[0-9][ -]?){12,18}[0-9]\b`)

	ipv4Pattern = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)
)

// Detect returns every identifier found in text, ordered by position
func Detect(text string) []Detection {
	var out []Detection
	add := func(kind Kind, re *regexp.Regexp, accept func(string) bool) {
		for _, m := range re.FindAllStringIndex(text, -1) {
			v := text[m[0]:m[1]]
			if accept != nil && !accept(v) {
				continue
			}
			out = append(out, Detection{Kind: kind, Value: v, Start: m[0], End: m[1]})
		}
	}

	add(KindEmail, emailPattern, nil)
	add(KindCreditCard, creditCardPattern, luhnCheck)
	add(KindSSN, ssnPatterns[0], nil)
	add(KindSSN, ssnPatterns[1], looksLikeSSN)
	for _, p := range phonePatterns {
		add(KindPhone, p, nil)
	}
	add(KindIPAddress, ipv4Pattern, nil)
	detectSecrets(add)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End > out[j].End
	})
	return out
}

// Contains reports whether text holds any identifier
func Contains(text string) bool {
	return len(Detect(text)) > 0
}

// String masks every identifier in text. Overlapping detections collapse
// into the first, longest one.
func String(text string) string {
	detections := Detect(text)
	if len(detections) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, d := range detections {
		if d.Start < pos {
			continue
		}
		b.WriteString(text[pos:d.Start])
		b.WriteString(placeholder(d.Kind))
		pos = d.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

func placeholder(kind Kind) string {
	switch kind {
	case KindEmail:
		return "[EMAIL_REDACTED]"
	case KindPhone:
		return "[PHONE_REDACTED]"
	case KindSSN:
		return "[SSN_REDACTED]"
	case KindCreditCard:
		return "[CC_REDACTED]"
	case KindIPAddress:
		return "[IP_REDACTED]"
	case KindSecret:
		return "[SECRET_REDACTED]"
	default:
		return "[REDACTED]"
	}
}

// looksLikeSSN rejects 9-digit numbers that cannot be valid SSNs
func looksLikeSSN(s string) bool {
	if len(s) != 9 {
		return false
	}
	if s[:3] == "000" || s[3:5] == "00" || s[5:] == "0000" {
		return false
	}
	return !strings.HasPrefix(s, "666") && !strings.HasPrefix(s, "9")
}

func luhnCheck(number string) bool {
	number = strings.ReplaceAll(number, " ", "")
	number = strings.ReplaceAll(number, "-", "")
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	second := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if second {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		second = !second
	}
	return sum%10 == 0
}
