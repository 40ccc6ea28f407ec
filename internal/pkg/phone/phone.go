// Package phone normalizes inbound phone identifiers to the digit form the
// messaging platform uses. Long identifiers (>12 digits) are platform session
// ids and pass through untouched.
package phone

import "strings"

func Normalize(raw string) string {
	digits := digitsOnly(raw)
	if digits == "" {
		return ""
	}
	if len(digits) > 12 {
		return digits
	}

	switch {
	case strings.HasPrefix(digits, "549") && len(digits) == 12:
		return digits[2:]
	case strings.HasPrefix(digits, "54") && len(digits) == 11:
		rest := digits[2:]
		if !strings.HasPrefix(rest, "9") {
			rest = "9" + rest
		}
		return rest
	case len(digits) == 10 && !strings.HasPrefix(digits, "9"):
		return "9" + digits
	}

	return digits
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
