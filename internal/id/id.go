package id

import (
	"fmt"
	"strings"
	"time"
)

const (
	isinLength   = 12
	refKeyLength = 12
)

// ValidISIN reports whether s is a well-formed ISIN with a correct check digit.
// "DE0005557508" -> true
func ValidISIN(s string) bool {
	if len(s) != isinLength {
		return false
	}
	for i := 0; i < 2; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	if s[11] < '0' || s[11] > '9' {
		return false
	}

	// Expand letters to two digits (A=10 .. Z=35) and run Luhn over the result.
	var digits []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c-'0')
		case c >= 'A' && c <= 'Z':
			v := c - 'A' + 10
			digits = append(digits, v/10, v%10)
		default:
			return false
		}
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i])
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ParseISIN normalizes s and validates it.
func ParseISIN(s string) (string, error) {
	isin := strings.ToUpper(strings.TrimSpace(s))
	if !ValidISIN(isin) {
		return "", fmt.Errorf("invalid ISIN %q", s)
	}
	return isin, nil
}

// FormatItemRef returns a stable reference for an extracted item like
// "sbroker_20200315_DE0005557508". Only letters and digits of key are kept.
func FormatItemRef(prefix string, date time.Time, key string) string {
	k := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, key)
	if len(k) > refKeyLength {
		k = k[:refKeyLength]
	}
	return fmt.Sprintf("%s_%s_%s", prefix, date.Format("20060102"), k)
}
