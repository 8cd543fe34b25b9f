package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Convention describes how a locale writes numbers: the digit grouping
// separator and the decimal separator.
type Convention struct {
	Name    string
	Group   byte
	Decimal byte
}

var (
	// German writes 1.234,56.
	German = Convention{Name: "de", Group: '.', Decimal: ','}
	// English writes 1,234.56.
	English = Convention{Name: "en", Group: ',', Decimal: '.'}
)

// maxShareDecimals bounds fractional share counts.
const maxShareDecimals = 6

// ParseAmount parses a monetary amount written in the given convention.
// A leading or trailing minus ("9,90-" as printed on statements) makes the
// amount negative. Grouping must come in blocks of three digits and at most
// one decimal separator is allowed.
func ParseAmount(text string, conv Convention) (decimal.Decimal, error) {
	return parseNumber("amount", text, conv, true, -1)
}

// ParseShares parses a share count. Signs are rejected and at most six
// decimals are accepted.
func ParseShares(text string, conv Convention) (decimal.Decimal, error) {
	return parseNumber("shares", text, conv, false, maxShareDecimals)
}

func parseNumber(kind, text string, conv Convention, signed bool, maxDecimals int) (decimal.Decimal, error) {
	fail := func(reason string) (decimal.Decimal, error) {
		return decimal.Zero, &FormatError{Kind: kind, Input: text, Reason: reason}
	}

	s := strings.TrimSpace(text)
	if s == "" {
		return fail("empty string")
	}

	negative := false
	switch {
	case strings.HasPrefix(s, "-") && strings.HasSuffix(s, "-"):
		return fail("sign on both ends")
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		negative = true
		s = s[:len(s)-1]
	}
	if negative && !signed {
		return fail("negative value")
	}

	parts := strings.Split(s, string(conv.Decimal))
	if len(parts) > 2 {
		return fail("more than one decimal separator")
	}

	intPart := parts[0]
	if !validGrouping(intPart, conv.Group) {
		return fail("malformed integer part")
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(strings.ReplaceAll(intPart, string(conv.Group), ""))

	if len(parts) == 2 {
		frac := parts[1]
		if frac == "" || !allDigits(frac) {
			return fail("malformed decimals")
		}
		if maxDecimals >= 0 && len(frac) > maxDecimals {
			return fail("too many decimals")
		}
		b.WriteByte('.')
		b.WriteString(frac)
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, &FormatError{Kind: kind, Input: text, Err: err}
	}
	return d, nil
}

// validGrouping accepts "1234", "1.234" and "12.345.678" (for '.' grouping)
// but not "1.23" or ".123".
func validGrouping(s string, group byte) bool {
	if s == "" {
		return false
	}
	groups := strings.Split(s, string(group))
	if len(groups) == 1 {
		return allDigits(s)
	}
	if len(groups[0]) == 0 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatAmount writes d in the given convention with exactly places
// decimals and thousands grouping. It is the inverse of ParseAmount for
// values that have at most places decimals.
func FormatAmount(d decimal.Decimal, conv Convention, places int32) string {
	s := d.StringFixed(places)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(conv.Group)
		}
		b.WriteByte(intPart[i])
	}
	if frac != "" {
		b.WriteByte(conv.Decimal)
		b.WriteString(frac)
	}
	return b.String()
}
