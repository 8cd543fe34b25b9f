package normalize

import (
	"strings"
	"time"

	"github.com/Rhymond/go-money"
)

// Date layouts used by statements. DateDE accepts one- or two-digit day
// and month ("1.3.2020" and "01.03.2020").
const (
	DateDE  = "2.1.2006"
	DateISO = "2006-01-02"
	DateUK  = "02/01/2006"
)

// ParseDate parses text with a Go time layout. The whole string must match
// and impossible calendar dates are rejected. The result is midnight UTC.
func ParseDate(text, layout string) (time.Time, error) {
	t, err := time.Parse(layout, strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, &FormatError{Kind: "date", Input: text, Err: err}
	}
	return t, nil
}

// CurrencyCode normalizes a currency code to its upper-case three-letter
// ISO 4217 form.
func CurrencyCode(text string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(text))
	if len(code) != 3 {
		return "", &UnknownCurrencyError{Code: text}
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", &UnknownCurrencyError{Code: text}
		}
	}
	if money.GetCurrency(code) == nil {
		return "", &UnknownCurrencyError{Code: text}
	}
	return code, nil
}
