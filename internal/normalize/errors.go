package normalize

import "fmt"

// FormatError reports a number or date string that does not follow the
// expected convention or layout.
type FormatError struct {
	Kind   string // "amount", "shares" or "date"
	Input  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s %q: %v", e.Kind, e.Input, e.Err)
	}
	return fmt.Sprintf("parsing %s %q: %s", e.Kind, e.Input, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// UnknownCurrencyError reports a currency code outside the ISO 4217 table.
type UnknownCurrencyError struct {
	Code string
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("unknown currency code %q", e.Code)
}
