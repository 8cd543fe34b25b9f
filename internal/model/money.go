package model

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is an exact amount in one currency.
type Money struct {
	Amount   decimal.Decimal
	Currency string // ISO 4217, upper-case
}

// NewMoney returns Money for amount in currency.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// Equal compares amount and currency.
func (m Money) Equal(n Money) bool {
	return m.Currency == n.Currency && m.Amount.Equal(n.Amount)
}

// Add sums two amounts of the same currency. A zero Money without currency
// adopts the other side's currency.
func (m Money) Add(n Money) (Money, error) {
	switch {
	case m.Currency == "":
		return Money{Amount: m.Amount.Add(n.Amount), Currency: n.Currency}, nil
	case n.Currency == "" || n.Currency == m.Currency:
		return Money{Amount: m.Amount.Add(n.Amount), Currency: m.Currency}, nil
	default:
		return Money{}, fmt.Errorf("currency mismatch: %s != %s", m.Currency, n.Currency)
	}
}

// String renders the amount with the currency's display rules, e.g. "€1,234.56".
func (m Money) String() string {
	cur := money.GetCurrency(m.Currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
	}
	minor := m.Amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
