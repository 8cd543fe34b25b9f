package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitType classifies the components attached to a transaction.
type UnitType string

const (
	UnitFee        UnitType = "fee"
	UnitTax        UnitType = "tax"
	UnitGrossValue UnitType = "gross_value"
)

// Unit is a fee, tax or gross value attached to a transaction.
type Unit struct {
	Type   UnitType
	Amount Money
}

// PortfolioType is the side of a buy/sell entry.
type PortfolioType string

const (
	Buy  PortfolioType = "BUY"
	Sell PortfolioType = "SELL"
)

// AccountType classifies cash-account transactions.
type AccountType string

const (
	Dividends AccountType = "DIVIDENDS"
	Interest  AccountType = "INTEREST"
	Fees      AccountType = "FEES"
	Taxes     AccountType = "TAXES"
	TaxRefund AccountType = "TAX_REFUND"
	Deposit   AccountType = "DEPOSIT"
	Removal   AccountType = "REMOVAL"
)

// BuySellEntry is a purchase or sale of a security settled against a
// cash account. Extraction pipelines build it in place.
type BuySellEntry struct {
	Type      PortfolioType
	Date      time.Time
	Security  *Security
	Shares    decimal.Decimal
	Amount    decimal.Decimal // total debited or credited, fees included
	Currency  string
	Units     []Unit
	Note      string
	Reference string // stable identifier such as sbroker_20200315_DE0005557508
}

// AddUnit attaches a fee, tax or gross value.
func (e *BuySellEntry) AddUnit(u Unit) { e.Units = append(e.Units, u) }

// Money returns the settlement amount.
func (e *BuySellEntry) Money() Money { return NewMoney(e.Amount, e.Currency) }

// AccountTransaction is a single cash movement such as a dividend payment,
// a fee or a tax charge. Security is nil for pure cash movements.
type AccountTransaction struct {
	Type      AccountType
	Date      time.Time
	Security  *Security
	Shares    decimal.Decimal
	Amount    decimal.Decimal
	Currency  string
	Units     []Unit
	Note      string
	Reference string
}

// AddUnit attaches a fee, tax or gross value.
func (t *AccountTransaction) AddUnit(u Unit) { t.Units = append(t.Units, u) }

// Money returns the booked amount.
func (t *AccountTransaction) Money() Money { return NewMoney(t.Amount, t.Currency) }

// SumUnits totals the units of one type. Units in a different currency than
// the first matching unit produce an error.
func SumUnits(units []Unit, typ UnitType) (Money, error) {
	var total Money
	for _, u := range units {
		if u.Type != typ {
			continue
		}
		var err error
		total, err = total.Add(u.Amount)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
