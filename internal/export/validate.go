package export

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pdfimport/internal/model"
)

// Checks reported by ValidateItems.
const (
	CheckDate         = "date"
	CheckSecurity     = "security"
	CheckShares       = "shares"
	CheckAmount       = "amount"
	CheckDecimals     = "decimals"
	CheckUnitCurrency = "unit_currency"
	CheckReference    = "reference"
)

// ValidationError describes one implausible item. Items are never dropped
// because of it; callers report it as a warning.
type ValidationError struct {
	Check       string
	Index       int
	Reference   string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("check %s [%d %s]: %s", e.Check, e.Index, e.Reference, e.Description)
}

// ValidateItems checks extracted items for values no statement should
// produce.
func ValidateItems(items []model.Item) []ValidationError {
	var errs []ValidationError
	add := func(check string, i int, item model.Item, format string, args ...any) {
		errs = append(errs, ValidationError{
			Check:       check,
			Index:       i,
			Reference:   item.Reference(),
			Description: fmt.Sprintf(format, args...),
		})
	}

	refs := make(map[string]int)
	hundred := decimal.NewFromInt(100)
	for i, item := range items {
		if item.Date().IsZero() {
			add(CheckDate, i, item, "missing date")
		}

		m := item.Money()
		if m.Amount.IsNegative() {
			add(CheckAmount, i, item, "negative amount %s", m.Amount)
		}
		if scaled := m.Amount.Mul(hundred); !scaled.Equal(scaled.Floor()) {
			add(CheckDecimals, i, item, "amount %s has more than 2 decimal places", m.Amount)
		}

		var units []model.Unit
		switch it := item.(type) {
		case model.BuySellEntryItem:
			units = it.Entry.Units
			if it.Entry.Security == nil {
				add(CheckSecurity, i, item, "buy/sell without security")
			}
			if !it.Entry.Shares.IsPositive() {
				add(CheckShares, i, item, "shares %s must be positive", it.Entry.Shares)
			}
		case model.TransactionItem:
			units = it.Transaction.Units
			if it.Transaction.Shares.IsNegative() {
				add(CheckShares, i, item, "negative shares %s", it.Transaction.Shares)
			}
		}

		for _, u := range units {
			if u.Amount.Currency != m.Currency {
				add(CheckUnitCurrency, i, item, "%s in %s, item in %s", u.Type, u.Amount.Currency, m.Currency)
			}
		}

		if ref := item.Reference(); ref != "" {
			if first, ok := refs[ref]; ok {
				add(CheckReference, i, item, "duplicate reference, first seen at %d", first)
			} else {
				refs[ref] = i
			}
		}
	}
	return errs
}
