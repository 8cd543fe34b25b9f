package model

import (
	"slices"
	"time"
)

// ItemKind tags the variants of Item.
type ItemKind string

const (
	KindBuySell     ItemKind = "buy_sell"
	KindTransaction ItemKind = "transaction"
)

// Item is the immutable outcome of one extracted transaction. The set of
// implementations is closed: BuySellEntryItem and TransactionItem. Callers
// switch on the concrete type.
type Item interface {
	Kind() ItemKind
	Date() time.Time
	Money() Money
	Security() *Security
	Reference() string
	isItem()
}

// BuySellEntryItem wraps a completed buy or sell.
type BuySellEntryItem struct {
	Entry BuySellEntry
}

// NewBuySellEntryItem copies e so later changes to e do not leak into the item.
func NewBuySellEntryItem(e *BuySellEntry) BuySellEntryItem {
	c := *e
	c.Units = slices.Clone(e.Units)
	c.Security = cloneSecurity(e.Security)
	return BuySellEntryItem{Entry: c}
}

func (BuySellEntryItem) Kind() ItemKind        { return KindBuySell }
func (i BuySellEntryItem) Date() time.Time     { return i.Entry.Date }
func (i BuySellEntryItem) Money() Money        { return i.Entry.Money() }
func (i BuySellEntryItem) Security() *Security { return cloneSecurity(i.Entry.Security) }
func (i BuySellEntryItem) Reference() string   { return i.Entry.Reference }
func (BuySellEntryItem) isItem()               {}

// TransactionItem wraps a single account transaction.
type TransactionItem struct {
	Transaction AccountTransaction
}

// NewTransactionItem copies t so later changes to t do not leak into the item.
func NewTransactionItem(t *AccountTransaction) TransactionItem {
	c := *t
	c.Units = slices.Clone(t.Units)
	c.Security = cloneSecurity(t.Security)
	return TransactionItem{Transaction: c}
}

func (TransactionItem) Kind() ItemKind        { return KindTransaction }
func (i TransactionItem) Date() time.Time     { return i.Transaction.Date }
func (i TransactionItem) Money() Money        { return i.Transaction.Money() }
func (i TransactionItem) Security() *Security { return cloneSecurity(i.Transaction.Security) }
func (i TransactionItem) Reference() string   { return i.Transaction.Reference }
func (TransactionItem) isItem()               {}

func cloneSecurity(s *Security) *Security {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
