// Package export writes extracted items as CSV and checks them for
// plausibility before they are handed on.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pdfimport/internal/model"
)

// Header is the CSV header of an export file.
const Header = "reference,document,kind,type,date,isin,wkn,security,shares,amount,currency,fees,taxes,note"

const (
	numFields   = 14
	dateFormat  = "2006-01-02"
	colRef      = 0
	colDocument = 1
	colKind     = 2
	colType     = 3
	colDate     = 4
	colISIN     = 5
	colWKN      = 6
	colSecurity = 7
	colShares   = 8
	colAmount   = 9
	colCurrency = 10
	colFees     = 11
	colTaxes    = 12
	colNote     = 13
)

// Record is one exported item together with the document it came from.
type Record struct {
	Document string
	Item     model.Item
}

// ReadRecords reads all records from an export CSV.
func ReadRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading export CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var out []Record
	for i, rec := range records[1:] {
		r, err := UnmarshalRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// WriteItems writes the items of one document, including the header.
func WriteItems(w io.Writer, document string, items []model.Item) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := writeRows(cw, document, items, 2); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// AppendItems appends the items of one document to an existing export
// (no header).
func AppendItems(w io.Writer, document string, items []model.Item) error {
	cw := csv.NewWriter(w)
	if err := writeRows(cw, document, items, 1); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeRows(cw *csv.Writer, document string, items []model.Item, firstRow int) error {
	for i, item := range items {
		row, err := MarshalItem(document, item)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+firstRow, err)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+firstRow, err)
		}
	}
	return nil
}

// MarshalItem converts an item to a CSV row. Fees and taxes are summed per
// unit type and must share one currency.
func MarshalItem(document string, item model.Item) ([]string, error) {
	var typ, note string
	var shares decimal.Decimal
	var units []model.Unit
	switch it := item.(type) {
	case model.BuySellEntryItem:
		typ, shares, units, note = string(it.Entry.Type), it.Entry.Shares, it.Entry.Units, it.Entry.Note
	case model.TransactionItem:
		typ, shares, units, note = string(it.Transaction.Type), it.Transaction.Shares, it.Transaction.Units, it.Transaction.Note
	default:
		return nil, fmt.Errorf("unsupported item %T", item)
	}

	fees, err := model.SumUnits(units, model.UnitFee)
	if err != nil {
		return nil, fmt.Errorf("summing fees: %w", err)
	}
	taxes, err := model.SumUnits(units, model.UnitTax)
	if err != nil {
		return nil, fmt.Errorf("summing taxes: %w", err)
	}

	m := item.Money()
	row := make([]string, numFields)
	row[colRef] = item.Reference()
	row[colDocument] = document
	row[colKind] = string(item.Kind())
	row[colType] = typ
	if !item.Date().IsZero() {
		row[colDate] = item.Date().Format(dateFormat)
	}
	if sec := item.Security(); sec != nil {
		row[colISIN] = sec.ISIN
		row[colWKN] = sec.WKN
		row[colSecurity] = sec.Name
	}
	if !shares.IsZero() {
		row[colShares] = shares.String()
	}
	row[colAmount] = m.Amount.StringFixed(2)
	row[colCurrency] = m.Currency
	if !fees.IsZero() {
		row[colFees] = fees.Amount.StringFixed(2)
	}
	if !taxes.IsZero() {
		row[colTaxes] = taxes.Amount.StringFixed(2)
	}
	row[colNote] = note
	return row, nil
}

// UnmarshalRecord converts a CSV row back into a record. Fees and taxes
// come back as one unit each in the item's currency.
func UnmarshalRecord(record []string) (Record, error) {
	if len(record) != numFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	var date time.Time
	if record[colDate] != "" {
		var err error
		date, err = time.Parse(dateFormat, record[colDate])
		if err != nil {
			return Record{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
		}
	}

	var shares, amount decimal.Decimal
	var err error
	if record[colShares] != "" {
		shares, err = decimal.NewFromString(record[colShares])
		if err != nil {
			return Record{}, fmt.Errorf("parsing shares %q: %w", record[colShares], err)
		}
	}
	amount, err = decimal.NewFromString(record[colAmount])
	if err != nil {
		return Record{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	currency := record[colCurrency]
	var units []model.Unit
	for _, c := range []struct {
		col int
		typ model.UnitType
	}{{colFees, model.UnitFee}, {colTaxes, model.UnitTax}} {
		if record[c.col] == "" {
			continue
		}
		v, err := decimal.NewFromString(record[c.col])
		if err != nil {
			return Record{}, fmt.Errorf("parsing %s %q: %w", c.typ, record[c.col], err)
		}
		units = append(units, model.Unit{Type: c.typ, Amount: model.NewMoney(v, currency)})
	}

	var sec *model.Security
	if record[colISIN] != "" || record[colWKN] != "" || record[colSecurity] != "" {
		sec = &model.Security{ISIN: record[colISIN], WKN: record[colWKN], Name: record[colSecurity]}
	}

	switch model.ItemKind(record[colKind]) {
	case model.KindBuySell:
		return Record{Document: record[colDocument], Item: model.NewBuySellEntryItem(&model.BuySellEntry{
			Type:      model.PortfolioType(record[colType]),
			Date:      date,
			Security:  sec,
			Shares:    shares,
			Amount:    amount,
			Currency:  currency,
			Units:     units,
			Note:      record[colNote],
			Reference: record[colRef],
		})}, nil
	case model.KindTransaction:
		return Record{Document: record[colDocument], Item: model.NewTransactionItem(&model.AccountTransaction{
			Type:      model.AccountType(record[colType]),
			Date:      date,
			Security:  sec,
			Shares:    shares,
			Amount:    amount,
			Currency:  currency,
			Units:     units,
			Note:      record[colNote],
			Reference: record[colRef],
		})}, nil
	default:
		return Record{}, fmt.Errorf("unknown kind %q", record[colKind])
	}
}
