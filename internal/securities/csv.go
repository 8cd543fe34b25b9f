package securities

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cleared-dev/pdfimport/internal/model"
)

const (
	numFields   = 4
	colISIN     = 0
	colWKN      = 1
	colName     = 2
	colCurrency = 3
)

// ReadSecurities reads securities.csv.
func ReadSecurities(r io.Reader) ([]model.Security, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading securities CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var secs []model.Security
	for i, rec := range records[1:] {
		sec, err := UnmarshalSecurity(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		secs = append(secs, sec)
	}
	return secs, nil
}

// WriteSecurities writes securities.csv.
func WriteSecurities(w io.Writer, secs []model.Security) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"isin", "wkn", "name", "currency"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, sec := range secs {
		if err := cw.Write(MarshalSecurity(sec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalSecurity converts a Security to a CSV row.
func MarshalSecurity(sec model.Security) []string {
	row := make([]string, numFields)
	row[colISIN] = sec.ISIN
	row[colWKN] = sec.WKN
	row[colName] = sec.Name
	row[colCurrency] = sec.Currency
	return row
}

// UnmarshalSecurity converts a CSV row to a Security.
func UnmarshalSecurity(record []string) (model.Security, error) {
	if len(record) != numFields {
		return model.Security{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	if record[colISIN] == "" && record[colWKN] == "" && record[colName] == "" {
		return model.Security{}, fmt.Errorf("security without ISIN, WKN or name")
	}
	return model.Security{
		ISIN:     record[colISIN],
		WKN:      record[colWKN],
		Name:     record[colName],
		Currency: record[colCurrency],
	}, nil
}
