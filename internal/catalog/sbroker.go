package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/pdfimport/internal/extractor"
	"github.com/cleared-dev/pdfimport/internal/id"
	"github.com/cleared-dev/pdfimport/internal/model"
	"github.com/cleared-dev/pdfimport/internal/normalize"
)

// SBroker reads S Broker securities settlements and dividend credits.
type SBroker struct{}

const sbrokerName = "sbroker"

// Patterns shared by the S Broker layouts.
const (
	sbrokerSecurityAnchor = `\W*Gattungsbezeichnung\W+ISIN\W*`
	sbrokerSecurity       = `(?<name>.*\S)\s+(?<isin>[A-Z]{2}[A-Z0-9]{9}\d)\s*`
	sbrokerShares         = `\W*STK\W+(?<shares>[\d.]+,\d+)(\W.*)?`
	sbrokerSettlementLine = `\W*\d{1,2}\.\d{1,2}\.\d{4}\W+\d+\W+[A-Z]{3}\W+[\d.]+,\d+\W*`
	sbrokerSettlement     = `\W*(?<date>\d{1,2}\.\d{1,2}\.\d{4}).*\W(?<currency>[A-Z]{3})\W+(?<amount>[\d.]+,\d+)\W*`
	sbrokerOrderFee       = `(.*\W)?Orderentgelt\W+(?<currency>[A-Z]{3})\W+(?<fee>[\d.]+,\d+)-\W*`
	sbrokerExchangeFee    = `(.*\W)?Börsengebühr\W+(?<currency>[A-Z]{3})\W+(?<fee>[\d.]+,\d+)-\W*`
)

func (SBroker) Name() string  { return sbrokerName }
func (SBroker) Label() string { return "S Broker AG & Co. KG" }

func (c SBroker) DocumentTypes(res SecurityResolver) []*extractor.DocumentType {
	return []*extractor.DocumentType{
		extractor.NewDocumentType(sbrokerName+"/Kauf", `\bKauf\b`).
			AddBlock(extractor.NewBlock("buy", `\W*Kauf(\W.*)?`).EndsWith(sbrokerSettlementLine).
				Set(sbrokerBuySell(res, model.Buy, `\W*Wert\W+Konto-Nr\.\W+Betrag zu Ihren Lasten\W*`))),
		extractor.NewDocumentType(sbrokerName+"/Verkauf", `\bVerkauf\b`).
			AddBlock(extractor.NewBlock("sell", `\W*Verkauf(\W.*)?`).EndsWith(sbrokerSettlementLine).
				Set(sbrokerBuySell(res, model.Sell, `\W*Wert\W+Konto-Nr\.\W+Betrag zu Ihren Gunsten\W*`))),
		extractor.NewDocumentType(sbrokerName+"/Erträgnisgutschrift", `Erträgnisgutschrift`).
			AddBlock(extractor.NewBlock("dividend", `.*Erträgnisgutschrift\W+aus\W+Wertpapieren.*`).EndsWith(sbrokerSettlementLine).
				Set(sbrokerDividend(res))),
	}
}

func sbrokerBuySell(res SecurityResolver, typ model.PortfolioType, settlementAnchor string) extractor.Pipeline {
	return extractor.NewTransaction[*model.BuySellEntry]().
		Subject(func() *model.BuySellEntry {
			return &model.BuySellEntry{Type: typ}
		}).
		Section("isin", "name").Find(sbrokerSecurityAnchor).Match(sbrokerSecurity).
		Assign(func(e *model.BuySellEntry, v extractor.Values) (err error) {
			e.Security, err = resolveSecurity(res, v)
			return err
		}).
		Section("date", "amount", "currency").Find(settlementAnchor).Match(sbrokerSettlement).
		Assign(func(e *model.BuySellEntry, v extractor.Values) (err error) {
			e.Date, e.Amount, e.Currency, err = parseSettlement(v)
			return err
		}).
		Section("shares").Match(sbrokerShares).
		Assign(func(e *model.BuySellEntry, v extractor.Values) (err error) {
			e.Shares, err = normalize.ParseShares(v["shares"], normalize.German)
			return err
		}).
		Section("fee", "currency").Optional().Match(sbrokerOrderFee).
		Assign(func(e *model.BuySellEntry, v extractor.Values) error {
			u, err := parseFee(v)
			if err != nil {
				return err
			}
			e.AddUnit(u)
			return nil
		}).
		Section("fee", "currency").Optional().Match(sbrokerExchangeFee).
		Assign(func(e *model.BuySellEntry, v extractor.Values) error {
			u, err := parseFee(v)
			if err != nil {
				return err
			}
			e.AddUnit(u)
			return nil
		}).
		Wrap(func(e *model.BuySellEntry) (model.Item, error) {
			e.Reference = id.FormatItemRef(sbrokerName, e.Date, e.Security.ISIN)
			return model.NewBuySellEntryItem(e), nil
		})
}

func sbrokerDividend(res SecurityResolver) extractor.Pipeline {
	return extractor.NewTransaction[*model.AccountTransaction]().
		Subject(func() *model.AccountTransaction {
			return &model.AccountTransaction{Type: model.Dividends}
		}).
		Section("isin", "name").Find(sbrokerSecurityAnchor).Match(sbrokerSecurity).
		Assign(func(t *model.AccountTransaction, v extractor.Values) (err error) {
			t.Security, err = resolveSecurity(res, v)
			return err
		}).
		Section("shares").Match(sbrokerShares).
		Assign(func(t *model.AccountTransaction, v extractor.Values) (err error) {
			t.Shares, err = normalize.ParseShares(v["shares"], normalize.German)
			return err
		}).
		Section("date", "amount", "currency").
		Find(`\W*Wert\W+Konto-Nr\.\W+(Devisenkurs\W+)?Betrag zu Ihren Gunsten\W*`).Match(sbrokerSettlement).
		Assign(func(t *model.AccountTransaction, v extractor.Values) (err error) {
			t.Date, t.Amount, t.Currency, err = parseSettlement(v)
			return err
		}).
		Wrap(func(t *model.AccountTransaction) (model.Item, error) {
			t.Reference = id.FormatItemRef(sbrokerName, t.Date, t.Security.ISIN)
			return model.NewTransactionItem(t), nil
		})
}

func resolveSecurity(res SecurityResolver, v extractor.Values) (*model.Security, error) {
	isin, err := id.ParseISIN(v["isin"])
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("no security resolver")
	}
	return res.Resolve(model.SecurityRef{ISIN: isin, Name: strings.TrimSpace(v["name"])})
}

func parseSettlement(v extractor.Values) (time.Time, decimal.Decimal, string, error) {
	date, err := normalize.ParseDate(v["date"], normalize.DateDE)
	if err != nil {
		return time.Time{}, decimal.Zero, "", err
	}
	amount, err := normalize.ParseAmount(v["amount"], normalize.German)
	if err != nil {
		return time.Time{}, decimal.Zero, "", err
	}
	cur, err := normalize.CurrencyCode(v["currency"])
	if err != nil {
		return time.Time{}, decimal.Zero, "", err
	}
	return date, amount, cur, nil
}

func parseFee(v extractor.Values) (model.Unit, error) {
	fee, err := normalize.ParseAmount(v["fee"], normalize.German)
	if err != nil {
		return model.Unit{}, err
	}
	cur, err := normalize.CurrencyCode(v["currency"])
	if err != nil {
		return model.Unit{}, err
	}
	return model.Unit{Type: model.UnitFee, Amount: model.NewMoney(fee, cur)}, nil
}
