package extractor

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/pdfimport/internal/model"
	"github.com/cleared-dev/pdfimport/internal/normalize"
)

const twoPurchases = `Testbank Abrechnung
Kauf
Name: Alpha AG
Betrag: 100,00 EUR
Gebühr: 1,50 EUR
Kauf
Name: Beta AG
Betrag: 1.200,00 EUR
Ende`

func setName(e *model.BuySellEntry, v Values) error {
	e.Security = &model.Security{Name: v["name"]}
	return nil
}

func setAmount(e *model.BuySellEntry, v Values) error {
	amt, err := normalize.ParseAmount(v["amount"], normalize.German)
	if err != nil {
		return err
	}
	cur, err := normalize.CurrencyCode(v["currency"])
	if err != nil {
		return err
	}
	e.Amount = amt
	e.Currency = cur
	return nil
}

func setFee(e *model.BuySellEntry, v Values) error {
	fee, err := normalize.ParseAmount(v["fee"], normalize.German)
	if err != nil {
		return err
	}
	e.AddUnit(model.Unit{Type: model.UnitFee, Amount: model.NewMoney(fee, "EUR")})
	return nil
}

func wrapEntry(e *model.BuySellEntry) (model.Item, error) {
	return model.NewBuySellEntryItem(e), nil
}

func purchasePipeline() *Transaction[*model.BuySellEntry] {
	return NewTransaction[*model.BuySellEntry]().
		Subject(func() *model.BuySellEntry { return &model.BuySellEntry{Type: model.Buy} }).
		Section("name").Match(`Name: (?<name>.+)`).Assign(setName).
		Section("amount", "currency").Match(`Betrag: (?<amount>[\d.]+,\d{2}) (?<currency>\w{3})`).Assign(setAmount).
		Section("fee").Optional().Match(`Gebühr: (?<fee>[\d.]+,\d{2}) EUR`).Assign(setFee).
		Wrap(wrapEntry)
}

func testbank() *DocumentType {
	return NewDocumentType("testbank", `^Testbank Abrechnung$`).
		AddBlock(NewBlock("buy", `Kauf`).Set(purchasePipeline()))
}

func newTestEngine(t *testing.T, types ...*DocumentType) *Engine {
	t.Helper()
	e, err := NewEngine(types)
	require.NoError(t, err)
	return e
}

func entry(t *testing.T, item model.Item) model.BuySellEntry {
	t.Helper()
	bs, ok := item.(model.BuySellEntryItem)
	require.True(t, ok, "expected BuySellEntryItem, got %T", item)
	return bs.Entry
}

func TestEngine_Extract_TwoOccurrences(t *testing.T) {
	e := newTestEngine(t, testbank())

	r := e.Extract(InputDocument{Name: "a.pdf", Text: twoPurchases})
	require.False(t, r.HasErrors(), "%v", r.Err())
	require.NoError(t, r.Err())
	require.Len(t, r.Items, 2)
	assert.Equal(t, "a.pdf", r.Document)

	first := entry(t, r.Items[0])
	assert.Equal(t, "Alpha AG", first.Security.Name)
	assert.True(t, decimal.RequireFromString("100").Equal(first.Amount))
	assert.Equal(t, "EUR", first.Currency)
	require.Len(t, first.Units, 1)
	assert.Equal(t, model.UnitFee, first.Units[0].Type)
	assert.Equal(t, "1.5", first.Units[0].Amount.Amount.String())

	second := entry(t, r.Items[1])
	assert.Equal(t, "Beta AG", second.Security.Name)
	assert.Equal(t, "1200", second.Amount.String())
	assert.Empty(t, second.Units)
}

func TestEngine_Extract_CRLF(t *testing.T) {
	e := newTestEngine(t, testbank())

	r := e.Extract(InputDocument{Name: "crlf.pdf", Text: strings.ReplaceAll(twoPurchases, "\n", "\r\n")})
	require.NoError(t, r.Err())
	assert.Len(t, r.Items, 2)
}

func TestDocumentType_Matches_CRLF(t *testing.T) {
	dt := NewDocumentType("testbank", `^Testbank Abrechnung$`)

	assert.True(t, dt.Matches("Testbank Abrechnung\r\nKauf\r\n"))
	assert.True(t, dt.Matches("Kopf\r\nTestbank Abrechnung"))
	assert.False(t, dt.Matches("Testbank Abrechnung vom 15.03.2020\r\n"))
}

func TestDocumentType_Extract_SkipsBlockWithoutPipeline(t *testing.T) {
	dt := NewDocumentType("testbank", `Testbank`).
		AddBlock(NewBlock("unset", `Kauf`)).
		AddBlock(NewBlock("buy", `Kauf`).Set(purchasePipeline()))
	require.Error(t, dt.Validate())

	var items []model.Item
	var errs []*ExtractionError
	require.NotPanics(t, func() {
		items, errs = dt.Extract(InputDocument{Name: "a.pdf", Text: twoPurchases})
	})
	assert.Empty(t, errs)
	assert.Len(t, items, 2)
}

func TestEngine_Extract_MandatoryMissing(t *testing.T) {
	text := `Testbank Abrechnung
Kauf
Name: Alpha AG
Kauf
Name: Beta AG
Betrag: 50,00 EUR`
	e := newTestEngine(t, testbank())

	r := e.Extract(InputDocument{Name: "b.pdf", Text: text})
	require.Len(t, r.Items, 1)
	assert.Equal(t, "Beta AG", entry(t, r.Items[0]).Security.Name)

	require.Len(t, r.Errors, 1)
	xe := r.Errors[0]
	assert.Equal(t, "b.pdf", xe.Document)
	assert.Equal(t, "testbank", xe.DocumentType)
	assert.Equal(t, "buy", xe.Block)
	assert.Equal(t, []string{"amount", "currency"}, xe.Fields)
	assert.Equal(t, 1, xe.StartLine)
	assert.Equal(t, "Kauf\nName: Alpha AG", xe.Window)
	assert.Contains(t, xe.Error(), "testbank/buy at line 2")

	var pe *PipelineError
	require.ErrorAs(t, xe, &pe)
	var se *SectionError
	require.ErrorAs(t, xe, &se)
	assert.Equal(t, "no line matches", se.Reason)
}

func TestEngine_Extract_OptionalAbsent(t *testing.T) {
	text := `Testbank Abrechnung
Kauf
Name: Alpha AG
Betrag: 10,00 EUR`
	e := newTestEngine(t, testbank())

	r := e.Extract(InputDocument{Name: "c.pdf", Text: text})
	require.NoError(t, r.Err())
	require.Len(t, r.Items, 1)
	assert.Empty(t, entry(t, r.Items[0]).Units)
}

func TestEngine_Extract_AssignmentErrorAbortsOptional(t *testing.T) {
	text := `Testbank Abrechnung
Kauf
Name: Alpha AG
Betrag: 10,00 EUR
Gebühr: 1.0000,00 EUR`
	e := newTestEngine(t, testbank())

	r := e.Extract(InputDocument{Name: "d.pdf", Text: text})
	assert.Empty(t, r.Items)
	require.Len(t, r.Errors, 1)

	var se *SectionError
	require.ErrorAs(t, r.Errors[0], &se)
	assert.Equal(t, "assignment failed", se.Reason)
	assert.Equal(t, "Gebühr: 1.0000,00 EUR", se.Line)

	var fe *normalize.FormatError
	assert.ErrorAs(t, r.Errors[0], &fe)
}

func TestEngine_Extract_UnknownCurrency(t *testing.T) {
	text := `Testbank Abrechnung
Kauf
Name: Alpha AG
Betrag: 10,00 XQZ`
	e := newTestEngine(t, testbank())

	r := e.Extract(InputDocument{Name: "e.pdf", Text: text})
	assert.Empty(t, r.Items)
	require.Len(t, r.Errors, 1)
	var ue *normalize.UnknownCurrencyError
	assert.ErrorAs(t, r.Errors[0], &ue)
}

func TestEngine_Extract_NoMatchingDocumentType(t *testing.T) {
	e := newTestEngine(t, testbank())

	r := e.Extract(InputDocument{Name: "other.pdf", Text: "Some other bank\nKauf\nName: X"})
	assert.Empty(t, r.Items)
	require.Len(t, r.Errors, 1)
	assert.ErrorIs(t, r.Errors[0], ErrNoMatchingDocumentType)
	assert.Empty(t, r.Errors[0].DocumentType)
	assert.Equal(t, "other.pdf: no matching document type", r.Errors[0].Error())
	assert.ErrorIs(t, r.Err(), ErrNoMatchingDocumentType)
}

func TestEngine_Extract_MultipleDocumentTypes(t *testing.T) {
	dividends := NewDocumentType("testbank-dividend", `Ausschüttung`).
		AddBlock(NewBlock("dividend", `Ausschüttung`).Set(
			NewTransaction[*model.AccountTransaction]().
				Subject(func() *model.AccountTransaction { return &model.AccountTransaction{Type: model.Dividends} }).
				Section("amount").Match(`Gutschrift: (?<amount>[\d.]+,\d{2}) EUR`).
				Assign(func(tx *model.AccountTransaction, v Values) error {
					amt, err := normalize.ParseAmount(v["amount"], normalize.German)
					tx.Amount, tx.Currency = amt, "EUR"
					return err
				}).
				Wrap(func(tx *model.AccountTransaction) (model.Item, error) {
					return model.NewTransactionItem(tx), nil
				}),
		))
	text := twoPurchases + "\nAusschüttung\nGutschrift: 3,20 EUR"

	e := newTestEngine(t, testbank(), dividends)
	assert.Equal(t, []string{"testbank", "testbank-dividend"}, e.DocumentTypes())

	r := e.Extract(InputDocument{Name: "combined.pdf", Text: text})
	require.NoError(t, r.Err())
	require.Len(t, r.Items, 3)
	assert.Equal(t, model.KindBuySell, r.Items[0].Kind())
	assert.Equal(t, model.KindBuySell, r.Items[1].Kind())
	assert.Equal(t, model.KindTransaction, r.Items[2].Kind())
	assert.Equal(t, "3.2", r.Items[2].Money().Amount.String())
}

func TestEngine_Extract_BlockDeclarationOrder(t *testing.T) {
	text := "Testbank Abrechnung\nVerkauf\nName: S\nBetrag: 1,00 EUR\nKauf\nName: K\nBetrag: 2,00 EUR"
	sell := NewTransaction[*model.BuySellEntry]().
		Subject(func() *model.BuySellEntry { return &model.BuySellEntry{Type: model.Sell} }).
		Section("name").Match(`Name: (?<name>.+)`).Assign(setName).
		Wrap(wrapEntry)
	dt := NewDocumentType("testbank", `Testbank`).
		AddBlock(NewBlock("buy", `Kauf`).Set(purchasePipeline())).
		AddBlock(NewBlock("sell", `Verkauf`).EndsWith(`Betrag: .*`).Set(sell))
	assert.Equal(t, []string{"buy", "sell"}, dt.Blocks())

	r := newTestEngine(t, dt).Extract(InputDocument{Name: "f.pdf", Text: text})
	require.NoError(t, r.Err())
	require.Len(t, r.Items, 2)
	assert.Equal(t, "K", entry(t, r.Items[0]).Security.Name)
	assert.Equal(t, "S", entry(t, r.Items[1]).Security.Name)
}

func TestSection_Anchor(t *testing.T) {
	text := `Testbank Abrechnung
Kauf
Name: Alpha AG
Betrag: 1,00 EUR
Summe
Betrag: 5,00 EUR`
	tx := NewTransaction[*model.BuySellEntry]().
		Subject(func() *model.BuySellEntry { return &model.BuySellEntry{} }).
		Section("amount", "currency").Find(`Summe`).Match(`Betrag: (?<amount>[\d.]+,\d{2}) (?<currency>\w{3})`).Assign(setAmount).
		Wrap(wrapEntry)
	dt := NewDocumentType("testbank", `Testbank`).AddBlock(NewBlock("buy", `Kauf`).Set(tx))

	r := newTestEngine(t, dt).Extract(InputDocument{Name: "g.pdf", Text: text})
	require.NoError(t, r.Err())
	require.Len(t, r.Items, 1)
	assert.Equal(t, "5", entry(t, r.Items[0]).Amount.String())
}

func TestSection_AnchorMissing(t *testing.T) {
	tx := NewTransaction[*model.BuySellEntry]().
		Subject(func() *model.BuySellEntry { return &model.BuySellEntry{} }).
		Section("amount", "currency").Find(`Summe`).Match(`Betrag: (?<amount>\S+) (?<currency>\w{3})`).Assign(setAmount).
		Wrap(wrapEntry)

	_, err := tx.Run(Window{Lines: []string{"Kauf", "Betrag: 1,00 EUR"}})
	var se *SectionError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "anchor not found", se.Reason)
	assert.Equal(t, "Summe", se.Pattern)
}

func TestSection_ValuesHoldOnlyDeclaredFields(t *testing.T) {
	var got Values
	tx := NewTransaction[*model.BuySellEntry]().
		Subject(func() *model.BuySellEntry { return &model.BuySellEntry{} }).
		Section("name").Match(`(?<name>\w+) (?<other>\w+)`).
		Assign(func(_ *model.BuySellEntry, v Values) error {
			got = v
			return nil
		}).
		Wrap(wrapEntry)

	_, err := tx.Run(Window{Lines: []string{"alpha beta"}})
	require.NoError(t, err)
	assert.Equal(t, Values{"name": "alpha"}, got)
}

func TestTransaction_RecoversPanic(t *testing.T) {
	tx := NewTransaction[*model.BuySellEntry]().
		Subject(func() *model.BuySellEntry { return nil }).
		Section("name").Match(`Name: (?<name>.+)`).Assign(setName).
		Wrap(wrapEntry)

	item, err := tx.Run(Window{Lines: []string{"Name: X"}})
	assert.Nil(t, item)
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "recovered from panic")
}

func TestTransaction_WrapError(t *testing.T) {
	tx := NewTransaction[*model.BuySellEntry]().
		Subject(func() *model.BuySellEntry { return &model.BuySellEntry{} }).
		Section("name").Match(`Name: (?<name>.+)`).Assign(setName).
		Wrap(func(*model.BuySellEntry) (model.Item, error) { return nil, errors.New("incomplete") })

	_, err := tx.Run(Window{Lines: []string{"Name: X"}})
	require.Error(t, err)
	assert.Equal(t, "pipeline aborted: wrapping: incomplete", err.Error())
}

func TestBlock_Occurrences(t *testing.T) {
	text := "header\nA 1\nx\nEND\ny\nA 2\nz\nA 3\nEND\ntrailer"

	t.Run("without end pattern", func(t *testing.T) {
		b := NewBlock("a", `A \d`)
		got := slices.Collect(b.Occurrences(text))
		require.Len(t, got, 3)
		assert.Equal(t, Window{StartLine: 1, EndLine: 4, Lines: []string{"A 1", "x", "END", "y"}}, got[0])
		assert.Equal(t, Window{StartLine: 5, EndLine: 6, Lines: []string{"A 2", "z"}}, got[1])
		assert.Equal(t, Window{StartLine: 7, EndLine: 9, Lines: []string{"A 3", "END", "trailer"}}, got[2])
	})

	t.Run("with end pattern", func(t *testing.T) {
		b := NewBlock("a", `A \d`).EndsWith(`END`)
		got := slices.Collect(b.Occurrences(text))
		require.Len(t, got, 3)
		assert.Equal(t, []string{"A 1", "x", "END"}, got[0].Lines)
		// no END before the next start: extends up to it
		assert.Equal(t, []string{"A 2", "z"}, got[1].Lines)
		assert.Equal(t, []string{"A 3", "END"}, got[2].Lines)
		assert.Equal(t, "A 3\nEND", got[2].Text())
	})

	t.Run("windows increase and never overlap", func(t *testing.T) {
		for _, b := range []*Block{NewBlock("a", `A \d`), NewBlock("a", `A \d`).EndsWith(`END|z`)} {
			got := slices.Collect(b.Occurrences(text))
			for i := 1; i < len(got); i++ {
				assert.Greater(t, got[i].StartLine, got[i-1].EndLine)
			}
			assert.Equal(t, got, slices.Collect(b.Occurrences(text)))
		}
	})

	t.Run("partial line does not start a block", func(t *testing.T) {
		b := NewBlock("a", `A \d`)
		assert.Empty(t, slices.Collect(b.Occurrences("xA 1\nA 12")))
	})

	t.Run("stops when the consumer stops", func(t *testing.T) {
		b := NewBlock("a", `A \d`)
		n := 0
		for range b.Occurrences(text) {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestNewEngine_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		dt     *DocumentType
		reason string
	}{
		{
			name: "field not a named group",
			dt: NewDocumentType("bank", `Bank`).AddBlock(NewBlock("buy", `Kauf`).Set(
				NewTransaction[*model.BuySellEntry]().
					Subject(func() *model.BuySellEntry { return &model.BuySellEntry{} }).
					Section("isin").Match(`ISIN (?<wkn>\w+)`).Assign(setName).
					Wrap(wrapEntry))),
			reason: `field "isin" is not a named group`,
		},
		{
			name: "invalid capture pattern",
			dt: NewDocumentType("bank", `Bank`).AddBlock(NewBlock("buy", `Kauf`).Set(
				NewTransaction[*model.BuySellEntry]().
					Subject(func() *model.BuySellEntry { return &model.BuySellEntry{} }).
					Section("name").Match(`(?<name>[`).Assign(setName).
					Wrap(wrapEntry))),
			reason: "compiling capture",
		},
		{
			name: "missing assignment",
			dt: NewDocumentType("bank", `Bank`).AddBlock(NewBlock("buy", `Kauf`).Set(
				func() Pipeline {
					tx := NewTransaction[*model.BuySellEntry]().
						Subject(func() *model.BuySellEntry { return &model.BuySellEntry{} })
					tx.Section("name").Match(`(?<name>.+)`)
					return tx.Wrap(wrapEntry)
				}())),
			reason: "missing assignment",
		},
		{
			name: "missing subject",
			dt: NewDocumentType("bank", `Bank`).AddBlock(NewBlock("buy", `Kauf`).Set(
				NewTransaction[*model.BuySellEntry]().Wrap(wrapEntry))),
			reason: "missing subject factory",
		},
		{
			name:   "block without pipeline",
			dt:     NewDocumentType("bank", `Bank`).AddBlock(NewBlock("buy", `Kauf`)),
			reason: "no pipeline set",
		},
		{
			name:   "invalid start pattern",
			dt:     NewDocumentType("bank", `Bank`).AddBlock(NewBlock("buy", `Kauf(`).Set(purchasePipeline())),
			reason: "compiling start pattern",
		},
		{
			name:   "invalid classification pattern",
			dt:     NewDocumentType("bank", `Bank(`).AddBlock(NewBlock("buy", `Kauf`).Set(purchasePipeline())),
			reason: "compiling classification pattern",
		},
		{
			name:   "no blocks",
			dt:     NewDocumentType("bank", `Bank`),
			reason: "no blocks",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine([]*DocumentType{tt.dt})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.reason)

			var ce *CatalogConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "bank", ce.DocumentType)
		})
	}
}

func TestNewEngine_ConfigurationErrorNamesSection(t *testing.T) {
	dt := NewDocumentType("bank", `Bank`).AddBlock(NewBlock("buy", `Kauf`).Set(
		NewTransaction[*model.BuySellEntry]().
			Subject(func() *model.BuySellEntry { return &model.BuySellEntry{} }).
			Section("name").Match(`(?<name>.+)`).Assign(setName).
			Section("isin").Match(`(?<wkn>.+)`).Assign(setName).
			Wrap(wrapEntry)))

	err := dt.Validate()
	var ce *CatalogConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "buy", ce.Block)
	assert.Equal(t, 2, ce.Section)
	assert.Equal(t, []string{"isin"}, ce.Fields)
}

func TestNewEngine_DuplicateDocumentType(t *testing.T) {
	_, err := NewEngine([]*DocumentType{testbank(), testbank()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate document type")
}

func TestEngine_ConcurrentExtract(t *testing.T) {
	e := newTestEngine(t, testbank())
	want := e.Extract(InputDocument{Name: "a.pdf", Text: twoPurchases})

	var wg sync.WaitGroup
	reports := make([]*Report, 16)
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i] = e.Extract(InputDocument{Name: "a.pdf", Text: twoPurchases})
		}()
	}
	wg.Wait()

	for i, r := range reports {
		assert.Equal(t, want, r, fmt.Sprintf("report %d", i))
	}
}
