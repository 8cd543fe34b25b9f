package extractor

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/cleared-dev/pdfimport/internal/model"
)

// DocumentType classifies documents of one institution layout and owns the
// blocks extracted from them. Blocks are evaluated in the order they were
// added.
type DocumentType struct {
	name       string
	pattern    *regexp.Regexp
	patternSrc string
	blocks     []*Block
	err        error
}

// NewDocumentType creates a document type recognized by pattern. The
// pattern is searched anywhere in the text; ^ and $ match at line
// boundaries.
func NewDocumentType(name, pattern string) *DocumentType {
	dt := &DocumentType{name: name, patternSrc: pattern}
	re, err := regexp.Compile(`(?m)` + pattern)
	if err != nil {
		dt.err = fmt.Errorf("compiling classification pattern: %w", err)
	} else {
		dt.pattern = re
	}
	return dt
}

// AddBlock appends a block.
func (dt *DocumentType) AddBlock(b *Block) *DocumentType {
	dt.blocks = append(dt.blocks, b)
	return dt
}

func (dt *DocumentType) Name() string {
	return dt.name
}

// Blocks returns the block names in evaluation order.
func (dt *DocumentType) Blocks() []string {
	names := make([]string, len(dt.blocks))
	for i, b := range dt.blocks {
		names[i] = b.name
	}
	return names
}

// Matches reports whether text belongs to this document type. CRLF line
// endings count as line boundaries.
func (dt *DocumentType) Matches(text string) bool {
	return dt.pattern != nil && dt.pattern.MatchString(normalizeNewlines(text))
}

// Extract runs every block over the document. A failed occurrence is
// recorded and never prevents the remaining occurrences or blocks from
// being processed. Blocks without a pipeline are skipped; Validate reports
// them.
func (dt *DocumentType) Extract(doc InputDocument) ([]model.Item, []*ExtractionError) {
	lines := splitLines(doc.Text)

	var items []model.Item
	var errs []*ExtractionError
	for _, b := range dt.blocks {
		if b.pipeline == nil {
			continue
		}
		for _, w := range b.windows(lines) {
			item, err := b.pipeline.Run(w)
			if err != nil {
				errs = append(errs, &ExtractionError{
					Document:     doc.Name,
					DocumentType: dt.name,
					Block:        b.name,
					Fields:       failingFields(err),
					StartLine:    w.StartLine,
					Window:       w.Text(),
					Err:          err,
				})
				continue
			}
			items = append(items, item)
		}
	}
	return items, errs
}

// Validate checks the whole definition and returns every problem found,
// joined.
func (dt *DocumentType) Validate() error {
	var errs []error
	if dt.name == "" {
		errs = append(errs, &CatalogConfigurationError{Reason: "document type has no name"})
	}
	if dt.patternSrc == "" {
		errs = append(errs, &CatalogConfigurationError{DocumentType: dt.name, Reason: "empty classification pattern"})
	}
	if dt.err != nil {
		errs = append(errs, &CatalogConfigurationError{DocumentType: dt.name, Reason: "invalid pattern", Err: dt.err})
	}
	if len(dt.blocks) == 0 {
		errs = append(errs, &CatalogConfigurationError{DocumentType: dt.name, Reason: "no blocks"})
	}
	seen := make(map[string]bool, len(dt.blocks))
	for _, b := range dt.blocks {
		if b.name != "" && seen[b.name] {
			errs = append(errs, &CatalogConfigurationError{DocumentType: dt.name, Block: b.name, Reason: "duplicate block name"})
		}
		seen[b.name] = true
		for _, e := range b.validate() {
			e.DocumentType = dt.name
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

func failingFields(err error) []string {
	var se *SectionError
	if errors.As(err, &se) {
		return se.Fields
	}
	return nil
}
