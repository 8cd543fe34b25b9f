package extractor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/pdfimport/internal/model"
)

// Report is the outcome of extracting one document. Items are ordered by
// document type, then block, then position in the text.
type Report struct {
	Document string
	Items    []model.Item
	Errors   []*ExtractionError
}

// HasErrors reports whether any occurrence failed or the document was not
// recognized.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// Err joins all recorded errors, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Engine applies a fixed set of document types to documents. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	types []*DocumentType
	log   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger makes the engine log classification and failed occurrences at
// debug level.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// NewEngine validates every document type and returns an engine over them.
// Any invalid definition makes the whole set unusable.
func NewEngine(types []*DocumentType, opts ...Option) (*Engine, error) {
	var errs []error
	seen := make(map[string]bool, len(types))
	for _, dt := range types {
		if dt == nil {
			errs = append(errs, &CatalogConfigurationError{Reason: "nil document type"})
			continue
		}
		if dt.name != "" && seen[dt.name] {
			errs = append(errs, &CatalogConfigurationError{DocumentType: dt.name, Reason: "duplicate document type"})
		}
		seen[dt.name] = true
		if err := dt.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}

	e := &Engine{types: slices.Clone(types), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// DocumentTypes returns the names of the registered document types in
// evaluation order.
func (e *Engine) DocumentTypes() []string {
	names := make([]string, len(e.types))
	for i, dt := range e.types {
		names[i] = dt.name
	}
	return names
}

// Extract runs every matching document type over doc. A document that no
// type recognizes yields a report with a single error wrapping
// ErrNoMatchingDocumentType.
func (e *Engine) Extract(doc InputDocument) *Report {
	r := &Report{Document: doc.Name}
	doc.Text = normalizeNewlines(doc.Text)
	log := e.log.With().Str("document", doc.Name).Logger()

	matched := 0
	for _, dt := range e.types {
		if !dt.Matches(doc.Text) {
			continue
		}
		matched++
		log.Debug().Str("type", dt.name).Msg("document type matched")

		items, errs := dt.Extract(doc)
		for _, err := range errs {
			log.Debug().Err(err.Err).Str("type", dt.name).Str("block", err.Block).
				Int("line", err.StartLine+1).Msg("occurrence skipped")
		}
		r.Items = append(r.Items, items...)
		r.Errors = append(r.Errors, errs...)
	}

	if matched == 0 {
		log.Debug().Msg("no document type matched")
		r.Errors = append(r.Errors, &ExtractionError{Document: doc.Name, Err: ErrNoMatchingDocumentType})
	}
	return r
}
