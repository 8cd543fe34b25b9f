package extractor

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/pdfimport/internal/model"
)

// Pipeline builds one item from a block window. *Transaction[T] is the
// only implementation.
type Pipeline interface {
	Run(w Window) (model.Item, error)
	validate() []*CatalogConfigurationError
}

// Transaction is an ordered list of sections plus a subject factory
// producing a fresh target per occurrence and a wrap function turning the
// finished target into an item.
//
//	NewTransaction[*model.BuySellEntry]().
//		Subject(func() *model.BuySellEntry { return &model.BuySellEntry{Type: model.Buy} }).
//		Section("shares").Match(`STK (?<shares>[\d.]+,\d+)`).Assign(setShares).
//		Wrap(wrapEntry)
type Transaction[T any] struct {
	subject  func() T
	sections []*Section[T]
	wrap     func(T) (model.Item, error)
}

// NewTransaction starts an empty pipeline for targets of type T.
func NewTransaction[T any]() *Transaction[T] {
	return &Transaction[T]{}
}

// Subject sets the factory called once per block occurrence.
func (t *Transaction[T]) Subject(f func() T) *Transaction[T] {
	t.subject = f
	return t
}

// Section appends a section populating the given fields.
func (t *Transaction[T]) Section(fields ...string) *Section[T] {
	s := &Section[T]{tx: t, fields: fields}
	t.sections = append(t.sections, s)
	return s
}

// Wrap sets the function converting the finished target into an item.
func (t *Transaction[T]) Wrap(f func(T) (model.Item, error)) *Transaction[T] {
	t.wrap = f
	return t
}

// Run evaluates all sections in order against the window. The first
// mandatory failure aborts with a *PipelineError and the partial target is
// discarded.
func (t *Transaction[T]) Run(w Window) (item model.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			item = nil
			err = &PipelineError{Err: fmt.Errorf("recovered from panic: %v", r)}
		}
	}()

	target := t.subject()
	for _, s := range t.sections {
		if _, err := s.apply(w, target); err != nil {
			return nil, &PipelineError{Err: err}
		}
	}

	item, err = t.wrap(target)
	if err != nil {
		return nil, &PipelineError{Err: fmt.Errorf("wrapping: %w", err)}
	}
	if item == nil {
		return nil, &PipelineError{Err: errors.New("wrap returned no item")}
	}
	return item, nil
}

func (t *Transaction[T]) validate() []*CatalogConfigurationError {
	var errs []*CatalogConfigurationError
	if t.subject == nil {
		errs = append(errs, &CatalogConfigurationError{Reason: "missing subject factory"})
	}
	if t.wrap == nil {
		errs = append(errs, &CatalogConfigurationError{Reason: "missing wrap function"})
	}
	for i, s := range t.sections {
		for _, err := range s.validate() {
			errs = append(errs, &CatalogConfigurationError{
				Section: i + 1,
				Fields:  s.fields,
				Reason:  "invalid section",
				Err:     err,
			})
		}
	}
	return errs
}
