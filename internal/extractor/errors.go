package extractor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatchingDocumentType is reported when no registered classifier
// matches a document's text.
var ErrNoMatchingDocumentType = errors.New("no matching document type")

// SectionError reports a mandatory section whose anchor or capture pattern
// did not match, or a section whose assignment rejected the captured values.
type SectionError struct {
	Fields  []string
	Pattern string
	Reason  string
	Line    string // the matched line when the assignment failed
	Err     error
}

func (e *SectionError) Error() string {
	msg := fmt.Sprintf("section [%s]: %s", strings.Join(e.Fields, ","), e.Reason)
	if e.Pattern != "" {
		msg += fmt.Sprintf(" (pattern %q)", e.Pattern)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SectionError) Unwrap() error {
	return e.Err
}

// PipelineError aborts one block occurrence. It wraps the first failing
// section (or the wrap function's error).
type PipelineError struct {
	Err error
}

func (e *PipelineError) Error() string {
	return "pipeline aborted: " + e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// CatalogConfigurationError reports an invalid rule definition. It is
// returned by NewEngine and never occurs during extraction.
type CatalogConfigurationError struct {
	DocumentType string
	Block        string
	Section      int // 1-based, 0 when not section specific
	Fields       []string
	Reason       string
	Err          error
}

func (e *CatalogConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("catalog configuration")
	if e.DocumentType != "" {
		fmt.Fprintf(&b, " type %q", e.DocumentType)
	}
	if e.Block != "" {
		fmt.Fprintf(&b, " block %q", e.Block)
	}
	if e.Section > 0 {
		fmt.Fprintf(&b, " section %d [%s]", e.Section, strings.Join(e.Fields, ","))
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CatalogConfigurationError) Unwrap() error {
	return e.Err
}

// ExtractionError records one failed block occurrence or an unclassified
// document. Window holds the raw text that failed.
type ExtractionError struct {
	Document     string
	DocumentType string
	Block        string
	Fields       []string
	StartLine    int
	Window       string
	Err          error
}

func (e *ExtractionError) Error() string {
	if e.DocumentType == "" {
		return fmt.Sprintf("%s: %v", e.Document, e.Err)
	}
	return fmt.Sprintf("%s: %s/%s at line %d: %v", e.Document, e.DocumentType, e.Block, e.StartLine+1, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
