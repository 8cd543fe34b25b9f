package extractor

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
)

// Window is the contiguous run of lines belonging to one block occurrence.
// StartLine and EndLine are 0-based and inclusive.
type Window struct {
	StartLine int
	EndLine   int
	Lines     []string
}

// Text joins the window's lines.
func (w Window) Text() string {
	return strings.Join(w.Lines, "\n")
}

// Block locates transaction occurrences in a document. Each line fully
// matching the start pattern begins an occurrence which lasts until the line
// before the next start, or until the first line matching the end pattern
// when one is set.
type Block struct {
	name     string
	start    *regexp.Regexp
	startSrc string
	end      *regexp.Regexp
	endSrc   string
	pipeline Pipeline
	errs     []error
}

// NewBlock creates a block whose occurrences begin at lines matching start.
func NewBlock(name, start string) *Block {
	b := &Block{name: name, startSrc: start}
	re, err := compileLine(start)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("compiling start pattern: %w", err))
	} else {
		b.start = re
	}
	return b
}

// EndsWith sets the pattern of the last line of an occurrence.
func (b *Block) EndsWith(end string) *Block {
	b.endSrc = end
	re, err := compileLine(end)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("compiling end pattern: %w", err))
		return b
	}
	b.end = re
	return b
}

// Set attaches the pipeline run once per occurrence.
func (b *Block) Set(p Pipeline) *Block {
	b.pipeline = p
	return b
}

func (b *Block) Name() string {
	return b.name
}

// Occurrences yields the windows of text in document order. Windows never
// overlap.
func (b *Block) Occurrences(text string) iter.Seq[Window] {
	lines := splitLines(text)
	return func(yield func(Window) bool) {
		for _, w := range b.windows(lines) {
			if !yield(w) {
				return
			}
		}
	}
}

func (b *Block) windows(lines []string) []Window {
	if b.start == nil {
		return nil
	}
	var starts []int
	for i, l := range lines {
		if b.start.MatchString(l) {
			starts = append(starts, i)
		}
	}

	out := make([]Window, 0, len(starts))
	for k, s := range starts {
		limit := len(lines) - 1
		if k+1 < len(starts) {
			limit = starts[k+1] - 1
		}
		last := limit
		if b.end != nil {
			for i := s; i <= limit; i++ {
				if b.end.MatchString(lines[i]) {
					last = i
					break
				}
			}
		}
		out = append(out, Window{StartLine: s, EndLine: last, Lines: lines[s : last+1]})
	}
	return out
}

func (b *Block) validate() []*CatalogConfigurationError {
	var errs []*CatalogConfigurationError
	if b.name == "" {
		errs = append(errs, &CatalogConfigurationError{Reason: "block has no name"})
	}
	if b.startSrc == "" {
		errs = append(errs, &CatalogConfigurationError{Block: b.name, Reason: "empty start pattern"})
	}
	for _, err := range b.errs {
		errs = append(errs, &CatalogConfigurationError{Block: b.name, Reason: "invalid pattern", Err: err})
	}
	if b.pipeline == nil {
		errs = append(errs, &CatalogConfigurationError{Block: b.name, Reason: "no pipeline set"})
		return errs
	}
	for _, e := range b.pipeline.validate() {
		e.Block = b.name
		errs = append(errs, e)
	}
	return errs
}
