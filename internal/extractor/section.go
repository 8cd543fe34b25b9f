package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// Values maps the declared field names of a section to the raw strings
// captured by its named groups.
type Values map[string]string

// Section is one declarative capture step of a Transaction. Patterns match
// whole lines: an optional anchor ("find") locates a line, and the capture
// pattern ("match") is applied to the lines after it.
type Section[T any] struct {
	tx       *Transaction[T]
	fields   []string
	optional bool
	find     *regexp.Regexp
	findSrc  string
	match    *regexp.Regexp
	matchSrc string
	assign   func(T, Values) error
	errs     []error
}

// Optional marks the section as skippable: when its anchor or capture does
// not match, the pipeline continues without error.
func (s *Section[T]) Optional() *Section[T] {
	s.optional = true
	return s
}

// Find sets the anchor pattern.
func (s *Section[T]) Find(pattern string) *Section[T] {
	s.findSrc = pattern
	re, err := compileLine(pattern)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("compiling anchor: %w", err))
		return s
	}
	s.find = re
	return s
}

// Match sets the capture pattern. Every declared field must be one of its
// named groups.
func (s *Section[T]) Match(pattern string) *Section[T] {
	s.matchSrc = pattern
	re, err := compileLine(pattern)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("compiling capture: %w", err))
		return s
	}
	s.match = re
	return s
}

// Assign sets the callback that stores the captured values on the target
// and returns the enclosing Transaction for further chaining.
func (s *Section[T]) Assign(f func(T, Values) error) *Transaction[T] {
	s.assign = f
	return s.tx
}

// apply runs the section over the window. It reports whether the
// assignment ran; an optional section that does not match returns
// (false, nil).
func (s *Section[T]) apply(w Window, target T) (bool, error) {
	lines := w.Lines
	if s.find != nil {
		at := indexLine(lines, s.find)
		if at < 0 {
			if s.optional {
				return false, nil
			}
			return false, &SectionError{Fields: s.fields, Pattern: s.findSrc, Reason: "anchor not found"}
		}
		lines = lines[at+1:]
	}

	at := indexLine(lines, s.match)
	if at < 0 {
		if s.optional {
			return false, nil
		}
		return false, &SectionError{Fields: s.fields, Pattern: s.matchSrc, Reason: "no line matches"}
	}

	m := s.match.FindStringSubmatch(lines[at])
	values := make(Values, len(s.fields))
	for _, f := range s.fields {
		values[f] = m[s.match.SubexpIndex(f)]
	}
	if err := s.assign(target, values); err != nil {
		return false, &SectionError{Fields: s.fields, Reason: "assignment failed", Line: lines[at], Err: err}
	}
	return true, nil
}

func (s *Section[T]) validate() []error {
	errs := slices.Clone(s.errs)
	if len(s.fields) == 0 {
		errs = append(errs, errors.New("no fields declared"))
	}
	if s.match == nil && s.matchSrc == "" {
		errs = append(errs, errors.New("missing capture pattern"))
	}
	if s.assign == nil {
		errs = append(errs, errors.New("missing assignment"))
	}
	if s.match != nil {
		for _, f := range s.fields {
			if s.match.SubexpIndex(f) < 0 {
				errs = append(errs, fmt.Errorf("field %q is not a named group of %q", f, s.matchSrc))
			}
		}
	}
	return errs
}

// compileLine compiles pattern so that it must match an entire line.
func compileLine(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + pattern + `)$`)
}

// indexLine returns the index of the first line fully matching re, or -1.
func indexLine(lines []string, re *regexp.Regexp) int {
	for i, l := range lines {
		if re.MatchString(l) {
			return i
		}
	}
	return -1
}
