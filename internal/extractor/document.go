// Package extractor turns the plain text of converted financial statements
// into transactions. Institutions are described declaratively: a
// DocumentType classifies a document, its Blocks cut the text into one
// window per transaction, and each Block's Transaction pipeline runs named
// capture Sections over the window to build a target that is finally
// wrapped into a model.Item.
//
// Definitions are built once, validated by NewEngine and shared read-only by
// any number of concurrent Extract calls.
package extractor

import "strings"

// InputDocument is the text of one converted document. The engine only
// reads it.
type InputDocument struct {
	Name     string
	Text     string
	Author   string
	Metadata map[string]string
}

// splitLines splits text into lines without their terminators.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// normalizeNewlines turns CRLF line endings into LF so that classifiers
// and blocks see the same lines.
func normalizeNewlines(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}
