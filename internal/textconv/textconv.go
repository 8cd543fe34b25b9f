// Package textconv turns statement files into extractor input documents.
// PDFs are converted with ledongthuc/pdf; .txt files are taken as already
// converted text.
package textconv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/cleared-dev/pdfimport/internal/extractor"
)

// Supported reports whether path has an extension Convert understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// Convert reads the file at path and returns its text. The document name is
// the file's base name.
func Convert(ctx context.Context, path string) (extractor.InputDocument, error) {
	if err := ctx.Err(); err != nil {
		return extractor.InputDocument{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return extractor.InputDocument{}, fmt.Errorf("reading %s: %w", path, err)
		}
		return FromText(filepath.Base(path), string(data)), nil
	case ".pdf":
		return convertPDF(ctx, path)
	default:
		return extractor.InputDocument{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// FromText builds a document from text that needs no conversion.
func FromText(name, text string) extractor.InputDocument {
	return extractor.InputDocument{Name: name, Text: text}
}

func convertPDF(ctx context.Context, path string) (doc extractor.InputDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF %s: library crashed: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return extractor.InputDocument{}, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	if r.NumPage() == 0 {
		return extractor.InputDocument{}, fmt.Errorf("PDF %s has no pages", path)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return extractor.InputDocument{}, err
		}
		pages = append(pages, pageText(r.Page(i)))
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		text, err = plainText(r)
		if err != nil {
			return extractor.InputDocument{}, fmt.Errorf("extracting text from %s: %w", path, err)
		}
	}

	doc = extractor.InputDocument{
		Name:     filepath.Base(path),
		Text:     text,
		Metadata: map[string]string{"pages": fmt.Sprint(r.NumPage())},
	}
	info := r.Trailer().Key("Info")
	doc.Author = info.Key("Author").Text()
	if producer := info.Key("Producer").Text(); producer != "" {
		doc.Metadata["producer"] = producer
	}
	return doc, nil
}

// pageText joins the words of each row with single spaces, one row per line.
func pageText(p pdf.Page) string {
	if p.V.IsNull() {
		return ""
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return ""
	}
	var lines []string
	for _, row := range rows {
		parts := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			parts = append(parts, word.S)
		}
		if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func plainText(r *pdf.Reader) (string, error) {
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
