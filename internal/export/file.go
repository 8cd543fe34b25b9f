package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/pdfimport/internal/extractor"
)

// FileName returns the export file name for a document:
// "2020-03-15 Kauf.pdf" -> "2020-03-15 Kauf.csv".
func FileName(document string) string {
	base := filepath.Base(document)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".csv"
}

// Save writes the items of r to dir and returns the file path.
func Save(dir string, r *extractor.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}

	path := filepath.Join(dir, FileName(r.Document))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := WriteItems(f, r.Document, r.Items); err != nil {
		return "", fmt.Errorf("writing export %s: %w", path, err)
	}
	return path, nil
}

// Load reads an export file.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	return ReadRecords(f)
}
