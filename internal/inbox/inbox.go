// Package inbox finds statements waiting in the import directory, runs
// them through the extraction engine and moves them out of the way once
// they are done.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/pdfimport/internal/extractor"
	"github.com/cleared-dev/pdfimport/internal/logger"
	"github.com/cleared-dev/pdfimport/internal/textconv"
)

// FileInfo describes a statement in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns the PDF and text statements in dir, sorted by name. A
// missing directory is empty.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !textconv.Supported(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// MarkProcessed moves fileName from dir to processedDir. An existing file
// of the same name in processedDir is replaced.
func MarkProcessed(dir, processedDir, fileName string) error {
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(dir, fileName)
	dst := filepath.Join(processedDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Extractor is the part of *extractor.Engine used by Process.
type Extractor interface {
	Extract(doc extractor.InputDocument) *extractor.Report
}

// Result is the outcome for one file. Err is set when the file could not be
// converted; extraction problems are in Report.
type Result struct {
	Path   string
	Report *extractor.Report
	Err    error
}

// Process converts and extracts the files on up to workers goroutines.
// Results are returned in the order of paths. A file that fails to convert
// does not stop the others; only cancellation of ctx does.
func Process(ctx context.Context, e Extractor, paths []string, workers int) ([]Result, error) {
	log := logger.FromContext(ctx)
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			doc, err := textconv.Convert(ctx, path)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if err != nil {
				log.Warn().Err(err).Str("file", path).Msg("conversion failed")
				results[i] = Result{Path: path, Err: err}
				return nil
			}

			r := e.Extract(doc)
			log.Info().Str("document", doc.Name).Int("items", len(r.Items)).
				Int("errors", len(r.Errors)).Msg("document processed")
			results[i] = Result{Path: path, Report: r}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
