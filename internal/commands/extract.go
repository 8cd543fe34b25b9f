package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/pdfimport/internal/export"
	"github.com/cleared-dev/pdfimport/internal/gitops"
	"github.com/cleared-dev/pdfimport/internal/inbox"
	"github.com/cleared-dev/pdfimport/internal/logger"
	"github.com/cleared-dev/pdfimport/internal/model"
	"github.com/cleared-dev/pdfimport/internal/runlog"
)

type extractOptions struct {
	repoDir  string
	catalogs []string
	dryRun   bool
}

func newExtractCommand() *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Extract transactions from statements",
		Long: `Extract transactions from the given statements, or from every statement
waiting in the import directory. Each document gets a CSV export and a line
in logs/runs.csv. Fully extracted inbox files are moved to the processed
directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.repoDir, "repo", ".", "workspace directory")
	cmd.Flags().StringSliceVar(&opts.catalogs, "catalog", nil, "catalogs to use instead of the configured ones")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print results without writing anything")

	return cmd
}

func runExtract(ctx context.Context, out io.Writer, opts extractOptions, files []string) error {
	ws, err := openWorkspace(opts.repoDir)
	if err != nil {
		return err
	}
	engine, err := ws.engine(ws.catalogs(opts.catalogs))
	if err != nil {
		return err
	}

	fromInbox := len(files) == 0
	paths := make([]string, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
		paths = append(paths, abs)
	}
	if fromInbox {
		pending, err := inbox.Scan(ws.path(ws.cfg.Import.Dir))
		if err != nil {
			return err
		}
		for _, f := range pending {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "No documents to extract.")
		return nil
	}

	ctx = logger.WithContext(ctx, ws.log)
	results, err := inbox.Process(ctx, engine, paths, ws.cfg.Import.Workers)
	if err != nil {
		return err
	}

	runID := runlog.NewRunID()
	now := time.Now().UTC().Truncate(time.Second)
	var entries []runlog.Entry
	var items, failed int
	var done []string
	for _, res := range results {
		name := filepath.Base(res.Path)
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", name, res.Err)
			entries = append(entries, runlog.Failed(runID, name, res.Err, now))
			continue
		}

		r := res.Report
		items += len(r.Items)
		for _, w := range export.ValidateItems(r.Items) {
			ws.log.Warn().Str("document", r.Document).Str("check", w.Check).Msg(w.Description)
		}

		var exportPath string
		if !opts.dryRun && len(r.Items) > 0 {
			p, err := export.Save(ws.path(ws.cfg.Output.Dir), r)
			if err != nil {
				return err
			}
			exportPath = ws.rel(p)
		}

		entry := runlog.FromReport(runID, r, exportPath, now)
		entries = append(entries, entry)
		printReport(out, entry, r.Items)
		for _, e := range r.Errors {
			fmt.Fprintf(out, "  error: %v\n", e)
		}

		if entry.Status != runlog.StatusOK {
			failed++
			continue
		}
		done = append(done, name)
	}

	if opts.dryRun {
		fmt.Fprintf(out, "Dry run: %d documents, %d items, nothing written\n", len(results), items)
		return extractErr(failed, len(results))
	}

	if err := runlog.Append(ws.root, entries); err != nil {
		return fmt.Errorf("writing run log: %w", err)
	}
	if err := ws.saveSecurities(); err != nil {
		return err
	}
	// Inbox files move only once their results are recorded.
	if fromInbox {
		for _, name := range done {
			if err := inbox.MarkProcessed(ws.path(ws.cfg.Import.Dir), ws.path(ws.cfg.Import.ProcessedDir), name); err != nil {
				return err
			}
		}
	}
	if ws.cfg.Git.AutoCommit && gitops.IsRepo(ws.root) {
		msg := fmt.Sprintf("extract: %d documents, %d items", len(results), items)
		hash, err := gitops.CommitAll(ctx, ws.root, msg, ws.author())
		if err != nil {
			return err
		}
		if hash != "" {
			fmt.Fprintf(out, "Committed %s\n", hash)
		}
	}
	return extractErr(failed, len(results))
}

func printReport(out io.Writer, e runlog.Entry, items []model.Item) {
	fmt.Fprintf(out, "%s: %s, %d items, %d errors\n", e.Document, e.Status, e.Items, e.Errors)
	for _, item := range items {
		m := item.Money()
		label := ""
		if sec := item.Security(); sec != nil {
			label = sec.Label()
		}
		fmt.Fprintf(out, "  %s %s %s %s\n", item.Date().Format("2006-01-02"), itemType(item), m, label)
	}
}

func itemType(item model.Item) string {
	switch it := item.(type) {
	case model.BuySellEntryItem:
		return string(it.Entry.Type)
	case model.TransactionItem:
		return string(it.Transaction.Type)
	}
	return string(item.Kind())
}

func extractErr(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d documents not fully extracted", failed, total)
}
