// Package runlog records the outcome of every extracted document in
// logs/runs.csv.
package runlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cleared-dev/pdfimport/internal/extractor"
)

// Status summarizes how a document fared.
type Status string

const (
	StatusOK           Status = "ok"
	StatusPartial      Status = "partial"
	StatusFailed       Status = "failed"
	StatusUnrecognized Status = "unrecognized"
)

// Entry is one row in the run log.
type Entry struct {
	Timestamp time.Time
	RunID     string
	Document  string
	Status    Status
	Items     int
	Errors    int
	Export    string
	Details   string
}

// Header is the CSV header for runs.csv.
const Header = "timestamp,run_id,document,status,items,errors,export,details"

const (
	numFields    = 8
	logDir       = "logs"
	logFile      = "logs/runs.csv"
	colTimestamp = 0
	colRunID     = 1
	colDocument  = 2
	colStatus    = 3
	colItems     = 4
	colErrors    = 5
	colExport    = 6
	colDetails   = 7
)

// NewRunID returns a fresh identifier shared by all entries of one run.
func NewRunID() string {
	return uuid.NewString()
}

// FromReport summarizes an extraction report.
func FromReport(runID string, r *extractor.Report, export string, now time.Time) Entry {
	e := Entry{
		Timestamp: now,
		RunID:     runID,
		Document:  r.Document,
		Items:     len(r.Items),
		Errors:    len(r.Errors),
		Export:    export,
	}
	switch {
	case !r.HasErrors():
		e.Status = StatusOK
	case len(r.Items) > 0:
		e.Status = StatusPartial
	case len(r.Errors) == 1 && r.Errors[0].DocumentType == "":
		e.Status = StatusUnrecognized
	default:
		e.Status = StatusFailed
	}
	if r.HasErrors() {
		e.Details = r.Errors[0].Error()
	}
	return e
}

// Failed records a document that could not be converted.
func Failed(runID, document string, err error, now time.Time) Entry {
	return Entry{
		Timestamp: now,
		RunID:     runID,
		Document:  document,
		Status:    StatusFailed,
		Details:   err.Error(),
	}
}

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colDocument] = e.Document
	row[colStatus] = string(e.Status)
	row[colItems] = strconv.Itoa(e.Items)
	row[colErrors] = strconv.Itoa(e.Errors)
	row[colExport] = e.Export
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	items, err := strconv.Atoi(record[colItems])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing items %q: %w", record[colItems], err)
	}
	errs, err := strconv.Atoi(record[colErrors])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing errors %q: %w", record[colErrors], err)
	}

	return Entry{
		Timestamp: ts,
		RunID:     record[colRunID],
		Document:  record[colDocument],
		Status:    Status(record[colStatus]),
		Items:     items,
		Errors:    errs,
		Export:    record[colExport],
		Details:   record[colDetails],
	}, nil
}

// Append writes entries to <repoRoot>/logs/runs.csv, creating the file and header if needed.
func Append(repoRoot string, entries []Entry) error {
	dir := filepath.Join(repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/runs.csv.
// Returns an empty slice if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	path := filepath.Join(repoRoot, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading run log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
