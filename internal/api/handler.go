// Package api serves the extraction engine over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/pdfimport/internal/buildinfo"
	"github.com/cleared-dev/pdfimport/internal/catalog"
	"github.com/cleared-dev/pdfimport/internal/export"
	"github.com/cleared-dev/pdfimport/internal/extractor"
	"github.com/cleared-dev/pdfimport/internal/logger"
	"github.com/cleared-dev/pdfimport/internal/model"
	"github.com/cleared-dev/pdfimport/internal/runlog"
	"github.com/cleared-dev/pdfimport/internal/textconv"
)

// Extractor runs the configured document types over one document.
type Extractor interface {
	Extract(doc extractor.InputDocument) *extractor.Report
}

// ExtractResponse is the JSON response from the /api/extract endpoint.
type ExtractResponse struct {
	Success  bool        `json:"success"`
	Error    string      `json:"error,omitempty"`
	RunID    string      `json:"runId,omitempty"`
	Document string      `json:"document,omitempty"`
	Items    []ItemJSON  `json:"items"`
	Errors   []ErrorJSON `json:"errors"`
	Warnings []string    `json:"warnings"`
	Count    int         `json:"count"`
	CSV      string      `json:"csv,omitempty"`
}

// ItemJSON is one extracted item, with the same fields as an export row.
type ItemJSON struct {
	Reference string `json:"reference"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Date      string `json:"date,omitempty"`
	ISIN      string `json:"isin,omitempty"`
	WKN       string `json:"wkn,omitempty"`
	Security  string `json:"security,omitempty"`
	Shares    string `json:"shares,omitempty"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Fees      string `json:"fees,omitempty"`
	Taxes     string `json:"taxes,omitempty"`
	Note      string `json:"note,omitempty"`
}

// ErrorJSON describes one failed block occurrence.
type ErrorJSON struct {
	DocumentType string   `json:"documentType,omitempty"`
	Block        string   `json:"block,omitempty"`
	Fields       []string `json:"fields,omitempty"`
	Line         int      `json:"line,omitempty"`
	Message      string   `json:"message"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Engine   Extractor
	Catalogs []catalog.Info
	Log      zerolog.Logger
}

// NewApp wires the handlers into a fiber app. Uploads larger than
// bodyLimitMB are rejected.
func NewApp(h *Handler, bodyLimitMB int) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "pdfimport " + buildinfo.Version,
		BodyLimit:             bodyLimitMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())
	app.Use(h.requestLogger)

	app.Get("/api/health", h.HandleHealth)
	app.Get("/api/catalogs", h.HandleCatalogs)
	app.Post("/api/extract", h.HandleExtract)
	return app
}

func (h *Handler) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	c.SetUserContext(logger.WithContext(c.UserContext(), h.Log))
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	h.Log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("request")
	return err
}

// HandleHealth reports liveness and the build version.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// HandleCatalogs lists the enabled catalogs with their document types.
func (h *Handler) HandleCatalogs(c *fiber.Ctx) error {
	catalogs := h.Catalogs
	if catalogs == nil {
		catalogs = []catalog.Info{}
	}
	return c.JSON(fiber.Map{"catalogs": catalogs})
}

// HandleExtract extracts the items of one uploaded statement. The form field
// "file" carries a .pdf or .txt file; alternatively "text" carries already
// converted text with an optional "name".
func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	doc, err := h.readDocument(c)
	if err != nil {
		return err
	}

	runID := runlog.NewRunID()
	report := h.Engine.Extract(doc)
	log := logger.FromContext(c.UserContext())
	log.Info().
		Str("run_id", runID).
		Str("document", doc.Name).
		Int("items", len(report.Items)).
		Int("errors", len(report.Errors)).
		Msg("document extracted")

	resp := ExtractResponse{
		Success:  !report.HasErrors(),
		RunID:    runID,
		Document: report.Document,
		Items:    []ItemJSON{},
		Errors:   []ErrorJSON{},
		Warnings: []string{},
		Count:    len(report.Items),
	}
	for _, item := range report.Items {
		ij, err := newItemJSON(report.Document, item)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		resp.Items = append(resp.Items, ij)
	}
	for _, e := range report.Errors {
		resp.Errors = append(resp.Errors, newErrorJSON(e))
	}
	for _, w := range export.ValidateItems(report.Items) {
		resp.Warnings = append(resp.Warnings, w.Error())
	}

	if len(report.Items) > 0 {
		var buf bytes.Buffer
		if err := export.WriteItems(&buf, report.Document, report.Items); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
		}
		resp.CSV = buf.String()
	}

	status := fiber.StatusOK
	if unrecognized(report) {
		status = fiber.StatusUnprocessableEntity
		resp.Error = extractor.ErrNoMatchingDocumentType.Error()
	}
	return c.Status(status).JSON(resp)
}

func (h *Handler) readDocument(c *fiber.Ctx) (extractor.InputDocument, error) {
	if text := c.FormValue("text"); text != "" {
		name := c.FormValue("name")
		if name == "" {
			name = "upload.txt"
		}
		return textconv.FromText(name, text), nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return extractor.InputDocument{}, fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file' or 'text'.")
	}
	if !textconv.Supported(fh.Filename) {
		return extractor.InputDocument{}, fiber.NewError(fiber.StatusBadRequest, "Only PDF and TXT files are supported.")
	}
	return convertUpload(c, fh)
}

func convertUpload(c *fiber.Ctx, fh *multipart.FileHeader) (extractor.InputDocument, error) {
	dir, err := os.MkdirTemp("", "pdfimport-*")
	if err != nil {
		return extractor.InputDocument{}, fiber.NewError(fiber.StatusInternalServerError, "Failed to create temp dir.")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := c.SaveFile(fh, path); err != nil {
		return extractor.InputDocument{}, fiber.NewError(fiber.StatusInternalServerError, "Failed to save uploaded file.")
	}

	doc, err := textconv.Convert(c.UserContext(), path)
	if err != nil {
		return extractor.InputDocument{}, fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("Conversion failed: %v", err))
	}
	return doc, nil
}

func unrecognized(r *extractor.Report) bool {
	return len(r.Items) == 0 && len(r.Errors) == 1 && errors.Is(r.Errors[0], extractor.ErrNoMatchingDocumentType)
}

func newItemJSON(document string, item model.Item) (ItemJSON, error) {
	row, err := export.MarshalItem(document, item)
	if err != nil {
		return ItemJSON{}, err
	}
	f := make(map[string]string, len(row))
	for i, col := range strings.Split(export.Header, ",") {
		f[col] = row[i]
	}
	return ItemJSON{
		Reference: f["reference"],
		Kind:      f["kind"],
		Type:      f["type"],
		Date:      f["date"],
		ISIN:      f["isin"],
		WKN:       f["wkn"],
		Security:  f["security"],
		Shares:    f["shares"],
		Amount:    f["amount"],
		Currency:  f["currency"],
		Fees:      f["fees"],
		Taxes:     f["taxes"],
		Note:      f["note"],
	}, nil
}

func newErrorJSON(e *extractor.ExtractionError) ErrorJSON {
	ej := ErrorJSON{
		DocumentType: e.DocumentType,
		Block:        e.Block,
		Fields:       e.Fields,
		Message:      e.Err.Error(),
	}
	if e.DocumentType != "" {
		ej.Line = e.StartLine + 1
	}
	return ej
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(ExtractResponse{
		Success:  false,
		Error:    err.Error(),
		Items:    []ItemJSON{},
		Errors:   []ErrorJSON{},
		Warnings: []string{},
	})
}
