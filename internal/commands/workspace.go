package commands

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/cleared-dev/pdfimport/internal/catalog"
	"github.com/cleared-dev/pdfimport/internal/config"
	"github.com/cleared-dev/pdfimport/internal/extractor"
	"github.com/cleared-dev/pdfimport/internal/gitops"
	"github.com/cleared-dev/pdfimport/internal/logger"
	"github.com/cleared-dev/pdfimport/internal/securities"
)

// workspace is an initialized pdfimport directory with its configuration
// and security master loaded.
type workspace struct {
	root       string
	cfg        *config.Config
	log        zerolog.Logger
	registry   *catalog.Registry
	securities *securities.Service
}

func openWorkspace(dir string) (*workspace, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	registry := catalog.DefaultRegistry()
	if err := cfg.Validate(registry.Names()); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.FileName, err)
	}

	ws := &workspace{
		root:     root,
		cfg:      cfg,
		log:      logger.New(cfg.Log),
		registry: registry,
	}
	ws.securities, err = securities.Load(ws.path(cfg.Securities.File))
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// path resolves a configured path against the workspace root.
func (ws *workspace) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ws.root, p)
}

// rel returns p relative to the workspace root when possible.
func (ws *workspace) rel(p string) string {
	if r, err := filepath.Rel(ws.root, p); err == nil {
		return r
	}
	return p
}

// catalogs returns the override names if given, else the configured ones.
func (ws *workspace) catalogs(override []string) []string {
	if len(override) > 0 {
		return override
	}
	return ws.cfg.Catalogs
}

func (ws *workspace) engine(names []string) (*extractor.Engine, error) {
	return ws.registry.Engine(names, ws.securities, extractor.WithLogger(ws.log))
}

// saveSecurities persists securities created during this run.
func (ws *workspace) saveSecurities() error {
	if ws.securities.Created() == 0 {
		return nil
	}
	return ws.securities.Save(ws.path(ws.cfg.Securities.File))
}

func (ws *workspace) author() gitops.Author {
	return gitops.Author{Name: ws.cfg.Git.AuthorName, Email: ws.cfg.Git.AuthorEmail}
}
