// Package catalog holds the per-institution rule catalogs and the registry
// used to pick them by name.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cleared-dev/pdfimport/internal/extractor"
	"github.com/cleared-dev/pdfimport/internal/model"
)

// SecurityResolver returns the security identified by ref, creating it when
// it is unknown. Implementations must be safe for concurrent use.
type SecurityResolver interface {
	Resolve(ref model.SecurityRef) (*model.Security, error)
}

// Catalog declares the document types of one institution.
type Catalog interface {
	// Name is the registry key, e.g. "sbroker".
	Name() string
	// Label is the institution's display name.
	Label() string
	// DocumentTypes builds fresh definitions whose callbacks resolve
	// securities through res.
	DocumentTypes(res SecurityResolver) []*extractor.DocumentType
}

// Registry holds named catalogs.
type Registry struct {
	catalogs map[string]Catalog
}

// NewRegistry creates an empty catalog registry.
func NewRegistry() *Registry {
	return &Registry{catalogs: make(map[string]Catalog)}
}

// Register adds a catalog. Panics on duplicate name.
func (r *Registry) Register(c Catalog) {
	key := strings.ToLower(c.Name())
	if _, ok := r.catalogs[key]; ok {
		panic("duplicate catalog: " + key)
	}
	r.catalogs[key] = c
}

// Get returns the catalog registered under name, or nil.
func (r *Registry) Get(name string) Catalog {
	return r.catalogs[strings.ToLower(name)]
}

// Names returns the registered catalog names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.catalogs))
	for k := range r.catalogs {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Engine builds an extraction engine over the named catalogs in the given
// order. An empty list selects every registered catalog.
func (r *Registry) Engine(names []string, res SecurityResolver, opts ...extractor.Option) (*extractor.Engine, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	var types []*extractor.DocumentType
	for _, name := range names {
		c := r.Get(name)
		if c == nil {
			return nil, fmt.Errorf("unknown catalog %q", name)
		}
		types = append(types, c.DocumentTypes(res)...)
	}

	e, err := extractor.NewEngine(types, opts...)
	if err != nil {
		return nil, fmt.Errorf("building engine: %w", err)
	}
	return e, nil
}

// Info describes a catalog for listings.
type Info struct {
	Name          string         `json:"name"`
	Label         string         `json:"label"`
	DocumentTypes []DocumentInfo `json:"documentTypes"`
}

// DocumentInfo lists the blocks of one document type.
type DocumentInfo struct {
	Name   string   `json:"name"`
	Blocks []string `json:"blocks"`
}

// Describe lists the named catalogs, or all of them when names is empty.
func (r *Registry) Describe(names []string) ([]Info, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	out := make([]Info, 0, len(names))
	for _, name := range names {
		c := r.Get(name)
		if c == nil {
			return nil, fmt.Errorf("unknown catalog %q", name)
		}
		info := Info{Name: c.Name(), Label: c.Label()}
		for _, dt := range c.DocumentTypes(nil) {
			info.DocumentTypes = append(info.DocumentTypes, DocumentInfo{Name: dt.Name(), Blocks: dt.Blocks()})
		}
		out = append(out, info)
	}
	return out, nil
}

// DefaultRegistry returns a registry with all built-in catalogs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&SBroker{})
	return r
}
