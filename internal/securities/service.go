package securities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cleared-dev/pdfimport/internal/id"
	"github.com/cleared-dev/pdfimport/internal/model"
)

// Service is an in-memory security master with get-or-create lookup. It is
// safe for concurrent use by catalog callbacks running on several workers.
type Service struct {
	mu         sync.Mutex
	securities []model.Security
	byISIN     map[string]int
	byWKN      map[string]int
	byName     map[string]int
	created    int
}

// NewService creates a Service from known securities.
func NewService(secs []model.Security) *Service {
	s := &Service{
		byISIN: make(map[string]int, len(secs)),
		byWKN:  make(map[string]int, len(secs)),
		byName: make(map[string]int, len(secs)),
	}
	for _, sec := range secs {
		s.add(sec)
	}
	return s
}

// Load reads the securities file at path. A missing file yields an empty
// Service.
func Load(path string) (*Service, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewService(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening securities: %w", err)
	}
	defer f.Close()

	secs, err := ReadSecurities(f)
	if err != nil {
		return nil, fmt.Errorf("reading securities: %w", err)
	}
	return NewService(secs), nil
}

// All returns a copy of every known security in insertion order.
func (s *Service) All() []model.Security {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Security, len(s.securities))
	copy(out, s.securities)
	return out
}

// Get looks up a security without creating it.
func (s *Service) Get(ref model.SecurityRef) (model.Security, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.lookup(normalizeRef(ref))
	if !ok {
		return model.Security{}, false
	}
	return s.securities[i], true
}

// Resolve returns the security identified by ref, creating it when it is
// unknown. Lookup tries ISIN, then WKN, then name; a WKN or name match
// with a conflicting ISIN is a different security. Identifiers missing on a
// known security are filled in from ref.
func (s *Service) Resolve(ref model.SecurityRef) (*model.Security, error) {
	ref = normalizeRef(ref)
	if ref.ISIN == "" && ref.WKN == "" && ref.Name == "" {
		return nil, errors.New("security reference has no ISIN, WKN or name")
	}
	if ref.ISIN != "" && !id.ValidISIN(ref.ISIN) {
		return nil, fmt.Errorf("invalid ISIN %q", ref.ISIN)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.lookup(ref); ok {
		sec := &s.securities[i]
		if sec.ISIN == "" && ref.ISIN != "" {
			sec.ISIN = ref.ISIN
			s.byISIN[ref.ISIN] = i
		}
		if sec.WKN == "" && ref.WKN != "" {
			sec.WKN = ref.WKN
			s.byWKN[ref.WKN] = i
		}
		if sec.Name == "" && ref.Name != "" {
			sec.Name = ref.Name
			s.byName[nameKey(ref.Name)] = i
		}
		if sec.Currency == "" {
			sec.Currency = ref.Currency
		}
		c := *sec
		return &c, nil
	}

	i := s.add(model.Security{ISIN: ref.ISIN, WKN: ref.WKN, Name: ref.Name, Currency: ref.Currency})
	s.created++
	c := s.securities[i]
	return &c, nil
}

// Created returns how many securities Resolve has added since the Service
// was built.
func (s *Service) Created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// Save writes all securities to path, creating parent directories.
func (s *Service) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating securities dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating securities file: %w", err)
	}
	defer f.Close()

	if err := WriteSecurities(f, s.All()); err != nil {
		return fmt.Errorf("writing securities: %w", err)
	}
	return nil
}

func (s *Service) lookup(ref model.SecurityRef) (int, bool) {
	if ref.ISIN != "" {
		if i, ok := s.byISIN[ref.ISIN]; ok {
			return i, true
		}
	}
	if ref.WKN != "" {
		if i, ok := s.byWKN[ref.WKN]; ok && s.compatible(i, ref) {
			return i, true
		}
	}
	if ref.Name != "" {
		if i, ok := s.byName[nameKey(ref.Name)]; ok && s.compatible(i, ref) {
			return i, true
		}
	}
	return 0, false
}

// compatible reports whether the security at i carries no identifier that
// contradicts ref.
func (s *Service) compatible(i int, ref model.SecurityRef) bool {
	sec := s.securities[i]
	if ref.ISIN != "" && sec.ISIN != "" && sec.ISIN != ref.ISIN {
		return false
	}
	return ref.WKN == "" || sec.WKN == "" || sec.WKN == ref.WKN
}

func (s *Service) add(sec model.Security) int {
	i := len(s.securities)
	s.securities = append(s.securities, sec)
	if sec.ISIN != "" {
		s.byISIN[sec.ISIN] = i
	}
	if sec.WKN != "" {
		s.byWKN[sec.WKN] = i
	}
	if sec.Name != "" {
		s.byName[nameKey(sec.Name)] = i
	}
	return i
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func normalizeRef(ref model.SecurityRef) model.SecurityRef {
	ref.ISIN = strings.ToUpper(strings.TrimSpace(ref.ISIN))
	ref.WKN = strings.ToUpper(strings.TrimSpace(ref.WKN))
	ref.Name = strings.TrimSpace(ref.Name)
	return ref
}
