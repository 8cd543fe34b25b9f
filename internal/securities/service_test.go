package securities

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/pdfimport/internal/model"
)

var known = []model.Security{
	{ISIN: "DE0005557508", WKN: "555750", Name: "Deutsche Telekom AG", Currency: "EUR"},
	{Name: "Apple Inc.", Currency: "USD"},
}

func TestResolve_Existing(t *testing.T) {
	svc := NewService(known)

	sec, err := svc.Resolve(model.SecurityRef{ISIN: "de0005557508"})
	require.NoError(t, err)
	assert.Equal(t, "Deutsche Telekom AG", sec.Name)

	sec, err = svc.Resolve(model.SecurityRef{WKN: "555750"})
	require.NoError(t, err)
	assert.Equal(t, "DE0005557508", sec.ISIN)

	sec, err = svc.Resolve(model.SecurityRef{Name: "  deutsche   telekom ag"})
	require.NoError(t, err)
	assert.Equal(t, "DE0005557508", sec.ISIN)

	assert.Equal(t, 0, svc.Created())
	assert.Len(t, svc.All(), 2)
}

func TestResolve_Creates(t *testing.T) {
	svc := NewService(known)

	sec, err := svc.Resolve(model.SecurityRef{ISIN: "US0378331005", Name: "Apple Inc. Registered Shares", Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "US0378331005", sec.ISIN)
	assert.Equal(t, 1, svc.Created())

	again, err := svc.Resolve(model.SecurityRef{ISIN: "US0378331005"})
	require.NoError(t, err)
	assert.Equal(t, sec, again)
	assert.Equal(t, 1, svc.Created())
	assert.Len(t, svc.All(), 3)
}

func TestResolve_FillsMissingIdentifiers(t *testing.T) {
	svc := NewService(known)

	sec, err := svc.Resolve(model.SecurityRef{ISIN: "US0378331005", Name: "Apple Inc."})
	require.NoError(t, err)
	assert.Equal(t, "US0378331005", sec.ISIN)
	assert.Equal(t, "USD", sec.Currency)
	assert.Equal(t, 0, svc.Created())

	got, ok := svc.Get(model.SecurityRef{ISIN: "US0378331005"})
	require.True(t, ok)
	assert.Equal(t, "Apple Inc.", got.Name)
}

func TestResolve_ConflictingISINCreatesNew(t *testing.T) {
	svc := NewService(known)

	// same WKN printed with a different ISIN is not the known security
	sec, err := svc.Resolve(model.SecurityRef{ISIN: "US0378331005", WKN: "555750"})
	require.NoError(t, err)
	assert.Empty(t, sec.Name)
	assert.Equal(t, 1, svc.Created())
}

func TestResolve_Invalid(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.Resolve(model.SecurityRef{})
	require.Error(t, err)

	_, err = svc.Resolve(model.SecurityRef{ISIN: "DE0005557509"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ISIN")
	assert.Empty(t, svc.All())
}

func TestResolve_ReturnsCopy(t *testing.T) {
	svc := NewService(known)

	sec, err := svc.Resolve(model.SecurityRef{ISIN: "DE0005557508"})
	require.NoError(t, err)
	sec.Name = "changed"

	got, ok := svc.Get(model.SecurityRef{ISIN: "DE0005557508"})
	require.True(t, ok)
	assert.Equal(t, "Deutsche Telekom AG", got.Name)
}

func TestResolve_Concurrent(t *testing.T) {
	svc := NewService(nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Resolve(model.SecurityRef{ISIN: "DE0005557508", Name: "Deutsche Telekom AG"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, svc.Created())
	assert.Len(t, svc.All(), 1)
}

func TestLoad_Missing(t *testing.T) {
	svc, err := Load(filepath.Join(t.TempDir(), "securities.csv"))
	require.NoError(t, err)
	assert.Empty(t, svc.All())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "securities.csv")
	require.NoError(t, NewService(known).Save(path))

	svc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, known, svc.All())
}
