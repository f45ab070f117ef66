package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	// 9 national + 34 South Sulawesi; the 4 Parepare sub-districts replace
	// their South Sulawesi namesakes.
	assert.Equal(t, 43, r.Len())
	assert.Equal(t, []string{"default", "kecamatan", "sulsel"}, r.Groups())

	mks, ok := r.Lookup("makassar")
	require.True(t, ok)
	assert.Equal(t, "Makassar", mks.Name)
	assert.Equal(t, "sulsel", mks.Group)
	assert.Equal(t, "Sulawesi Selatan", mks.Parent)
	assert.InDelta(t, -5.1477, mks.Lat, 1e-9)

	soreang, ok := r.Lookup("soreang")
	require.True(t, ok)
	assert.Equal(t, "kecamatan", soreang.Group)
	assert.Equal(t, "Parepare", soreang.Parent)

	_, ok = r.Lookup("atlantis")
	assert.False(t, ok)
}

func TestNew_DuplicateReplacesInPlace(t *testing.T) {
	r, err := New([]domain.Location{
		{Name: "Soreang", Group: "sulsel", Lat: -4, Lon: 119},
		{Name: "Barru", Group: "sulsel", Lat: -4.4, Lon: 119.6},
		{Name: "Soreang", Group: "kecamatan", Lat: -4.005, Lon: 119.628},
	})
	require.NoError(t, err)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "soreang", entries[0].Slug)
	assert.Equal(t, "kecamatan", entries[0].Group)
	assert.Equal(t, "barru", entries[1].Slug)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	_, err = New([]domain.Location{{Name: "Nowhere", Lat: 95, Lon: 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude")
}

func TestEntriesReturnsCopy(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)

	entries := r.Entries()
	entries[0].Name = "mutated"

	first := r.Entries()[0]
	assert.NotEqual(t, "mutated", first.Name)
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")
	data := `{"groups":[{"group":"test","parent":"Test","locations":[{"name":"Kota Baru","lat":-3.3,"lon":116.2}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	r, err := LoadFromPath(path)
	require.NoError(t, err)
	loc, ok := r.Lookup("kota-baru")
	require.True(t, ok)
	assert.Equal(t, "Test", loc.Parent)
}

func TestLoadFromPath_YAMLExplicitSlug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.yml")
	data := "groups:\n  - group: test\n    parent: Test\n    locations:\n      - {name: Kota Baru, slug: kotabaru, lat: -3.3, lon: 116.2}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	r, err := LoadFromPath(path)
	require.NoError(t, err)
	_, ok := r.Lookup("kotabaru")
	assert.True(t, ok)
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read registry")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("{not json"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse registry json")
}
