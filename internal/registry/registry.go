// Package registry holds the static set of locations refreshed by the service.
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed locations.yaml
var defaultLocations []byte

// File is the on-disk registry format: named groups of locations.
type File struct {
	Groups []GroupSpec `json:"groups" yaml:"groups"`
}

// GroupSpec is one group of locations sharing a parent.
type GroupSpec struct {
	Group     string         `json:"group" yaml:"group"`
	Parent    string         `json:"parent" yaml:"parent"`
	Locations []LocationSpec `json:"locations" yaml:"locations"`
}

// LocationSpec is a single named coordinate. Slug is derived from Name when empty.
type LocationSpec struct {
	Name string  `json:"name" yaml:"name"`
	Slug string  `json:"slug,omitempty" yaml:"slug,omitempty"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

// Registry is an immutable, ordered set of locations addressed by slug.
type Registry struct {
	entries []domain.Location
	bySlug  map[string]int
}

// New builds a registry from entries in order. An entry whose slug was already
// registered replaces the earlier one in place.
func New(entries []domain.Location) (*Registry, error) {
	r := &Registry{bySlug: make(map[string]int, len(entries))}
	for _, e := range entries {
		if e.Slug == "" {
			e.Slug = domain.Slugify(e.Name)
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if i, ok := r.bySlug[e.Slug]; ok {
			r.entries[i] = e
			continue
		}
		r.bySlug[e.Slug] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	if len(r.entries) == 0 {
		return nil, fmt.Errorf("registry: no locations")
	}
	return r, nil
}

// Default returns the embedded location set.
func Default() (*Registry, error) {
	return Parse(defaultLocations, ".yaml")
}

// LoadFromPath reads a registry file (YAML or JSON, by extension).
func LoadFromPath(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes registry bytes. ext selects the format; empty means detect from content.
func Parse(data []byte, ext string) (*Registry, error) {
	var f File
	ext = strings.ToLower(ext)
	if ext == ".json" || (ext == "" && strings.HasPrefix(strings.TrimSpace(string(data)), "{")) {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse registry json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse registry yaml: %w", err)
		}
	}
	return New(f.entries())
}

func (f File) entries() []domain.Location {
	var out []domain.Location
	for _, g := range f.Groups {
		for _, l := range g.Locations {
			slug := l.Slug
			if slug == "" {
				slug = domain.Slugify(l.Name)
			}
			out = append(out, domain.Location{
				Slug:   slug,
				Name:   l.Name,
				Group:  g.Group,
				Parent: g.Parent,
				Lat:    l.Lat,
				Lon:    l.Lon,
			})
		}
	}
	return out
}

// Entries returns a copy of the locations in registration order.
func (r *Registry) Entries() []domain.Location {
	out := make([]domain.Location, len(r.entries))
	copy(out, r.entries)
	return out
}

// Lookup returns the location registered under slug.
func (r *Registry) Lookup(slug string) (domain.Location, bool) {
	i, ok := r.bySlug[slug]
	if !ok {
		return domain.Location{}, false
	}
	return r.entries[i], true
}

// Len reports the number of locations.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Groups returns the distinct group names, sorted.
func (r *Registry) Groups() []string {
	seen := make(map[string]struct{})
	for _, e := range r.entries {
		seen[e.Group] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
