package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// slugRe restricts slugs to characters that are safe as file names and URL path segments.
var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Location is one entry of the location registry.
type Location struct {
	Slug   string  `json:"slug" yaml:"slug"`
	Name   string  `json:"name" yaml:"name"`
	Group  string  `json:"group" yaml:"group"`
	Parent string  `json:"parent" yaml:"parent"`
	Lat    float64 `json:"lat" yaml:"lat"`
	Lon    float64 `json:"lon" yaml:"lon"`
}

// Slugify derives the slug for a display name: trimmed, lowercased, and with
// runs of whitespace collapsed into a single hyphen.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// ValidSlug reports whether s is a well-formed slug.
func ValidSlug(s string) bool {
	return slugRe.MatchString(s)
}

// Validate checks the entry's slug and coordinate ranges.
func (l Location) Validate() error {
	if !ValidSlug(l.Slug) {
		return fmt.Errorf("location %q: invalid slug %q", l.Name, l.Slug)
	}
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("location %q: latitude %v out of range [-90, 90]", l.Slug, l.Lat)
	}
	if l.Lon < -180 || l.Lon > 180 {
		return fmt.Errorf("location %q: longitude %v out of range [-180, 180]", l.Slug, l.Lon)
	}
	return nil
}
