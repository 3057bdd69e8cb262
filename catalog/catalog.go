package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNoCatalog = errors.New("no catalog for location")

// Entry is one known item name for a location.
type Entry struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

// Catalog is an immutable snapshot of the matchable item names for one
// location. It is built once per location change and never mutated while a
// session is matching against it; a location change swaps in a new snapshot.
type Catalog struct {
	location string
	entries  []Entry
}

// New builds a snapshot. Entries are ordered longest name first so that more
// specific names win over shorter generic ones during matching; duplicate
// names (case-insensitive) are dropped.
func New(location string, entries []Entry) *Catalog {
	seen := make(map[string]bool, len(entries))
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		key := strings.ToLower(strings.TrimSpace(e.Name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, e)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return len(kept[i].Name) > len(kept[j].Name)
	})
	return &Catalog{location: location, entries: kept}
}

// Empty returns a catalog that matches nothing. Used as the fallback when a
// location's catalog cannot be loaded.
func Empty(location string) *Catalog {
	return &Catalog{location: location}
}

func (c *Catalog) Location() string { return c.location }

func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns the snapshot's entries, longest name first. Callers must
// not modify the returned slice.
func (c *Catalog) Entries() []Entry { return c.entries }

// Provider supplies the matchable vocabulary for a location.
type Provider interface {
	Load(location string) ([]Entry, error)
}

// FileProvider reads catalogs from a single YAML file of the form:
//
//	locations:
//	  - name: Polly Forest
//	    items:
//	      - id: 1
//	        name: Polly's Feather
type FileProvider struct {
	Path string
}

type fileSchema struct {
	Locations []struct {
		Name  string  `yaml:"name"`
		Items []Entry `yaml:"items"`
	} `yaml:"locations"`
}

func (p FileProvider) Load(location string) ([]Entry, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var doc fileSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", p.Path, err)
	}
	for _, loc := range doc.Locations {
		if strings.EqualFold(strings.TrimSpace(loc.Name), strings.TrimSpace(location)) {
			return loc.Items, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrNoCatalog, location, p.Path)
}
