package catalog

import (
	"strings"
	"sync"
)

// Entry is one medication in the reference catalog. Static data: the
// engine never mutates an entry, only adds new ones learned from remote
// enrichment.
type Entry struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	GenericName  string   `json:"genericName"`
	Code         string   `json:"code,omitempty"`
	Form         string   `json:"form,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Category     string   `json:"category,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
}

// Catalog is the resident medication reference set, pulled once per
// session and kept in memory. Enrichment writes through here so a repeated
// query is satisfied locally.
type Catalog struct {
	mu      sync.RWMutex
	entries []Entry
	byName  map[string]int
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{byName: make(map[string]int)}
}

// Load installs the preloaded catalog, replacing any prior contents
func (c *Catalog) Load(entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make([]Entry, 0, len(entries))
	c.byName = make(map[string]int, len(entries))
	for _, e := range entries {
		key := strings.ToLower(e.Name)
		if _, ok := c.byName[key]; ok {
			continue
		}
		c.byName[key] = len(c.entries)
		c.entries = append(c.entries, e)
	}
}

// Add merges entries into the catalog, deduplicating by case-insensitive
// name. Returns how many were new.
func (c *Catalog) Add(entries []Entry) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := 0
	for _, e := range entries {
		key := strings.ToLower(e.Name)
		if _, ok := c.byName[key]; ok {
			continue
		}
		c.byName[key] = len(c.entries)
		c.entries = append(c.entries, e)
		added++
	}
	return added
}

// Len returns the number of resident entries
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// All returns a copy of the resident entries
func (c *Catalog) All() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Entry(nil), c.entries...)
}

// Generic resolves a brand name to its generic ingredient, empty when the
// medication is not resident.
func (c *Catalog) Generic(name string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.byName[strings.ToLower(name)]; ok {
		return c.entries[i].GenericName
	}
	return ""
}

// Has reports whether an entry with the name is resident
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byName[strings.ToLower(name)]
	return ok
}
