package model

import (
	"cmp"
	"slices"
)

// DedupCategoryServerError is the only category produced from replay buckets.
const DedupCategoryServerError = "server_error"

// DedupEntry summarizes the distinct failures observed for one endpoint.
type DedupEntry struct {
	Method   string         `json:"method"`
	Path     string         `json:"path"`
	Failures map[string]int `json:"failures"`
}

// Total returns the number of failures across all categories.
func (e DedupEntry) Total() int {
	total := 0
	for _, n := range e.Failures {
		total += n
	}
	return total
}

// endpoint identifies an API operation.
type endpoint struct {
	method string
	path   string
}

// DedupCollector groups failure occurrences by (method, path).
// The zero value is not usable; use NewDedupCollector.
type DedupCollector struct {
	entries map[endpoint]*DedupEntry
}

// NewDedupCollector creates an empty collector.
func NewDedupCollector() *DedupCollector {
	return &DedupCollector{entries: make(map[endpoint]*DedupEntry)}
}

// Add records one occurrence of category for the endpoint.
func (c *DedupCollector) Add(method, path, category string) {
	key := endpoint{method: method, path: path}
	entry, ok := c.entries[key]
	if !ok {
		entry = &DedupEntry{Method: method, Path: path, Failures: make(map[string]int)}
		c.entries[key] = entry
	}
	entry.Failures[category]++
}

// Len returns the number of distinct endpoints.
func (c *DedupCollector) Len() int {
	return len(c.entries)
}

// Entries returns the collected entries ordered by total count (descending),
// then by path and method, so that the output is stable across runs.
func (c *DedupCollector) Entries() []DedupEntry {
	out := make([]DedupEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b DedupEntry) int {
		if n := cmp.Compare(b.Total(), a.Total()); n != 0 {
			return n
		}
		if n := cmp.Compare(a.Path, b.Path); n != 0 {
			return n
		}
		return cmp.Compare(a.Method, b.Method)
	})
	return out
}
