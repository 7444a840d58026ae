package models

import "sort"

// Entity is one canonical record produced by a normalizer. SSOT entities
// also carry the coordinates used to address partial updates.
type Entity struct {
	Fields   map[string]any
	Context  map[string]any
	ID       int
	Endpoint string
}

// EntityMap maps a stable entity key (interface name, hostname,
// address/prefix) to its canonical record
type EntityMap map[string]Entity

// Keys returns the entity keys in sorted order
func (m EntityMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
