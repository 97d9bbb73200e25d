package document

import "sort"

// Properties is an insertion-ordered property map. Assigning to an existing
// key replaces its value but keeps the key at its original position, which
// is the duplicate-property rule the grammar requires: last write wins,
// first position survives.
type Properties struct {
	order []string
	props map[string]any
}

// Len returns the number of distinct keys.
func (p *Properties) Len() int {
	return len(p.order)
}

// Exist returns true if at least one property is set.
func (p *Properties) Exist() bool {
	return len(p.order) > 0
}

// Get returns the value for key and whether it is present.
func (p *Properties) Get(key string) (any, bool) {
	v, ok := p.props[key]
	return v, ok
}

// Add sets key to val, keeping the key's first-insertion position if it
// already exists.
func (p *Properties) Add(key string, val any) {
	if p.props == nil {
		p.order = make([]string, 0, 8)
		p.props = make(map[string]any, 8)
	}
	if _, exists := p.props[key]; !exists {
		p.order = append(p.order, key)
	}
	p.props[key] = val
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	keys := make([]string, len(p.order))
	copy(keys, p.order)
	return keys
}

// SortedKeys returns the keys in alphabetical order.
func (p *Properties) SortedKeys() []string {
	keys := p.Keys()
	sort.Strings(keys)
	return keys
}
