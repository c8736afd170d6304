package provider

import (
	"sort"
	"time"
)

// Descriptor is the static configuration for one upstream API.
// Immutable after construction; shared read-only by all components.
type Descriptor struct {
	ID             string        `json:"id"`
	DisplayName    string        `json:"display_name"`
	BaseURL        string        `json:"base_url"`
	Category       Category      `json:"category"`
	PriorityTier   int           `json:"priority_tier"` // lower = preferred
	CacheTTL       time.Duration `json:"cache_ttl"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// Registry holds the fixed set of provider descriptors.
type Registry struct {
	byID  map[string]Descriptor
	order []string // configured priority order
}

// NewRegistry builds a registry from descriptors. Iteration order follows
// ascending priority tier, ties broken by id for determinism.
func NewRegistry(descriptors []Descriptor) *Registry {
	sorted := make([]Descriptor, len(descriptors))
	copy(sorted, descriptors)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PriorityTier != sorted[j].PriorityTier {
			return sorted[i].PriorityTier < sorted[j].PriorityTier
		}
		return sorted[i].ID < sorted[j].ID
	})

	r := &Registry{
		byID:  make(map[string]Descriptor, len(sorted)),
		order: make([]string, 0, len(sorted)),
	}
	for _, d := range sorted {
		if d.RequestTimeout <= 0 {
			d.RequestTimeout = 10 * time.Second
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, NewNotFoundError(id)
	}
	return d, nil
}

// All returns every descriptor in priority order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ByCategory returns the candidate provider ids for one data category,
// in priority order.
func (r *Registry) ByCategory(category Category) []string {
	var ids []string
	for _, id := range r.order {
		if r.byID[id].Category == category {
			ids = append(ids, id)
		}
	}
	return ids
}
