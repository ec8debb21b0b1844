// Package graph reconstructs the datum graph from trace events and answers
// connectivity queries over it.
//
// Construction is two-phase. A Builder applies events to a Registry, then
// Finalize derives every datum's references and computes the reverse index
// in a single pass. Only the resulting Graph is exposed to callers.
package graph

import (
	"github.com/leak-analysis/pkg/model"
)

// Registry owns exactly one Datum per id.
type Registry struct {
	datums map[model.DatumID]*model.Datum
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{datums: make(map[model.DatumID]*model.Datum)}
}

// GetOrCreate returns the datum for id, creating it on first mention.
func (r *Registry) GetOrCreate(id model.DatumID) *model.Datum {
	d, ok := r.datums[id]
	if !ok {
		d = model.NewDatum(id)
		r.datums[id] = d
	}
	return d
}

// Lookup returns the datum for id without creating it.
func (r *Registry) Lookup(id model.DatumID) (*model.Datum, bool) {
	d, ok := r.datums[id]
	return d, ok
}

// Len returns the number of datums.
func (r *Registry) Len() int {
	return len(r.datums)
}

// IDs returns every id, sorted ascending.
func (r *Registry) IDs() []model.DatumID {
	ids := make([]model.DatumID, 0, len(r.datums))
	for id := range r.datums {
		ids = append(ids, id)
	}
	model.SortIDs(ids)
	return ids
}
