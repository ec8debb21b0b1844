package graph

import (
	"sort"

	"github.com/leak-analysis/pkg/model"
)

// Graph is a finalized datum graph. It is read-only by convention; callers
// must not mutate the datums it returns.
type Graph struct {
	registry *Registry
	build    BuildStats
}

func newGraph(r *Registry, build BuildStats) *Graph {
	return &Graph{registry: r, build: build}
}

// FromDatums rebuilds a finalized graph from datums whose references are
// already known, e.g. loaded from a snapshot. The reverse index is
// recomputed.
func FromDatums(datums []*model.Datum) *Graph {
	r := NewRegistry()
	for _, d := range datums {
		r.datums[d.ID] = d
	}
	linkInEdges(r)
	return newGraph(r, BuildStats{})
}

// Lookup returns the datum for id. It never creates one.
func (g *Graph) Lookup(id model.DatumID) (*model.Datum, bool) {
	return g.registry.Lookup(id)
}

// Len returns the number of datums.
func (g *Graph) Len() int {
	return g.registry.Len()
}

// Datums returns every datum sorted by id.
func (g *Graph) Datums() []*model.Datum {
	return g.filter(func(*model.Datum) bool { return true })
}

// Leaked returns the datums reported as leaked, sorted by id.
func (g *Graph) Leaked() []*model.Datum {
	return g.filter(func(d *model.Datum) bool { return d.Leaked })
}

// Freed returns the garbage collected datums, sorted by id.
func (g *Graph) Freed() []*model.Datum {
	return g.filter(func(d *model.Datum) bool { return d.Freed })
}

// Subset returns the datums for ids that exist, sorted by id. Unknown ids
// are skipped.
func (g *Graph) Subset(ids []model.DatumID) []*model.Datum {
	out := make([]*model.Datum, 0, len(ids))
	seen := make(map[model.DatumID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if d, ok := g.registry.Lookup(id); ok {
			out = append(out, d)
		}
	}
	model.SortDatums(out)
	return out
}

func (g *Graph) filter(keep func(*model.Datum) bool) []*model.Datum {
	out := make([]*model.Datum, 0)
	for _, id := range g.registry.IDs() {
		d, _ := g.registry.Lookup(id)
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}

// KindCount is the number of datums of one kind.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Stats summarises a graph.
type Stats struct {
	Datums       int         `json:"datums"`
	Edges        int         `json:"edges"`
	Leaked       int         `json:"leaked"`
	Freed        int         `json:"freed"`
	LeakedByKind []KindCount `json:"leaked_by_kind"`
	EventFaults  int         `json:"event_faults"`
	DecodeFaults int         `json:"decode_faults"`
}

// Stats computes counts over the whole graph. Leaks by kind are ordered by
// count descending, then kind.
func (g *Graph) Stats() Stats {
	s := Stats{
		EventFaults:  g.build.EventFaults,
		DecodeFaults: g.build.DecodeFaults,
	}
	byKind := make(map[string]int)

	for _, d := range g.Datums() {
		s.Datums++
		s.Edges += len(d.References)
		if d.Freed {
			s.Freed++
		}
		if d.Leaked {
			s.Leaked++
			kind := d.Kind
			if kind == "" {
				kind = "unknown"
			}
			byKind[kind]++
		}
	}

	s.LeakedByKind = make([]KindCount, 0, len(byKind))
	for kind, n := range byKind {
		s.LeakedByKind = append(s.LeakedByKind, KindCount{Kind: kind, Count: n})
	}
	sort.Slice(s.LeakedByKind, func(i, j int) bool {
		a, b := s.LeakedByKind[i], s.LeakedByKind[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Kind < b.Kind
	})

	return s
}
