package graph

import (
	"context"
	"fmt"

	"github.com/leak-analysis/internal/decoder"
	"github.com/leak-analysis/internal/parser/trace"
	"github.com/leak-analysis/pkg/model"
	"github.com/leak-analysis/pkg/telemetry"
	"github.com/leak-analysis/pkg/utils"
)

// BuildStats counts faults met while building.
type BuildStats struct {
	Applied      int
	EventFaults  int
	DecodeFaults int
}

// Builder applies trace events to a registry. A Builder is single use:
// after Finalize it must not be reused.
type Builder struct {
	registry  *Registry
	logger    utils.Logger
	stats     BuildStats
	finalized bool
}

// NewBuilder creates a builder with an empty registry.
func NewBuilder(logger utils.Logger) *Builder {
	return &Builder{
		registry: NewRegistry(),
		logger:   utils.OrNull(logger),
	}
}

// Apply mutates datum state for one event. Fields are overwritten, last
// write wins.
func (b *Builder) Apply(ev trace.Event) error {
	if b.finalized {
		return fmt.Errorf("builder already finalized")
	}

	switch ev.Kind {
	case trace.EventAllocation:
		for _, a := range ev.Allocations {
			b.registry.GetOrCreate(a.ID).Name = a.Name
		}
	case trace.EventCreate:
		d := b.registry.GetOrCreate(ev.ID)
		d.Kind = ev.Type
		d.SetRefcounts(ev.Read, ev.Write)
	case trace.EventCreateContainer:
		d := b.registry.GetOrCreate(ev.ID)
		d.KeyType = ev.KeyType
		d.ValueType = ev.ValueType
	case trace.EventRefcount:
		d := b.registry.GetOrCreate(ev.ID)
		count := ev.Count
		if ev.Refcount == trace.RefcountWrite {
			d.WriteRefcount = &count
		} else {
			d.ReadRefcount = &count
		}
	case trace.EventGC:
		b.registry.GetOrCreate(ev.ID).Freed = true
	case trace.EventStore:
		d := b.registry.GetOrCreate(ev.ID)
		if ev.Subscript == nil {
			d.SetValue(ev.Value)
		} else {
			d.AppendSubscript(*ev.Subscript, ev.Value)
		}
	case trace.EventLeak:
		d := b.registry.GetOrCreate(ev.ID)
		d.Kind = ev.Type
		d.SetValue(ev.Value)
		d.SetRefcounts(ev.Read, ev.Write)
		d.Leaked = true
	default:
		return fmt.Errorf("unknown event kind %v", ev.Kind)
	}

	b.stats.Applied++
	return nil
}

// Build applies every event in order and finalizes. Per-event faults are
// logged and counted; they never abort the build.
func (b *Builder) Build(ctx context.Context, events []trace.Event) (g *Graph, err error) {
	ctx, span := telemetry.Start(ctx, telemetry.PhaseBuild, telemetry.KeyTraceEvents.Int(len(events)))
	defer func() { telemetry.Finish(span, err) }()

	for i, ev := range events {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := b.Apply(ev); err != nil {
			b.stats.EventFaults++
			b.logger.Warn("line %d: %v", ev.Line, err)
		}
	}

	g = b.Finalize()
	stats := g.Stats()
	span.SetAttributes(telemetry.GraphSize(stats.Datums, stats.Edges, stats.Leaked)...)
	return g, nil
}

// Finalize derives references for every datum from its kind and value,
// then computes the reverse index in one pass. Targets that were never
// mentioned become plain datums.
func (b *Builder) Finalize() *Graph {
	b.finalized = true

	for _, id := range b.registry.IDs() {
		d, _ := b.registry.Lookup(id)
		refs, err := deriveReferences(d)
		if err != nil {
			b.stats.DecodeFaults++
			b.logger.Warn("datum %s: %v", d.ID, err)
		}
		d.References = refs
	}

	linkInEdges(b.registry)

	b.logger.Debug("finalized %d datums (%d events, %d event faults, %d decode faults)",
		b.registry.Len(), b.stats.Applied, b.stats.EventFaults, b.stats.DecodeFaults)

	return newGraph(b.registry, b.stats)
}

// Stats returns the fault counters so far.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// deriveReferences decodes the datum's value under its kind. Containers
// filled per subscript decode each element with the element type instead.
// A datum with no kind or no value has no references.
func deriveReferences(d *model.Datum) ([]model.Reference, error) {
	if len(d.Subscripts) > 0 {
		if d.ValueType == "" {
			return nil, nil
		}
		kind := decoder.ParseValueKind(d.ValueType)
		var refs []model.Reference
		var firstErr error
		for _, sub := range d.Subscripts {
			subRefs, err := decoder.DecodeSubscript(kind, sub.Key, sub.Value)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			refs = append(refs, subRefs...)
		}
		return refs, firstErr
	}

	if d.Kind == "" || d.Value == nil {
		return nil, nil
	}
	return decoder.Decode(decoder.ParseValueKind(d.Kind), *d.Value)
}

// linkInEdges is the reverse pass.
func linkInEdges(r *Registry) {
	for _, id := range r.IDs() {
		d, _ := r.Lookup(id)
		d.ClearInEdges()
	}
	for _, id := range r.IDs() {
		d, _ := r.Lookup(id)
		for _, ref := range d.References {
			r.GetOrCreate(ref.Target).AddInEdge(d.ID)
		}
	}
}
