// Package render draws datum subsets as labeled, colour-coded directed
// multigraphs or plain text listings.
package render

import (
	"fmt"
	"strings"

	"github.com/leak-analysis/pkg/model"
)

// Node fill colours.
const (
	ColourLeaked = "pink"
	ColourFreed  = "grey"
	ColourLive   = "white"
)

// DefaultLayout is the Graphviz layout engine used when none is set.
const DefaultLayout = "circo"

// View selects what to draw.
type View struct {
	// Datums to draw. Edges to datums outside this set are omitted.
	Datums []*model.Datum

	// OnlyLeaked drops datums that were not reported as leaked.
	OnlyLeaked bool

	// ShowRefcounts appends r=/w= counts to node labels.
	ShowRefcounts bool

	// Title names the output, e.g. "leaks" or "datum-5".
	Title string
}

// Node is one drawn datum.
type Node struct {
	ID            model.DatumID `json:"id"`
	Label         string        `json:"label"`
	FillColour    string        `json:"fillcolor"`
	Name          string        `json:"name,omitempty"`
	Kind          string        `json:"kind,omitempty"`
	Value         *string       `json:"value,omitempty"`
	ReadRefcount  *int64        `json:"read_refcount,omitempty"`
	WriteRefcount *int64        `json:"write_refcount,omitempty"`
	Leaked        bool          `json:"leaked"`
	Freed         bool          `json:"freed"`
}

// Edge is one drawn reference. Label is "" for a bare reference.
type Edge struct {
	Source model.DatumID `json:"source"`
	Target model.DatumID `json:"target"`
	Label  string        `json:"label"`
}

// Document is the drawable form of a View.
type Document struct {
	Title    string `json:"title"`
	Directed bool   `json:"directed"`
	Strict   bool   `json:"strict"`
	Nodes    []Node `json:"nodes"`
	Edges    []Edge `json:"edges"`
}

// BuildDocument turns a view into nodes and edges. Nodes keep the order of
// view.Datums.
func BuildDocument(view View) *Document {
	doc := &Document{
		Title:    view.Title,
		Directed: true,
		Nodes:    make([]Node, 0, len(view.Datums)),
		Edges:    make([]Edge, 0),
	}

	drawn := make(map[model.DatumID]struct{}, len(view.Datums))
	for _, d := range view.Datums {
		if view.OnlyLeaked && !d.Leaked {
			continue
		}
		drawn[d.ID] = struct{}{}
	}

	for _, d := range view.Datums {
		if _, ok := drawn[d.ID]; !ok {
			continue
		}
		doc.Nodes = append(doc.Nodes, Node{
			ID:            d.ID,
			Label:         NodeLabel(d, view.ShowRefcounts),
			FillColour:    NodeColour(d),
			Name:          d.Name,
			Kind:          d.Kind,
			Value:         d.Value,
			ReadRefcount:  d.ReadRefcount,
			WriteRefcount: d.WriteRefcount,
			Leaked:        d.Leaked,
			Freed:         d.Freed,
		})
		for _, ref := range d.References {
			if _, ok := drawn[ref.Target]; !ok {
				continue
			}
			doc.Edges = append(doc.Edges, Edge{
				Source: d.ID,
				Target: ref.Target,
				Label:  ref.LabelString(),
			})
		}
	}

	return doc
}

// NodeLabel formats <id>kind 'name' r=R w=W, omitting unset parts.
func NodeLabel(d *model.Datum, showRefcounts bool) string {
	var sb strings.Builder
	sb.WriteString(d.ID.String())
	sb.WriteString(d.Kind)
	if d.Name != "" {
		fmt.Fprintf(&sb, " '%s'", d.Name)
	}
	if showRefcounts {
		if d.ReadRefcount != nil {
			fmt.Fprintf(&sb, " r=%d", *d.ReadRefcount)
		}
		if d.WriteRefcount != nil {
			fmt.Fprintf(&sb, " w=%d", *d.WriteRefcount)
		}
	}
	return sb.String()
}

// NodeColour picks the fill colour. Leaked wins over freed.
func NodeColour(d *model.Datum) string {
	switch {
	case d.Leaked:
		return ColourLeaked
	case d.Freed:
		return ColourFreed
	default:
		return ColourLive
	}
}
