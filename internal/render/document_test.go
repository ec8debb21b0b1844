package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leak-analysis/pkg/model"
)

func datum(id model.DatumID, kind, name string, refs ...model.Reference) *model.Datum {
	d := model.NewDatum(id)
	d.Kind = kind
	d.Name = name
	d.References = refs
	return d
}

func TestNodeLabel(t *testing.T) {
	d := datum(5, "ref", "main:x")
	d.SetRefcounts(1, 0)

	tests := []struct {
		name   string
		d      *model.Datum
		showRC bool
		want   string
	}{
		{"bare", model.NewDatum(7), true, "<7>"},
		{"kind and name", d, false, "<5>ref 'main:x'"},
		{"with refcounts", d, true, "<5>ref 'main:x' r=1 w=0"},
		{"only write count", &model.Datum{ID: 2, WriteRefcount: new(int64)}, true, "<2> w=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NodeLabel(tt.d, tt.showRC))
		})
	}
}

func TestNodeColour(t *testing.T) {
	assert.Equal(t, ColourLive, NodeColour(&model.Datum{}))
	assert.Equal(t, ColourFreed, NodeColour(&model.Datum{Freed: true}))
	assert.Equal(t, ColourLeaked, NodeColour(&model.Datum{Leaked: true}))
	assert.Equal(t, ColourLeaked, NodeColour(&model.Datum{Leaked: true, Freed: true}))
}

func TestBuildDocument_EdgesStayInside(t *testing.T) {
	a := datum(1, "struct", "", model.NewReference("f", 2), model.NewReference("g", 99))
	b := datum(2, "ref", "", model.NewReference("", 1))

	doc := BuildDocument(View{Datums: []*model.Datum{a, b}, Title: "all"})

	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, []Edge{
		{Source: 1, Target: 2, Label: "f"},
		{Source: 2, Target: 1, Label: ""},
	}, doc.Edges)
	assert.True(t, doc.Directed)
	assert.Equal(t, "all", doc.Title)
}

func TestBuildDocument_OnlyLeaked(t *testing.T) {
	a := datum(1, "ref", "", model.NewReference("", 2))
	a.Leaked = true
	b := datum(2, "integer", "")
	c := datum(3, "ref", "", model.NewReference("", 1))
	c.Leaked = true

	doc := BuildDocument(View{Datums: []*model.Datum{a, b, c}, OnlyLeaked: true, ShowRefcounts: true})

	ids := make([]model.DatumID, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		ids = append(ids, n.ID)
		assert.Equal(t, ColourLeaked, n.FillColour)
	}
	assert.Equal(t, []model.DatumID{1, 3}, ids)
	// 1 -> 2 is dropped with the filtered node; 3 -> 1 stays.
	assert.Equal(t, []Edge{{Source: 3, Target: 1}}, doc.Edges)
}

func TestBuildDocument_MultiEdges(t *testing.T) {
	a := datum(1, "struct", "", model.NewReference("x", 2), model.NewReference("y", 2))
	b := datum(2, "integer", "")

	doc := BuildDocument(View{Datums: []*model.Datum{a, b}})
	assert.Len(t, doc.Edges, 2)
}

func TestBuildDocument_Empty(t *testing.T) {
	doc := BuildDocument(View{})
	assert.Empty(t, doc.Nodes)
	assert.NotNil(t, doc.Edges)
}
