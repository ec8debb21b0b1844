package graph

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leak-analysis/internal/parser/trace"
	"github.com/leak-analysis/internal/testutil"
	"github.com/leak-analysis/pkg/model"
	"github.com/leak-analysis/pkg/utils"
)

// buildFrom parses lines and builds a graph from them.
func buildFrom(t *testing.T, lines ...string) *Graph {
	t.Helper()
	res, err := trace.NewParser(nil).Parse(context.Background(), strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	g, err := NewBuilder(nil).Build(context.Background(), res.Events)
	require.NoError(t, err)
	return g
}

func buildFixture(t *testing.T) *Graph {
	t.Helper()
	res, err := trace.NewParser(nil).Parse(context.Background(), testutil.FixtureReader(t, testutil.SampleTrace))
	require.NoError(t, err)
	g, err := NewBuilder(nil).Build(context.Background(), res.Events)
	require.NoError(t, err)
	return g
}

func mustLookup(t *testing.T, g *Graph, id model.DatumID) *model.Datum {
	t.Helper()
	d, ok := g.Lookup(id)
	require.True(t, ok, "datum %s missing", id)
	return d
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(1)
	assert.False(t, ok)
	assert.Zero(t, r.Len())

	a := r.GetOrCreate(3)
	b := r.GetOrCreate(3)
	assert.Same(t, a, b)
	r.GetOrCreate(1)

	d, ok := r.Lookup(3)
	assert.True(t, ok)
	assert.Same(t, a, d)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []model.DatumID{1, 3}, r.IDs())
}

func TestBuilder_RefcountLastWriteWins(t *testing.T) {
	g := buildFrom(t,
		"ADLB: Create <1> t:integer r:2 w:1",
		"ADLB: read_refcount: <1> => 1",
		"ADLB: write_refcount: <1> => 0",
		"ADLB: read_refcount: <1> => 0",
	)

	d := mustLookup(t, g, 1)
	require.NotNil(t, d.ReadRefcount)
	require.NotNil(t, d.WriteRefcount)
	assert.Equal(t, int64(0), *d.ReadRefcount)
	assert.Equal(t, int64(0), *d.WriteRefcount)
	assert.Equal(t, "integer", d.Kind)
}

func TestBuilder_LeakExample(t *testing.T) {
	g := buildFrom(t, "LEAK DETECTED: <10> t:string r:1 w:0 v:hello")

	d := mustLookup(t, g, 10)
	assert.Equal(t, "string", d.Kind)
	require.NotNil(t, d.ReadRefcount)
	require.NotNil(t, d.WriteRefcount)
	assert.Equal(t, int64(1), *d.ReadRefcount)
	assert.Equal(t, int64(0), *d.WriteRefcount)
	assert.Equal(t, "hello", d.ValueString())
	assert.True(t, d.Leaked)
	assert.False(t, d.Freed)
	assert.Empty(t, d.References)
}

func TestBuilder_ReferencesFollowLatestValue(t *testing.T) {
	g := buildFrom(t,
		"ADLB: Create <1> t:ref r:1 w:1",
		"ADLB: data_store <1>=<2>",
		"ADLB: data_store <1>=<3>",
	)

	d := mustLookup(t, g, 1)
	assert.Equal(t, []testutil.Edge{{Target: 3}}, testutil.Edges(d.References))

	two := mustLookup(t, g, 2)
	assert.Empty(t, two.InEdges())
	assert.Equal(t, []model.DatumID{1}, mustLookup(t, g, 3).InEdges())
}

func TestBuilder_KindAfterValue(t *testing.T) {
	// References are derived at finalization, so the kind may arrive late.
	g := buildFrom(t,
		"ADLB: data_store <1>=status:<4> filename:<5> mapped:1",
		"ADLB: Create <1> t:file_ref r:1 w:1",
	)

	d := mustLookup(t, g, 1)
	assert.Equal(t, []testutil.Edge{{Label: "status", Target: 4}, {Label: "filename", Target: 5}}, testutil.Edges(d.References))
}

func TestBuilder_NoKindNoReferences(t *testing.T) {
	g := buildFrom(t, "ADLB: data_store <1>=<2>")

	assert.Empty(t, mustLookup(t, g, 1).References)
	_, ok := g.Lookup(2)
	assert.False(t, ok)
}

func TestBuilder_ContainerSubscripts(t *testing.T) {
	g := buildFrom(t,
		"ADLB: Create <3> t:container r:1 w:1",
		"ADLB: Create container <3> k:string v:file_ref",
		"ADLB: data_store <3>[a]=status:<4> filename:<5> mapped:0",
		"ADLB: data_store <3>[b]=<6>",
		"ADLB: data_store <3>[c]=status:<7> filename:<8> mapped:1",
	)

	d := mustLookup(t, g, 3)
	assert.Equal(t, "a=status:<4> filename:<5> mapped:0 b=<6> c=status:<7> filename:<8> mapped:1", d.ValueString())
	assert.Equal(t, []testutil.Edge{
		{Label: "a.status", Target: 4}, {Label: "a.filename", Target: 5},
		{Label: "c.status", Target: 7}, {Label: "c.filename", Target: 8},
	}, testutil.Edges(d.References))
	assert.Equal(t, 1, g.Stats().DecodeFaults)
}

func TestBuilder_WholeStoreResetsSubscripts(t *testing.T) {
	g := buildFrom(t,
		"ADLB: Create <3> t:container r:1 w:1",
		"ADLB: Create container <3> k:integer v:ref",
		"ADLB: data_store <3>[0]=<4>",
		`LEAK DETECTED: <3> t:container r:1 w:0 v:integer=>ref: "1"={<5>}`,
	)

	d := mustLookup(t, g, 3)
	assert.Empty(t, d.Subscripts)
	assert.Equal(t, []testutil.Edge{{Label: "1", Target: 5}}, testutil.Edges(d.References))
	assert.Empty(t, mustLookup(t, g, 4).InEdges())
}

func TestBuilder_ReverseEdgeCompleteness(t *testing.T) {
	g := buildFixture(t)

	for _, d := range g.Datums() {
		for _, ref := range d.References {
			target := mustLookup(t, g, ref.Target)
			assert.True(t, target.HasInEdge(d.ID), "%s -> %s missing in-edge", d.ID, ref.Target)
		}
	}
}

func TestBuilder_InEdgesOnlyAfterFinalize(t *testing.T) {
	res, err := trace.NewParser(nil).Parse(context.Background(), strings.NewReader(
		"ADLB: Create <1> t:ref r:1 w:1\nADLB: data_store <1>=<2>\nADLB: Create <2> t:integer r:1 w:1\n"))
	require.NoError(t, err)

	b := NewBuilder(nil)
	for _, ev := range res.Events {
		require.NoError(t, b.Apply(ev))
	}
	before, ok := b.registry.Lookup(2)
	require.True(t, ok)
	assert.Empty(t, before.InEdges())

	g := b.Finalize()
	assert.Equal(t, []model.DatumID{1}, mustLookup(t, g, 2).InEdges())

	assert.Error(t, b.Apply(res.Events[0]))
}

func TestBuilder_UnknownTargetsBecomeDatums(t *testing.T) {
	g := buildFrom(t,
		"ADLB: Create <1> t:ref r:1 w:1",
		"ADLB: data_store <1>=<99>",
	)

	d := mustLookup(t, g, 99)
	assert.Equal(t, "", d.Kind)
	assert.Nil(t, d.Value)
	assert.Equal(t, []model.DatumID{1}, d.InEdges())
}

func TestBuilder_EventFaultsAreLogged(t *testing.T) {
	var logs bytes.Buffer
	b := NewBuilder(utils.NewDefaultLogger(utils.LevelWarn, &logs))

	g, err := b.Build(context.Background(), []trace.Event{
		{Kind: trace.EventGC, ID: 1, Line: 1},
		{Kind: trace.EventKind(99), ID: 2, Line: 2},
		{Kind: trace.EventGC, ID: 3, Line: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 1, b.Stats().EventFaults)
	assert.Equal(t, 2, b.Stats().Applied)
	assert.Contains(t, logs.String(), "line 2: unknown event kind")
}

func TestBuilder_DecodeFaultsAreLogged(t *testing.T) {
	var logs bytes.Buffer
	res, err := trace.NewParser(nil).Parse(context.Background(), strings.NewReader(
		"ADLB: Create <1> t:ref r:1 w:1\nADLB: data_store <1>=not-a-ref\n"))
	require.NoError(t, err)

	g, err := NewBuilder(utils.NewDefaultLogger(utils.LevelWarn, &logs)).Build(context.Background(), res.Events)
	require.NoError(t, err)

	assert.Empty(t, mustLookup(t, g, 1).References)
	assert.Equal(t, 1, g.Stats().DecodeFaults)
	assert.Contains(t, logs.String(), "datum <1>: malformed value")
}

func TestBuilder_BuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(nil).Build(ctx, []trace.Event{{Kind: trace.EventGC, ID: 1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilder_FreedAndLeakedCoexist(t *testing.T) {
	g := buildFrom(t,
		"ADLB: datum_gc: <5>",
		"LEAK DETECTED: <5> t:integer r:0 w:1 v:3",
	)

	d := mustLookup(t, g, 5)
	assert.True(t, d.Freed)
	assert.True(t, d.Leaked)
}
