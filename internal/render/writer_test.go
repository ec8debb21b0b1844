package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leak-analysis/pkg/compression"
	"github.com/leak-analysis/pkg/model"
)

func sampleDocument() *Document {
	a := datum(1, "ref", "say \"hi\"", model.NewReference("", 2))
	a.Leaked = true
	b := datum(2, "integer", "")
	b.Freed = true
	return BuildDocument(View{Datums: []*model.Datum{a, b}, Title: "leaks"})
}

func TestDOTWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDOTWriter("").Write(sampleDocument(), &buf))

	want := `digraph "leaks" {
  layout="circo";
  node [style=filled];
  1 [label="<1>ref 'say \"hi\"'", fillcolor="pink"];
  2 [label="<2>integer", fillcolor="grey"];
  1 -> 2 [label=""];
}
`
	assert.Equal(t, want, buf.String())
}

func TestDOTWriter_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDOTWriter("dot").Write(&Document{}, &buf))
	assert.Contains(t, buf.String(), `layout="dot";`)
}

func TestJSONWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter().Write(sampleDocument(), &buf))

	assert.JSONEq(t, `{
		"title": "leaks",
		"directed": true,
		"strict": false,
		"nodes": [
			{"id": 1, "label": "<1>ref 'say \"hi\"'", "fillcolor": "pink", "name": "say \"hi\"", "kind": "ref", "leaked": true, "freed": false},
			{"id": 2, "label": "<2>integer", "fillcolor": "grey", "kind": "integer", "leaked": false, "freed": true}
		],
		"edges": [{"source": 1, "target": 2, "label": ""}]
	}`, buf.String())
}

func TestJSONWriter_WriteToFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json.gz")
	res, err := NewPrettyJSONWriter().WriteToFile(sampleDocument(), path)
	require.NoError(t, err)
	assert.Equal(t, compression.TypeGzip, res.Compression)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, compression.TypeGzip, compression.DetectType(raw))
}

func TestTextWriter_Write(t *testing.T) {
	a := datum(5, "struct", "A", model.NewReference("f", 6))
	b := model.NewDatum(6)

	var buf bytes.Buffer
	require.NoError(t, NewTextWriter().Write([]*model.Datum{a, b}, &buf))
	assert.Equal(t, "<5>(\"A\", struct) => [(\"f\", <6>)]\n<6>(None, None) => []\n", buf.String())
}
