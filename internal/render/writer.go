package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leak-analysis/pkg/compression"
	"github.com/leak-analysis/pkg/model"
	"github.com/leak-analysis/pkg/writer"
)

// JSONWriter writes a document as JSON.
type JSONWriter struct {
	json *writer.JSONWriter[*Document]
}

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter() *JSONWriter {
	return &JSONWriter{json: writer.NewJSONWriter[*Document]()}
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter() *JSONWriter {
	return &JSONWriter{json: writer.NewPrettyJSONWriter[*Document]()}
}

// Write writes the document as JSON to out.
func (w *JSONWriter) Write(doc *Document, out io.Writer) error {
	return w.json.Write(doc, out)
}

// WriteToFile writes the document to path, compressing by extension.
func (w *JSONWriter) WriteToFile(doc *Document, path string) (*writer.WriteResult, error) {
	fw := writer.ForPath[*Document](path)
	if fw.Compression == compression.TypeNone {
		fw.Indent = w.json.Indent
	}
	return fw.WriteToFile(doc, path)
}

// DOTWriter writes a document in Graphviz DOT format.
type DOTWriter struct {
	// Layout is the Graphviz layout engine.
	Layout string
}

// NewDOTWriter creates a new DOT format writer.
func NewDOTWriter(layout string) *DOTWriter {
	if layout == "" {
		layout = DefaultLayout
	}
	return &DOTWriter{Layout: layout}
}

// Write writes the document as a non-strict digraph with filled nodes.
func (w *DOTWriter) Write(doc *Document, out io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "digraph %s {\n", dotQuote(doc.Title))
	fmt.Fprintf(&sb, "  layout=%s;\n", dotQuote(w.Layout))
	sb.WriteString("  node [style=filled];\n")

	for _, n := range doc.Nodes {
		fmt.Fprintf(&sb, "  %d [label=%s, fillcolor=%s];\n",
			int64(n.ID), dotQuote(n.Label), dotQuote(n.FillColour))
	}
	for _, e := range doc.Edges {
		fmt.Fprintf(&sb, "  %d -> %d [label=%s];\n",
			int64(e.Source), int64(e.Target), dotQuote(e.Label))
	}
	sb.WriteString("}\n")

	_, err := io.WriteString(out, sb.String())
	return err
}

// WriteToFile writes the document in DOT format to a file.
func (w *DOTWriter) WriteToFile(doc *Document, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := w.Write(doc, file); err != nil {
		return err
	}
	return file.Close()
}

func dotQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return `"` + r.Replace(s) + `"`
}

// TextWriter writes one line per datum:
// <id>("name", kind) => [(label, <target>), ...]
type TextWriter struct{}

// NewTextWriter creates a text listing writer.
func NewTextWriter() *TextWriter {
	return &TextWriter{}
}

// Write lists datums in the order given. All references are listed,
// including those leaving the set.
func (w *TextWriter) Write(datums []*model.Datum, out io.Writer) error {
	for _, d := range datums {
		if _, err := fmt.Fprintln(out, d.String()); err != nil {
			return err
		}
	}
	return nil
}
