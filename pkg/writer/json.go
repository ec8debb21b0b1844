// Package writer encodes documents as JSON, optionally compressed.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/leak-analysis/pkg/compression"
)

// JSONWriter writes values of T as JSON.
type JSONWriter[T any] struct {
	// Indent is the per-level indentation. Empty means compact output.
	Indent string

	// Compression applied to the encoded bytes.
	Compression compression.Type

	// Level is used when Compression is not TypeNone.
	Level compression.Level
}

// NewJSONWriter creates a writer with compact, uncompressed output.
func NewJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Level: compression.LevelDefault}
}

// NewPrettyJSONWriter creates a writer with indented, uncompressed output.
func NewPrettyJSONWriter[T any]() *JSONWriter[T] {
	return &JSONWriter[T]{Indent: "  ", Level: compression.LevelDefault}
}

// ForPath creates a writer whose compression follows the extension of path
// (.gz, .zst); other paths get pretty-printed plain JSON.
func ForPath[T any](path string) *JSONWriter[T] {
	w := NewPrettyJSONWriter[T]()
	w.Compression = compression.TypeFromPath(path)
	if w.Compression != compression.TypeNone {
		w.Indent = ""
	}
	return w
}

// Write encodes data to out.
func (w *JSONWriter[T]) Write(data T, out io.Writer) error {
	cw, err := compression.NewWriter(out, w.Compression, w.Level)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cw)
	if w.Indent != "" {
		encoder.SetIndent("", w.Indent)
	}
	if err := encoder.Encode(data); err != nil {
		cw.Close()
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return cw.Close()
}

// WriteResult describes a file produced by WriteToFile.
type WriteResult struct {
	Path        string
	Size        int64
	Compression compression.Type
}

// WriteToFile writes data to a newly created file at path.
func (w *JSONWriter[T]) WriteToFile(data T, path string) (*WriteResult, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := w.Write(data, file); err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &WriteResult{
		Path:        path,
		Size:        info.Size(),
		Compression: w.Compression,
	}, nil
}
