// Package compression provides streaming gzip/zstd readers and writers for
// trace inputs and exported graphs.
package compression

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Type represents the compression algorithm used.
type Type uint8

const (
	// TypeNone is plain, uncompressed data.
	TypeNone Type = iota
	// TypeGzip is gzip (.gz).
	TypeGzip
	// TypeZstd is zstandard (.zst).
	TypeZstd
)

// String returns the algorithm name.
func (t Type) String() string {
	switch t {
	case TypeGzip:
		return "gzip"
	case TypeZstd:
		return "zstd"
	default:
		return "none"
	}
}

// Level represents the compression level.
type Level int

const (
	// LevelFastest prioritizes speed over compression ratio.
	LevelFastest Level = 1
	// LevelDefault balances speed and compression ratio.
	LevelDefault Level = 3
	// LevelBest prioritizes compression ratio over speed.
	LevelBest Level = 9
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectType detects the compression type from leading magic bytes.
// Anything unrecognised is treated as plain text.
func DetectType(header []byte) Type {
	if len(header) >= len(zstdMagic) && string(header[:4]) == string(zstdMagic) {
		return TypeZstd
	}
	if len(header) >= len(gzipMagic) && string(header[:2]) == string(gzipMagic) {
		return TypeGzip
	}
	return TypeNone
}

// TypeFromPath picks the compression type from a file extension.
func TypeFromPath(path string) Type {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return TypeGzip
	case ".zst", ".zstd":
		return TypeZstd
	default:
		return TypeNone
	}
}

// NewReader sniffs r and returns a reader yielding decompressed data.
// Plain input is passed through. Closing the result releases decoder
// resources but never closes r.
func NewReader(r io.Reader) (io.ReadCloser, Type, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, TypeNone, fmt.Errorf("failed to sniff input: %w", err)
	}

	switch t := DetectType(header); t {
	case TypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, t, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, t, nil
	case TypeZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, t, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return dec.IOReadCloser(), t, nil
	default:
		return io.NopCloser(br), TypeNone, nil
	}
}

// NewWriter wraps w so that writes are compressed with t. Close must be
// called to flush; it does not close w.
func NewWriter(w io.Writer, t Type, level Level) (io.WriteCloser, error) {
	switch t {
	case TypeGzip:
		gzLevel := gzip.DefaultCompression
		switch level {
		case LevelFastest:
			gzLevel = gzip.BestSpeed
		case LevelBest:
			gzLevel = gzip.BestCompression
		}
		gz, err := gzip.NewWriterLevel(w, gzLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		return gz, nil
	case TypeZstd:
		zLevel := zstd.SpeedDefault
		switch level {
		case LevelFastest:
			zLevel = zstd.SpeedFastest
		case LevelBest:
			zLevel = zstd.SpeedBestCompression
		}
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zLevel))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return enc, nil
	case TypeNone:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", t)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
