// Package testutil holds fixtures and comparison helpers for tests.
package testutil

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// SampleTrace is the shared trace fixture under testdata/. It allocates
// nine datums, stores six references and reports three leaks.
const SampleTrace = "sample_trace.log"

// findTestData walks up from the calling test's directory to the nearest
// testdata/ holding name.
func findTestData(t *testing.T, name string) string {
	t.Helper()
	_, caller, _, ok := runtime.Caller(2)
	require.True(t, ok, "no caller information")

	dir := filepath.Dir(caller)
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, "testdata", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
		dir = filepath.Dir(dir)
	}
	require.FailNow(t, "fixture not found", name)
	return ""
}

// FixturePath returns the absolute path of a testdata fixture.
func FixturePath(t *testing.T, name string) string {
	t.Helper()
	return findTestData(t, name)
}

// Fixture returns the contents of a testdata fixture.
func Fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(findTestData(t, name))
	require.NoError(t, err)
	return data
}

// FixtureReader returns a testdata fixture as a reader.
func FixtureReader(t *testing.T, name string) io.Reader {
	t.Helper()
	data, err := os.ReadFile(findTestData(t, name))
	require.NoError(t, err)
	return bytes.NewReader(data)
}

// SplitFixture cuts a fixture into chunks of whole lines, breaking before
// each of the given 0-based line numbers. It mimics a trace split over
// per-rank files.
func SplitFixture(t *testing.T, name string, cuts ...int) []string {
	t.Helper()
	data, err := os.ReadFile(findTestData(t, name))
	require.NoError(t, err)

	lines := strings.SplitAfter(string(data), "\n")
	chunks := make([]string, 0, len(cuts)+1)
	start := 0
	for _, c := range cuts {
		require.True(t, c > start && c < len(lines), "bad cut %d", c)
		chunks = append(chunks, strings.Join(lines[start:c], ""))
		start = c
	}
	return append(chunks, strings.Join(lines[start:], ""))
}

// WriteTemp writes content to name inside a fresh temp directory.
func WriteTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// WriteGzip is WriteTemp with gzip compression.
func WriteGzip(t *testing.T, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return WriteTemp(t, name, buf.String())
}

// WriteZstd is WriteTemp with zstd compression.
func WriteZstd(t *testing.T, name, content string) string {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return WriteTemp(t, name, string(enc.EncodeAll([]byte(content), nil)))
}

// ReadFile returns the contents of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
