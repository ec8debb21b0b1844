package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "ADLB: Create <5> t:ref r:1 w:1\ndata_store <5>=<6>\n"

func TestDetectType(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Type
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, TypeGzip},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd}, TypeZstd},
		{"text", []byte("ADLB"), TypeNone},
		{"short", []byte{0x1f}, TypeNone},
		{"empty", nil, TypeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectType(tt.header))
		})
	}
}

func TestTypeFromPath(t *testing.T) {
	assert.Equal(t, TypeGzip, TypeFromPath("trace.log.gz"))
	assert.Equal(t, TypeZstd, TypeFromPath("graph.json.ZST"))
	assert.Equal(t, TypeNone, TypeFromPath("trace.log"))
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "gzip", TypeGzip.String())
	assert.Equal(t, "zstd", TypeZstd.String())
	assert.Equal(t, "none", TypeNone.String())
}

func TestRoundTrip(t *testing.T) {
	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd} {
		t.Run(typ.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, typ, LevelFastest)
			require.NoError(t, err)
			_, err = io.WriteString(w, sample)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, detected, err := NewReader(&buf)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, typ, detected)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, sample, string(got))
		})
	}
}

func TestNewReader_ShortPlainInput(t *testing.T) {
	r, typ, err := NewReader(strings.NewReader("q"))
	require.NoError(t, err)
	assert.Equal(t, TypeNone, typ)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "q", string(got))
}

func TestNewReader_CorruptGzip(t *testing.T) {
	_, _, err := NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
	assert.Error(t, err)
}

func TestNewWriter_UnknownType(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Type(42), LevelDefault)
	assert.Error(t, err)
}
