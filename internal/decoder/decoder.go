// Package decoder extracts datum references embedded in the textual values
// printed by the store.
//
// A value is decoded under a ValueKind. An explicit kind selects one rule;
// KindInfer tries each recognisable shape in a fixed order and falls back
// to "no references".
package decoder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/leak-analysis/pkg/model"
)

// ErrMalformedValue is returned when an explicit ref or file_ref value does
// not have the expected shape.
var ErrMalformedValue = errors.New("malformed value")

// ValueKind selects the decoding rule for a value.
type ValueKind int

const (
	// KindInfer decodes by recognising the value's shape.
	KindInfer ValueKind = iota
	// KindRef is a single reference: <id>.
	KindRef
	// KindFileRef is status:<id> filename:<id> mapped:N.
	KindFileRef
	// KindStruct is a sequence of {field}={value}.
	KindStruct
	// KindContainer is a sequence of "subscript"={value}.
	KindContainer
	// KindOpaque never holds references (integers, strings, blobs, ...).
	KindOpaque
)

var kindNames = map[ValueKind]string{
	KindInfer:     "infer",
	KindRef:       "ref",
	KindFileRef:   "file_ref",
	KindStruct:    "struct",
	KindContainer: "container",
	KindOpaque:    "opaque",
}

// String returns the store's name for the kind.
func (k ValueKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// ParseValueKind maps a type tag from the trace to a ValueKind. The empty
// tag means unknown and infers; unrecognised tags are opaque.
func ParseValueKind(name string) ValueKind {
	switch name {
	case "":
		return KindInfer
	case "ref":
		return KindRef
	case "file_ref":
		return KindFileRef
	case "struct":
		return KindStruct
	case "container":
		return KindContainer
	default:
		return KindOpaque
	}
}

var (
	refPattern            = regexp.MustCompile(`^<(\d+)>$`)
	fileRefPattern        = regexp.MustCompile(`^status:<(\d+)> filename:<(\d+)> mapped:(\d)`)
	structStartPattern    = regexp.MustCompile(`^[A-Za-z_]*: \{`)
	structElemPattern     = regexp.MustCompile(`\{([^{}]*)\}=\{([^{}]*)\}`)
	containerStartPattern = regexp.MustCompile(`^[a-z_]*=>[a-z_]*: `)
	containerElemPattern  = regexp.MustCompile(`"([^"]*)"=\{([^{}]*)\}`)
)

// Decode returns the references embedded in text, in left to right order.
func Decode(kind ValueKind, text string) ([]model.Reference, error) {
	switch kind {
	case KindRef:
		refs, ok := decodeRef(text)
		if !ok {
			return nil, fmt.Errorf("%w: expected <id>, got %q", ErrMalformedValue, text)
		}
		return refs, nil
	case KindFileRef:
		refs, ok := decodeFileRef(text)
		if !ok {
			return nil, fmt.Errorf("%w: expected file reference, got %q", ErrMalformedValue, text)
		}
		return refs, nil
	case KindStruct:
		return decodeElements(structElemPattern, text), nil
	case KindContainer:
		return decodeElements(containerElemPattern, text), nil
	case KindInfer:
		return infer(text), nil
	default:
		return nil, nil
	}
}

func infer(text string) []model.Reference {
	if refs, ok := decodeRef(text); ok {
		return refs
	}
	if refs, ok := decodeFileRef(text); ok {
		return refs
	}
	if structStartPattern.MatchString(text) {
		return decodeElements(structElemPattern, text)
	}
	if containerStartPattern.MatchString(text) {
		return decodeElements(containerElemPattern, text)
	}
	return nil
}

func decodeRef(text string) ([]model.Reference, bool) {
	m := refPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	id, err := parseID(m[1])
	if err != nil {
		return nil, false
	}
	return []model.Reference{{Target: id}}, true
}

func decodeFileRef(text string) ([]model.Reference, bool) {
	m := fileRefPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	status, err := parseID(m[1])
	if err != nil {
		return nil, false
	}
	filename, err := parseID(m[2])
	if err != nil {
		return nil, false
	}
	return []model.Reference{
		model.NewReference("status", status),
		model.NewReference("filename", filename),
	}, true
}

// decodeElements decodes every key/value element matched by pattern,
// inferring each inner value and prefixing labels with the element key.
func decodeElements(pattern *regexp.Regexp, text string) []model.Reference {
	var refs []model.Reference
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		key, inner := m[1], m[2]
		for _, ref := range infer(inner) {
			refs = append(refs, model.NewReference(JoinLabel(key, ref.Label), ref.Target))
		}
	}
	return refs
}

// DecodeSubscript decodes one container element stored under key with the
// container's element kind. Labels are prefixed with key.
func DecodeSubscript(kind ValueKind, key, text string) ([]model.Reference, error) {
	inner, err := Decode(kind, text)
	if err != nil {
		return nil, fmt.Errorf("subscript %q: %w", key, err)
	}
	refs := make([]model.Reference, 0, len(inner))
	for _, ref := range inner {
		refs = append(refs, model.NewReference(JoinLabel(key, ref.Label), ref.Target))
	}
	return refs, nil
}

// JoinLabel composes an outer key with an optional inner label into a
// dotted path.
func JoinLabel(outer string, inner *string) string {
	if inner == nil {
		return outer
	}
	return outer + "." + *inner
}

func parseID(s string) (model.DatumID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return model.DatumID(n), nil
}
