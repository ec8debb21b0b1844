package trace

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/leak-analysis/pkg/model"
)

// ErrMalformedLine is returned when a line carries a known marker but its
// fields cannot be parsed.
var ErrMalformedLine = errors.New("malformed trace line")

const (
	allocationMarker      = "allocated"
	createMarker          = "Create <"
	createContainerMarker = "Create container <"
	leakMarker            = "LEAK DETECTED"
)

var (
	allocPattern           = regexp.MustCompile(`^([A-Za-z0-9:_]+)=<(\d+)>$`)
	createPattern          = regexp.MustCompile(`Create <(\d+)> t:([A-Za-z_]+) r:(\d+) w:(\d+)`)
	createContainerPattern = regexp.MustCompile(`Create container <(\d+)> k:([A-Za-z_]+) v:([A-Za-z_]+)`)
	refcountPattern        = regexp.MustCompile(`(read|write)_refcount: <(\d+)> => (\d+)`)
	gcPattern              = regexp.MustCompile(`datum_gc: <(\d+)>`)
	storePattern           = regexp.MustCompile(`data_store <(\d+)>(?:\[(.*)\])?=(.*)$`)
	leakPattern            = regexp.MustCompile(`LEAK DETECTED: <(\d+)> t:([A-Za-z_]+) r:(\d+) w:(\d+) v:(.+)$`)
)

// Classify recognises a single trace line. It returns (nil, nil) for lines
// that carry no datum information.
func Classify(line string) (*Event, error) {
	switch {
	case strings.Contains(line, allocationMarker):
		return classifyAllocation(line)
	case strings.Contains(line, createMarker):
		return classifyCreate(line)
	case strings.Contains(line, createContainerMarker):
		return classifyCreateContainer(line)
	}

	if m := refcountPattern.FindStringSubmatch(line); m != nil {
		return classifyRefcount(m)
	}
	if m := gcPattern.FindStringSubmatch(line); m != nil {
		id, err := parseID(m[1])
		if err != nil {
			return nil, err
		}
		return &Event{Kind: EventGC, ID: id}, nil
	}
	if loc := storePattern.FindStringSubmatchIndex(line); loc != nil {
		return classifyStore(line, loc)
	}
	if strings.Contains(line, leakMarker) {
		return classifyLeak(line)
	}
	return nil, nil
}

// classifyAllocation keeps every well-formed name=<id> token. Tokens whose id
// does not fit a datum id are set aside in Rejected.
func classifyAllocation(line string) (*Event, error) {
	ev := &Event{Kind: EventAllocation}
	for _, tok := range strings.Fields(line) {
		m := allocPattern.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		id, err := parseID(m[2])
		if err != nil {
			ev.Rejected = append(ev.Rejected, tok)
			continue
		}
		ev.Allocations = append(ev.Allocations, Allocation{Name: m[1], ID: id})
	}
	return ev, nil
}

func classifyCreate(line string) (*Event, error) {
	m := createPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: create line without id, type and refcounts", ErrMalformedLine)
	}
	id, err := parseID(m[1])
	if err != nil {
		return nil, err
	}
	read, write, err := parseCounts(m[3], m[4])
	if err != nil {
		return nil, err
	}
	return &Event{Kind: EventCreate, ID: id, Type: m[2], Read: read, Write: write}, nil
}

func classifyCreateContainer(line string) (*Event, error) {
	m := createContainerPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: container create line without id and types", ErrMalformedLine)
	}
	id, err := parseID(m[1])
	if err != nil {
		return nil, err
	}
	return &Event{Kind: EventCreateContainer, ID: id, KeyType: m[2], ValueType: m[3]}, nil
}

func classifyRefcount(m []string) (*Event, error) {
	id, err := parseID(m[2])
	if err != nil {
		return nil, err
	}
	count, err := parseCount(m[3])
	if err != nil {
		return nil, err
	}
	kind := RefcountRead
	if m[1] == "write" {
		kind = RefcountWrite
	}
	return &Event{Kind: EventRefcount, ID: id, Refcount: kind, Count: count}, nil
}

// classifyStore takes submatch indices so that an absent subscript can be
// told apart from an empty one.
func classifyStore(line string, loc []int) (*Event, error) {
	id, err := parseID(line[loc[2]:loc[3]])
	if err != nil {
		return nil, err
	}
	ev := &Event{Kind: EventStore, ID: id, Value: line[loc[6]:loc[7]]}
	if loc[4] >= 0 {
		sub := line[loc[4]:loc[5]]
		ev.Subscript = &sub
	}
	return ev, nil
}

func classifyLeak(line string) (*Event, error) {
	m := leakPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: leak report without id, type, refcounts and value", ErrMalformedLine)
	}
	id, err := parseID(m[1])
	if err != nil {
		return nil, err
	}
	read, write, err := parseCounts(m[3], m[4])
	if err != nil {
		return nil, err
	}
	return &Event{Kind: EventLeak, ID: id, Type: m[2], Read: read, Write: write, Value: m[5]}, nil
}

func parseID(s string) (model.DatumID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: datum id %q: %v", ErrMalformedLine, s, err)
	}
	return model.DatumID(n), nil
}

func parseCount(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: refcount %q: %v", ErrMalformedLine, s, err)
	}
	return n, nil
}

func parseCounts(read, write string) (int64, int64, error) {
	r, err := parseCount(read)
	if err != nil {
		return 0, 0, err
	}
	w, err := parseCount(write)
	if err != nil {
		return 0, 0, err
	}
	return r, w, nil
}
