package trace

import (
	"fmt"

	"github.com/leak-analysis/pkg/model"
)

// EventKind is the category of a recognised trace line.
type EventKind int

const (
	EventAllocation EventKind = iota + 1
	EventCreate
	EventCreateContainer
	EventRefcount
	EventGC
	EventStore
	EventLeak
)

var eventKindNames = map[EventKind]string{
	EventAllocation:      "allocation",
	EventCreate:          "create",
	EventCreateContainer: "create_container",
	EventRefcount:        "refcount",
	EventGC:              "gc",
	EventStore:           "store",
	EventLeak:            "leak",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// EventKinds lists every kind in classification order.
func EventKinds() []EventKind {
	return []EventKind{
		EventAllocation, EventCreate, EventCreateContainer,
		EventRefcount, EventGC, EventStore, EventLeak,
	}
}

// RefcountKind tells which counter a refcount event updates.
type RefcountKind int

const (
	RefcountRead RefcountKind = iota
	RefcountWrite
)

func (k RefcountKind) String() string {
	if k == RefcountWrite {
		return "write"
	}
	return "read"
}

// Allocation binds a variable name to a datum id.
type Allocation struct {
	Name string
	ID   model.DatumID
}

// Event is one classified trace line. Only the fields relevant to Kind are
// populated.
type Event struct {
	Kind EventKind
	Line int
	ID   model.DatumID

	// EventAllocation. Rejected holds name=<id> tokens with an id out of range.
	Allocations []Allocation
	Rejected    []string

	// EventCreate, EventLeak
	Type  string
	Read  int64
	Write int64

	// EventCreateContainer
	KeyType   string
	ValueType string

	// EventRefcount
	Refcount RefcountKind
	Count    int64

	// EventStore, EventLeak. Subscript is nil for a whole-value store.
	Subscript *string
	Value     string
}
