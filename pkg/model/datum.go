// Package model holds the datum types reconstructed from store traces.
package model

import (
	"fmt"
	"sort"
	"strings"
)

// DatumID identifies a datum in the store. Ids are stable for the lifetime
// of the datum.
type DatumID int64

// String formats the id the way the store prints it.
func (id DatumID) String() string {
	return fmt.Sprintf("<%d>", int64(id))
}

// Reference is one outgoing edge of a datum. Label is the field or
// subscript path the target was found under; nil for a bare reference.
type Reference struct {
	Label  *string `json:"label,omitempty"`
	Target DatumID `json:"target"`
}

// LabelString returns the label or "" for an unlabeled reference.
func (r Reference) LabelString() string {
	if r.Label == nil {
		return ""
	}
	return *r.Label
}

// NewReference builds a reference. An empty label yields an unlabeled edge.
func NewReference(label string, target DatumID) Reference {
	if label == "" {
		return Reference{Target: target}
	}
	return Reference{Label: &label, Target: target}
}

// Subscript is one container element stored through data_store <id>[sub]=v.
type Subscript struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Datum is one tracked object of the store as reconstructed from a trace.
// Optional fields use pointers or the empty string for "unset".
type Datum struct {
	ID        DatumID `json:"id"`
	Name      string  `json:"name,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	KeyType   string  `json:"key_type,omitempty"`
	ValueType string  `json:"value_type,omitempty"`

	// Value is the textual value. Container stores accumulate here as
	// space separated key=value pieces.
	Value      *string     `json:"value,omitempty"`
	Subscripts []Subscript `json:"subscripts,omitempty"`

	References []Reference `json:"references,omitempty"`

	ReadRefcount  *int64 `json:"read_refcount,omitempty"`
	WriteRefcount *int64 `json:"write_refcount,omitempty"`

	Leaked bool `json:"leaked"`
	Freed  bool `json:"freed"`

	inEdges map[DatumID]struct{}
}

// NewDatum creates a datum with every optional field unset.
func NewDatum(id DatumID) *Datum {
	return &Datum{ID: id}
}

// SetValue replaces the whole value and drops any subscript entries.
func (d *Datum) SetValue(v string) {
	d.Value = &v
	d.Subscripts = nil
}

// AppendSubscript records a per-subscript store and extends Value.
func (d *Datum) AppendSubscript(key, value string) {
	piece := key + "=" + value
	if d.Value == nil || *d.Value == "" {
		d.Value = &piece
	} else {
		joined := *d.Value + " " + piece
		d.Value = &joined
	}
	d.Subscripts = append(d.Subscripts, Subscript{Key: key, Value: value})
}

// SetRefcounts sets both counts.
func (d *Datum) SetRefcounts(read, write int64) {
	d.ReadRefcount = &read
	d.WriteRefcount = &write
}

// AddInEdge records that src references d.
func (d *Datum) AddInEdge(src DatumID) {
	if d.inEdges == nil {
		d.inEdges = make(map[DatumID]struct{})
	}
	d.inEdges[src] = struct{}{}
}

// ClearInEdges empties the reverse index.
func (d *Datum) ClearInEdges() {
	d.inEdges = nil
}

// HasInEdge reports whether src references d.
func (d *Datum) HasInEdge(src DatumID) bool {
	_, ok := d.inEdges[src]
	return ok
}

// InEdges returns the ids of datums referencing d, sorted ascending.
func (d *Datum) InEdges() []DatumID {
	ids := make([]DatumID, 0, len(d.inEdges))
	for id := range d.inEdges {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

// Targets returns the distinct reference targets in first-seen order.
func (d *Datum) Targets() []DatumID {
	seen := make(map[DatumID]struct{}, len(d.References))
	out := make([]DatumID, 0, len(d.References))
	for _, ref := range d.References {
		if _, ok := seen[ref.Target]; ok {
			continue
		}
		seen[ref.Target] = struct{}{}
		out = append(out, ref.Target)
	}
	return out
}

// ValueString returns the value or "" when unset.
func (d *Datum) ValueString() string {
	if d.Value == nil {
		return ""
	}
	return *d.Value
}

// String renders the datum as <id>("name", kind) => [(label, <target>), ...].
// Unset fields print as None.
func (d *Datum) String() string {
	var sb strings.Builder
	name := "None"
	if d.Name != "" {
		name = fmt.Sprintf("%q", d.Name)
	}
	fmt.Fprintf(&sb, "%s(%s, %s) => [", d.ID, name, kindOrNone(d.Kind))
	for i, ref := range d.References {
		if i > 0 {
			sb.WriteString(", ")
		}
		label := "None"
		if ref.Label != nil {
			label = fmt.Sprintf("%q", *ref.Label)
		}
		fmt.Fprintf(&sb, "(%s, %s)", label, ref.Target)
	}
	sb.WriteString("]")
	return sb.String()
}

func kindOrNone(kind string) string {
	if kind == "" {
		return "None"
	}
	return kind
}

// SortIDs sorts ids ascending in place.
func SortIDs(ids []DatumID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// SortDatums sorts datums by id in place.
func SortDatums(datums []*Datum) {
	sort.Slice(datums, func(i, j int) bool { return datums[i].ID < datums[j].ID })
}
