package testutil

import (
	"github.com/leak-analysis/pkg/model"
)

// Edge is a reference flattened for comparisons.
type Edge struct {
	Label  string
	Target model.DatumID
}

// Edges flattens references in order. Unlabeled edges get "".
func Edges(refs []model.Reference) []Edge {
	out := make([]Edge, 0, len(refs))
	for _, r := range refs {
		out = append(out, Edge{Label: r.LabelString(), Target: r.Target})
	}
	return out
}

// IDs returns the ids of datums in order.
func IDs(datums []*model.Datum) []model.DatumID {
	out := make([]model.DatumID, 0, len(datums))
	for _, d := range datums {
		out = append(out, d.ID)
	}
	return out
}

// LeakedIDs returns the ids of the leaked datums, in order.
func LeakedIDs(datums []*model.Datum) []model.DatumID {
	var out []model.DatumID
	for _, d := range datums {
		if d.Leaked {
			out = append(out, d.ID)
		}
	}
	return out
}
