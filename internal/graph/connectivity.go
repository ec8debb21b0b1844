package graph

import (
	"errors"
	"fmt"

	"github.com/leak-analysis/pkg/model"
)

// Unbounded disables the radius limit of Connected.
const Unbounded = -1

var (
	// ErrDatumNotFound is returned when a query names an unknown id.
	ErrDatumNotFound = errors.New("datum not found")

	// ErrInvalidRadius is returned for a negative radius other than Unbounded.
	ErrInvalidRadius = errors.New("invalid radius")
)

// Connected returns the datums within radius hops of start, following
// references in both directions, sorted by id. Each datum is visited once,
// so cycles terminate.
func (g *Graph) Connected(start model.DatumID, radius int) ([]*model.Datum, error) {
	if radius < 0 && radius != Unbounded {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRadius, radius)
	}
	origin, ok := g.Lookup(start)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatumNotFound, start)
	}

	type hop struct {
		datum *model.Datum
		dist  int
	}

	visited := map[model.DatumID]struct{}{start: {}}
	result := []*model.Datum{origin}
	queue := []hop{{datum: origin}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if radius != Unbounded && cur.dist >= radius {
			continue
		}

		for _, next := range neighbours(cur.datum) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			d, ok := g.Lookup(next)
			if !ok {
				continue
			}
			result = append(result, d)
			queue = append(queue, hop{datum: d, dist: cur.dist + 1})
		}
	}

	model.SortDatums(result)
	return result, nil
}

func neighbours(d *model.Datum) []model.DatumID {
	return append(d.Targets(), d.InEdges()...)
}
