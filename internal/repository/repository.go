// Package repository persists finalized datum graphs so a large trace can
// be explored again without re-parsing it.
package repository

import (
	"context"
	"time"

	"github.com/leak-analysis/internal/graph"
)

// Run describes one stored snapshot.
type Run struct {
	ID        int64
	Name      string
	Source    string
	Datums    int
	Edges     int
	Leaked    int
	CreatedAt time.Time
}

// SnapshotRepository stores and loads finalized graphs by run name.
type SnapshotRepository interface {
	// SaveSnapshot persists g under name. Saving an existing name fails.
	SaveSnapshot(ctx context.Context, name, source string, g *graph.Graph) (*Run, error)

	// LoadSnapshot rebuilds the graph stored under name.
	LoadSnapshot(ctx context.Context, name string) (*graph.Graph, error)

	// ListRuns returns every stored run, newest first.
	ListRuns(ctx context.Context) ([]*Run, error)

	// DeleteRun removes a run and everything stored with it.
	DeleteRun(ctx context.Context, name string) error
}

// KindLeaks is the number of leaked datums of one kind in a run.
type KindLeaks struct {
	Kind  string
	Count int
}

// LeakReporter summarizes leaks straight from the snapshot tables.
type LeakReporter interface {
	LeakSummary(ctx context.Context, runName string) ([]KindLeaks, error)
}
