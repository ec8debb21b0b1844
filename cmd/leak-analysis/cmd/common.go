package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/internal/parser/trace"
	"github.com/leak-analysis/internal/repository"
	"github.com/leak-analysis/internal/storage"
	"github.com/leak-analysis/pkg/errors"
)

// buildGraph parses paths in order ("-" or none reads stdin) and returns
// the finalized graph.
func buildGraph(ctx context.Context, paths []string, stdin io.Reader) (*graph.Graph, error) {
	for _, p := range paths {
		if p == trace.StdinPath {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return nil, errors.Wrap(errors.CodeInvalidInput, "cannot read trace file", err)
		}
	}

	opts := trace.DefaultParserOptions()
	opts.StrictMode = cfg.Input.Strict
	opts.Workers = cfg.Input.Workers
	opts.Stdin = stdin
	opts.Logger = logger.Named("trace")

	res, err := trace.NewParser(opts).ParseFiles(ctx, paths)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "failed to parse trace", err)
	}
	logger.Info("Parsed %d lines: %d recognized, %d ignored, %d malformed",
		res.Stats.TotalLines, res.Stats.Recognized, res.Stats.Ignored, res.Stats.Malformed)
	if res.Stats.Truncated > 0 {
		logger.Warn("%d trace input(s) ended early; the graph covers only the lines read", res.Stats.Truncated)
	}

	g, err := graph.NewBuilder(logger.Named("graph")).Build(ctx, res.Events)
	if err != nil {
		return nil, err
	}

	stats := g.Stats()
	logger.Info("Built graph: %d datums, %d edges, %d leaked, %d freed",
		stats.Datums, stats.Edges, stats.Leaked, stats.Freed)
	if stats.EventFaults > 0 || stats.DecodeFaults > 0 {
		logger.Warn("Graph is partial: %d events and %d values could not be applied",
			stats.EventFaults, stats.DecodeFaults)
	}
	return g, nil
}

// openRepositories connects to the configured snapshot database.
func openRepositories() (*repository.Repositories, error) {
	repos, err := repository.Open(&cfg.Database)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "failed to open snapshot database", err)
	}
	return repos, nil
}

// loadSnapshot reads a stored graph by run name.
func loadSnapshot(ctx context.Context, name string) (*graph.Graph, error) {
	repos, err := openRepositories()
	if err != nil {
		return nil, err
	}
	defer repos.Close()

	g, err := repos.Snapshots.LoadSnapshot(ctx, name)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, fmt.Sprintf("failed to load snapshot %q", name), err)
	}
	logger.Info("Loaded snapshot %s: %d datums", name, g.Len())
	return g, nil
}

// artifactPublisher returns a publisher for the configured store, or nil
// when uploads are disabled.
func artifactPublisher() (*storage.Publisher, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	store, err := storage.Open(&cfg.Storage)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, "failed to open artifact store", err)
	}
	return storage.NewPublisher(store, cfg.Storage.Prefix, logger.Named("storage")), nil
}

// sourceName describes the inputs of a run.
func sourceName(paths []string) string {
	if len(paths) == 0 {
		return trace.StdinPath
	}
	return strings.Join(paths, ",")
}
