package trace

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/leak-analysis/pkg/compression"
)

// StdinPath names standard input in a list of inputs.
const StdinPath = "-"

// ParseFiles parses every input concurrently and concatenates the events in
// the order the paths were given. Gzip and zstd inputs are decompressed
// transparently. An empty path list reads stdin.
func (p *Parser) ParseFiles(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) == 0 {
		paths = []string{StdinPath}
	}

	workers := p.opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := p.parseFile(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Result{Stats: newStats()}
	for _, res := range results {
		merged.Events = append(merged.Events, res.Events...)
		merged.Stats.Add(res.Stats)
	}
	return merged, nil
}

func (p *Parser) parseFile(ctx context.Context, path string) (*Result, error) {
	var src io.Reader
	if path == StdinPath {
		src = p.opts.Stdin
		if src == nil {
			src = os.Stdin
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}

	r, _, err := compression.NewReader(src)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return p.parseNamed(ctx, r, path)
}
