package integration

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/internal/parser/trace"
	"github.com/leak-analysis/internal/render"
	"github.com/leak-analysis/internal/repository"
	"github.com/leak-analysis/internal/session"
	"github.com/leak-analysis/internal/storage"
	"github.com/leak-analysis/internal/testutil"
	"github.com/leak-analysis/pkg/model"
)

func buildFromFiles(t *testing.T, paths ...string) *graph.Graph {
	t.Helper()
	ctx := context.Background()

	res, err := trace.NewParser(nil).ParseFiles(ctx, paths)
	require.NoError(t, err)

	g, err := graph.NewBuilder(nil).Build(ctx, res.Events)
	require.NoError(t, err)
	return g
}

func listing(t *testing.T, g *graph.Graph) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, render.NewTextWriter().Write(g.Datums(), &buf))
	return buf.String()
}

// A trace split over per-rank files, some compressed, must rebuild the same
// graph as the single file.
func TestPipeline_SplitCompressedTrace(t *testing.T) {
	chunks := testutil.SplitFixture(t, testutil.SampleTrace, 10, 17)
	require.Len(t, chunks, 3)

	first := testutil.WriteGzip(t, "rank0.log.gz", chunks[0])
	second := testutil.WriteZstd(t, "rank1.log.zst", chunks[1])
	third := testutil.WriteTemp(t, "rank2.log", chunks[2])

	whole := buildFromFiles(t, testutil.FixturePath(t, testutil.SampleTrace))
	split := buildFromFiles(t, first, second, third)

	assert.Equal(t, listing(t, whole), listing(t, split))
	assert.Equal(t, whole.Stats(), split.Stats())
	assert.Equal(t, []model.DatumID{2, 4, 10}, testutil.LeakedIDs(split.Datums()))
}

func TestPipeline_SessionRendersAndUploads(t *testing.T) {
	g := buildFromFiles(t, testutil.FixturePath(t, testutil.SampleTrace))

	storeDir := t.TempDir()
	store, err := storage.NewDirStore(storeDir)
	require.NoError(t, err)

	renderDir := t.TempDir()
	renderer, err := render.NewFileRenderer(render.FileRendererOptions{
		Dir:       renderDir,
		Publisher: storage.NewPublisher(store, "runs/42", nil),
	})
	require.NoError(t, err)

	var out bytes.Buffer
	s := session.New(g, renderer, &out, session.Options{})
	require.NoError(t, s.Run(context.Background(), strings.NewReader("l\nd 4 1\nd 99\nq\n")))

	assert.Contains(t, out.String(), "Wrote "+filepath.Join(renderDir, "1-leaks.dot"))
	assert.Contains(t, out.String(), "Wrote "+filepath.Join(renderDir, "2-datum-4-r1.dot"))
	assert.Contains(t, out.String(), "Datum <99> not found")

	exists, err := store.Exists(context.Background(), "runs/42/1-leaks.dot")
	require.NoError(t, err)
	assert.True(t, exists)

	dot := testutil.ReadFile(t, filepath.Join(renderDir, "2-datum-4-r1.dot"))
	assert.Contains(t, dot, `4 -> 6 [label="status"];`)
	assert.Contains(t, dot, `4 -> 7 [label="filename"];`)
}

func TestPipeline_SnapshotPreservesQueries(t *testing.T) {
	ctx := context.Background()
	g := buildFromFiles(t, testutil.FixturePath(t, testutil.SampleTrace))

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := repository.OpenGormDB(sqlite.Open(dsn), 1)
	require.NoError(t, err)
	repos, err := repository.NewRepositories(db, repository.SQLite)
	require.NoError(t, err)
	defer repos.Close()

	_, err = repos.Snapshots.SaveSnapshot(ctx, "run", "sample_trace.log", g)
	require.NoError(t, err)
	loaded, err := repos.Snapshots.LoadSnapshot(ctx, "run")
	require.NoError(t, err)

	assert.Equal(t, listing(t, g), listing(t, loaded))

	for _, start := range []model.DatumID{1, 4, 8, 10} {
		for _, radius := range []int{0, 1, 2, graph.Unbounded} {
			want, err := g.Connected(start, radius)
			require.NoError(t, err)
			got, err := loaded.Connected(start, radius)
			require.NoError(t, err)
			assert.Equal(t, testutil.IDs(want), testutil.IDs(got), "start %s radius %d", start, radius)
		}
	}
}
