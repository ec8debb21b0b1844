package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/internal/parser/trace"
	"github.com/leak-analysis/internal/testutil"
	"github.com/leak-analysis/pkg/config"
	"github.com/leak-analysis/pkg/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := OpenGormDB(sqlite.Open(dsn), 1)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func fixtureGraph(t *testing.T) *graph.Graph {
	t.Helper()
	res, err := trace.NewParser(nil).Parse(context.Background(), testutil.FixtureReader(t, testutil.SampleTrace))
	require.NoError(t, err)
	g, err := graph.NewBuilder(nil).Build(context.Background(), res.Events)
	require.NoError(t, err)
	return g
}

func TestGormSnapshotRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()
	original := fixtureGraph(t)

	run, err := repo.SaveSnapshot(ctx, "nightly", "sample_trace.log", original)
	require.NoError(t, err)
	assert.Equal(t, "nightly", run.Name)
	assert.Equal(t, 9, run.Datums)
	assert.Equal(t, 6, run.Edges)
	assert.Equal(t, 3, run.Leaked)
	assert.NotZero(t, run.ID)

	loaded, err := repo.LoadSnapshot(ctx, "nightly")
	require.NoError(t, err)
	require.Equal(t, original.Len(), loaded.Len())

	for _, want := range original.Datums() {
		got, ok := loaded.Lookup(want.ID)
		require.True(t, ok, "datum %s missing", want.ID)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.KeyType, got.KeyType)
		assert.Equal(t, want.ValueType, got.ValueType)
		assert.Equal(t, want.Value, got.Value)
		assert.Equal(t, want.Subscripts, got.Subscripts)
		assert.Equal(t, testutil.Edges(want.References), testutil.Edges(got.References))
		assert.Equal(t, want.ReadRefcount, got.ReadRefcount)
		assert.Equal(t, want.WriteRefcount, got.WriteRefcount)
		assert.Equal(t, want.Leaked, got.Leaked)
		assert.Equal(t, want.Freed, got.Freed)
		assert.Equal(t, want.InEdges(), got.InEdges())
	}

	ids, err := loaded.Connected(1, graph.Unbounded)
	require.NoError(t, err)
	assert.Equal(t, []model.DatumID{1, 2, 3, 5}, testutil.IDs(ids))
}

func TestGormSnapshotRepository_SaveDuplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()
	g := fixtureGraph(t)

	_, err := repo.SaveSnapshot(ctx, "dup", "a.log", g)
	require.NoError(t, err)

	_, err = repo.SaveSnapshot(ctx, "dup", "b.log", g)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunExists)
}

func TestGormSnapshotRepository_SaveEmptyGraph(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()

	run, err := repo.SaveSnapshot(ctx, "empty", "", graph.FromDatums(nil))
	require.NoError(t, err)
	assert.Zero(t, run.Datums)

	loaded, err := repo.LoadSnapshot(ctx, "empty")
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
}

func TestGormSnapshotRepository_LoadMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)

	_, err := repo.LoadSnapshot(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGormSnapshotRepository_ListAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSnapshotRepository(db)
	ctx := context.Background()
	g := fixtureGraph(t)

	t.Run("ListRuns_Empty", func(t *testing.T) {
		runs, err := repo.ListRuns(ctx)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	_, err := repo.SaveSnapshot(ctx, "first", "a.log", g)
	require.NoError(t, err)
	_, err = repo.SaveSnapshot(ctx, "second", "b.log", g)
	require.NoError(t, err)

	t.Run("ListRuns_NewestFirst", func(t *testing.T) {
		runs, err := repo.ListRuns(ctx)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "second", runs[0].Name)
		assert.Equal(t, "first", runs[1].Name)
	})

	t.Run("DeleteRun", func(t *testing.T) {
		require.NoError(t, repo.DeleteRun(ctx, "first"))

		runs, err := repo.ListRuns(ctx)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "second", runs[0].Name)

		var orphans int64
		require.NoError(t, db.Model(&DatumRecord{}).Where("run_id = ?", runs[0].ID-1).Count(&orphans).Error)
		assert.Zero(t, orphans)

		loaded, err := repo.LoadSnapshot(ctx, "second")
		require.NoError(t, err)
		assert.Equal(t, g.Len(), loaded.Len())
	})

	t.Run("DeleteRun_NotFound", func(t *testing.T) {
		err := repo.DeleteRun(ctx, "first")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input   string
		want    Dialect
		wantErr bool
	}{
		{"", SQLite, false},
		{"SQLite", SQLite, false},
		{"postgres", Postgres, false},
		{"postgresql", Postgres, false},
		{"mysql", MySQL, false},
		{"oracle", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDialect(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDialect_Dialector(t *testing.T) {
	tests := []struct {
		dialect Dialect
		cfg     config.DatabaseConfig
		dsn     string
	}{
		{SQLite, config.DatabaseConfig{Path: "/var/lib/leaks.db"}, "/var/lib/leaks.db?_busy_timeout=5000&_journal_mode=WAL"},
		{SQLite, config.DatabaseConfig{Path: ":memory:"}, ":memory:"},
		{SQLite, config.DatabaseConfig{Path: "file:x?mode=memory"}, "file:x?mode=memory"},
		{Postgres, config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "leaks"},
			"host=db port=5432 user=u password=p dbname=leaks sslmode=disable"},
		{MySQL, config.DatabaseConfig{Host: "db", Port: 3306, User: "u", Password: "p", Database: "leaks"},
			"u:p@tcp(db:3306)/leaks?parseTime=true&loc=Local"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			assert.Equal(t, tt.dsn, tt.dialect.DSN(&tt.cfg))
			assert.Equal(t, string(tt.dialect), tt.dialect.Dialector(&tt.cfg).Name())
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	repos, err := Open(&config.DatabaseConfig{Type: "sqlite", Path: path, MaxConns: 2})
	require.NoError(t, err)
	defer repos.Close()

	assert.Equal(t, SQLite, repos.Dialect)
	assert.NotNil(t, repos.Snapshots)
	assert.NotNil(t, repos.Leaks)
	assert.FileExists(t, path)

	_, err = Open(&config.DatabaseConfig{Type: "oracle"})
	assert.Error(t, err)
}

func TestNewRepositories(t *testing.T) {
	db := setupTestDB(t)

	repos, err := NewRepositories(db, Postgres)
	require.NoError(t, err)
	assert.IsType(t, &SQLLeakReporter{}, repos.Leaks)

	_, err = NewRepositories(db, Dialect("oracle"))
	assert.Error(t, err)
}
