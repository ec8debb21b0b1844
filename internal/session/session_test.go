package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/internal/mock"
	"github.com/leak-analysis/internal/parser/trace"
	"github.com/leak-analysis/internal/render"
	"github.com/leak-analysis/internal/testutil"
	"github.com/leak-analysis/pkg/model"
	"github.com/leak-analysis/pkg/utils"
)

func fixtureGraph(t *testing.T) *graph.Graph {
	t.Helper()
	res, err := trace.NewParser(nil).Parse(context.Background(), testutil.FixtureReader(t, testutil.SampleTrace))
	require.NoError(t, err)
	g, err := graph.NewBuilder(nil).Build(context.Background(), res.Events)
	require.NoError(t, err)
	return g
}

func newSession(t *testing.T, r render.Renderer) (*Session, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return New(fixtureGraph(t), r, &out, Options{}), &out
}

func TestExecute_Messages(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"unknown", "x", "Invalid choice 'x'"},
		{"empty", "", "Invalid choice ''"},
		{"too many args", "d 1 2 3", "Invalid choice 'd 1 2 3'"},
		{"args on l", "L 1", "Invalid choice 'l 1'"},
		{"bad id", "d abc", "Expected integer data id, but got abc"},
		{"unknown id", "d 404", "Datum <404> not found"},
		{"bad radius", "d 1 far", "Expected non-negative integer radius"},
		{"negative radius", "d 1 -1", "Expected non-negative integer radius"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(mock.MockRenderer)
			s, out := newSession(t, r)

			done, err := s.Execute(context.Background(), tt.line)
			require.Error(t, err)
			assert.False(t, done)

			s.report(err)
			assert.Equal(t, tt.want+"\n", out.String())
			r.AssertNotCalled(t, "Render")
		})
	}
}

func TestExecute_LeakView(t *testing.T) {
	r := new(mock.MockRenderer)
	r.ExpectRender("leaks", "render/1-leaks.dot", nil)
	s, out := newSession(t, r)

	done, err := s.Execute(context.Background(), "l")
	require.NoError(t, err)
	assert.False(t, done)

	views := r.Views()
	require.Len(t, views, 1)
	assert.True(t, views[0].OnlyLeaked)
	assert.True(t, views[0].ShowRefcounts)
	assert.Equal(t, []model.DatumID{2, 4, 10}, testutil.IDs(views[0].Datums))
	assert.Equal(t, "Wrote render/1-leaks.dot\n", out.String())
}

func TestExecute_FullViewFollowsRefcountToggle(t *testing.T) {
	r := new(mock.MockRenderer)
	r.ExpectRender("all", "all.dot", nil)
	s, _ := newSession(t, r)

	for _, line := range []string{"d", "RC", "d", "no-rc", "d"} {
		_, err := s.Execute(context.Background(), line)
		require.NoError(t, err)
	}

	views := r.Views()
	require.Len(t, views, 3)
	assert.False(t, views[0].ShowRefcounts)
	assert.True(t, views[1].ShowRefcounts)
	assert.False(t, views[2].ShowRefcounts)
	assert.Len(t, views[0].Datums, 9)
	assert.False(t, s.ShowRefcounts())
}

func TestExecute_ConnectedView(t *testing.T) {
	r := new(mock.MockRenderer)
	r.ExpectRender("datum-1-r1", "a.dot", nil)
	r.ExpectRender("datum-1", "b.dot", nil)
	s, _ := newSession(t, r)

	_, err := s.Execute(context.Background(), "d 1 1")
	require.NoError(t, err)
	_, err = s.Execute(context.Background(), "  d   1 ")
	require.NoError(t, err)

	views := r.Views()
	require.Len(t, views, 2)
	assert.Equal(t, []model.DatumID{1, 2, 3}, testutil.IDs(views[0].Datums))
	assert.Equal(t, []model.DatumID{1, 2, 3, 5}, testutil.IDs(views[1].Datums))
	assert.False(t, views[1].OnlyLeaked)
}

func TestExecute_Print(t *testing.T) {
	s, out := newSession(t, new(mock.MockRenderer))

	_, err := s.Execute(context.Background(), "p")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 9)
	assert.Equal(t, `<1>("main:x", integer) => []`, lines[0])
	assert.Equal(t, `<3>("A", container) => [("0", <1>), ("1", <2>)]`, lines[2])
	assert.Equal(t, `<10>(None, string) => []`, lines[8])
}

func TestExecute_Quit(t *testing.T) {
	s, _ := newSession(t, new(mock.MockRenderer))
	done, err := s.Execute(context.Background(), "Q")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestRun_RenderFailureIsLoggedAndLoopContinues(t *testing.T) {
	r := new(mock.MockRenderer)
	r.ExpectRender("all", "", errors.New("dot: not found"))

	var out, logs bytes.Buffer
	s := New(fixtureGraph(t), r, &out, Options{Logger: utils.NewDefaultLogger(utils.LevelDebug, &logs)})

	err := s.Run(context.Background(), strings.NewReader("d\nrc\nq\nd\n"))
	require.NoError(t, err)

	r.AssertNumberOfCalls(t, "Render", 1)
	assert.True(t, s.ShowRefcounts())
	assert.Contains(t, logs.String(), " ERROR ")
	assert.Contains(t, logs.String(), "dot: not found")
	assert.Equal(t, 3, strings.Count(out.String(), "Menu:"))
}

func TestRun_EOFEndsSession(t *testing.T) {
	s, out := newSession(t, new(mock.MockRenderer))

	require.NoError(t, s.Run(context.Background(), strings.NewReader("bogus\n")))
	assert.Contains(t, out.String(), "Leak Analysis")
	assert.Contains(t, out.String(), "Invalid choice 'bogus'")
	assert.Equal(t, 2, strings.Count(out.String(), "Menu:"))
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := newSession(t, new(mock.MockRenderer))
	assert.ErrorIs(t, s.Run(ctx, strings.NewReader("q\n")), context.Canceled)
}
