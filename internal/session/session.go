// Package session implements the interactive command loop over a finalized
// datum graph.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/internal/render"
	"github.com/leak-analysis/pkg/errors"
	"github.com/leak-analysis/pkg/model"
	"github.com/leak-analysis/pkg/utils"
)

const banner = "Leak Analysis\n============="

const menu = `
Menu:
l) Leak check view
d) Full data view
d <id> [<radius>]) Data view of things connected to <id>, with optional radius
rc) Enable showing of reference counts
no-rc) Disable showing of reference counts
p) Print graph
q) Quit
? `

// Options configures a Session.
type Options struct {
	// ShowRefcounts is the initial refcount display setting.
	ShowRefcounts bool

	Logger utils.Logger
}

// Session holds the state of one interactive run.
type Session struct {
	graph    *graph.Graph
	renderer render.Renderer
	text     *render.TextWriter
	out      io.Writer
	logger   utils.Logger
	showRC   bool
}

// New creates a session over g. Output for the operator goes to out.
func New(g *graph.Graph, renderer render.Renderer, out io.Writer, opts Options) *Session {
	return &Session{
		graph:    g,
		renderer: renderer,
		text:     render.NewTextWriter(),
		out:      out,
		logger:   utils.OrNull(opts.Logger),
		showRC:   opts.ShowRefcounts,
	}
}

// ShowRefcounts reports the current refcount display setting.
func (s *Session) ShowRefcounts() bool {
	return s.showRC
}

// Run prints the menu and executes commands from in until q, end of input
// or cancellation. Command faults are reported and never end the loop.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, banner)

	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(s.out, menu)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		done, err := s.Execute(ctx, scanner.Text())
		if err != nil {
			s.report(err)
		}
		if done {
			return nil
		}
	}
}

func (s *Session) report(err error) {
	switch {
	case errors.HasCode(err, errors.CodeRenderError):
		s.logger.Error("%v", err)
	case errors.IsFatal(err):
		s.logger.Error("command failed: %v", err)
	default:
		fmt.Fprintln(s.out, errors.Message(err))
	}
}

// Execute runs a single command line. done is true once the session should
// end.
func (s *Session) Execute(ctx context.Context, line string) (done bool, err error) {
	choice := strings.ToLower(strings.TrimSpace(line))
	toks := strings.Fields(choice)

	if len(toks) == 1 {
		switch toks[0] {
		case "l":
			return false, s.render(ctx, render.View{
				Datums:        s.graph.Leaked(),
				OnlyLeaked:    true,
				ShowRefcounts: true,
				Title:         "leaks",
			})
		case "d":
			return false, s.render(ctx, render.View{
				Datums:        s.graph.Datums(),
				ShowRefcounts: s.showRC,
				Title:         "all",
			})
		case "rc":
			s.showRC = true
			return false, nil
		case "no-rc":
			s.showRC = false
			return false, nil
		case "p":
			return false, s.text.Write(s.graph.Datums(), s.out)
		case "q":
			return true, nil
		}
	}

	if len(toks) >= 2 && len(toks) <= 3 && toks[0] == "d" {
		return false, s.connected(ctx, toks[1:])
	}

	return false, errors.New(errors.CodeInvalidCommand, fmt.Sprintf("Invalid choice '%s'", choice))
}

func (s *Session) connected(ctx context.Context, args []string) error {
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.New(errors.CodeInvalidCommand, fmt.Sprintf("Expected integer data id, but got %s", args[0]))
	}
	id := model.DatumID(n)
	if _, ok := s.graph.Lookup(id); !ok {
		return errors.New(errors.CodeNotFound, fmt.Sprintf("Datum %s not found", id))
	}

	radius := graph.Unbounded
	title := fmt.Sprintf("datum-%d", n)
	if len(args) == 2 {
		radius, err = strconv.Atoi(args[1])
		if err != nil || radius < 0 {
			return errors.New(errors.CodeInvalidCommand, "Expected non-negative integer radius")
		}
		title = fmt.Sprintf("datum-%d-r%d", n, radius)
	}

	datums, err := s.graph.Connected(id, radius)
	if err != nil {
		return errors.Wrap(errors.CodeNotFound, fmt.Sprintf("Datum %s not found", id), err)
	}

	return s.render(ctx, render.View{
		Datums:        datums,
		ShowRefcounts: s.showRC,
		Title:         title,
	})
}

func (s *Session) render(ctx context.Context, view render.View) error {
	path, err := s.renderer.Render(ctx, view)
	if err != nil {
		return errors.Wrap(errors.CodeRenderError, "render failed", err)
	}
	fmt.Fprintf(s.out, "Wrote %s\n", path)
	return nil
}
