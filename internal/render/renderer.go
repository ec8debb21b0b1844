package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/leak-analysis/pkg/telemetry"
	"github.com/leak-analysis/pkg/utils"
)

// Renderer draws a view and returns where the result went.
type Renderer interface {
	Render(ctx context.Context, view View) (string, error)
}

// Publisher uploads a produced file and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// CommandRunner runs an external program. It exists so tests can stand in
// for Graphviz.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// FileRendererOptions configures a FileRenderer.
type FileRendererOptions struct {
	// Dir receives <seq>-<title>.dot and any converted image.
	Dir string

	// Format is dot, svg or png. Anything but dot runs Graphviz.
	Format string

	// Layout is the Graphviz layout engine.
	Layout string

	// Graphviz is the dot binary.
	Graphviz string

	// Publisher, when set, receives every produced file.
	Publisher Publisher

	Logger utils.Logger
	Runner CommandRunner
}

// FileRenderer writes numbered DOT files and optionally converts and
// uploads them. It never mutates the datums it is given.
type FileRenderer struct {
	opts   FileRendererOptions
	dot    *DOTWriter
	logger utils.Logger
	seq    int
}

// NewFileRenderer creates the output directory and returns a renderer.
func NewFileRenderer(opts FileRendererOptions) (*FileRenderer, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Format == "" {
		opts.Format = "dot"
	}
	if opts.Graphviz == "" {
		opts.Graphviz = "dot"
	}
	if opts.Runner == nil {
		opts.Runner = execRunner
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create render directory: %w", err)
	}

	return &FileRenderer{
		opts:   opts,
		dot:    NewDOTWriter(opts.Layout),
		logger: utils.OrNull(opts.Logger),
	}, nil
}

var unsafeTitle = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Render writes the next numbered file and returns the path of the final
// artifact: the image when converting, the DOT file otherwise.
func (r *FileRenderer) Render(ctx context.Context, view View) (path string, err error) {
	ctx, span := telemetry.Start(ctx, telemetry.PhaseRender,
		telemetry.KeyViewTitle.String(view.Title),
		telemetry.KeyDatums.Int(len(view.Datums)))
	defer func() { telemetry.Finish(span, err) }()

	r.seq++
	title := unsafeTitle.ReplaceAllString(view.Title, "_")
	if title == "" {
		title = "graph"
	}
	base := filepath.Join(r.opts.Dir, fmt.Sprintf("%d-%s", r.seq, title))

	doc := BuildDocument(view)
	dotPath := base + ".dot"
	if err := r.dot.WriteToFile(doc, dotPath); err != nil {
		return "", err
	}
	produced := []string{dotPath}
	path = dotPath

	if r.opts.Format != "dot" {
		imgPath := base + "." + r.opts.Format
		if err := r.opts.Runner(ctx, r.opts.Graphviz, "-T"+r.opts.Format, "-K"+r.dot.Layout, "-o", imgPath, dotPath); err != nil {
			return dotPath, fmt.Errorf("graphviz conversion failed: %w", err)
		}
		produced = append(produced, imgPath)
		path = imgPath
	}

	r.logger.Info("rendered %d nodes, %d edges to %s", len(doc.Nodes), len(doc.Edges), path)

	if r.opts.Publisher != nil {
		for _, p := range produced {
			if _, err := r.opts.Publisher.Publish(ctx, p); err != nil {
				return path, err
			}
		}
	}

	return path, nil
}
