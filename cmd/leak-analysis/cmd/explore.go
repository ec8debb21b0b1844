package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/internal/render"
	"github.com/leak-analysis/internal/session"
)

var (
	exploreSnapshot string
	exploreFormat   string
	exploreDir      string
)

// exploreCmd runs the interactive session
var exploreCmd = &cobra.Command{
	Use:   "explore [files...]",
	Short: "Explore a trace interactively",
	Long: `Build the datum graph and read menu commands from stdin:

  l                   draw the leaked datums
  d                   draw every datum
  d <id> [<radius>]   draw the datums connected to <id>
  rc / no-rc          toggle refcounts in node labels
  p                   print the text listing
  q                   quit

Commands are read from stdin, so traces must be given as files or loaded
from a snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && exploreSnapshot == "" {
			return fmt.Errorf("explore needs trace files or --snapshot")
		}
		for _, a := range args {
			if a == "-" {
				return fmt.Errorf("explore reads commands from stdin; pass trace files instead")
			}
		}

		ctx := cmd.Context()
		var g *graph.Graph
		var err error
		if exploreSnapshot != "" {
			g, err = loadSnapshot(ctx, exploreSnapshot)
		} else {
			g, err = buildGraph(ctx, args, nil)
		}
		if err != nil {
			return err
		}

		pub, err := artifactPublisher()
		if err != nil {
			return err
		}

		opts := render.FileRendererOptions{
			Dir:      cfg.Render.Dir,
			Format:   cfg.Render.Format,
			Layout:   cfg.Render.Layout,
			Graphviz: cfg.Render.Graphviz,
			Logger:   logger.Named("render"),
		}
		if pub != nil {
			opts.Publisher = pub
		}
		if exploreFormat != "" {
			opts.Format = exploreFormat
		}
		if exploreDir != "" {
			opts.Dir = exploreDir
		}
		renderer, err := render.NewFileRenderer(opts)
		if err != nil {
			return err
		}

		s := session.New(g, renderer, cmd.OutOrStdout(), session.Options{
			ShowRefcounts: cfg.Render.ShowRC,
			Logger:        logger.Named("session"),
		})
		return s.Run(ctx, cmd.InOrStdin())
	},
}

func init() {
	exploreCmd.Flags().StringVar(&exploreSnapshot, "snapshot", "", "Load the graph from a stored snapshot instead of trace files")
	exploreCmd.Flags().StringVarP(&exploreFormat, "format", "f", "", "Render format: dot, svg or png (overrides render.format)")
	exploreCmd.Flags().StringVarP(&exploreDir, "dir", "d", "", "Render output directory (overrides render.dir)")
	rootCmd.AddCommand(exploreCmd)
}
