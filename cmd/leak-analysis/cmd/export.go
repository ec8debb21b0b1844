package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/internal/render"
	"github.com/leak-analysis/pkg/errors"
	"github.com/leak-analysis/pkg/model"
)

var (
	exportOutput    string
	exportFormat    string
	exportLeaksOnly bool
	exportUpload    bool
	exportSnapshot  string
	exportDatum     int64
	exportRadius    int
)

// exportCmd writes the graph document
var exportCmd = &cobra.Command{
	Use:   "export [files...]",
	Short: "Export the datum graph as JSON or DOT",
	Long: `Export the reconstructed graph. JSON output is compressed when the
output name ends in .gz or .zst. DOT output is chosen with --format dot or
a .dot output name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if exportUpload && exportOutput == "-" {
			return fmt.Errorf("--upload needs an output file")
		}

		var g *graph.Graph
		var err error
		if exportSnapshot != "" {
			g, err = loadSnapshot(ctx, exportSnapshot)
		} else {
			g, err = buildGraph(ctx, args, cmd.InOrStdin())
		}
		if err != nil {
			return err
		}

		view := render.View{
			Datums:        g.Datums(),
			OnlyLeaked:    exportLeaksOnly,
			ShowRefcounts: true,
			Title:         "all",
		}
		if exportLeaksOnly {
			view.Title = "leaks"
		}
		if cmd.Flags().Changed("datum") {
			datums, err := g.Connected(model.DatumID(exportDatum), exportRadius)
			if err != nil {
				return errors.Wrap(errors.CodeInvalidInput, "cannot select datums", err)
			}
			view.Datums = datums
			view.Title = fmt.Sprintf("datum-%d", exportDatum)
			if exportRadius != graph.Unbounded {
				view.Title = fmt.Sprintf("datum-%d-r%d", exportDatum, exportRadius)
			}
		}
		doc := render.BuildDocument(view)

		format := exportFormat
		if format == "" {
			format = "json"
			if strings.HasSuffix(exportOutput, ".dot") {
				format = "dot"
			}
		}

		switch {
		case exportOutput == "-" && format == "dot":
			return render.NewDOTWriter(cfg.Render.Layout).Write(doc, cmd.OutOrStdout())
		case exportOutput == "-":
			return render.NewPrettyJSONWriter().Write(doc, cmd.OutOrStdout())
		case format == "dot":
			if err := render.NewDOTWriter(cfg.Render.Layout).WriteToFile(doc, exportOutput); err != nil {
				return errors.Wrap(errors.CodeRenderError, "failed to write DOT", err)
			}
		case format == "json":
			res, err := render.NewPrettyJSONWriter().WriteToFile(doc, exportOutput)
			if err != nil {
				return errors.Wrap(errors.CodeRenderError, "failed to write JSON", err)
			}
			logger.Debug("Wrote %d bytes (%s)", res.Size, res.Compression)
		default:
			return fmt.Errorf("unsupported export format: %s", format)
		}
		logger.Info("Exported %d datums and %d edges to %s", len(doc.Nodes), len(doc.Edges), exportOutput)
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", exportOutput)

		if exportUpload {
			return uploadArtifact(cmd, exportOutput)
		}
		return nil
	},
}

func uploadArtifact(cmd *cobra.Command, path string) error {
	pub, err := artifactPublisher()
	if err != nil {
		return err
	}
	if pub == nil {
		return errors.New(errors.CodeConfigError, "storage is disabled; set storage.enabled to upload")
	}

	url, err := pub.Publish(cmd.Context(), path)
	if err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to upload export", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n", url)
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "Output file, - for stdout")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: json or dot")
	exportCmd.Flags().BoolVar(&exportLeaksOnly, "leaks-only", false, "Only export leaked datums")
	exportCmd.Flags().BoolVar(&exportUpload, "upload", false, "Upload the output file to the configured storage")
	exportCmd.Flags().StringVar(&exportSnapshot, "snapshot", "", "Export a stored snapshot instead of trace files")
	exportCmd.Flags().Int64Var(&exportDatum, "datum", 0, "Only export datums connected to this id")
	exportCmd.Flags().IntVar(&exportRadius, "radius", graph.Unbounded, "Connection radius for --datum, -1 for unbounded")
	rootCmd.AddCommand(exportCmd)
}
