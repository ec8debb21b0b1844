package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/pkg/errors"
	"github.com/leak-analysis/pkg/model"
	"github.com/leak-analysis/pkg/writer"
)

var (
	leaksJSON     bool
	leaksSnapshot string
)

// leakReport is the leak summary printed by the leaks command.
type leakReport struct {
	Source string            `json:"source"`
	Datums int               `json:"datums"`
	Leaked int               `json:"leaked"`
	ByKind []graph.KindCount `json:"by_kind"`
	Leaks  []leakEntry       `json:"leaks"`
}

type leakEntry struct {
	ID            model.DatumID `json:"id"`
	Name          string        `json:"name,omitempty"`
	Kind          string        `json:"kind,omitempty"`
	ReadRefcount  *int64        `json:"read_refcount,omitempty"`
	WriteRefcount *int64        `json:"write_refcount,omitempty"`
	Value         *string       `json:"value,omitempty"`
}

// leaksCmd summarizes leaked datums
var leaksCmd = &cobra.Command{
	Use:   "leaks [files...]",
	Short: "Summarize leaked datums by kind",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var report *leakReport
		if leaksSnapshot != "" {
			repos, err := openRepositories()
			if err != nil {
				return err
			}
			defer repos.Close()

			g, err := repos.Snapshots.LoadSnapshot(ctx, leaksSnapshot)
			if err != nil {
				return errors.Wrap(errors.CodeDatabaseError, fmt.Sprintf("failed to load snapshot %q", leaksSnapshot), err)
			}
			byKind, err := repos.Leaks.LeakSummary(ctx, leaksSnapshot)
			if err != nil {
				return errors.Wrap(errors.CodeDatabaseError, "failed to summarize leaks", err)
			}
			report = newLeakReport(leaksSnapshot, g)
			report.ByKind = make([]graph.KindCount, len(byKind))
			for i, k := range byKind {
				report.ByKind[i] = graph.KindCount{Kind: k.Kind, Count: k.Count}
			}
		} else {
			g, err := buildGraph(ctx, args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			report = newLeakReport(sourceName(args), g)
		}

		if leaksJSON {
			return writer.NewPrettyJSONWriter[*leakReport]().Write(report, cmd.OutOrStdout())
		}
		return writeLeakReport(report, cmd.OutOrStdout())
	},
}

func newLeakReport(source string, g *graph.Graph) *leakReport {
	stats := g.Stats()
	report := &leakReport{
		Source: source,
		Datums: stats.Datums,
		Leaked: stats.Leaked,
		ByKind: stats.LeakedByKind,
		Leaks:  make([]leakEntry, 0, stats.Leaked),
	}
	for _, d := range g.Leaked() {
		report.Leaks = append(report.Leaks, leakEntry{
			ID:            d.ID,
			Name:          d.Name,
			Kind:          d.Kind,
			ReadRefcount:  d.ReadRefcount,
			WriteRefcount: d.WriteRefcount,
			Value:         d.Value,
		})
	}
	return report
}

func writeLeakReport(r *leakReport, out io.Writer) error {
	fmt.Fprintf(out, "Source: %s\n", r.Source)
	fmt.Fprintf(out, "Leaked datums: %d of %d\n", r.Leaked, r.Datums)
	if len(r.ByKind) > 0 {
		fmt.Fprintln(out, "By kind:")
		for _, k := range r.ByKind {
			fmt.Fprintf(out, "  %-12s %d\n", k.Kind, k.Count)
		}
	}
	for _, l := range r.Leaks {
		kind := l.Kind
		if kind == "" {
			kind = "None"
		}
		if _, err := fmt.Fprintf(out, "%s %q %s r=%s w=%s\n",
			l.ID, l.Name, kind, countString(l.ReadRefcount), countString(l.WriteRefcount)); err != nil {
			return err
		}
	}
	return nil
}

func countString(n *int64) string {
	if n == nil {
		return "?"
	}
	return strconv.FormatInt(*n, 10)
}

func init() {
	leaksCmd.Flags().BoolVar(&leaksJSON, "json", false, "Print the summary as JSON")
	leaksCmd.Flags().StringVar(&leaksSnapshot, "snapshot", "", "Summarize a stored snapshot instead of trace files")
	rootCmd.AddCommand(leaksCmd)
}
