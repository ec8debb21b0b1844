package cmd

import (
	"github.com/spf13/cobra"

	"github.com/leak-analysis/internal/render"
)

var printLeaksOnly bool

// printCmd prints the text listing
var printCmd = &cobra.Command{
	Use:   "print [files...]",
	Short: "Print every datum as a text listing",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := buildGraph(cmd.Context(), args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		datums := g.Datums()
		if printLeaksOnly {
			datums = g.Leaked()
		}
		return render.NewTextWriter().Write(datums, cmd.OutOrStdout())
	},
}

func init() {
	printCmd.Flags().BoolVar(&printLeaksOnly, "leaks-only", false, "Only list leaked datums")
	rootCmd.AddCommand(printCmd)
}
