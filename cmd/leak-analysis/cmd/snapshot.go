package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leak-analysis/pkg/errors"
)

var snapshotName string

// snapshotCmd stores a finalized graph
var snapshotCmd = &cobra.Command{
	Use:   "snapshot [files...]",
	Short: "Save the datum graph to the snapshot database",
	Long: `Parse the traces and store the finalized graph under --name in the
configured database (sqlite, postgres or mysql). Stored runs can be explored
with "explore --snapshot <name>" without parsing the traces again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if snapshotName == "" {
			return errors.New(errors.CodeInvalidInput, "--name is required")
		}

		ctx := cmd.Context()
		g, err := buildGraph(ctx, args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		repos, err := openRepositories()
		if err != nil {
			return err
		}
		defer repos.Close()

		run, err := repos.Snapshots.SaveSnapshot(ctx, snapshotName, sourceName(args), g)
		if err != nil {
			return errors.Wrap(errors.CodeDatabaseError, "failed to save snapshot", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved snapshot %s: %d datums, %d edges, %d leaked\n",
			run.Name, run.Datums, run.Edges, run.Leaked)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, err := openRepositories()
		if err != nil {
			return err
		}
		defer repos.Close()

		runs, err := repos.Snapshots.ListRuns(cmd.Context())
		if err != nil {
			return errors.Wrap(errors.CodeDatabaseError, "failed to list snapshots", err)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDATUMS\tEDGES\tLEAKED\tCREATED\tSOURCE")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
				r.Name, r.Datums, r.Edges, r.Leaked, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Source)
		}
		return tw.Flush()
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, err := openRepositories()
		if err != nil {
			return err
		}
		defer repos.Close()

		if err := repos.Snapshots.DeleteRun(cmd.Context(), args[0]); err != nil {
			return errors.Wrap(errors.CodeDatabaseError, "failed to delete snapshot", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %s\n", args[0])
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotName, "name", "n", "", "Run name to store the snapshot under")
	snapshotCmd.AddCommand(snapshotListCmd, snapshotDeleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}
