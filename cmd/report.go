package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/facemark/facemark/internal/config"
	"github.com/facemark/facemark/internal/sink"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print recorded attendance from the local SQLite store",
	Long: `Read the local SQLite attendance database and print recorded events,
newest first.

Examples:
  # Everything ever recorded
  facemark report

  # Only the last 24 hours, as CSV
  facemark report --since 24h --csv`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Duration("since", 0, "Only events newer than this (0 = all)")
	reportCmd.Flags().Bool("csv", false, "Output as CSV")
}

func runReport(cmd *cobra.Command, _ []string) error {
	since := mustGetDuration(cmd, "since")
	csvOutput := mustGetBool(cmd, "csv")

	cfg := config.Load()
	store, err := sink.NewSQLite(cfg.Sink.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var cutoff time.Time
	if since > 0 {
		cutoff = time.Now().Add(-since)
	}

	records, err := store.Records(cmd.Context(), cutoff)
	if err != nil {
		return err
	}

	if csvOutput {
		fmt.Println("ID, Status, Timestamp")
		for _, r := range records {
			fmt.Printf("%s, %s, %s\n", r.Key, r.Status, r.OccurredAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	if len(records) == 0 {
		fmt.Println("No attendance recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FACE ID\tNAME\tSTATUS\tTIMESTAMP")
	fmt.Fprintln(w, "-------\t----\t------\t---------")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Key, r.Name, r.Status, r.OccurredAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()

	fmt.Printf("\n%d records\n", len(records))
	return nil
}
