package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/e164networks/e164bill/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect billing run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		rl := initRunLog(st)
		if rl == nil {
			return eris.New("runs: run history requires the postgres store")
		}

		entries, err := rl.ListAll(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		formatRunsList(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	runsCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(runsCmd)
}

func formatRunsList(out io.Writer, entries []runlog.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSCOPE\tSTATUS\tSTARTED\tDURATION\tWRITTEN\tSKIPPED")
	_, _ = fmt.Fprintln(w, "--\t-----\t------\t-------\t--------\t-------\t-------")

	for _, e := range entries {
		dur := ""
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			truncateID(e.ID),
			e.Scope,
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.ItemsWritten,
			e.Skipped,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
