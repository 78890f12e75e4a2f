package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/e164networks/e164bill/internal/hierarchy"
	"github.com/e164networks/e164bill/internal/model"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the reseller/client hierarchy and audit DID blocks",
	Long:  "Prints the client-table hierarchy with client, user, and DID counts, lists the DID inventory, and flags 100-number blocks with missing members.",
	RunE:  runTree,
}

func init() {
	treeCmd.Flags().Bool("dids", false, "also print the full DID table")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	clients, err := st.FetchClients(ctx)
	if err != nil {
		return err
	}
	resellerDids, clientDids, err := st.FetchDidCounts(ctx)
	if err != nil {
		return err
	}

	didCounts := make(map[int64]int, len(resellerDids)+len(clientDids))
	for id, n := range resellerDids {
		didCounts[id] += n
	}
	for id, n := range clientDids {
		didCounts[id] += n
	}

	roots := hierarchy.Build(clients, didCounts)
	if err := hierarchy.WriteText(out, roots); err != nil {
		return err
	}

	details, err := st.FetchDidDetails(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	writeBlockAudit(out, hierarchy.AuditBlocks(details))

	if showDids, _ := cmd.Flags().GetBool("dids"); showDids {
		fmt.Fprintln(out)
		writeDidTable(out, details)
	}
	return nil
}

func writeBlockAudit(out io.Writer, missing []hierarchy.MissingBlock) {
	if len(missing) == 0 {
		fmt.Fprintln(out, "All 100-number DID blocks are complete.")
		return
	}
	fmt.Fprintln(out, "Missing DIDs in 100-number blocks:")
	for _, block := range missing {
		fmt.Fprintf(out, "%s: Missing DIDs - %s\n", block.Prefix, strings.Join(block.Missing, ", "))
	}
}

func writeDidTable(out io.Writer, details []model.DidDetail) {
	if len(details) == 0 {
		fmt.Fprintln(out, "No DID data found.")
		return
	}
	fmt.Fprintln(out, "DID Table:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DID\tRESELLER ID\tOWNER\tPRODUCT")
	for _, d := range details {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			d.Number, strconv.FormatInt(d.ResellerID, 10), d.OwnerName, d.ProductCode)
	}
	_ = w.Flush()
}
