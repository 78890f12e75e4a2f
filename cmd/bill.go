package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e164networks/e164bill/internal/billing"
	"github.com/e164networks/e164bill/internal/report"
)

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Generate monthly per-reseller billing reports",
	Long:  "Pulls the month's billable calls, aggregates them by reseller, client, and extension, and writes one sectioned CSV per reseller with a DID appendix.",
	RunE:  runBill,
}

func init() {
	f := billCmd.Flags()
	f.IntP("year", "y", 0, "report year (default: previous month)")
	f.IntP("month", "m", 0, "report month")
	billCmd.MarkFlagsRequiredTogether("year", "month")

	rootCmd.AddCommand(billCmd)
}

func runBill(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	yearFlag, _ := cmd.Flags().GetInt("year")
	monthFlag, _ := cmd.Flags().GetInt("month")
	year, month, err := billMonth(yearFlag, monthFlag, time.Now())
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	records, err := st.FetchCallRecords(ctx, year, month)
	if err != nil {
		return err
	}
	zap.L().Info("fetched call records",
		zap.Int("records", len(records)),
		zap.Int("year", year),
		zap.Int("month", int(month)),
	)
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No billable calls for the period.")
		return nil
	}

	resellerDids, clientDids, err := st.FetchDidCounts(ctx)
	if err != nil {
		return err
	}
	resellerExts, clientExts, err := st.FetchExtensionCounts(ctx)
	if err != nil {
		return err
	}
	dids, err := st.FetchDidDetails(ctx)
	if err != nil {
		return err
	}

	bills := billing.Aggregate(records, billing.Counts{
		ResellerDids:       resellerDids,
		ClientDids:         clientDids,
		ResellerExtensions: resellerExts,
		ClientExtensions:   clientExts,
	})

	for _, bill := range bills {
		name := filepath.Join(cfg.Report.OutputDir, report.BillFilename(year, month, bill.ResellerName))
		f, err := os.Create(name)
		if err != nil {
			return eris.Wrapf(err, "bill: create %s", name)
		}
		if err := report.WriteBillCSV(f, bill, dids); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "bill: close %s", name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", name)
	}

	return nil
}

// billMonth resolves the report month: explicit -y/-m, or the month before
// now.
func billMonth(year, month int, now time.Time) (int, time.Month, error) {
	if year != 0 && month != 0 {
		if month < 1 || month > 12 {
			return 0, 0, eris.Errorf("invalid report month %d", month)
		}
		return year, time.Month(month), nil
	}
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return prev.Year(), prev.Month(), nil
}
