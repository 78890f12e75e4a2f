package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e164networks/e164bill/internal/model"
	"github.com/e164networks/e164bill/internal/processor"
	"github.com/e164networks/e164bill/internal/report"
	"github.com/e164networks/e164bill/internal/runlog"
)

// exportDefault is the NoOptDefVal sentinel for --csv/--json/--xlsx given
// without a filename.
const exportDefault = "auto"

var didscanCmd = &cobra.Command{
	Use:   "didscan",
	Short: "Classify the DID inventory into ranges and products",
	Long:  "Scans the DID inventory for one ownership scope, detects contiguous ranges and 10/100 blocks, assigns products and prices, and writes the classification back to the database.",
	RunE:  runDidscan,
}

func init() {
	f := didscanCmd.Flags()

	f.IntP("year", "y", 0, "cutoff year (with --month and --day; default today)")
	f.IntP("month", "m", 0, "cutoff month")
	f.IntP("day", "d", 0, "cutoff day")
	f.String("period", "", "report period as YYYY-MM for setup-fee timing (default current month)")
	f.Bool("dry-run", false, "classify and report without writing back")

	f.Bool("client", false, "scan client-owned DIDs (default)")
	f.Bool("reseller", false, "scan reseller-owned DIDs")
	f.Bool("carrier", false, "scan the carrier view of reseller DIDs")
	didscanCmd.MarkFlagsMutuallyExclusive("client", "reseller", "carrier")

	f.String("csv", "", "export to CSV (filename optional)")
	f.String("json", "", "export to JSON (filename optional)")
	f.String("xlsx", "", "export to XLSX (filename optional)")
	f.Lookup("csv").NoOptDefVal = exportDefault
	f.Lookup("json").NoOptDefVal = exportDefault
	f.Lookup("xlsx").NoOptDefVal = exportDefault

	rootCmd.AddCommand(didscanCmd)
}

func runDidscan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	scope := model.ScopeClient
	if ok, _ := flags.GetBool("reseller"); ok {
		scope = model.ScopeReseller
	}
	if ok, _ := flags.GetBool("carrier"); ok {
		scope = model.ScopeCarrier
	}

	year, _ := flags.GetInt("year")
	month, _ := flags.GetInt("month")
	day, _ := flags.GetInt("day")
	cutoff, err := cutoffDate(year, month, day, time.Now())
	if err != nil {
		return err
	}

	rawPeriod, _ := flags.GetString("period")
	period, err := reportPeriod(rawPeriod, time.Now())
	if err != nil {
		return err
	}
	dryRun, _ := flags.GetBool("dry-run")

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	var (
		rl    = initRunLog(st)
		runID string
	)
	if rl != nil && !dryRun {
		runID, err = rl.Start(ctx, string(scope), cutoff, period)
		if err != nil {
			return err
		}
	}

	proc := processor.New(st, processor.Options{
		Scope:        scope,
		Cutoff:       cutoff,
		ReportPeriod: period,
		DryRun:       dryRun,
	})
	result, err := proc.Process(ctx)
	if err != nil {
		if runID != "" {
			if ferr := rl.Fail(ctx, runID, err.Error()); ferr != nil {
				zap.L().Warn("failed to record run failure", zap.Error(ferr))
			}
		}
		return err
	}
	if runID != "" {
		if cerr := rl.Complete(ctx, runID, &runlog.Result{
			ItemsWritten: result.Written,
			Skipped:      int64(result.Summary.Skipped),
		}); cerr != nil {
			zap.L().Warn("failed to record run completion", zap.Error(cerr))
		}
	}

	return writeScanOutputs(cmd, scope, result)
}

// writeScanOutputs exports to every requested format; the console table is
// printed only when no export flag was given.
func writeScanOutputs(cmd *cobra.Command, scope model.Scope, result *processor.Result) error {
	flags := cmd.Flags()
	now := time.Now()
	exported := false

	for _, export := range []struct {
		flag  string
		ext   string
		write func(f *os.File) error
	}{
		{"csv", "csv", func(f *os.File) error { return report.WriteScanCSV(f, result.Items) }},
		{"json", "json", func(f *os.File) error { return report.WriteScanJSON(f, result.Items, result.Summary) }},
		{"xlsx", "xlsx", func(f *os.File) error { return report.WriteScanXLSX(f, result.Items, result.Summary) }},
	} {
		if !flags.Changed(export.flag) {
			continue
		}
		exported = true

		name, _ := flags.GetString(export.flag)
		if name == exportDefault || name == "" {
			name = filepath.Join(cfg.Report.OutputDir, report.DefaultScanFilename(scope, export.ext, now))
		}

		f, err := os.Create(name)
		if err != nil {
			return eris.Wrapf(err, "didscan: create %s", name)
		}
		if err := export.write(f); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "didscan: close %s", name)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results exported to %s\n", name)
	}

	if !exported {
		return report.WriteScanTable(cmd.OutOrStdout(), result.Items, result.Summary)
	}
	return nil
}

// cutoffDate builds the creation-date cutoff from -y/-m/-d, defaulting to
// today when any part is missing.
func cutoffDate(year, month, day int, now time.Time) (time.Time, error) {
	if year == 0 || month == 0 || day == 0 {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, eris.Errorf("invalid cutoff date %d-%d-%d", year, month, day)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// reportPeriod parses a YYYY-MM period, defaulting to the current month.
func reportPeriod(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "didscan: parse period %q", raw)
	}
	return t, nil
}
