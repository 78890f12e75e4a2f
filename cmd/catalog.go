package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e164networks/e164bill/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the product catalog",
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load product rules into the database",
	Long:  "Seeds the product catalog with the built-in rule set, or with rules from a YAML file when --file is given.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rules := catalog.DefaultRules()
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			var err error
			rules, err = catalog.LoadRulesFile(path)
			if err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.SeedCatalog(ctx, rules)
		if err != nil {
			return err
		}
		zap.L().Info("seeded product catalog", zap.Int64("rules", n))
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d product rules.\n", n)
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective product rules and price overrides",
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

		cat, err := catalog.Load(ctx, st)
		if err != nil {
			return err
		}
		formatCatalog(cmd, cat)
		return nil
	},
}

func formatCatalog(cmd *cobra.Command, cat *catalog.Catalog) {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tCODE\tPREFIXES\tLENGTH\tBLOCK\tSETUP\tRECURRING")
	for _, r := range cat.Rules {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t$%s\t$%s\n",
			r.Priority, r.Code, strings.Join(r.Prefixes, ","), r.ExactLength,
			r.BlockSize, r.SetupCost.StringFixed(2), r.RecurringCost.StringFixed(2))
	}
	_ = w.Flush()

	if len(cat.Overrides) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Price overrides:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tOWNER\tSETUP\tRECURRING")
	for _, o := range cat.Overrides {
		owner := "(global)"
		if o.OwnerID != nil {
			owner = strconv.FormatInt(*o.OwnerID, 10)
		}
		fmt.Fprintf(w, "%s\t%s\t$%s\t$%s\n",
			o.ProductCode, owner, o.SetupCost.StringFixed(2), o.RecurringCost.StringFixed(2))
	}
	_ = w.Flush()
}

func init() {
	catalogSeedCmd.Flags().String("file", "", "YAML rules file to seed from")
	catalogCmd.AddCommand(catalogSeedCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	rootCmd.AddCommand(catalogCmd)
}
