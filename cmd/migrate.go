package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/e164networks/e164bill/internal/catalog"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the billing schema",
	Long:  "Creates the product catalog, price override, and run log tables and adds the classification columns to the DID inventory. Idempotent.",
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
		zap.L().Info("schema migration applied")
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")

		if seed, _ := cmd.Flags().GetBool("seed"); seed {
			n, err := st.SeedCatalog(ctx, catalog.DefaultRules())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d product rules.\n", n)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("seed", false, "also seed the built-in product rules")
	rootCmd.AddCommand(migrateCmd)
}
