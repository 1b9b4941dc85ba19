package main

import (
	"fmt"
	"os"

	"camtrap/internal/importer"

	"github.com/spf13/cobra"
)

var speciesCmd = &cobra.Command{
	Use:   "species",
	Short: "Manage the protected species list",
}

var speciesLoadCmd = &cobra.Command{
	Use:   "load <species.yaml>",
	Short: "Insert or update species from a YAML list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		species, err := importer.LoadSpecies(f)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, cfg, err := openStore(ctx, cmd, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.UpsertSpecies(ctx, species)
		if err != nil {
			return err
		}
		invalidateCache(ctx, cfg, logger)
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d species\n", n)
		return nil
	},
}

func init() {
	speciesCmd.AddCommand(speciesLoadCmd)
}
