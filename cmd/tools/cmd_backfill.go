package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var backfillPattern string

var backfillCmd = &cobra.Command{
	Use:   "backfill-paths [mapping.yaml]",
	Short: "Fill in missing media paths",
	Long: `Set path on detections that have none. The optional mapping file
(YAML or JSON) maps animal names to paths; other animals get --pattern with
%s replaced by the lowercased animal name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		mapping := map[string]string{}
		if len(args) == 1 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := yaml.Unmarshal(data, &mapping); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
		}

		ctx := cmd.Context()
		store, cfg, err := openStore(ctx, cmd, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.BackfillMediaPaths(ctx, mapping, backfillPattern)
		if err != nil {
			return err
		}
		invalidateCache(ctx, cfg, logger)
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s detections\n", humanize.Comma(n))
		return nil
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillPattern, "pattern", "/static/media/%s.jpg", "Fallback path pattern; empty to skip")
}
