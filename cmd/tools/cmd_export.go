package main

import (
	"bufio"
	"fmt"
	"os"

	"camtrap/internal/importer"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportOutput string
	exportPage   int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump detections as INSERT statements",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		ctx := cmd.Context()
		store, _, err := openStore(ctx, cmd, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		w := bufio.NewWriter(out)
		n, err := importer.Export(ctx, store, w, exportPage)
		if err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		logger.Info("export finished", zap.String("rows", humanize.Comma(int64(n))))
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <dump.sql>",
	Short: "Execute a dump written by export, one statement per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		ctx := cmd.Context()
		store, cfg, err := openStore(ctx, cmd, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := importer.ReplaySQL(ctx, f, store, logger)
		if err != nil {
			return err
		}
		invalidateCache(ctx, cfg, logger)
		fmt.Fprintf(cmd.OutOrStdout(), "Executed %s statements (%d errors)\n",
			humanize.Comma(int64(res.Imported)), res.Errors)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().IntVar(&exportPage, "page", 1000, "Rows per page")
}
