package main

import (
	"fmt"
	"os"

	"camtrap/internal/db"
	"camtrap/internal/importer"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importBatch    int
	importTruncate bool

	migrateFromDriver string
	migrateFromPath   string
	migrateFromDSN    string
	migratePage       int
	migrateTruncate   bool
)

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Import annotation records, one JSON object per line",
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

		if importTruncate {
			n, err := store.DeleteAllDetections(ctx)
			if err != nil {
				return err
			}
			logger.Info("cleared detections", zap.Int64("rows", n))
		}

		res, err := importer.ImportJSONL(ctx, f, store, importer.Options{BatchSize: importBatch, Logger: logger})
		if err != nil {
			return err
		}
		invalidateCache(ctx, cfg, logger)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s of %s lines (%d errors)\n",
			humanize.Comma(int64(res.Imported)), humanize.Comma(int64(res.Lines)), res.Errors)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy detections from another database into the configured one",
	Long: `Copy every detection, ids included, from a source database into the
configured database. Typically used to move a SQLite file into MySQL:

  tools migrate --from-driver sqlite3 --from-db data/image_info.db --driver mysql --dsn 'user:pass@tcp(db:3306)/camtrap'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		defer logger.Sync()

		ctx := cmd.Context()
		src, err := db.New(ctx, db.Options{
			Driver:         migrateFromDriver,
			Path:           migrateFromPath,
			DSN:            migrateFromDSN,
			ConnectRetries: 3,
		}, logger.Named("source"))
		if err != nil {
			return fmt.Errorf("source: %w", err)
		}
		defer src.Close()

		dst, cfg, err := openStore(ctx, cmd, logger.Named("destination"))
		if err != nil {
			return fmt.Errorf("destination: %w", err)
		}
		defer dst.Close()

		n, err := importer.Migrate(ctx, src, dst, importer.MigrateOptions{
			PageSize: migratePage,
			Truncate: migrateTruncate,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		invalidateCache(ctx, cfg, logger)
		fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s detections\n", humanize.Comma(int64(n)))
		return nil
	},
}

func init() {
	importCmd.Flags().IntVar(&importBatch, "batch", 500, "Rows per transaction")
	importCmd.Flags().BoolVar(&importTruncate, "truncate", false, "Delete existing detections first")

	migrateCmd.Flags().StringVar(&migrateFromDriver, "from-driver", "sqlite3", "Source driver")
	migrateCmd.Flags().StringVar(&migrateFromPath, "from-db", "data/image_info.db", "Source SQLite file")
	migrateCmd.Flags().StringVar(&migrateFromDSN, "from-dsn", "", "Source MySQL DSN")
	migrateCmd.Flags().IntVar(&migratePage, "page", 1000, "Rows per page")
	migrateCmd.Flags().BoolVar(&migrateTruncate, "truncate", false, "Empty the destination first")
}
