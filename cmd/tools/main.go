// Command tools maintains the camtrap database: schema setup, imports,
// migrations between SQLite and MySQL, and consistency checks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"camtrap/internal/cache"
	"camtrap/internal/config"
	"camtrap/internal/db"
	"camtrap/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	driver     string
	dbPath     string
	dsn        string
	logLevel   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "tools",
	Short:         "camtrap database tools",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: sqlite3, sqlite or mysql")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "MySQL DSN")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level")

	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(speciesCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(crosscheckCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the persistent flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		v.Set("database.driver", driver)
	}
	if flags.Changed("db") {
		v.Set("database.path", dbPath)
	}
	if flags.Changed("dsn") {
		v.Set("database.dsn", dsn)
	}
	return config.Decode(v)
}

func newLogger() *zap.Logger {
	logger, _, err := logging.New("camtrap-tools", logLevel, "console")
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func optionsFrom(cfg config.DatabaseConfig) db.Options {
	return db.Options{
		Driver:         cfg.Driver,
		Path:           cfg.Path,
		DSN:            cfg.DSN,
		MaxOpenConns:   cfg.MaxOpenConns,
		MaxIdleConns:   cfg.MaxIdleConns,
		ConnectRetries: cfg.ConnectRetries,
		RetryDelay:     cfg.RetryDelay,
	}
}

// openStore opens the configured database, creating the schema if needed
func openStore(ctx context.Context, cmd *cobra.Command, logger *zap.Logger) (*db.DB, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := db.New(ctx, optionsFrom(cfg.Database), logger)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// invalidator is the part of the response cache the tools touch
type invalidator interface {
	Invalidate(ctx context.Context) error
	Close() error
}

var openCache = func(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (invalidator, error) {
	return cache.NewRedis(ctx, cfg, logger)
}

// invalidateCache bumps the response cache generation after a write.
// Failures are logged; the write itself already succeeded.
func invalidateCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	if !cfg.Cache.Enabled {
		return
	}
	c, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Warn("response cache not invalidated", zap.Error(err))
		return
	}
	defer c.Close()
	if err := c.Invalidate(ctx); err != nil {
		logger.Warn("response cache not invalidated", zap.Error(err))
		return
	}
	logger.Info("response cache invalidated")
}
