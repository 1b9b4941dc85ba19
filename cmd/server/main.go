package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"camtrap/internal/api"
	"camtrap/internal/cache"
	"camtrap/internal/config"
	"camtrap/internal/db"
	"camtrap/internal/logging"

	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// Parse command line flags
	port := flag.Int("port", 0, "Port to listen on (overrides server.port)")
	dbPath := flag.String("db", "", "Path to SQLite database (overrides database.path)")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	v, err := config.New(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			v.Set("server.port", *port)
		case "db":
			v.Set("database.path", *dbPath)
		}
	})
	cfg, err := config.Decode(v)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, atom, err := logging.New("camtrap-server", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if _, err := os.Stat(*configPath); err == nil {
		config.Watch(v, func(next *config.Config) {
			if lvl := logging.ParseLevel(next.Log.Level); lvl != atom.Level() {
				atom.SetLevel(lvl)
				logger.Info("log level changed", zap.String("level", lvl.String()))
			}
		}, func(err error) {
			logger.Warn("ignoring invalid config change", zap.Error(err))
		})
	}

	staticDir := resolveStaticDir(cfg.Server.StaticDir)
	logger.Info("starting",
		zap.String("version", version),
		zap.String("driver", cfg.Database.Driver),
		zap.String("static_dir", staticDir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	database, err := db.New(ctx, db.Options{
		Driver:         cfg.Database.Driver,
		Path:           cfg.Database.Path,
		DSN:            cfg.Database.DSN,
		MaxOpenConns:   cfg.Database.MaxOpenConns,
		MaxIdleConns:   cfg.Database.MaxIdleConns,
		ConnectRetries: cfg.Database.ConnectRetries,
		RetryDelay:     cfg.Database.RetryDelay,
	}, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	var responses cache.Cache = cache.Nop{}
	if cfg.Cache.Enabled {
		rc, err := cache.NewRedis(ctx, cfg.Cache, logger)
		if err != nil {
			logger.Warn("response cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			responses = rc
		}
	}

	// Create router
	router := api.NewRouter(api.Options{
		Store:     database,
		Cache:     responses,
		Metrics:   api.NewMetrics(),
		Logger:    logger,
		Auth:      cfg.Auth,
		StaticDir: staticDir,
		Version:   version,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("url", "http://localhost"+srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// resolveStaticDir finds the dashboards next to the binary or, for
// development, relative to the working directory
func resolveStaticDir(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(filepath.Dir(execPath)), dir)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, dir)
}
