package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql schema_mysql.sql
var schemaFS embed.FS

var (
	// ErrNotFound is returned when a lookup matches no rows
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery is returned when query parameters cannot be used
	ErrInvalidQuery = errors.New("invalid query")
)

var tracer = otel.Tracer("camtrap/internal/db")

// Options selects and tunes the database connection
type Options struct {
	Driver         string // sqlite3 (cgo), sqlite (pure Go) or mysql
	Path           string // SQLite file
	DSN            string // MySQL DSN
	MaxOpenConns   int
	MaxIdleConns   int
	ConnectRetries uint
	RetryDelay     time.Duration
}

// DB wraps sqlx.DB with application-specific methods
type DB struct {
	*sqlx.DB
	dialect Dialect
	log     *zap.Logger
	now     func() time.Time
}

// New opens the database, waits for it to answer and applies the schema
func New(ctx context.Context, opts Options, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dialect, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := dataSource(opts)
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect.Name == "sqlite" {
		// SQLite allows one writer at a time
		conn.SetMaxOpenConns(1)
	} else {
		if opts.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(opts.MaxIdleConns)
		}
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	attempts := opts.ConnectRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	err = retry.Do(
		func() error { return conn.PingContext(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not ready, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &DB{DB: conn, dialect: dialect, log: logger, now: time.Now}
	if err := d.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("database ready", zap.String("driver", opts.Driver))
	return d, nil
}

// OpenSQLite opens a SQLite file with default options
func OpenSQLite(ctx context.Context, driver, path string, logger *zap.Logger) (*DB, error) {
	return New(ctx, Options{Driver: driver, Path: path, ConnectRetries: 1}, logger)
}

// Dialect returns the SQL dialect in use
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// SetClock overrides the time source used for relative date filters
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

func dataSource(opts Options) (string, error) {
	switch opts.Driver {
	case "sqlite3", "sqlite":
		if opts.Path == "" {
			return "", errors.New("sqlite path is required")
		}
		dir := filepath.Dir(opts.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create database directory: %w", err)
		}
		if opts.Driver == "sqlite3" {
			return opts.Path + "?_foreign_keys=on&_busy_timeout=5000", nil
		}
		return opts.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	case "mysql":
		if opts.DSN == "" {
			return "", errors.New("mysql dsn is required")
		}
		return opts.DSN, nil
	}
	return "", fmt.Errorf("unsupported driver %q", opts.Driver)
}

func (db *DB) migrate(ctx context.Context) error {
	schema, err := schemaFS.ReadFile(db.dialect.schemaFile)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	// one statement per Exec
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return nil
}

func (db *DB) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", db.dialect.Name))
	return tracer.Start(ctx, "db."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
