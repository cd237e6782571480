package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dfryer1193/xbrush/shared/config"
	"github.com/dfryer1193/xbrush/shared/db"
	_ "modernc.org/sqlite"
)

const (
	// defaultPath is the default path for the SQLite database
	defaultPath = "./xbrush.db"
)

type SQLiteConfig struct {
	Path string `env:"SQLITE_DB_PATH" envDefault:"./xbrush.db"`
}

// NewSQLiteConfig reads SQLITE_DB_PATH, falling back to ./xbrush.db.
func NewSQLiteConfig() (*SQLiteConfig, error) {
	cfg := &SQLiteConfig{}
	if err := config.ParseEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	return cfg, nil
}

// SQLiteDB implements the db.Database interface for SQLite
type SQLiteDB struct {
	dbPath string
	db     *sql.DB
}

var _ db.Database = (*SQLiteDB)(nil)

// NewSQLiteDB creates a new, unconnected SQLite database instance
func NewSQLiteDB(cfg *SQLiteConfig) *SQLiteDB {
	return &SQLiteDB{
		dbPath: cfg.Path,
	}
}

// Connect opens the database, applies pragmas and runs pending migrations
func (s *SQLiteDB) Connect(ctx context.Context) error {
	if s.db != nil {
		return fmt.Errorf("database already connected")
	}

	conn, err := sql.Open("sqlite", dsn(s.dbPath))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Database-wide pragmas; per-connection ones live in the DSN
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // readers do not block the writer
		"PRAGMA synchronous=NORMAL", // safe with WAL, fewer fsyncs
		"PRAGMA cache_size=-64000",  // 64MB page cache (negative means KB)
	}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	// Bring the schema up to date
	if err := runMigrations(ctx, conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.db = conn
	return nil
}

// dsn adds the per-connection pragmas so every pooled connection enforces
// foreign keys, not just the first one.
func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

// DB returns the underlying *sql.DB instance
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// Path returns the database file path
func (s *SQLiteDB) Path() string {
	return s.dbPath
}
