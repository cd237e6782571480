package db

import (
	"context"
	"database/sql"
)

// Database is a connectable store that hands out a *sql.DB once connected.
type Database interface {
	Connect(ctx context.Context) error
	Close() error
	DB() *sql.DB
}
