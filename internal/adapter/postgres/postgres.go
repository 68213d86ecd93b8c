// Package postgres reads TEOTIL3 reference data from the PostGIS database.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// DB is a sqlx handle on the TEOTIL3 database.
type DB struct {
	*sqlx.DB
	logger *slog.Logger
}

// New connects with the pgx driver and pings the server.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected")
	return &DB{DB: db, logger: logger}, nil
}

// CheckReadiness pings the database.
func (db *DB) CheckReadiness(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}
