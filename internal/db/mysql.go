package db

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

type MySQLOpts = PoolOpts

// NewMySQLConnection opens a *sqlx.DB with sensible pool/timeouts.
func NewMySQLConnection(dsn string, opts MySQLOpts) (*sqlx.DB, error) {
	dsn, err := normalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	configurePool(db.DB, opts)

	if err := ping(db.DB, opts.PingTimeout, 5*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// normalizeMySQLDSN forces the options the repositories rely on: DATETIME
// columns scan into time.Time in UTC, and migrate runs a multi-statement file.
func normalizeMySQLDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("empty MySQL DSN")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true

	return cfg.FormatDSN(), nil
}
