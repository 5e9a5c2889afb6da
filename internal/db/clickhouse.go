package db

import (
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

type ClickHouseOpts struct {
	DSN string // e.g. clickhouse://default:@localhost:9000/formdesk?dial_timeout=5s&compress=true
	PoolOpts
}

func NewClickHouseConnection(opts ClickHouseOpts) (*sqlx.DB, error) {
	chOpts, err := clickhouse.ParseDSN(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse ClickHouse DSN: %w", err)
	}

	db := sqlx.NewDb(clickhouse.OpenDB(chOpts), "clickhouse")
	configurePool(db.DB, opts.PoolOpts)

	if err := ping(db.DB, opts.PingTimeout, 3*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
