// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql; lib/pq is registered for the "postgres" driver.
//
// Public entry points:
//
//	Open(ctx, driver, dsn, opts)  – pool with retries and a verifying Ping.
//	Migrate(ctx, db, log)         – apply embedded goose migrations.
//
// Open pings the database before returning so callers can fail fast
// during bootstrap.  MySQL DSNs always get parseTime=true so DATETIME
// columns scan into time.Time.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrUnreachable is returned when every connection attempt failed.
var ErrUnreachable = errors.New("database unreachable")

// Options tunes the pool and the startup retry loop.  Zero values take
// the defaults below.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RetryAttempts   int
	RetryInterval   time.Duration
}

const (
	defaultMaxOpen       = 15
	defaultMaxIdle       = 5
	defaultLifetime      = 30 * time.Minute
	defaultRetryAttempts = 3
	defaultRetryInterval = time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = defaultMaxOpen
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = defaultMaxIdle
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = defaultLifetime
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = defaultRetryAttempts
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	return o
}

// Open returns a verified pool.  Attempt n waits n×RetryInterval after a
// failed ping, so several replicas restarting together do not hammer the
// server.
func Open(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	opts = opts.withDefaults()

	dsn, err := normalizeDSN(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	var lastErr error
	for i := range opts.RetryAttempts {
		if lastErr = db.PingContext(ctx); lastErr == nil {
			return db, nil
		}
		if i == opts.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, errors.Join(ErrUnreachable, ctx.Err())
		case <-time.After(time.Duration(i+1) * opts.RetryInterval):
		}
	}
	_ = db.Close()
	return nil, errors.Join(ErrUnreachable, lastErr)
}

func normalizeDSN(driver, dsn string) (string, error) {
	if driver != "mysql" {
		return dsn, nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
