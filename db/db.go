// Package db is the postgres backend: a transactional store.Store, the
// persisted event log and schema migrations.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/log/zerologadapter"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jpillora/backoff"
	"github.com/ninja-software/terror/v2"
	"github.com/rs/zerolog"
)

type Conn interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
}

//go:embed migrations
var migrations embed.FS

// ConnString builds a postgres url
func ConnString(user, pass, host, port, name, applicationName, version string) string {
	params := url.Values{}
	params.Add("sslmode", "disable")
	if applicationName != "" {
		params.Add("application_name", fmt.Sprintf("%s %s", applicationName, version))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     fmt.Sprintf("%s:%s", host, port),
		Path:     name,
		RawQuery: params.Encode(),
	}
	return u.String()
}

// Connect opens a connection pool, retrying with backoff until attempts
// connections have failed.
func Connect(ctx context.Context, connString string, maxConns int32, attempts int, log *zerolog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, terror.Panic(err, "could not initialise database")
	}
	poolConfig.ConnConfig.Logger = zerologadapter.NewLogger(log.With().Str("name", "pgx").Logger())
	poolConfig.ConnConfig.LogLevel = pgx.LogLevelWarn
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}

	b := &backoff.Backoff{
		Min:    1 * time.Second,
		Max:    10 * time.Second,
		Factor: 2,
	}
	for {
		conn, err := pgxpool.ConnectConfig(ctx, poolConfig)
		if err == nil {
			return conn, nil
		}
		attempt := int(b.Attempt()) + 1
		if attempt >= attempts {
			return nil, terror.Error(err, "could not connect to database")
		}
		wait := b.Duration()
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("database connect failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Migrate applies every pending embedded migration
func Migrate(connString string, log *zerolog.Logger) error {
	source, err := httpfs.New(http.FS(migrations), "migrations")
	if err != nil {
		return terror.Error(err, "could not load migrations")
	}
	mig, err := migrate.NewWithSourceInstance("embed", source, connString)
	if err != nil {
		return terror.Error(err, "could not prepare migrations")
	}
	defer mig.Close()

	err = mig.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("database schema up to date")
		return nil
	}
	if err != nil {
		return terror.Error(err, "could not run migrations")
	}
	version, _, _ := mig.Version()
	log.Info().Uint("version", version).Msg("database migrated")
	return nil
}
