package db

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/ninja-software/terror/v2"
)

const KeyKittiesCount = "kitties_count"

// kvGet returns the value under key, and false when it was never set
func kvGet(ctx context.Context, conn Conn, key string) (string, bool, error) {
	q := `--sql
		SELECT value FROM kv WHERE key = $1`
	value := ""
	err := conn.QueryRow(ctx, q, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, terror.Error(err, "could not read kv")
	}
	return value, true, nil
}

func kvPut(ctx context.Context, conn Conn, key, value string) error {
	q := `--sql
		INSERT INTO kv (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	_, err := conn.Exec(ctx, q, key, value)
	if err != nil {
		return terror.Error(err, "could not write kv")
	}
	return nil
}

func kvGetUint(ctx context.Context, conn Conn, key string) (uint64, error) {
	value, ok, err := kvGet(ctx, conn, key)
	if err != nil || !ok {
		return 0, err
	}
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, terror.Error(err, "could not parse kv value")
	}
	return v, nil
}

func kvPutUint(ctx context.Context, conn Conn, key string, value uint64) error {
	return kvPut(ctx, conn, key, strconv.FormatUint(value, 10))
}
