package db

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/ninja-software/terror/v2"
)

var (
	ErrCheckDBQuery = fmt.Errorf("error: executing db query")
	ErrCheckDBDirty = fmt.Errorf("db is dirty")
)

// IsSchemaDirty counts migrations left in a dirty state
func IsSchemaDirty(ctx context.Context, conn Conn, count *int) error {
	q := `SELECT count(*) FROM schema_migrations where dirty is true`
	return pgxscan.Get(ctx, conn, count, q)
}

// Check reports whether the database is reachable and fully migrated
func Check(ctx context.Context, conn Conn) error {
	count := 0
	err := IsSchemaDirty(ctx, conn, &count)
	if err != nil {
		return terror.Error(fmt.Errorf("%w: %v", ErrCheckDBQuery, err))
	}
	if count > 0 {
		return terror.Error(ErrCheckDBDirty)
	}
	return nil
}
