// Package store defines the transactional persistence used by the registry.
package store

import (
	"context"

	"kitty-services/balances"
	"kitty-services/ledger"
	"kitty-services/market"
)

// Tx is one unit of work. Writes are invisible to other transactions until
// Commit; Rollback after Commit does nothing.
type Tx interface {
	ledger.Store
	market.Store
	balances.AccountStore

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store hands out transactions. Backends run at most one transaction at a
// time, so Begin blocks while another is open.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Transact runs fn in a transaction, committing when it returns nil and
// rolling back otherwise.
func Transact(ctx context.Context, s Store, fn func(tx Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
