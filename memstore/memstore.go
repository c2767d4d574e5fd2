// Package memstore is an in-memory store.Store. A transaction works on a
// copy of the state and swaps it in on commit.
package memstore

import (
	"context"
	"fmt"
	"sort"

	"kitty-services/balances"
	"kitty-services/store"
	"kitty-services/types"

	"github.com/shopspring/decimal"
)

// ErrTxDone when a finished transaction is used again
var ErrTxDone = fmt.Errorf("transaction already committed or rolled back")

type state struct {
	count    types.KittyIndex
	kitties  map[types.KittyIndex]types.Genome
	owners   map[types.KittyIndex]types.AccountID
	prices   map[types.KittyIndex]decimal.NullDecimal
	accounts map[types.AccountID]balances.Account
}

func newState() *state {
	return &state{
		kitties:  map[types.KittyIndex]types.Genome{},
		owners:   map[types.KittyIndex]types.AccountID{},
		prices:   map[types.KittyIndex]decimal.NullDecimal{},
		accounts: map[types.AccountID]balances.Account{},
	}
}

func (s *state) clone() *state {
	c := &state{
		count:    s.count,
		kitties:  make(map[types.KittyIndex]types.Genome, len(s.kitties)),
		owners:   make(map[types.KittyIndex]types.AccountID, len(s.owners)),
		prices:   make(map[types.KittyIndex]decimal.NullDecimal, len(s.prices)),
		accounts: make(map[types.AccountID]balances.Account, len(s.accounts)),
	}
	for k, v := range s.kitties {
		c.kitties[k] = v
	}
	for k, v := range s.owners {
		c.owners[k] = v
	}
	for k, v := range s.prices {
		c.prices[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	return c
}

// Store admits one transaction at a time. Holding the single slot token
// grants access to state.
type Store struct {
	slot  chan struct{}
	state *state
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{slot: make(chan struct{}, 1), state: newState()}
}

// Begin waits for any open transaction to finish before starting a new one,
// or until ctx is done.
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &Tx{store: s, state: s.state.clone()}, nil
}

type Tx struct {
	store *Store
	state *state
	done  bool
}

func (tx *Tx) Commit(ctx context.Context) error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	tx.store.state = tx.state
	<-tx.store.slot
	return nil
}

func (tx *Tx) Rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	<-tx.store.slot
	return nil
}

func (tx *Tx) check() error {
	if tx.done {
		return ErrTxDone
	}
	return nil
}

func (tx *Tx) KittiesCount(ctx context.Context) (types.KittyIndex, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	return tx.state.count, nil
}

func (tx *Tx) PutKittiesCount(ctx context.Context, count types.KittyIndex) error {
	if err := tx.check(); err != nil {
		return err
	}
	tx.state.count = count
	return nil
}

func (tx *Tx) Kitty(ctx context.Context, id types.KittyIndex) (*types.Kitty, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	dna, ok := tx.state.kitties[id]
	if !ok {
		return nil, nil
	}
	return &types.Kitty{ID: id, DNA: dna}, nil
}

func (tx *Tx) InsertKitty(ctx context.Context, kitty *types.Kitty) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, ok := tx.state.kitties[kitty.ID]; ok {
		return fmt.Errorf("kitty %s already exists", kitty.ID)
	}
	tx.state.kitties[kitty.ID] = kitty.DNA
	return nil
}

func (tx *Tx) Owner(ctx context.Context, id types.KittyIndex) (*types.AccountID, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	owner, ok := tx.state.owners[id]
	if !ok {
		return nil, nil
	}
	return &owner, nil
}

func (tx *Tx) PutOwner(ctx context.Context, id types.KittyIndex, owner types.AccountID) error {
	if err := tx.check(); err != nil {
		return err
	}
	tx.state.owners[id] = owner
	return nil
}

func (tx *Tx) KittiesOwnedBy(ctx context.Context, owner types.AccountID) ([]types.KittyIndex, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	ids := []types.KittyIndex{}
	for id, o := range tx.state.owners {
		if o == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (tx *Tx) SalePrice(ctx context.Context, id types.KittyIndex) (decimal.NullDecimal, error) {
	if err := tx.check(); err != nil {
		return decimal.NullDecimal{}, err
	}
	return tx.state.prices[id], nil
}

func (tx *Tx) PutSalePrice(ctx context.Context, id types.KittyIndex, price decimal.NullDecimal) error {
	if err := tx.check(); err != nil {
		return err
	}
	tx.state.prices[id] = price
	return nil
}

func (tx *Tx) DeleteSalePrice(ctx context.Context, id types.KittyIndex) error {
	if err := tx.check(); err != nil {
		return err
	}
	delete(tx.state.prices, id)
	return nil
}

func (tx *Tx) Account(ctx context.Context, id types.AccountID) (balances.Account, error) {
	if err := tx.check(); err != nil {
		return balances.Account{}, err
	}
	return tx.state.accounts[id], nil
}

func (tx *Tx) PutAccount(ctx context.Context, id types.AccountID, acc balances.Account) error {
	if err := tx.check(); err != nil {
		return err
	}
	tx.state.accounts[id] = acc
	return nil
}
