// Package ledger owns kitty identifiers, kitty records and the ownership index.
package ledger

import (
	"context"
	"fmt"

	"kitty-services/types"
)

// Store is the persistence a Ledger reads and writes. Absent kitties and
// owners read as nil.
type Store interface {
	KittiesCount(ctx context.Context) (types.KittyIndex, error)
	PutKittiesCount(ctx context.Context, count types.KittyIndex) error
	Kitty(ctx context.Context, id types.KittyIndex) (*types.Kitty, error)
	InsertKitty(ctx context.Context, kitty *types.Kitty) error
	Owner(ctx context.Context, id types.KittyIndex) (*types.AccountID, error)
	PutOwner(ctx context.Context, id types.KittyIndex, owner types.AccountID) error
	KittiesOwnedBy(ctx context.Context, owner types.AccountID) ([]types.KittyIndex, error)
}

type Ledger struct {
	store Store
	max   types.KittyIndex
}

// New returns a ledger that never allocates max or beyond
func New(store Store, max types.KittyIndex) *Ledger {
	return &Ledger{store: store, max: max}
}

// NextID returns the identifier the next creation would receive
func (l *Ledger) NextID(ctx context.Context) (types.KittyIndex, error) {
	return l.store.KittiesCount(ctx)
}

// Advance allocates the next identifier and stages the counter increment.
// Nothing is written when the counter is exhausted.
func (l *Ledger) Advance(ctx context.Context) (types.KittyIndex, error) {
	id, err := l.store.KittiesCount(ctx)
	if err != nil {
		return 0, err
	}
	if id >= l.max {
		return 0, fmt.Errorf("%w: counter at %s", types.ErrCountOverflow, id)
	}
	if err := l.store.PutKittiesCount(ctx, id+1); err != nil {
		return 0, err
	}
	return id, nil
}

func (l *Ledger) Count(ctx context.Context) (types.KittyIndex, error) {
	return l.store.KittiesCount(ctx)
}

func (l *Ledger) Get(ctx context.Context, id types.KittyIndex) (*types.Kitty, error) {
	return l.store.Kitty(ctx, id)
}

func (l *Ledger) OwnerOf(ctx context.Context, id types.KittyIndex) (*types.AccountID, error) {
	return l.store.Owner(ctx, id)
}

// Insert records a new kitty owned by owner. The id must come from Advance
// in the same transaction.
func (l *Ledger) Insert(ctx context.Context, id types.KittyIndex, dna types.Genome, owner types.AccountID) error {
	if err := l.store.InsertKitty(ctx, &types.Kitty{ID: id, DNA: dna}); err != nil {
		return err
	}
	return l.store.PutOwner(ctx, id, owner)
}

// ReassignOwner moves an existing kitty to newOwner
func (l *Ledger) ReassignOwner(ctx context.Context, id types.KittyIndex, newOwner types.AccountID) error {
	owner, err := l.store.Owner(ctx, id)
	if err != nil {
		return err
	}
	if owner == nil {
		return fmt.Errorf("%w: %s", types.ErrInvalidKittyIndex, id)
	}
	return l.store.PutOwner(ctx, id, newOwner)
}

func (l *Ledger) OwnedBy(ctx context.Context, owner types.AccountID) ([]types.KittyIndex, error) {
	return l.store.KittiesOwnedBy(ctx, owner)
}
