package registry

import (
	"context"
	"fmt"

	"kitty-services/balances"
	"kitty-services/types"

	"github.com/shopspring/decimal"
)

func kittyView(ctx context.Context, t *txn, id types.KittyIndex) (*types.KittyView, error) {
	k, err := t.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := t.ledger.OwnerOf(ctx, id)
	if err != nil {
		return nil, err
	}
	if k == nil || owner == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidKittyIndex, id)
	}
	price, err := t.market.Price(ctx, id)
	if err != nil {
		return nil, err
	}
	return &types.KittyView{ID: k.ID, DNA: k.DNA, Owner: *owner, Price: price}, nil
}

// Kitty returns a kitty with its owner and asking price
func (r *Registry) Kitty(ctx context.Context, id types.KittyIndex) (*types.KittyView, error) {
	var view *types.KittyView
	err := r.view(ctx, func(t *txn) error {
		var err error
		view, err = kittyView(ctx, t, id)
		return err
	})
	return view, err
}

// Owner returns the owner of a kitty, nil for an unknown kitty
func (r *Registry) Owner(ctx context.Context, id types.KittyIndex) (*types.AccountID, error) {
	var owner *types.AccountID
	err := r.view(ctx, func(t *txn) error {
		var err error
		owner, err = t.ledger.OwnerOf(ctx, id)
		return err
	})
	return owner, err
}

func (r *Registry) Price(ctx context.Context, id types.KittyIndex) (decimal.NullDecimal, error) {
	var price decimal.NullDecimal
	err := r.view(ctx, func(t *txn) error {
		var err error
		price, err = t.market.Price(ctx, id)
		return err
	})
	return price, err
}

// KittiesCount is the number of kitties ever created
func (r *Registry) KittiesCount(ctx context.Context) (types.KittyIndex, error) {
	var count types.KittyIndex
	err := r.view(ctx, func(t *txn) error {
		var err error
		count, err = t.ledger.Count(ctx)
		return err
	})
	return count, err
}

func (r *Registry) KittiesOwnedBy(ctx context.Context, owner types.AccountID) ([]*types.KittyView, error) {
	views := []*types.KittyView{}
	err := r.view(ctx, func(t *txn) error {
		ids, err := t.ledger.OwnedBy(ctx, owner)
		if err != nil {
			return err
		}
		for _, id := range ids {
			v, err := kittyView(ctx, t, id)
			if err != nil {
				return err
			}
			views = append(views, v)
		}
		return nil
	})
	return views, err
}

func (r *Registry) FreeBalance(ctx context.Context, who types.AccountID) (decimal.Decimal, error) {
	var free decimal.Decimal
	err := r.view(ctx, func(t *txn) error {
		var err error
		free, err = t.currency.FreeBalance(ctx, who)
		return err
	})
	return free, err
}

func (r *Registry) ReservedBalance(ctx context.Context, who types.AccountID) (decimal.Decimal, error) {
	var reserved decimal.Decimal
	err := r.view(ctx, func(t *txn) error {
		var err error
		reserved, err = t.currency.ReservedBalance(ctx, who)
		return err
	})
	return reserved, err
}

// Balance returns both balances of an account from one snapshot
func (r *Registry) Balance(ctx context.Context, who types.AccountID) (balances.Account, error) {
	acc := balances.Account{}
	err := r.view(ctx, func(t *txn) error {
		var err error
		acc.Free, err = t.currency.FreeBalance(ctx, who)
		if err != nil {
			return err
		}
		acc.Reserved, err = t.currency.ReservedBalance(ctx, who)
		return err
	})
	return acc, err
}

// Endow credits amount to the free balance of who. It seeds genesis
// balances and is not one of the registry operations.
func (r *Registry) Endow(ctx context.Context, who types.AccountID, amount decimal.Decimal) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := balances.New(tx, r.config.ExistentialDeposit).Deposit(ctx, who, amount); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	r.log.Info().Str("account", who.String()).Str("amount", amount.String()).Msg("account endowed")
	return nil
}
