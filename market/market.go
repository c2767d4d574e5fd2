// Package market holds sale listings and settles purchases.
package market

import (
	"context"
	"fmt"

	"kitty-services/escrow"
	"kitty-services/ledger"
	"kitty-services/types"

	"github.com/shopspring/decimal"
)

// Store persists listings. A missing listing reads as an invalid NullDecimal,
// the same as a listing without a price.
type Store interface {
	SalePrice(ctx context.Context, id types.KittyIndex) (decimal.NullDecimal, error)
	PutSalePrice(ctx context.Context, id types.KittyIndex, price decimal.NullDecimal) error
	DeleteSalePrice(ctx context.Context, id types.KittyIndex) error
}

type Market struct {
	prices Store
	ledger *ledger.Ledger
	escrow *escrow.Manager
}

func New(prices Store, l *ledger.Ledger, e *escrow.Manager) *Market {
	return &Market{prices: prices, ledger: l, escrow: e}
}

// Price returns the asking price of a kitty, invalid when not for sale
func (m *Market) Price(ctx context.Context, id types.KittyIndex) (decimal.NullDecimal, error) {
	return m.prices.SalePrice(ctx, id)
}

func (m *Market) requireOwner(ctx context.Context, id types.KittyIndex, caller types.AccountID) error {
	owner, err := m.ledger.OwnerOf(ctx, id)
	if err != nil {
		return err
	}
	if owner == nil || *owner != caller {
		return fmt.Errorf("%w: kitty %s", types.ErrNotOwner, id)
	}
	return nil
}

// List sets or replaces the asking price of a kitty. An invalid price
// withdraws it from sale.
func (m *Market) List(ctx context.Context, id types.KittyIndex, caller types.AccountID, price decimal.NullDecimal) (*types.Event, error) {
	if err := m.requireOwner(ctx, id, caller); err != nil {
		return nil, err
	}
	if price.Valid && price.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidPrice, price.Decimal)
	}
	if err := m.prices.PutSalePrice(ctx, id, price); err != nil {
		return nil, err
	}
	return types.KittyListed(caller, id, price), nil
}

// Buy pays the asking price to the owner, moves the bond from seller to
// buyer, hands the kitty over and closes the listing. The buyer must afford
// price and bond before anything is paid, so a failed purchase never leaves
// a payment behind.
func (m *Market) Buy(ctx context.Context, id types.KittyIndex, buyer types.AccountID) (*types.Event, error) {
	owner, err := m.ledger.OwnerOf(ctx, id)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: kitty %s has no owner", types.ErrNotOwner, id)
	}
	seller := *owner

	price, err := m.prices.SalePrice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !price.Valid {
		return nil, fmt.Errorf("%w: kitty %s", types.ErrNoPriceSet, id)
	}
	if seller == buyer {
		return nil, fmt.Errorf("%w: kitty %s", types.ErrCannotBuySelf, id)
	}

	if err := m.escrow.CanAfford(ctx, buyer, price.Decimal); err != nil {
		return nil, err
	}
	if err := m.escrow.Pay(ctx, buyer, seller, price.Decimal); err != nil {
		return nil, err
	}
	if err := m.escrow.ReserveBond(ctx, buyer); err != nil {
		return nil, err
	}
	if err := m.escrow.ReleaseBond(ctx, seller); err != nil {
		return nil, err
	}
	if err := m.ledger.ReassignOwner(ctx, id, buyer); err != nil {
		return nil, err
	}
	if err := m.prices.DeleteSalePrice(ctx, id); err != nil {
		return nil, err
	}
	return types.KittySold(buyer, seller, id, price.Decimal), nil
}

// Withdraw removes any listing for a kitty
func (m *Market) Withdraw(ctx context.Context, id types.KittyIndex) error {
	return m.prices.DeleteSalePrice(ctx, id)
}
