// Package escrow locks a fixed bond against kitty owners and settles
// purchases through a reservable currency.
package escrow

import (
	"context"
	"fmt"

	"kitty-services/types"

	"github.com/shopspring/decimal"
)

// Currency is a reservable currency. Failures of Reserve and Transfer caused
// by a lack of funds are reported as errors; Unreserve returns the part of
// the amount it could not release.
type Currency interface {
	Reserve(ctx context.Context, who types.AccountID, amount decimal.Decimal) error
	Unreserve(ctx context.Context, who types.AccountID, amount decimal.Decimal) (decimal.Decimal, error)
	Transfer(ctx context.Context, from, to types.AccountID, amount decimal.Decimal, keepAlive bool) error
	FreeBalance(ctx context.Context, who types.AccountID) (decimal.Decimal, error)
	ReservedBalance(ctx context.Context, who types.AccountID) (decimal.Decimal, error)
}

// FundsError reports whether a currency error means the account could not pay
type FundsError func(err error) bool

type Manager struct {
	currency     Currency
	bond         decimal.Decimal
	isFundsError FundsError
}

// New returns a manager locking bond per owned kitty. isFundsError picks out
// the currency errors that become types.ErrInsufficientFunds; other errors
// pass through untouched.
func New(currency Currency, bond decimal.Decimal, isFundsError FundsError) *Manager {
	return &Manager{currency: currency, bond: bond, isFundsError: isFundsError}
}

func (m *Manager) funds(err error) error {
	if err != nil && m.isFundsError != nil && m.isFundsError(err) {
		return fmt.Errorf("%w: %v", types.ErrInsufficientFunds, err)
	}
	return err
}

// ReserveBond locks one bond from the free balance of account
func (m *Manager) ReserveBond(ctx context.Context, account types.AccountID) error {
	return m.funds(m.currency.Reserve(ctx, account, m.bond))
}

// ReleaseBond unlocks one bond of account. An account holding less than a
// full bond has whatever it holds released.
func (m *Manager) ReleaseBond(ctx context.Context, account types.AccountID) error {
	_, err := m.currency.Unreserve(ctx, account, m.bond)
	return err
}

// CanAfford fails with types.ErrInsufficientFunds unless account has amount
// plus one bond of free balance
func (m *Manager) CanAfford(ctx context.Context, account types.AccountID, amount decimal.Decimal) error {
	free, err := m.currency.FreeBalance(ctx, account)
	if err != nil {
		return err
	}
	need := amount.Add(m.bond)
	if free.LessThan(need) {
		return fmt.Errorf("%w: free %s, need %s", types.ErrInsufficientFunds, free, need)
	}
	return nil
}

// Pay moves amount from payer to payee, never killing the payer's account
func (m *Manager) Pay(ctx context.Context, payer, payee types.AccountID, amount decimal.Decimal) error {
	return m.funds(m.currency.Transfer(ctx, payer, payee, amount, true))
}
