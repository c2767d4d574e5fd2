// Package balances is a reservable currency ledger. Each account has a free
// and a reserved balance; reserving moves value from free to reserved and
// transfers only ever spend free balance.
package balances

import (
	"context"
	"errors"
	"fmt"

	"kitty-services/types"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance when the free balance cannot cover the amount
var ErrInsufficientBalance = fmt.Errorf("insufficient free balance")

// ErrKeepAlive when a keep-alive transfer would leave the sender below the existential deposit
var ErrKeepAlive = fmt.Errorf("transfer would kill the sending account")

// ErrExistentialDeposit when a transfer would create an account below the existential deposit
var ErrExistentialDeposit = fmt.Errorf("amount below existential deposit")

// ErrInvalidAmount when an amount is negative
var ErrInvalidAmount = fmt.Errorf("amount must not be negative")

type Account struct {
	Free     decimal.Decimal `json:"free" db:"free"`
	Reserved decimal.Decimal `json:"reserved" db:"reserved"`
}

func (a Account) Total() decimal.Decimal {
	return a.Free.Add(a.Reserved)
}

// AccountStore persists accounts. Unknown accounts read as a zero Account.
type AccountStore interface {
	Account(ctx context.Context, id types.AccountID) (Account, error)
	PutAccount(ctx context.Context, id types.AccountID, acc Account) error
}

type Ledger struct {
	accounts           AccountStore
	existentialDeposit decimal.Decimal
}

func New(accounts AccountStore, existentialDeposit decimal.Decimal) *Ledger {
	return &Ledger{accounts: accounts, existentialDeposit: existentialDeposit}
}

func checkAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return nil
}

func (l *Ledger) FreeBalance(ctx context.Context, who types.AccountID) (decimal.Decimal, error) {
	acc, err := l.accounts.Account(ctx, who)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Free, nil
}

func (l *Ledger) ReservedBalance(ctx context.Context, who types.AccountID) (decimal.Decimal, error) {
	acc, err := l.accounts.Account(ctx, who)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Reserved, nil
}

// Deposit mints amount into the free balance of who
func (l *Ledger) Deposit(ctx context.Context, who types.AccountID, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	acc, err := l.accounts.Account(ctx, who)
	if err != nil {
		return err
	}
	acc.Free = acc.Free.Add(amount)
	return l.accounts.PutAccount(ctx, who, acc)
}

// Reserve moves amount from free to reserved
func (l *Ledger) Reserve(ctx context.Context, who types.AccountID, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	acc, err := l.accounts.Account(ctx, who)
	if err != nil {
		return err
	}
	if acc.Free.LessThan(amount) {
		return fmt.Errorf("%w: free %s, need %s", ErrInsufficientBalance, acc.Free, amount)
	}
	acc.Free = acc.Free.Sub(amount)
	acc.Reserved = acc.Reserved.Add(amount)
	return l.accounts.PutAccount(ctx, who, acc)
}

// Unreserve moves up to amount from reserved back to free and returns the
// part of amount that was not reserved.
func (l *Ledger) Unreserve(ctx context.Context, who types.AccountID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}
	acc, err := l.accounts.Account(ctx, who)
	if err != nil {
		return decimal.Zero, err
	}
	actual := decimal.Min(amount, acc.Reserved)
	if actual.IsZero() {
		return amount, nil
	}
	acc.Reserved = acc.Reserved.Sub(actual)
	acc.Free = acc.Free.Add(actual)
	if err := l.accounts.PutAccount(ctx, who, acc); err != nil {
		return decimal.Zero, err
	}
	return amount.Sub(actual), nil
}

// Transfer moves amount of free balance from one account to another. With
// keepAlive the sender must keep at least the existential deposit.
func (l *Ledger) Transfer(ctx context.Context, from, to types.AccountID, amount decimal.Decimal, keepAlive bool) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.IsZero() || from == to {
		return nil
	}

	src, err := l.accounts.Account(ctx, from)
	if err != nil {
		return err
	}
	if src.Free.LessThan(amount) {
		return fmt.Errorf("%w: free %s, need %s", ErrInsufficientBalance, src.Free, amount)
	}
	remaining := src.Free.Sub(amount)
	if keepAlive && remaining.LessThan(l.existentialDeposit) {
		return fmt.Errorf("%w: %s would remain", ErrKeepAlive, remaining)
	}

	dst, err := l.accounts.Account(ctx, to)
	if err != nil {
		return err
	}
	if dst.Total().Add(amount).LessThan(l.existentialDeposit) {
		return fmt.Errorf("%w: %s", ErrExistentialDeposit, amount)
	}

	src.Free = remaining
	dst.Free = dst.Free.Add(amount)
	if err := l.accounts.PutAccount(ctx, from, src); err != nil {
		return err
	}
	return l.accounts.PutAccount(ctx, to, dst)
}

// IsFundsError reports whether err means an account could not afford an
// operation.
func IsFundsError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrKeepAlive) ||
		errors.Is(err, ErrExistentialDeposit)
}
