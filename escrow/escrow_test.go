package escrow_test

import (
	"context"
	"errors"
	"testing"

	"kitty-services/balances"
	"kitty-services/escrow"
	"kitty-services/types"

	"github.com/shopspring/decimal"
)

type mapStore map[types.AccountID]balances.Account

func (m mapStore) Account(_ context.Context, id types.AccountID) (balances.Account, error) {
	return m[id], nil
}

func (m mapStore) PutAccount(_ context.Context, id types.AccountID, acc balances.Account) error {
	m[id] = acc
	return nil
}

func TestBonds(t *testing.T) {
	ctx := context.Background()
	cur := balances.New(mapStore{}, decimal.NewFromInt(1))
	m := escrow.New(cur, decimal.NewFromInt(1_000), balances.IsFundsError)

	alice := types.NewAccountID()
	if err := cur.Deposit(ctx, alice, decimal.NewFromInt(1_500)); err != nil {
		t.Fatal(err)
	}

	if err := m.ReserveBond(ctx, alice); err != nil {
		t.Fatal(err)
	}
	err := m.ReserveBond(ctx, alice)
	if !errors.Is(err, types.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}

	if err := m.ReleaseBond(ctx, alice); err != nil {
		t.Fatal(err)
	}
	free, _ := cur.FreeBalance(ctx, alice)
	if !free.Equal(decimal.NewFromInt(1_500)) {
		t.Errorf("free after release: %s", free)
	}
}

func TestPay(t *testing.T) {
	ctx := context.Background()
	cur := balances.New(mapStore{}, decimal.NewFromInt(1))
	m := escrow.New(cur, decimal.NewFromInt(1_000), balances.IsFundsError)

	alice := types.NewAccountID()
	bob := types.NewAccountID()
	if err := cur.Deposit(ctx, bob, decimal.NewFromInt(8_000)); err != nil {
		t.Fatal(err)
	}

	// paying everything would kill bob's account
	if err := m.Pay(ctx, bob, alice, decimal.NewFromInt(8_000)); !errors.Is(err, types.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	if err := m.Pay(ctx, bob, alice, decimal.NewFromInt(7_000)); err != nil {
		t.Fatal(err)
	}
	free, _ := cur.FreeBalance(ctx, alice)
	if !free.Equal(decimal.NewFromInt(7_000)) {
		t.Errorf("alice free: %s", free)
	}
}

func TestOtherErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	cur := balances.New(mapStore{}, decimal.NewFromInt(1))
	m := escrow.New(cur, decimal.NewFromInt(-1), balances.IsFundsError)
	err := m.ReserveBond(ctx, types.NewAccountID())
	if !errors.Is(err, balances.ErrInvalidAmount) || errors.Is(err, types.ErrInsufficientFunds) {
		t.Fatalf("got %v", err)
	}
}

func TestPayBelowExistentialDeposit(t *testing.T) {
	ctx := context.Background()
	cur := balances.New(mapStore{}, decimal.NewFromInt(10))
	m := escrow.New(cur, decimal.Zero, balances.IsFundsError)

	alice := types.NewAccountID()
	bob := types.NewAccountID()
	if err := cur.Deposit(ctx, bob, decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}

	// alice's empty account cannot be opened with less than the deposit
	if err := m.Pay(ctx, bob, alice, decimal.NewFromInt(5)); !errors.Is(err, types.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	free, _ := cur.FreeBalance(ctx, bob)
	if !free.Equal(decimal.NewFromInt(100)) {
		t.Errorf("bob free: %s", free)
	}
}

func TestCanAfford(t *testing.T) {
	ctx := context.Background()
	cur := balances.New(mapStore{}, decimal.NewFromInt(1))
	m := escrow.New(cur, decimal.NewFromInt(1_000), balances.IsFundsError)

	bob := types.NewAccountID()
	if err := cur.Deposit(ctx, bob, decimal.NewFromInt(9_000)); err != nil {
		t.Fatal(err)
	}
	if err := m.CanAfford(ctx, bob, decimal.NewFromInt(8_000)); err != nil {
		t.Errorf("price plus bond fits: %v", err)
	}
	if err := m.CanAfford(ctx, bob, decimal.NewFromInt(8_001)); !errors.Is(err, types.ErrInsufficientFunds) {
		t.Errorf("got %v, want ErrInsufficientFunds", err)
	}
}
