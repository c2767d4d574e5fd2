package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kitty-services/memstore"
	"kitty-services/store"
	"kitty-services/types"
)

func TestCommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	alice := types.NewAccountID()

	err := store.Transact(ctx, s, func(tx store.Tx) error {
		if err := tx.InsertKitty(ctx, &types.Kitty{ID: 0, DNA: types.Genome{9}}); err != nil {
			return err
		}
		if err := tx.PutOwner(ctx, 0, alice); err != nil {
			return err
		}
		return tx.PutKittiesCount(ctx, 1)
	})
	if err != nil {
		t.Fatal(err)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback(ctx)
	count, _ := tx.KittiesCount(ctx)
	if count != 1 {
		t.Errorf("count: got %d, want 1", count)
	}
	owner, _ := tx.Owner(ctx, 0)
	if owner == nil || *owner != alice {
		t.Errorf("owner: got %v", owner)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	boom := errors.New("boom")

	err := store.Transact(ctx, s, func(tx store.Tx) error {
		if err := tx.PutKittiesCount(ctx, 5); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback(ctx)
	count, _ := tx.KittiesCount(ctx)
	if count != 0 {
		t.Errorf("rolled back count leaked: %d", count)
	}
}

func TestFinishedTxRejectsUse(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Errorf("rollback after commit: %v", err)
	}
	if _, err := tx.KittiesCount(ctx); !errors.Is(err, memstore.ErrTxDone) {
		t.Errorf("got %v, want ErrTxDone", err)
	}
	if err := tx.Commit(ctx); !errors.Is(err, memstore.ErrTxDone) {
		t.Errorf("second commit: got %v, want ErrTxDone", err)
	}
}

func TestBeginWaitsForOpenTx(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	first, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	go func() {
		tx, err := s.Begin(ctx)
		if err == nil {
			tx.Rollback(ctx)
		}
		close(started)
	}()

	select {
	case <-started:
		t.Fatal("second transaction started while the first was open")
	case <-time.After(50 * time.Millisecond):
	}

	first.Rollback(ctx)
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("second transaction never started")
	}
}

func TestListingPresence(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback(ctx)
	mtx := tx.(*memstore.Tx)

	price, _ := tx.SalePrice(ctx, 3)
	if price.Valid || mtx.HasListing(3) {
		t.Fatal("unlisted kitty has a listing")
	}
	if err := tx.PutSalePrice(ctx, 3, price); err != nil {
		t.Fatal(err)
	}
	if !mtx.HasListing(3) {
		t.Error("withdrawn listing entry missing")
	}
	if err := tx.DeleteSalePrice(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if mtx.HasListing(3) {
		t.Error("deleted listing still present")
	}
}

func TestBeginGivesUpWhenContextDone(t *testing.T) {
	s := memstore.New()
	first, err := s.Begin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer first.Rollback(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Begin(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}
