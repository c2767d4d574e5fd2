package ledger_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"kitty-services/ledger"
	"kitty-services/types"
)

type fakeStore struct {
	count   types.KittyIndex
	kitties map[types.KittyIndex]types.Kitty
	owners  map[types.KittyIndex]types.AccountID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		kitties: map[types.KittyIndex]types.Kitty{},
		owners:  map[types.KittyIndex]types.AccountID{},
	}
}

func (s *fakeStore) KittiesCount(context.Context) (types.KittyIndex, error) { return s.count, nil }

func (s *fakeStore) PutKittiesCount(_ context.Context, c types.KittyIndex) error {
	s.count = c
	return nil
}

func (s *fakeStore) Kitty(_ context.Context, id types.KittyIndex) (*types.Kitty, error) {
	k, ok := s.kitties[id]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (s *fakeStore) InsertKitty(_ context.Context, k *types.Kitty) error {
	s.kitties[k.ID] = *k
	return nil
}

func (s *fakeStore) Owner(_ context.Context, id types.KittyIndex) (*types.AccountID, error) {
	o, ok := s.owners[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *fakeStore) PutOwner(_ context.Context, id types.KittyIndex, o types.AccountID) error {
	s.owners[id] = o
	return nil
}

func (s *fakeStore) KittiesOwnedBy(_ context.Context, o types.AccountID) ([]types.KittyIndex, error) {
	ids := []types.KittyIndex{}
	for id, owner := range s.owners {
		if owner == o {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func TestAdvance(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(newFakeStore(), 3)

	for want := types.KittyIndex(0); want < 3; want++ {
		got, err := l.Advance(ctx)
		if err != nil {
			t.Fatalf("advance %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("advance: got %d, want %d", got, want)
		}
	}

	_, err := l.Advance(ctx)
	if !errors.Is(err, types.ErrCountOverflow) {
		t.Fatalf("got %v, want ErrCountOverflow", err)
	}
	next, _ := l.NextID(ctx)
	if next != 3 {
		t.Errorf("counter moved on overflow: %d", next)
	}
}

func TestInsertAndReassign(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(newFakeStore(), types.MaxKittyIndex)
	alice := types.NewAccountID()
	bob := types.NewAccountID()

	id, err := l.Advance(ctx)
	if err != nil {
		t.Fatal(err)
	}
	dna := types.Genome{1, 2, 3}
	if err := l.Insert(ctx, id, dna, alice); err != nil {
		t.Fatal(err)
	}

	k, err := l.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if k == nil || k.DNA != dna {
		t.Fatalf("got kitty %+v", k)
	}

	if err := l.ReassignOwner(ctx, id, bob); err != nil {
		t.Fatal(err)
	}
	owner, _ := l.OwnerOf(ctx, id)
	if owner == nil || *owner != bob {
		t.Fatalf("owner: got %v, want %s", owner, bob)
	}

	owned, _ := l.OwnedBy(ctx, alice)
	if len(owned) != 0 {
		t.Errorf("alice still owns %v", owned)
	}
	owned, _ = l.OwnedBy(ctx, bob)
	if len(owned) != 1 || owned[0] != id {
		t.Errorf("bob owns %v", owned)
	}
}

func TestReassignUnknown(t *testing.T) {
	l := ledger.New(newFakeStore(), types.MaxKittyIndex)
	err := l.ReassignOwner(context.Background(), 7, types.NewAccountID())
	if !errors.Is(err, types.ErrInvalidKittyIndex) {
		t.Fatalf("got %v, want ErrInvalidKittyIndex", err)
	}
	k, _ := l.Get(context.Background(), 7)
	if k != nil {
		t.Error("unknown kitty was found")
	}
}
