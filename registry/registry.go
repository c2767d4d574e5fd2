// Package registry applies the kitty operations. Every operation runs in a
// single store transaction and either commits all of its effects or none.
package registry

import (
	"context"
	"fmt"
	"time"

	"kitty-services/balances"
	"kitty-services/escrow"
	"kitty-services/genome"
	"kitty-services/ledger"
	"kitty-services/market"
	"kitty-services/metrics"
	"kitty-services/store"
	"kitty-services/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

type Registry struct {
	store   store.Store
	entropy genome.Entropy
	config  *types.Config
	log     *zerolog.Logger
}

type Option func(r *Registry)

func WithLogger(log *zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

func New(s store.Store, entropy genome.Entropy, config *types.Config, opts ...Option) *Registry {
	if config == nil {
		config = types.DefaultConfig()
	}
	nop := zerolog.Nop()
	r := &Registry{
		store:   s,
		entropy: entropy,
		config:  config,
		log:     &nop,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Config() *types.Config {
	return r.config
}

// txn is the set of components bound to one transaction. The currency
// reads and writes through the same transaction, so a rollback undoes
// payments and reservations along with the ledger.
type txn struct {
	tx       store.Tx
	currency escrow.Currency
	ledger   *ledger.Ledger
	escrow   *escrow.Manager
	market   *market.Market
}

func (r *Registry) bind(tx store.Tx) *txn {
	cur := balances.New(tx, r.config.ExistentialDeposit)
	l := ledger.New(tx, r.config.MaxKittyIndex)
	e := escrow.New(cur, r.config.ReserveAmount, balances.IsFundsError)
	return &txn{
		tx:       tx,
		currency: cur,
		ledger:   l,
		escrow:   e,
		market:   market.New(tx, l, e),
	}
}

func (r *Registry) apply(ctx context.Context, op string, caller types.AccountID, fn func(t *txn) (*types.Event, error)) (evt *types.Event, err error) {
	started := time.Now()
	span, ctx := tracer.StartSpanFromContext(ctx, "registry.apply", tracer.ResourceName(op))
	defer func() {
		span.Finish(tracer.WithError(err))
		metrics.Observe(op, started, err)
		if err != nil {
			r.log.Debug().Err(err).Str("op", op).Str("caller", caller.String()).Msg("operation rejected")
			return
		}
		r.log.Debug().Str("op", op).Str("caller", caller.String()).Uint32("kitty_id", uint32(evt.KittyID)).Msg("operation applied")
	}()

	err = store.Transact(ctx, r.store, func(tx store.Tx) error {
		evt, err = fn(r.bind(tx))
		return err
	})
	if err != nil {
		return nil, err
	}
	return evt, nil
}

func (r *Registry) view(ctx context.Context, fn func(t *txn) error) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	return fn(r.bind(tx))
}

func (r *Registry) randomGenome(caller types.AccountID) (types.Genome, error) {
	seed, err := r.entropy.RandomSeed()
	if err != nil {
		return types.Genome{}, err
	}
	return genome.Derive(seed, caller, r.entropy.OpIndex()), nil
}

func requireOwner(ctx context.Context, t *txn, id types.KittyIndex, caller types.AccountID) error {
	owner, err := t.ledger.OwnerOf(ctx, id)
	if err != nil {
		return err
	}
	if owner == nil || *owner != caller {
		return fmt.Errorf("%w: kitty %s", types.ErrNotOwner, id)
	}
	return nil
}

// Create mints a kitty with a fresh genome for caller and reserves its bond
func (r *Registry) Create(ctx context.Context, caller types.AccountID) (*types.Event, error) {
	return r.apply(ctx, "create", caller, func(t *txn) (*types.Event, error) {
		id, err := t.ledger.Advance(ctx)
		if err != nil {
			return nil, err
		}
		dna, err := r.randomGenome(caller)
		if err != nil {
			return nil, err
		}
		if err := t.escrow.ReserveBond(ctx, caller); err != nil {
			return nil, err
		}
		if err := t.ledger.Insert(ctx, id, dna, caller); err != nil {
			return nil, err
		}
		return types.KittyCreated(caller, id), nil
	})
}

// Transfer hands a kitty owned by caller to newOwner, moving the bond with it.
// Handing a kitty to its current owner fails with types.ErrAlreadyOwned before
// any funds move.
func (r *Registry) Transfer(ctx context.Context, caller, newOwner types.AccountID, id types.KittyIndex) (*types.Event, error) {
	return r.apply(ctx, "transfer", caller, func(t *txn) (*types.Event, error) {
		if err := requireOwner(ctx, t, id, caller); err != nil {
			return nil, err
		}
		if newOwner == caller {
			return nil, fmt.Errorf("%w: kitty %s", types.ErrAlreadyOwned, id)
		}
		if err := t.escrow.ReserveBond(ctx, newOwner); err != nil {
			return nil, err
		}
		if err := t.escrow.ReleaseBond(ctx, caller); err != nil {
			return nil, err
		}
		if err := t.ledger.ReassignOwner(ctx, id, newOwner); err != nil {
			return nil, err
		}
		if r.config.ClearListingOnTransfer {
			if err := t.market.Withdraw(ctx, id); err != nil {
				return nil, err
			}
		}
		return types.KittyTransferred(caller, newOwner, id), nil
	})
}

// Breed mints a kitty for caller whose genome mixes the two parents
func (r *Registry) Breed(ctx context.Context, caller types.AccountID, id1, id2 types.KittyIndex) (*types.Event, error) {
	return r.apply(ctx, "breed", caller, func(t *txn) (*types.Event, error) {
		if id1 == id2 {
			return nil, fmt.Errorf("%w: kitty %s", types.ErrSameParentIndex, id1)
		}
		parent1, err := t.ledger.Get(ctx, id1)
		if err != nil {
			return nil, err
		}
		if parent1 == nil {
			return nil, fmt.Errorf("%w: %s", types.ErrInvalidKittyIndex, id1)
		}
		parent2, err := t.ledger.Get(ctx, id2)
		if err != nil {
			return nil, err
		}
		if parent2 == nil {
			return nil, fmt.Errorf("%w: %s", types.ErrInvalidKittyIndex, id2)
		}
		if r.config.RequireParentOwnership {
			if err := requireOwner(ctx, t, id1, caller); err != nil {
				return nil, err
			}
			if err := requireOwner(ctx, t, id2, caller); err != nil {
				return nil, err
			}
		}

		id, err := t.ledger.Advance(ctx)
		if err != nil {
			return nil, err
		}
		selector, err := r.randomGenome(caller)
		if err != nil {
			return nil, err
		}
		dna := genome.Combine(selector, parent1.DNA, parent2.DNA)
		if err := t.escrow.ReserveBond(ctx, caller); err != nil {
			return nil, err
		}
		if err := t.ledger.Insert(ctx, id, dna, caller); err != nil {
			return nil, err
		}
		return types.KittyCreated(caller, id), nil
	})
}

// List sets the asking price of a kitty owned by caller. A null price
// takes it off the market.
func (r *Registry) List(ctx context.Context, caller types.AccountID, id types.KittyIndex, price decimal.NullDecimal) (*types.Event, error) {
	return r.apply(ctx, "list", caller, func(t *txn) (*types.Event, error) {
		return t.market.List(ctx, id, caller, price)
	})
}

// Buy purchases a listed kitty for caller at its asking price
func (r *Registry) Buy(ctx context.Context, caller types.AccountID, id types.KittyIndex) (*types.Event, error) {
	return r.apply(ctx, "buy", caller, func(t *txn) (*types.Event, error) {
		return t.market.Buy(ctx, id, caller)
	})
}
