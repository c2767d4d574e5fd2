package db

import (
	"context"
	"errors"

	"kitty-services/balances"
	"kitty-services/store"
	"kitty-services/types"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/ninja-software/terror/v2"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// registryLockKey serialises registry transactions across every process
// sharing the database.
const registryLockKey int64 = 0x6b6974746965

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Begin opens a transaction and waits for the registry lock
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, terror.Error(err, "could not begin transaction")
	}
	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, registryLockKey)
	if err != nil {
		tx.Rollback(ctx)
		return nil, terror.Error(err, "could not take registry lock")
	}
	return &Tx{conn: tx}, nil
}

type Tx struct {
	conn pgx.Tx
}

func (tx *Tx) Commit(ctx context.Context) error {
	if err := tx.conn.Commit(ctx); err != nil {
		return terror.Error(err, "could not commit transaction")
	}
	return nil
}

func (tx *Tx) Rollback(ctx context.Context) error {
	err := tx.conn.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return terror.Error(err, "could not roll back transaction")
	}
	return nil
}

func (tx *Tx) KittiesCount(ctx context.Context) (types.KittyIndex, error) {
	count, err := kvGetUint(ctx, tx.conn, KeyKittiesCount)
	return types.KittyIndex(count), err
}

func (tx *Tx) PutKittiesCount(ctx context.Context, count types.KittyIndex) error {
	return kvPutUint(ctx, tx.conn, KeyKittiesCount, uint64(count))
}

func (tx *Tx) Kitty(ctx context.Context, id types.KittyIndex) (*types.Kitty, error) {
	q := `--sql
		SELECT dna FROM kitties WHERE id = $1`
	dna := []byte{}
	err := tx.conn.QueryRow(ctx, q, int64(id)).Scan(&dna)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err, "could not read kitty")
	}
	g, err := types.GenomeFromBytes(dna)
	if err != nil {
		return nil, terror.Error(err, "stored genome is corrupt")
	}
	return &types.Kitty{ID: id, DNA: g}, nil
}

func (tx *Tx) InsertKitty(ctx context.Context, kitty *types.Kitty) error {
	q := `--sql
		INSERT INTO kitties (id, dna) VALUES ($1, $2)`
	_, err := tx.conn.Exec(ctx, q, int64(kitty.ID), kitty.DNA[:])
	if err != nil {
		return terror.Error(err, "could not insert kitty")
	}
	return nil
}

func (tx *Tx) Owner(ctx context.Context, id types.KittyIndex) (*types.AccountID, error) {
	q := `--sql
		SELECT owner_id::TEXT FROM kitty_owners WHERE kitty_id = $1`
	owner := ""
	err := tx.conn.QueryRow(ctx, q, int64(id)).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, terror.Error(err, "could not read kitty owner")
	}
	accountID, err := types.AccountIDFromString(owner)
	if err != nil {
		return nil, terror.Error(err)
	}
	return &accountID, nil
}

func (tx *Tx) PutOwner(ctx context.Context, id types.KittyIndex, owner types.AccountID) error {
	q := `--sql
		INSERT INTO kitty_owners (kitty_id, owner_id) VALUES ($1, $2::UUID)
		ON CONFLICT (kitty_id) DO UPDATE SET owner_id = EXCLUDED.owner_id, updated_at = NOW()`
	_, err := tx.conn.Exec(ctx, q, int64(id), owner.String())
	if err != nil {
		return terror.Error(err, "could not write kitty owner")
	}
	return nil
}

func (tx *Tx) KittiesOwnedBy(ctx context.Context, owner types.AccountID) ([]types.KittyIndex, error) {
	q := `--sql
		SELECT kitty_id FROM kitty_owners WHERE owner_id = $1::UUID ORDER BY kitty_id`
	rows := []int64{}
	err := pgxscan.Select(ctx, tx.conn, &rows, q, owner.String())
	if err != nil {
		return nil, terror.Error(err, "could not list owned kitties")
	}
	ids := make([]types.KittyIndex, 0, len(rows))
	for _, id := range rows {
		ids = append(ids, types.KittyIndex(id))
	}
	return ids, nil
}

func (tx *Tx) SalePrice(ctx context.Context, id types.KittyIndex) (decimal.NullDecimal, error) {
	q := `--sql
		SELECT price::TEXT FROM kitty_sale_prices WHERE kitty_id = $1`
	price := null.String{}
	err := tx.conn.QueryRow(ctx, q, int64(id)).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, terror.Error(err, "could not read sale price")
	}
	return parseNullDecimal(price)
}

func (tx *Tx) PutSalePrice(ctx context.Context, id types.KittyIndex, price decimal.NullDecimal) error {
	q := `--sql
		INSERT INTO kitty_sale_prices (kitty_id, price) VALUES ($1, $2::NUMERIC)
		ON CONFLICT (kitty_id) DO UPDATE SET price = EXCLUDED.price, updated_at = NOW()`
	_, err := tx.conn.Exec(ctx, q, int64(id), nullDecimalString(price).Ptr())
	if err != nil {
		return terror.Error(err, "could not write sale price")
	}
	return nil
}

func (tx *Tx) DeleteSalePrice(ctx context.Context, id types.KittyIndex) error {
	_, err := tx.conn.Exec(ctx, `DELETE FROM kitty_sale_prices WHERE kitty_id = $1`, int64(id))
	if err != nil {
		return terror.Error(err, "could not delete sale price")
	}
	return nil
}

func (tx *Tx) Account(ctx context.Context, id types.AccountID) (balances.Account, error) {
	q := `--sql
		SELECT free::TEXT, reserved::TEXT FROM accounts WHERE id = $1::UUID`
	var free, reserved string
	err := tx.conn.QueryRow(ctx, q, id.String()).Scan(&free, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return balances.Account{}, nil
	}
	if err != nil {
		return balances.Account{}, terror.Error(err, "could not read account")
	}
	acc := balances.Account{}
	acc.Free, err = decimal.NewFromString(free)
	if err != nil {
		return balances.Account{}, terror.Error(err)
	}
	acc.Reserved, err = decimal.NewFromString(reserved)
	if err != nil {
		return balances.Account{}, terror.Error(err)
	}
	return acc, nil
}

func (tx *Tx) PutAccount(ctx context.Context, id types.AccountID, acc balances.Account) error {
	q := `--sql
		INSERT INTO accounts (id, free, reserved) VALUES ($1::UUID, $2::NUMERIC, $3::NUMERIC)
		ON CONFLICT (id) DO UPDATE SET free = EXCLUDED.free, reserved = EXCLUDED.reserved, updated_at = NOW()`
	_, err := tx.conn.Exec(ctx, q, id.String(), acc.Free.String(), acc.Reserved.String())
	if err != nil {
		return terror.Error(err, "could not write account")
	}
	return nil
}

func nullDecimalString(d decimal.NullDecimal) null.String {
	if !d.Valid {
		return null.String{}
	}
	return null.StringFrom(d.Decimal.String())
}

func parseNullDecimal(s null.String) (decimal.NullDecimal, error) {
	if !s.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, terror.Error(err)
	}
	return decimal.NewNullDecimal(d), nil
}
