package db

import (
	"context"

	"kitty-services/types"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/ninja-software/terror/v2"
	"github.com/volatiletech/null/v8"
)

// EventLog persists registry events to kitty_events
type EventLog struct {
	conn Conn
}

func NewEventLog(conn Conn) *EventLog {
	return &EventLog{conn: conn}
}

func (l *EventLog) Publish(ctx context.Context, evt *types.Event) error {
	q := `--sql
		INSERT INTO kitty_events (kind, account_id, to_account_id, seller_account_id, kitty_id, price)
		VALUES ($1, $2::UUID, $3::UUID, $4::UUID, $5, $6::NUMERIC)`
	_, err := l.conn.Exec(ctx, q,
		string(evt.Kind),
		evt.Account.String(),
		nullAccountString(evt.To).Ptr(),
		nullAccountString(evt.Seller).Ptr(),
		int64(evt.KittyID),
		nullDecimalString(evt.Price).Ptr(),
	)
	if err != nil {
		return terror.Error(err, "could not record kitty event")
	}
	return nil
}

type eventRow struct {
	ID          int64       `db:"id"`
	Kind        string      `db:"kind"`
	AccountID   string      `db:"account_id"`
	ToAccountID null.String `db:"to_account_id"`
	SellerID    null.String `db:"seller_account_id"`
	KittyID     int64       `db:"kitty_id"`
	Price       null.String `db:"price"`
}

// Events returns up to limit events with an id above after, oldest first
func (l *EventLog) Events(ctx context.Context, after int64, limit int) ([]*types.LoggedEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `--sql
		SELECT id, kind, account_id::TEXT, to_account_id::TEXT, seller_account_id::TEXT, kitty_id, price::TEXT
		FROM kitty_events
		WHERE id > $1
		ORDER BY id
		LIMIT $2`
	rows := []*eventRow{}
	err := pgxscan.Select(ctx, l.conn, &rows, q, after, limit)
	if err != nil {
		return nil, terror.Error(err, "could not read kitty events")
	}

	result := make([]*types.LoggedEvent, 0, len(rows))
	for _, row := range rows {
		account, err := types.AccountIDFromString(row.AccountID)
		if err != nil {
			return nil, terror.Error(err)
		}
		evt := &types.LoggedEvent{
			ID: row.ID,
			Event: types.Event{
				Kind:    types.EventKind(row.Kind),
				Account: account,
				KittyID: types.KittyIndex(row.KittyID),
			},
		}
		evt.To, err = parseNullAccount(row.ToAccountID)
		if err != nil {
			return nil, err
		}
		evt.Seller, err = parseNullAccount(row.SellerID)
		if err != nil {
			return nil, err
		}
		evt.Price, err = parseNullDecimal(row.Price)
		if err != nil {
			return nil, err
		}
		result = append(result, evt)
	}
	return result, nil
}

func nullAccountString(id *types.AccountID) null.String {
	if id == nil {
		return null.String{}
	}
	return null.StringFrom(id.String())
}

func parseNullAccount(s null.String) (*types.AccountID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := types.AccountIDFromString(s.String)
	if err != nil {
		return nil, terror.Error(err)
	}
	return &id, nil
}
