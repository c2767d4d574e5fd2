package types

import (
	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventKittyCreated     EventKind = "KITTY_CREATED"
	EventKittyTransferred EventKind = "KITTY_TRANSFERRED"
	EventKittySold        EventKind = "KITTY_SOLD"
	EventKittyListed      EventKind = "KITTY_LISTED"
)

// Event is the outcome of a successful registry operation.
//
// Account is the owner for created and listed kitties, the previous owner for
// transfers and the buyer for sales. To is only set on transfers and Seller
// only on sales.
type Event struct {
	Kind    EventKind           `json:"kind" db:"kind"`
	Account AccountID           `json:"account" db:"account_id"`
	To      *AccountID          `json:"to,omitempty" db:"to_account_id"`
	Seller  *AccountID          `json:"seller,omitempty" db:"seller_account_id"`
	KittyID KittyIndex          `json:"kitty_id" db:"kitty_id"`
	Price   decimal.NullDecimal `json:"price" db:"price"`
}

func KittyCreated(owner AccountID, id KittyIndex) *Event {
	return &Event{Kind: EventKittyCreated, Account: owner, KittyID: id}
}

func KittyTransferred(from, to AccountID, id KittyIndex) *Event {
	return &Event{Kind: EventKittyTransferred, Account: from, To: &to, KittyID: id}
}

func KittySold(buyer, seller AccountID, id KittyIndex, price decimal.Decimal) *Event {
	return &Event{Kind: EventKittySold, Account: buyer, Seller: &seller, KittyID: id, Price: decimal.NewNullDecimal(price)}
}

func KittyListed(owner AccountID, id KittyIndex, price decimal.NullDecimal) *Event {
	return &Event{Kind: EventKittyListed, Account: owner, KittyID: id, Price: price}
}

// LoggedEvent is an event with its position in an event log
type LoggedEvent struct {
	ID int64 `json:"id" db:"id"`
	Event
}

// Parties returns every account whose holdings the event changed
func (e *Event) Parties() []AccountID {
	parties := []AccountID{e.Account}
	for _, other := range []*AccountID{e.To, e.Seller} {
		if other != nil && *other != e.Account {
			parties = append(parties, *other)
		}
	}
	return parties
}
