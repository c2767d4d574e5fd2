package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/gofrs/uuid"
)

// AccountID identifies a currency account and kitty owner. The registry never
// authenticates it; callers hand over an identity that was verified upstream.
type AccountID uuid.UUID

// AccountIDFromString parses the canonical uuid form of an account id
func AccountIDFromString(s string) (AccountID, error) {
	id, err := uuid.FromString(s)
	if err != nil {
		return AccountID(uuid.Nil), fmt.Errorf("parse account id %q: %w", s, err)
	}
	return AccountID(id), nil
}

// NewAccountID returns a random account id
func NewAccountID() AccountID {
	return AccountID(uuid.Must(uuid.NewV4()))
}

func (id AccountID) String() string {
	return uuid.UUID(id).String()
}

func (id AccountID) Bytes() []byte {
	return uuid.UUID(id).Bytes()
}

func (id AccountID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id AccountID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *AccountID) UnmarshalText(b []byte) error {
	u := uuid.UUID{}
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = AccountID(u)
	return nil
}

// Value implements driver.Valuer
func (id AccountID) Value() (driver.Value, error) {
	return uuid.UUID(id).String(), nil
}

// Scan implements sql.Scanner
func (id *AccountID) Scan(src interface{}) error {
	u := uuid.UUID{}
	if err := u.Scan(src); err != nil {
		return err
	}
	*id = AccountID(u)
	return nil
}
