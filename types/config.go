package types

import (
	"github.com/shopspring/decimal"
)

type Config struct {
	// ReserveAmount is the bond locked against an owner for every kitty they hold
	ReserveAmount decimal.Decimal
	// MaxKittyIndex caps the identifier counter; it is never handed out itself
	MaxKittyIndex KittyIndex
	// ExistentialDeposit is the smallest balance a funded account may keep
	ExistentialDeposit decimal.Decimal

	// ClearListingOnTransfer withdraws an open listing when the kitty changes hands
	// outside the marketplace. Off by default, in which case the listing survives
	// the transfer and the new owner inherits it.
	ClearListingOnTransfer bool
	// RequireParentOwnership limits breeding to kitties the caller owns.
	// Off by default: any two existing kitties may be bred.
	RequireParentOwnership bool
}

// DefaultConfig returns the configuration used when nothing is overridden
func DefaultConfig() *Config {
	return &Config{
		ReserveAmount:      decimal.NewFromInt(1_000),
		MaxKittyIndex:      MaxKittyIndex,
		ExistentialDeposit: decimal.NewFromInt(1),
	}
}
