package types

import (
	"fmt"
)

// ErrCountOverflow when no kitty index is left to allocate
var ErrCountOverflow = fmt.Errorf("kitties count overflow")

// ErrNotOwner when the caller does not own the kitty, or nobody does
var ErrNotOwner = fmt.Errorf("not the kitty owner")

// ErrAlreadyOwned when transferring a kitty to its current owner
var ErrAlreadyOwned = fmt.Errorf("kitty already owned by recipient")

// ErrSameParentIndex when breeding a kitty with itself
var ErrSameParentIndex = fmt.Errorf("parents must be different kitties")

// ErrInvalidKittyIndex when the kitty does not exist
var ErrInvalidKittyIndex = fmt.Errorf("invalid kitty index")

// ErrNoPriceSet when buying a kitty that is not listed with a price
var ErrNoPriceSet = fmt.Errorf("kitty is not for sale")

// ErrCannotBuySelf when the buyer already owns the kitty
var ErrCannotBuySelf = fmt.Errorf("cannot buy your own kitty")

// ErrInsufficientFunds when an account cannot cover a bond or a payment
var ErrInsufficientFunds = fmt.Errorf("insufficient funds")

// ErrInvalidPrice when listing a kitty with a negative price
var ErrInvalidPrice = fmt.Errorf("price must not be negative")
