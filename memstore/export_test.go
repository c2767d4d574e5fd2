package memstore

import "kitty-services/types"

// HasListing reports whether a listing entry exists, priced or not
func (tx *Tx) HasListing(id types.KittyIndex) bool {
	_, ok := tx.state.prices[id]
	return ok
}
