package types

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// KittyIndex identifies a kitty. Indexes are handed out in strictly increasing order.
type KittyIndex uint32

// MaxKittyIndex is the largest value a KittyIndex can hold
const MaxKittyIndex = KittyIndex(^uint32(0))

func (k KittyIndex) String() string {
	return strconv.FormatUint(uint64(k), 10)
}

// ParseKittyIndex parses a base 10 kitty index
func ParseKittyIndex(s string) (KittyIndex, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse kitty index %q: %w", s, err)
	}
	return KittyIndex(v), nil
}

// GenomeSize is the byte length of a genome
const GenomeSize = 16

// Genome is the identity payload of a kitty, mixed during breeding
type Genome [GenomeSize]byte

func (g Genome) String() string {
	return hexutil.Encode(g[:])
}

func (g Genome) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(g[:])), nil
}

func (g *Genome) UnmarshalText(b []byte) error {
	raw, err := hexutil.Decode(string(b))
	if err != nil {
		return err
	}
	if len(raw) != GenomeSize {
		return fmt.Errorf("genome must be %d bytes, got %d", GenomeSize, len(raw))
	}
	copy(g[:], raw)
	return nil
}

// GenomeFromBytes copies a stored genome, failing on a length mismatch
func GenomeFromBytes(b []byte) (Genome, error) {
	g := Genome{}
	if len(b) != GenomeSize {
		return g, fmt.Errorf("genome must be %d bytes, got %d", GenomeSize, len(b))
	}
	copy(g[:], b)
	return g, nil
}

// Kitty is a single non-fungible token. It never changes after creation;
// ownership is tracked separately.
type Kitty struct {
	ID  KittyIndex `json:"id" db:"id"`
	DNA Genome     `json:"dna" db:"dna"`
}

// KittyView is a kitty joined with its owner and sale price
type KittyView struct {
	ID    KittyIndex          `json:"id"`
	DNA   Genome              `json:"dna"`
	Owner AccountID           `json:"owner"`
	Price decimal.NullDecimal `json:"price"`
}
