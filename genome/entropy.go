package genome

import (
	crand "crypto/rand"
	"fmt"

	"go.uber.org/atomic"
)

// Entropy supplies unpredictable bytes and a sequence index that changes on
// every call to OpIndex.
type Entropy interface {
	RandomSeed() ([]byte, error)
	OpIndex() uint32
}

// SeedSize is the number of bytes CryptoEntropy reads per seed
const SeedSize = 32

// CryptoEntropy reads seeds from crypto/rand
type CryptoEntropy struct {
	index atomic.Uint32
}

func NewCryptoEntropy() *CryptoEntropy {
	return &CryptoEntropy{}
}

func (e *CryptoEntropy) RandomSeed() ([]byte, error) {
	b := make([]byte, SeedSize)
	if _, err := crand.Read(b); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return b, nil
}

// OpIndex returns the next sequence number, starting at 0
func (e *CryptoEntropy) OpIndex() uint32 {
	return e.index.Inc() - 1
}

// FixedEntropy always returns the same seed and a fixed index, making every
// derivation reproducible.
type FixedEntropy struct {
	Seed  []byte
	Index uint32
}

func (e *FixedEntropy) RandomSeed() ([]byte, error) {
	b := make([]byte, len(e.Seed))
	copy(b, e.Seed)
	return b, nil
}

func (e *FixedEntropy) OpIndex() uint32 {
	return e.Index
}
