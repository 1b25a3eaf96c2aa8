package crypto

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// KeyHasher derives stable, non-reversible identifiers from client data such
// as IP addresses so external stores never hold the raw value.
type KeyHasher struct {
	key []byte
}

// NewKeyHasher creates a hasher keyed with salt. An empty salt is allowed and
// yields a plain BLAKE2b-256 digest.
func NewKeyHasher(salt []byte) (*KeyHasher, error) {
	if len(salt) > blake2b.Size {
		return nil, fmt.Errorf("salt must be at most %d bytes, got %d", blake2b.Size, len(salt))
	}
	return &KeyHasher{key: salt}, nil
}

// Hash returns the hex encoded keyed digest of value
func (h *KeyHasher) Hash(value string) string {
	// New256 only fails for oversized keys, which the constructor rejects
	mac, _ := blake2b.New256(h.key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
