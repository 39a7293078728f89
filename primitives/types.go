// Package primitives defines the chain-level value types shared by every
// layer of the contract executive: account identities, code/storage hashes,
// and currency amounts.
package primitives

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the byte length of an Address.
const AddressLength = 20

// HashLength is the byte length of a Hash (also used as a 32-byte StorageKey).
const HashLength = 32

// Address is the opaque identity of a participant on the host chain: an
// externally owned account or a contract. Equality is total (`==`).
type Address [AddressLength]byte

// BytesToAddress right-aligns b in an Address, truncating from the left if
// b is longer than AddressLength.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// ParseAddress parses a hex string (with or without a leading "0x") into an Address.
func ParseAddress(s string) (Address, error) {
	if len(s) >= 2 && s[:2] == "0x" {
		s = s[2:]
	}
	if len(s) != AddressLength*2 {
		return Address{}, errors.New("primitives: invalid address length")
	}
	var a Address
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return Address{}, err
	}
	return a, nil
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns a's bytes.
func (a Address) Bytes() []byte {
	return a[:]
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Hash is a 32-byte content hash. It doubles as CodeHash and as StorageKey,
// matching spec.md's "fixed 32-byte key" definition of StorageKey.
type Hash [HashLength]byte

// BytesToHash right-aligns b in a Hash, truncating from the left if b is
// longer than HashLength.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Bytes returns h's bytes.
func (h Hash) Bytes() []byte {
	return h[:]
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Keccak256 hashes data with Keccak-256, the hash function used throughout
// the executive for code hashes and account-id derivation.
func Keccak256(data ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// Weight is a non-negative gas unit.
type Weight = uint64

// BlockNumber is a monotonic block counter supplied by the host.
type BlockNumber = uint32

// Moment is a monotonic wall-clock counter (unix seconds) supplied by the host.
type Moment = uint64
