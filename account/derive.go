// Package account implements spec.md §4.5's deterministic account
// derivation: contract addresses from (caller, code hash, salt), trie ids
// from (account, seed), and the monotonic account-seed counter with its
// rollback-on-failed-constructor rule.
//
// Grounded in the teacher's acc/address.go for Keccak-based address
// derivation and golang.org/x/crypto/sha3 usage, matching primitives'
// Keccak256 helper.
package account

import (
	"encoding/binary"

	"github.com/substrate-contracts/executive/primitives"
)

// ContractAddress derives a deterministic contract account id from the
// instantiator, the code hash being deployed, and caller-supplied salt,
// spec.md §4.1's "Derive account_id = contract_address(origin, code_hash,
// salt)".
func ContractAddress(caller primitives.Address, codeHash primitives.Hash, salt []byte) primitives.Address {
	h := primitives.Keccak256(caller.Bytes(), codeHash.Bytes(), salt)
	return primitives.BytesToAddress(h.Bytes())
}

// TrieID derives a per-contract storage namespace key from the account id
// and the seed that was consumed to create it, spec.md §4.1's "generate
// trie_id from (account_id, seed)".
func TrieID(accountID primitives.Address, seed uint64) primitives.Hash {
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], seed)
	return primitives.Keccak256(accountID.Bytes(), seedBytes[:])
}

// Counter is the monotonic seed counter backing spec.md §4.5's
// next_account_seed/initial_account_seed. It wraps a host-persisted
// baseline (spec.md §9's "Global state": AccountCounter is persistent host
// state, read once per top-level entry) and tracks only the in-memory
// delta for the duration of one entry.
type Counter struct {
	baseline uint64
	current  uint64
	init     bool
}

// NewCounter constructs a Counter seeded from the persistent baseline read
// at the start of a top-level entry.
func NewCounter(baseline uint64) *Counter {
	return &Counter{baseline: baseline}
}

// InitialSeed implements initial_account_seed(): the first call
// materialises current = baseline, matching the "lazy init" wording of
// spec.md §4.5.
func (c *Counter) InitialSeed() uint64 {
	if !c.init {
		c.current = c.baseline
		c.init = true
	}
	return c.current
}

// NextSeed implements next_account_seed(): lazily initializes, then
// returns the previous value plus one (wrapping), matching spec.md §9(b)'s
// resolved Open Question that wrapping is the intended semantics.
func (c *Counter) NextSeed() uint64 {
	c.InitialSeed()
	c.current++
	return c.current
}

// RollbackOne decrements the counter (wrapping), undoing exactly one
// NextSeed call. run() calls this when a constructor frame fails, per
// spec.md §4.1's "On Err whose frame entry is Constructor, decrement
// account_counter (wrapping)" — this re-offers the seed to the next
// instantiation attempt instead of burning it on a trapped constructor.
func (c *Counter) RollbackOne() {
	c.InitialSeed()
	c.current--
}

// Value returns the counter's current in-memory value, for the outer
// dispatcher to persist back on commit (spec.md §9: "the executive only
// mutates its in-memory copy").
func (c *Counter) Value() uint64 {
	if !c.init {
		return c.baseline
	}
	return c.current
}

// Dirty reports whether at least one seed was consumed this entry, so the
// outer dispatcher knows whether a write-back is needed at all.
func (c *Counter) Dirty() bool {
	return c.init && c.current != c.baseline
}
