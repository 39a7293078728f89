// Package state implements the executive's transactional view over
// balances, code, contract records, and per-contract storage. It is the Go
// analog of spec.md §6's host storage transaction primitive
// ("with_transaction(body) -> Commit | Rollback"), grounded in the
// teacher's stackedmap package for the underlying journal and in
// state/state_test.go (NewCheckpoint/RevertTo/SetBalance/GetBalance/
// SetCode/GetCode/SetStorage/GetStorage/Exists) for the public surface.
package state

import (
	"math/big"

	"github.com/substrate-contracts/executive/primitives"
)

// Outcome is the result a transaction body reports to WithTransaction.
type Outcome int

const (
	// Commit keeps every mutation made during the transaction.
	Commit Outcome = iota
	// Rollback discards every mutation made during the transaction.
	Rollback
)

type (
	balanceKey struct{ addr primitives.Address }
	codeKey    struct{ addr primitives.Address }
	infoKey    struct{ addr primitives.Address }
	storageKey struct {
		trieID primitives.Hash
		key    primitives.Hash
	}
	counterKey struct{}
)

// Store is the executive's transactional storage backend. A zero Store is
// not usable; construct one with New.
type Store struct {
	jm *journal
}

// New returns an empty Store with no backing trie: every read that misses
// the journal reports "not found" rather than falling through to a
// persistent database, since persistence sits outside the executive
// boundary (spec.md §1 Non-goals).
func New() *Store {
	return &Store{jm: newJournal(nil)}
}

// NewCheckpoint opens a new transaction frame and returns its id. Passing
// that id to RevertTo later discards every mutation made since this call.
func (s *Store) NewCheckpoint() int {
	id := s.jm.Depth()
	s.jm.Push()
	return id
}

// RevertTo discards every mutation made since the checkpoint identified by
// id was taken.
func (s *Store) RevertTo(id int) {
	s.jm.PopTo(id)
}

// WithTransaction runs body inside a fresh checkpoint, committing its
// mutations if body returns Commit and rolling them back if it returns
// Rollback or panics. This is the Go shape of spec.md §6's
// with_transaction host primitive; the executive's nested gas metering
// (package gas) composes alongside it rather than being part of it, since
// gas is refunded on Close regardless of commit/rollback.
func (s *Store) WithTransaction(body func() Outcome) (outcome Outcome) {
	chk := s.NewCheckpoint()
	committed := false
	defer func() {
		if r := recover(); r != nil {
			s.RevertTo(chk)
			panic(r)
		}
		if !committed {
			s.RevertTo(chk)
		}
	}()
	outcome = body()
	committed = outcome == Commit
	return outcome
}

// GetBalance returns addr's free balance, or zero if none was ever set.
func (s *Store) GetBalance(addr primitives.Address) primitives.Balance {
	v, ok, _ := s.jm.Get(balanceKey{addr})
	if !ok {
		return primitives.ZeroBalance()
	}
	return new(big.Int).Set(v.(*big.Int))
}

// SetBalance sets addr's free balance.
func (s *Store) SetBalance(addr primitives.Address, bal primitives.Balance) {
	s.jm.Put(balanceKey{addr}, new(big.Int).Set(bal))
}

// GetCode returns the code deployed at addr, or nil if none.
func (s *Store) GetCode(addr primitives.Address) []byte {
	v, ok, _ := s.jm.Get(codeKey{addr})
	if !ok {
		return nil
	}
	return v.([]byte)
}

// SetCode deploys code at addr.
func (s *Store) SetCode(addr primitives.Address, code []byte) {
	cp := make([]byte, len(code))
	copy(cp, code)
	s.jm.Put(codeKey{addr}, cp)
}

// GetContractInfo returns addr's alive contract record, if any.
func (s *Store) GetContractInfo(addr primitives.Address) (*ContractInfo, bool) {
	v, ok, _ := s.jm.Get(infoKey{addr})
	if !ok || v == nil {
		return nil, false
	}
	return decodeContractInfo(v.([]byte)), true
}

// SetContractInfo writes addr's alive contract record.
func (s *Store) SetContractInfo(addr primitives.Address, info *ContractInfo) {
	s.jm.Put(infoKey{addr}, encodeContractInfo(info))
}

// DeleteContractInfo removes addr's contract record, matching spec.md
// §4.3's "the contract's AliveContractInfo is removed" on termination.
func (s *Store) DeleteContractInfo(addr primitives.Address) {
	s.jm.Put(infoKey{addr}, nil)
}

// Exists reports whether addr currently has an alive contract record.
func (s *Store) Exists(addr primitives.Address) bool {
	_, ok := s.GetContractInfo(addr)
	return ok
}

// GetStorage returns the raw value stored under key in trieID's storage
// trie. Values are arbitrary-length byte slices per spec.md §3's
// `get_storage(key) -> Option<Vec<u8>>`.
func (s *Store) GetStorage(trieID, key primitives.Hash) ([]byte, bool) {
	v, ok, _ := s.jm.Get(storageKey{trieID, key})
	if !ok || v == nil {
		return nil, false
	}
	return v.([]byte), true
}

// SetStorage writes value under key in trieID's storage trie. A nil value
// deletes the entry, matching `set_storage(key, value: Option<Vec<u8>>)`.
func (s *Store) SetStorage(trieID, key primitives.Hash, value []byte) {
	if value == nil {
		s.jm.Put(storageKey{trieID, key}, nil)
		return
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.jm.Put(storageKey{trieID, key}, cp)
}

// AccountCounter returns the monotonic seed counter used to derive fresh
// contract addresses (spec.md §3/§9's account_counter / next_account_seed).
func (s *Store) AccountCounter() uint64 {
	v, ok, _ := s.jm.Get(counterKey{})
	if !ok {
		return 0
	}
	return v.(uint64)
}

// SetAccountCounter overwrites the account seed counter.
func (s *Store) SetAccountCounter(v uint64) {
	s.jm.Put(counterKey{}, v)
}
