// Package rent implements storage-rent accounting: the charge applied at
// frame entry and at a new contract's birth (spec.md §4.1), and the
// restore_to delegate spec.md §9(c) explicitly scopes as "internals out of
// scope". The exact formula is likewise out of scope per spec.md §1; this
// package supplies the reference linear formula SPEC_FULL.md §6 calls for
// so the executive can be exercised end-to-end.
//
// Grounded in the teacher's builtin/energy/energy.go for the shape of a
// per-block accrual charge against a capped allowance, and in
// original_source/frame/contracts/src/rent.rs's charge()/try_eviction()
// split (see original_source/_INDEX.md).
package rent

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/state"
)

// ErrNotCallable names the outcome of a rent charge that evicts a contract:
// it no longer exists to be called. Linear.Charge does not return it; it
// reports eviction through its evicted result.
var ErrNotCallable = errors.New("rent: contract evicted, not callable")

// ErrNewContractNotFunded names the outcome of a newly born contract's
// first-block rent charge evicting it immediately. Linear.Charge does not
// return it; it reports eviction through its evicted result.
var ErrNewContractNotFunded = errors.New("rent: new contract could not afford first rent charge")

// Params is a frame-local snapshot of the rent-relevant numbers,
// spec.md §3's RentParams. It is captured once at frame construction and
// never refreshed (invariant 7, spec.md §8).
type Params struct {
	TotalBalance          primitives.Balance
	FreeBalance           primitives.Balance
	SubsistenceThreshold  primitives.Balance
	DepositPerContract    primitives.Balance
	DepositPerStorageByte primitives.Balance
	DepositPerStorageItem primitives.Balance
	RentAllowance         primitives.Balance
	RentFraction          uint64
	StorageSize           uint32
	CodeSize              uint32
	CodeRefcount          uint32
}

// Clone returns a deep copy, so that a later mutation of the source (e.g.
// a contract calling set_rent_allowance on its live info) cannot leak
// through a shared *big.Int into an already-snapshotted Params.
func (p Params) Clone() Params {
	c := p
	c.TotalBalance = new(big.Int).Set(p.TotalBalance)
	c.FreeBalance = new(big.Int).Set(p.FreeBalance)
	c.SubsistenceThreshold = new(big.Int).Set(p.SubsistenceThreshold)
	c.DepositPerContract = new(big.Int).Set(p.DepositPerContract)
	c.DepositPerStorageByte = new(big.Int).Set(p.DepositPerStorageByte)
	c.DepositPerStorageItem = new(big.Int).Set(p.DepositPerStorageItem)
	c.RentAllowance = new(big.Int).Set(p.RentAllowance)
	return c
}

// Calculator is the narrow collaborator the executive consumes for rent
// charging (spec.md §1's "the rent calculator's formula" external
// collaborator).
type Calculator interface {
	// Charge deducts rent owed by account since its last charge, given its
	// occupiedStorage in bytes. It updates info's rent_allowance and
	// deduct block in place and reports whether the contract was evicted.
	Charge(account primitives.Address, info *state.ContractInfo, occupiedStorage uint32, currentBlock primitives.BlockNumber) (evicted bool, err error)

	// RestoreTo implements the rent module's restoration of a tombstoned
	// contract's state into dest. Its internals are out of scope
	// (spec.md §9(c)); the executive only needs the call/return contract.
	RestoreTo(dest primitives.Address, codeHash primitives.Hash, rentAllowance primitives.Balance, delta []primitives.Hash) error
}

// Linear is the reference rent formula: rent per block is proportional to
// occupied storage bytes, charged for every block elapsed since
// DeductBlock, and bounded by the contract's rent_allowance (a charge above
// it evicts the contract).
type Linear struct {
	Store                 *state.Store
	DepositPerStorageByte primitives.Balance
	DepositPerContract    primitives.Balance
}

// NewLinear constructs the reference Calculator.
func NewLinear(store *state.Store, depositPerByte, depositPerContract primitives.Balance) *Linear {
	return &Linear{Store: store, DepositPerStorageByte: depositPerByte, DepositPerContract: depositPerContract}
}

// Charge implements Calculator.Charge with the linear formula:
// owed = DepositPerContract + occupiedStorage*DepositPerStorageByte, per
// block elapsed since info.DeductBlock. If owed exceeds either the
// contract's RentAllowance or its free balance (the subsistence threshold
// is the caller's concern via TransferPolicy, not rent), nothing is charged
// and the contract is evicted: its record is deleted and evicted=true is
// returned.
func (l *Linear) Charge(account primitives.Address, info *state.ContractInfo, occupiedStorage uint32, currentBlock primitives.BlockNumber) (bool, error) {
	blocksElapsed := uint64(0)
	if currentBlock > info.DeductBlock {
		blocksElapsed = uint64(currentBlock - info.DeductBlock)
	}
	if blocksElapsed == 0 {
		info.DeductBlock = currentBlock
		return false, nil
	}

	storageCost := new(big.Int).Mul(big.NewInt(int64(occupiedStorage)), l.DepositPerStorageByte)
	perBlock := new(big.Int).Add(l.DepositPerContract, storageCost)
	owed := new(big.Int).Mul(perBlock, big.NewInt(int64(blocksElapsed)))

	balance := l.Store.GetBalance(account)
	if primitives.LessThan(info.RentAllowance, owed) || primitives.LessThan(balance, owed) {
		// Evict: cannot afford the full charge.
		l.Store.DeleteContractInfo(account)
		return true, nil
	}

	l.Store.SetBalance(account, primitives.SaturatingSub(balance, owed))
	info.RentAllowance = primitives.SaturatingSub(info.RentAllowance, owed)
	info.DeductBlock = currentBlock
	return false, nil
}

// RestoreTo is a thin delegate: spec.md §9(c) treats its internals as out
// of scope. The reference implementation simply re-points dest's contract
// record at codeHash and rentAllowance, ignoring delta (the storage keys
// to carry over from the tombstone), since no tombstone format is defined
// in this spec.
func (l *Linear) RestoreTo(dest primitives.Address, codeHash primitives.Hash, rentAllowance primitives.Balance, delta []primitives.Hash) error {
	info, ok := l.Store.GetContractInfo(dest)
	if !ok {
		return errors.New("rent: restore_to target has no contract record")
	}
	info.CodeHash = codeHash
	info.RentAllowance = rentAllowance
	l.Store.SetContractInfo(dest, info)
	return nil
}
