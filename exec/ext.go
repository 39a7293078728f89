package exec

import (
	"encoding/binary"
	"math/big"

	"github.com/substrate-contracts/executive/executable"
	"github.com/substrate-contracts/executive/gas"
	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/rent"
)

// Ext is spec.md §4.3's host-facing API a running contract calls back
// into. *Stack implements every operation, routed against its current top
// frame, per spec.md §9's design note that Ext should be modeled as
// operations routed through Stack rather than an owned per-frame object.
type Ext interface {
	executable.Ext

	Call(gasLimit uint64, to primitives.Address, value primitives.Balance, input []byte) (executable.Result, *Error)
	Instantiate(gasLimit uint64, codeHash primitives.Hash, endowment primitives.Balance, input, salt []byte) (primitives.Address, executable.Result, uint32, *Error)
	Terminate(beneficiary primitives.Address) *Error
	RestoreTo(dest primitives.Address, codeHash primitives.Hash, rentAllowance primitives.Balance, delta []primitives.Hash) *Error
	Transfer(to primitives.Address, value primitives.Balance) *Error

	GetStorage(key primitives.Hash) ([]byte, bool)
	SetStorage(key primitives.Hash, value []byte)

	Balance() primitives.Balance
	Now() primitives.Moment
	BlockNumber() primitives.BlockNumber
	MinimumBalance() primitives.Balance
	TombstoneDeposit() primitives.Balance
	Random(subject []byte) primitives.Hash
	MaxValueSize() uint32
	GetWeightPrice(weight primitives.Weight) primitives.Balance
	RentAllowance() primitives.Balance
	SetRentAllowance(v primitives.Balance)
	RentParams() rent.Params
	DepositEvent(topics []primitives.Hash, data []byte)
	GasMeter() *gas.Meter
}

// Caller returns the account_id of the frame immediately below the
// current top, or origin for the first frame (spec.md §4.3).
func (s *Stack) Caller() primitives.Address {
	switch {
	case len(s.frames) >= 2:
		return s.frames[len(s.frames)-2].accountID
	case len(s.frames) == 1:
		return s.firstFrame.accountID
	default:
		return s.origin
	}
}

// Address returns the current top frame's account id.
func (s *Stack) Address() primitives.Address {
	return s.topFrame().accountID
}

// ValueTransferred returns the current top frame's value_transferred.
func (s *Stack) ValueTransferred() primitives.Balance {
	return new(big.Int).Set(s.topFrame().valueTransferred)
}

// Balance returns the current top frame account's free balance, which
// already includes value_transferred (credited by initial_transfer before
// execution began).
func (s *Stack) Balance() primitives.Balance {
	return s.transferPolicy.Currency.FreeBalance(s.Address())
}

// Call implements spec.md §4.3's call(gas_limit, to, value, input).
func (s *Stack) Call(gasLimit uint64, to primitives.Address, value primitives.Balance, input []byte) (executable.Result, *Error) {
	existing := s.findExistingCall(to)
	parentMeter := s.topFrame().nestedMeter
	frame, err := s.pushFrame(func() (*Frame, *Error) {
		return s.buildCallFrame(to, existing, value, gasLimit, parentMeter)
	})
	if err != nil {
		return executable.Result{}, err
	}
	return s.runFrame(frame, input)
}

// Instantiate implements spec.md §4.3's instantiate(gas_limit, code_hash,
// endowment, input, salt).
func (s *Stack) Instantiate(gasLimit uint64, codeHash primitives.Hash, endowment primitives.Balance, input, salt []byte) (primitives.Address, executable.Result, uint32, *Error) {
	module, merr := s.registry.FromStorage(codeHash)
	if merr != nil {
		return primitives.Address{}, executable.Result{}, 0, newError(ErrCodeNotFound, Caller, 0)
	}

	seed := s.counter.NextSeed()
	caller := s.Address()
	parentMeter := s.topFrame().nestedMeter
	frame, err := s.pushFrame(func() (*Frame, *Error) {
		return s.buildInstantiateFrame(caller, seed, module, salt, endowment, gasLimit, parentMeter)
	})
	if err != nil {
		return primitives.Address{}, executable.Result{}, module.CodeLen(), err
	}

	result, rerr := s.runFrame(frame, input)
	if rerr != nil {
		return primitives.Address{}, result, frame.codeLen, rerr
	}
	return frame.accountID, result, frame.codeLen, nil
}

// Terminate implements spec.md §4.3's terminate(beneficiary).
func (s *Stack) Terminate(beneficiary primitives.Address) *Error {
	addr := s.Address()
	if s.isRecursive(addr) {
		return newError(ErrReentranceDenied, Caller, 0)
	}

	top := s.topFrame()
	info := top.cache.terminate(s.store, addr)

	balance := s.transferPolicy.Currency.TotalBalance(addr)
	if err := s.transferPolicy.Transfer(true, true, addr, beneficiary, balance); err != nil {
		return newError(ErrTransferFailed, Caller, 0)
	}

	s.store.DeleteContractInfo(addr)
	if info != nil {
		s.registry.RemoveUser(info.CodeHash)
	}
	s.eventBus.DepositTerminated(addr, beneficiary)
	return nil
}

// RestoreTo implements spec.md §4.3's restore_to(dest, code_hash,
// rent_allowance, delta). Its internals are delegated wholesale to the
// rent module per spec.md §9(c).
func (s *Stack) RestoreTo(dest primitives.Address, codeHash primitives.Hash, rentAllowance primitives.Balance, delta []primitives.Hash) *Error {
	addr := s.Address()
	if s.isRecursive(addr) {
		return newError(ErrReentranceDenied, Caller, 0)
	}
	if err := s.rentCalc.RestoreTo(dest, codeHash, rentAllowance, delta); err != nil {
		return newError(err, Caller, 0)
	}
	s.eventBus.DepositRestored(addr, dest, codeHash, rentAllowance)
	return nil
}

// Transfer implements spec.md §4.3's transfer(to, value): a
// contract-initiated transfer where death of the sender is forbidden.
func (s *Stack) Transfer(to primitives.Address, value primitives.Balance) *Error {
	from := s.Address()
	if err := s.transferPolicy.Transfer(true, false, from, to, value); err != nil {
		return translateTransferError(err, 0)
	}
	return nil
}

// GetStorage implements spec.md §4.3's get_storage(key).
func (s *Stack) GetStorage(key primitives.Hash) ([]byte, bool) {
	top := s.topFrame()
	info := top.cache.asAlive(s.store, top.accountID)
	return s.store.GetStorage(info.TrieID, key)
}

// SetStorage implements spec.md §4.3's set_storage(key, value); a nil
// value deletes the entry.
func (s *Stack) SetStorage(key primitives.Hash, value []byte) {
	top := s.topFrame()
	info := top.cache.asAlive(s.store, top.accountID)
	_, existed := s.store.GetStorage(info.TrieID, key)
	s.store.SetStorage(info.TrieID, key, value)
	switch {
	case value == nil && existed:
		if info.StorageSize > 0 {
			info.StorageSize--
		}
	case value != nil && !existed:
		info.StorageSize++
	}
	info.LastWrite = s.blockNumber
}

// Now returns the host-supplied block timestamp.
func (s *Stack) Now() primitives.Moment { return s.timestamp }

// BlockNumber returns the host-supplied block number.
func (s *Stack) BlockNumber() primitives.BlockNumber { return s.blockNumber }

// MinimumBalance returns the chain's existential deposit. The reference
// host equates it with the subsistence threshold.
func (s *Stack) MinimumBalance() primitives.Balance {
	return new(big.Int).Set(s.limits.SubsistenceThreshold)
}

// TombstoneDeposit returns the deposit required to leave a tombstone.
func (s *Stack) TombstoneDeposit() primitives.Balance {
	return new(big.Int).Set(s.limits.TombstoneDeposit)
}

// Random implements spec.md §4.3's random(subject): a deterministic,
// non-cryptographically-secure stand-in for the host's randomness
// provider (spec.md §1 names it out of scope).
func (s *Stack) Random(subject []byte) primitives.Hash {
	var blockBytes [4]byte
	binary.BigEndian.PutUint32(blockBytes[:], s.blockNumber)
	return primitives.Keccak256(subject, blockBytes[:])
}

// MaxValueSize returns the host's maximum contract value/storage size.
func (s *Stack) MaxValueSize() uint32 { return s.limits.MaxValueSize }

// GetWeightPrice converts weight into a Balance via the active Schedule.
func (s *Stack) GetWeightPrice(weight primitives.Weight) primitives.Balance {
	return s.schedule.Price(weight)
}

// RentAllowance returns the current top frame's live rent allowance.
func (s *Stack) RentAllowance() primitives.Balance {
	top := s.topFrame()
	info := top.cache.asAlive(s.store, top.accountID)
	return new(big.Int).Set(info.RentAllowance)
}

// SetRentAllowance writes the current top frame's live rent allowance.
func (s *Stack) SetRentAllowance(v primitives.Balance) {
	top := s.topFrame()
	info := top.cache.asAlive(s.store, top.accountID)
	info.RentAllowance = new(big.Int).Set(v)
}

// RentParams returns the current top frame's frozen snapshot, unaffected
// by any intervening SetRentAllowance or sibling instantiation
// (invariant 7, spec.md §8).
func (s *Stack) RentParams() rent.Params {
	return s.topFrame().rentParams.Clone()
}

// DepositEvent implements spec.md §4.3's deposit_event(topics, data).
func (s *Stack) DepositEvent(topics []primitives.Hash, data []byte) {
	s.eventBus.DepositContractEmitted(s.Address(), topics, data)
}

// GasMeter returns the current top frame's nested gas meter.
func (s *Stack) GasMeter() *gas.Meter {
	return s.topFrame().nestedMeter
}
