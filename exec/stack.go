// Package exec implements the executive core: spec.md §4's Stack, Frame,
// CachedContract, the Ext host-facing API, and the with_call/with_instantiate
// top-level entries. This is the 45%-share component of the system
// (spec.md §2) and the direct Go analog of
// original_source/frame/contracts/src/exec.rs.
//
// Grounded in the teacher's vm package (vm.New(ctx, state, cfg).Call(...)
// call-stack shape) and in camal66-godx's core/vm/evm.go (Call/CallCode/
// DelegateCall/create with depth checks and Snapshot/RevertToSnapshot),
// adapted from a single flat EVM call stack to spec.md's first_frame +
// ordered frames model with its three-state reentrant cache.
package exec

import (
	"errors"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/log"

	"github.com/substrate-contracts/executive/account"
	"github.com/substrate-contracts/executive/balances"
	"github.com/substrate-contracts/executive/events"
	"github.com/substrate-contracts/executive/executable"
	"github.com/substrate-contracts/executive/gas"
	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/rent"
	"github.com/substrate-contracts/executive/state"
)

// Limits bounds the executive's behavior, standing in for "the outer
// dispatcher/CLI"'s configuration (spec.md §1 names it an external
// collaborator). Constructed programmatically; there is no CLI here.
type Limits struct {
	MaxDepth             int
	MaxValueSize         uint32
	SubsistenceThreshold primitives.Balance
	TombstoneDeposit     primitives.Balance
}

// Deps bundles every external collaborator spec.md §6 names, plus the
// rent-params display fields that are cosmetic to RentParams snapshots
// rather than functional to the pluggable rent.Calculator's own formula.
type Deps struct {
	Store          *state.Store
	TransferPolicy *balances.TransferPolicy
	RentCalc       rent.Calculator
	Registry       *executable.Registry
	Events         *events.Bus
	Schedule       *Schedule
	Limits         Limits

	Timestamp   primitives.Moment
	BlockNumber primitives.BlockNumber

	DepositPerContract    primitives.Balance
	DepositPerStorageByte primitives.Balance
	DepositPerStorageItem primitives.Balance
	RentFraction          uint64

	// AccountCounter is the in-memory seed counter whose baseline was read
	// once from persistent host state at the start of this top-level
	// entry (spec.md §9's "Global state").
	AccountCounter *account.Counter
}

// Stack is spec.md §3's Stack: origin, schedule, gas_meter, timestamp,
// block_number, account_counter, first_frame, and the ordered frames
// sequence. The logical stack is [first_frame] ++ frames; depth is
// len(frames)+1.
type Stack struct {
	origin primitives.Address
	deps   Deps

	store          *state.Store
	transferPolicy *balances.TransferPolicy
	rentCalc       rent.Calculator
	registry       *executable.Registry
	eventBus       *events.Bus
	schedule       *Schedule
	limits         Limits
	timestamp      primitives.Moment
	blockNumber    primitives.BlockNumber
	counter        *account.Counter
	rootMeter      *gas.Meter

	firstFrame *Frame
	frames     []*Frame
}

func newStack(deps Deps, origin primitives.Address, rootMeter *gas.Meter) *Stack {
	return &Stack{
		origin:         origin,
		deps:           deps,
		store:          deps.Store,
		transferPolicy: deps.TransferPolicy,
		rentCalc:       deps.RentCalc,
		registry:       deps.Registry,
		eventBus:       deps.Events,
		schedule:       deps.Schedule,
		limits:         deps.Limits,
		timestamp:      deps.Timestamp,
		blockNumber:    deps.BlockNumber,
		counter:        deps.AccountCounter,
		rootMeter:      rootMeter,
	}
}

// Depth returns the current logical stack depth: len(frames)+1 while a
// first frame exists, 0 before any frame has been constructed.
func (s *Stack) Depth() int {
	if s.firstFrame == nil {
		return 0
	}
	return len(s.frames) + 1
}

// topFrame returns the current top of stack, defaulting to first_frame
// when the frames sequence is empty, per spec.md §9's frame()/frame_mut()
// design note.
func (s *Stack) topFrame() *Frame {
	if len(s.frames) == 0 {
		return s.firstFrame
	}
	return s.frames[len(s.frames)-1]
}

// WithCall is spec.md §4.1's top-level with_call entry.
func WithCall(deps Deps, origin, dest primitives.Address, rootMeter *gas.Meter, value primitives.Balance, input []byte) (*Stack, executable.Result, *Error) {
	s := newStack(deps, origin, rootMeter)
	frame, err := s.buildCallFrame(dest, nil, value, math.MaxUint64, rootMeter)
	if err != nil {
		return s, executable.Result{}, err
	}
	s.firstFrame = frame
	result, rerr := s.runFrame(frame, input)
	return s, result, rerr
}

// WithInstantiate is spec.md §4.1's top-level with_instantiate entry. On
// success it returns the freshly derived account id.
func WithInstantiate(deps Deps, origin primitives.Address, codeHash primitives.Hash, rootMeter *gas.Meter, value primitives.Balance, input, salt []byte) (*Stack, primitives.Address, executable.Result, *Error) {
	s := newStack(deps, origin, rootMeter)
	module, merr := s.registry.FromStorage(codeHash)
	if merr != nil {
		return s, primitives.Address{}, executable.Result{}, newError(ErrCodeNotFound, Caller, 0)
	}
	seed := s.counter.NextSeed()
	frame, err := s.buildInstantiateFrame(origin, seed, module, salt, value, math.MaxUint64, rootMeter)
	if err != nil {
		return s, primitives.Address{}, executable.Result{}, err
	}
	s.firstFrame = frame
	result, rerr := s.runFrame(frame, input)
	if rerr != nil {
		return s, primitives.Address{}, result, rerr
	}
	return s, frame.accountID, result, nil
}

// pushFrame implements spec.md §4.1's push_frame depth check, invoking
// build only once the check passes, and appends the resulting frame.
func (s *Stack) pushFrame(build func() (*Frame, *Error)) (*Frame, *Error) {
	if s.Depth() >= s.limits.MaxDepth {
		log.Debug("exec: max call depth reached", "depth", s.Depth(), "limit", s.limits.MaxDepth)
		return nil, newError(ErrMaxCallDepthReached, Caller, 0)
	}
	frame, err := build()
	if err != nil {
		return nil, err
	}
	s.frames = append(s.frames, frame)
	log.Trace("exec: frame pushed", "account", frame.accountID, "entry", frame.entryPoint, "depth", s.Depth())
	return frame, nil
}

// buildCallFrame constructs a Call frame, reusing existing (an
// already-cached sibling frame's info) when provided, per spec.md §4.1's
// "skip the storage read and use the provided info directly".
func (s *Stack) buildCallFrame(to primitives.Address, existing *state.ContractInfo, value primitives.Balance, gasLimit uint64, parentMeter *gas.Meter) (*Frame, *Error) {
	info := existing
	if info == nil {
		loaded, ok := s.store.GetContractInfo(to)
		if !ok {
			return nil, newError(ErrNotCallable, Caller, 0)
		}
		info = loaded
	}

	module, merr := s.registry.FromStorage(info.CodeHash)
	if merr != nil {
		return nil, newError(ErrCodeNotFound, Caller, 0)
	}

	evicted, chargeErr := s.rentCalc.Charge(to, info, module.OccupiedStorage(), s.blockNumber)
	if chargeErr != nil {
		return nil, newError(chargeErr, Caller, module.CodeLen())
	}
	if evicted {
		log.Warn("exec: contract evicted for unpaid rent", "account", to)
		return nil, newError(ErrNotCallable, Caller, module.CodeLen())
	}

	return &Frame{
		accountID:        to,
		cache:            newCachedCached(info),
		valueTransferred: value,
		rentParams:       s.snapshotRentParams(to, info, module),
		entryPoint:       executable.Call,
		nestedMeter:      parentMeter.Nested(gasLimit),
		module:           module,
	}, nil
}

// buildInstantiateFrame constructs a Constructor frame for a brand new
// contract: derives its address and trie id, registers it against the
// code module's refcount, and plants a fresh AliveContractInfo.
func (s *Stack) buildInstantiateFrame(caller primitives.Address, seed uint64, module *executable.Module, salt []byte, endowment primitives.Balance, gasLimit uint64, parentMeter *gas.Meter) (*Frame, *Error) {
	accountID := account.ContractAddress(caller, module.CodeHash(), salt)
	trieID := account.TrieID(accountID, seed)

	if _, err := s.registry.AddUser(module.CodeHash()); err != nil {
		return nil, newError(err, Caller, 0)
	}

	info := &state.ContractInfo{
		TrieID:        trieID,
		CodeHash:      module.CodeHash(),
		StorageSize:   0,
		RentAllowance: primitives.ZeroBalance(),
		DeductBlock:   s.blockNumber,
	}
	s.store.SetContractInfo(accountID, info)

	return &Frame{
		accountID:        accountID,
		cache:            newCachedCached(info),
		valueTransferred: endowment,
		rentParams:       s.snapshotRentParams(accountID, info, module),
		entryPoint:       executable.Constructor,
		nestedMeter:      parentMeter.Nested(gasLimit),
		module:           module,
	}, nil
}

// snapshotRentParams builds spec.md §3's RentParams, frozen at frame
// construction (invariant 6, spec.md §3; invariant 7, spec.md §8).
func (s *Stack) snapshotRentParams(accountID primitives.Address, info *state.ContractInfo, module *executable.Module) rent.Params {
	dep := func(v primitives.Balance) primitives.Balance {
		if v == nil {
			return primitives.ZeroBalance()
		}
		return new(big.Int).Set(v)
	}
	return rent.Params{
		TotalBalance:          s.transferPolicy.Currency.TotalBalance(accountID),
		FreeBalance:           s.transferPolicy.Currency.FreeBalance(accountID),
		SubsistenceThreshold:  dep(s.limits.SubsistenceThreshold),
		DepositPerContract:    dep(s.deps.DepositPerContract),
		DepositPerStorageByte: dep(s.deps.DepositPerStorageByte),
		DepositPerStorageItem: dep(s.deps.DepositPerStorageItem),
		RentAllowance:         new(big.Int).Set(info.RentAllowance),
		RentFraction:          s.deps.RentFraction,
		StorageSize:           info.StorageSize,
		CodeSize:              module.CodeLen(),
		CodeRefcount:          module.Refcount(),
	}
}

// runFrame wraps rawRun, applying the account-counter rollback and
// pop_frame bookkeeping spec.md §4.1's run() describes.
func (s *Stack) runFrame(frame *Frame, input []byte) (executable.Result, *Error) {
	result, rerr := s.rawRun(frame, input)
	if rerr != nil && frame.entryPoint == executable.Constructor {
		s.counter.RollbackOne()
		// the fresh record was planted before the frame's transaction
		// opened, so a failed constructor must remove it explicitly.
		s.store.DeleteContractInfo(frame.accountID)
	}
	s.popFrame(frame, rerr == nil)
	frame.nestedMeter.Close()
	return result, rerr
}

// rawRun implements spec.md §4.1's raw_run.
func (s *Stack) rawRun(frame *Frame, input []byte) (executable.Result, *Error) {
	frame.occupiedStorage = frame.module.OccupiedStorage()
	frame.codeLen = frame.module.CodeLen()

	callerAddr := s.Caller()
	callerIsContract := s.Depth() > 1

	eventCheckpoint := s.eventBus.Len()
	var result executable.Result
	var rerr *Error

	outcome := s.store.WithTransaction(func() state.Outcome {
		if err := s.transferPolicy.InitialTransfer(callerIsContract, callerAddr, frame.accountID, frame.valueTransferred); err != nil {
			rerr = translateTransferError(err, frame.codeLen)
			return state.Rollback
		}

		res, err := frame.module.Execute(s, frame.entryPoint, input)
		if err != nil {
			rerr = wrapCalleeError(err, frame.codeLen)
			return state.Rollback
		}
		result = res
		if res.Reverted() {
			return state.Rollback
		}
		return state.Commit
	})

	if outcome == state.Rollback {
		s.eventBus.Truncate(eventCheckpoint)
	}
	if rerr != nil {
		return executable.Result{}, rerr
	}

	if outcome == state.Commit && frame.entryPoint == executable.Constructor {
		if frame.cache.isTerminated() {
			return executable.Result{}, newError(ErrNotCallable, Caller, frame.codeLen)
		}
		info := frame.cache.asAlive(s.store, frame.accountID)
		evicted, chargeErr := s.rentCalc.Charge(frame.accountID, info, frame.occupiedStorage, s.blockNumber)
		if chargeErr != nil {
			return executable.Result{}, newError(chargeErr, Caller, frame.codeLen)
		}
		if evicted {
			log.Warn("exec: new contract could not afford its first rent charge", "account", frame.accountID)
			return executable.Result{}, newError(ErrNewContractNotFunded, Caller, frame.codeLen)
		}
		frame.cache = newCachedCached(info)
		s.eventBus.DepositInstantiated(callerAddr, frame.accountID)
	}

	return result, nil
}

// popFrame implements spec.md §4.1's pop_frame(persist).
func (s *Stack) popFrame(frame *Frame, persist bool) {
	log.Trace("exec: frame popped", "account", frame.accountID, "entry", frame.entryPoint, "persist", persist)
	poppingFirst := len(s.frames) == 0
	if !poppingFirst {
		s.frames = s.frames[:len(s.frames)-1]
	}
	if !persist {
		return
	}
	if poppingFirst {
		if frame.cache.isCached() {
			s.store.SetContractInfo(frame.accountID, frame.cache.info)
		}
		return
	}
	if !frame.cache.isCached() {
		return
	}
	info := frame.cache.info
	newTop := s.topFrame()
	if newTop.accountID == frame.accountID {
		newTop.cache = newCachedCached(info)
		return
	}
	s.invalidateFirstMatch(frame.accountID)
	s.store.SetContractInfo(frame.accountID, info)
}

// invalidateFirstMatch walks the remaining stack from the new top downward
// and transitions the first frame sharing accountID to Invalidated,
// spec.md §4.1's "first match only" rule.
func (s *Stack) invalidateFirstMatch(accountID primitives.Address) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].accountID == accountID {
			s.frames[i].cache.invalidate(s.store, accountID)
			return
		}
	}
	if s.firstFrame.accountID == accountID {
		s.firstFrame.cache.invalidate(s.store, accountID)
	}
}

// findExistingCall implements spec.md §4.3's call() step 1: search the
// stack, excluding the current top, for an existing Call frame targeting
// to whose cache is Cached.
func (s *Stack) findExistingCall(to primitives.Address) *state.ContractInfo {
	for i := len(s.frames) - 2; i >= 0; i-- {
		f := s.frames[i]
		if f.entryPoint == executable.Call && f.accountID == to && f.cache.isCached() {
			return f.cache.info.Clone()
		}
	}
	if len(s.frames) == 0 {
		// the current top IS first_frame; nothing else to search.
		return nil
	}
	if s.firstFrame.entryPoint == executable.Call && s.firstFrame.accountID == to && s.firstFrame.cache.isCached() {
		return s.firstFrame.cache.info.Clone()
	}
	return nil
}

// isRecursive reports whether accountID appears on more than one frame of
// the current stack, spec.md §5's is_recursive() check.
func (s *Stack) isRecursive(accountID primitives.Address) bool {
	count := 0
	if s.firstFrame != nil && s.firstFrame.accountID == accountID {
		count++
	}
	for _, f := range s.frames {
		if f.accountID == accountID {
			count++
		}
	}
	return count > 1
}

func translateTransferError(err error, codeLen uint32) *Error {
	if errors.Is(err, balances.ErrBelowSubsistenceThreshold) {
		return newError(ErrBelowSubsistenceThreshold, Caller, codeLen)
	}
	return newError(ErrTransferFailed, Caller, codeLen)
}

func wrapCalleeError(err error, codeLen uint32) *Error {
	if ee, ok := err.(*Error); ok {
		return ee.WithOrigin(Callee)
	}
	return newError(err, Callee, codeLen)
}
