// Package runtime is the outermost entry point over the executive core:
// it wires state/balances/rent/executable/account/events/exec together,
// exposes ExecuteCall/ExecuteInstantiate, and recovers the fatal-assertion
// panics exec/cache.go raises on invariant violation (spec.md §4.2/§7),
// converting them into a normal error return rather than letting them
// escape to the host chain.
//
// Grounded in the teacher's builtin/env.go panic-at-the-boundary pattern
// (vmError/env.Stop recovered once at the call-frame boundary) and in
// original_source/frame/contracts/src/lib.rs's outer dispatch functions
// (bare_call/bare_instantiate), which play the same role as ExecuteCall/
// ExecuteInstantiate here.
package runtime

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/substrate-contracts/executive/account"
	"github.com/substrate-contracts/executive/balances"
	"github.com/substrate-contracts/executive/events"
	"github.com/substrate-contracts/executive/exec"
	"github.com/substrate-contracts/executive/executable"
	"github.com/substrate-contracts/executive/gas"
	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/rent"
	"github.com/substrate-contracts/executive/state"
)

// Limits re-exports exec.Limits under the name SPEC_FULL.md's ambient
// "Config/flags" section calls for: a host-chain-supplied, programmatically
// constructed parameter set, not a CLI flag set (the outer dispatcher/CLI
// is named out of scope in spec.md §1).
type Limits = exec.Limits

// Config bundles every collaborator a host chain must supply to exercise
// the executive for one top-level entry, plus the block context of that
// entry. It is the runtime-level counterpart of exec.Deps, adding only the
// persistent AccountCounter baseline exec.Deps expects already resolved
// in-memory.
type Config struct {
	Store       *state.Store
	Currency    balances.Currency
	RentCalc    rent.Calculator
	Registry    *executable.Registry
	Events      *events.Bus
	Schedule    *exec.Schedule
	Limits      Limits
	Timestamp   primitives.Moment
	BlockNumber primitives.BlockNumber

	DepositPerContract    primitives.Balance
	DepositPerStorageByte primitives.Balance
	DepositPerStorageItem primitives.Balance
	RentFraction          uint64

	// AccountSeedBaseline is the persisted account-seed counter value as
	// of the start of this entry (spec.md §9's "Global state").
	AccountSeedBaseline uint64
}

// Outcome is the result of one top-level entry: the executable outcome
// plus enough bookkeeping for the host chain to persist side effects that
// live outside state.Store's own transaction (events, the account-seed
// counter).
type Outcome struct {
	Result          executable.Result
	Err             *exec.Error
	Events          []events.Event
	AccountSeedNext uint64
	ContractAddress primitives.Address // set only by ExecuteInstantiate on success
}

func buildDeps(cfg Config) (exec.Deps, *account.Counter) {
	counter := account.NewCounter(cfg.AccountSeedBaseline)
	policy := balances.New(cfg.Currency, cfg.Limits.SubsistenceThreshold)
	deps := exec.Deps{
		Store:                 cfg.Store,
		TransferPolicy:        policy,
		RentCalc:              cfg.RentCalc,
		Registry:              cfg.Registry,
		Events:                cfg.Events,
		Schedule:              cfg.Schedule,
		Limits:                cfg.Limits,
		Timestamp:             cfg.Timestamp,
		BlockNumber:           cfg.BlockNumber,
		DepositPerContract:    cfg.DepositPerContract,
		DepositPerStorageByte: cfg.DepositPerStorageByte,
		DepositPerStorageItem: cfg.DepositPerStorageItem,
		RentFraction:          cfg.RentFraction,
		AccountCounter:        counter,
	}
	return deps, counter
}

// ExecuteCall implements spec.md §4.1's with_call top-level entry: dispatch
// a Call into dest, under a root gas meter capped at gasLimit.
//
// A fatal cache-invariant panic (spec.md §4.2) is recovered here rather
// than left to unwind into the host chain, and reported as a synthetic
// exec.Error so callers never need to recover a panic themselves.
func ExecuteCall(cfg Config, origin, dest primitives.Address, gasLimit uint64, value primitives.Balance, input []byte) (out Outcome, err error) {
	deps, counter := buildDeps(cfg)
	defer recoverFatal(&out, &err)

	root := gas.New(gasLimit)
	eventsBefore := cfg.Events.Len()
	_, result, execErr := exec.WithCall(deps, origin, dest, root, value, input)

	out = Outcome{
		Result:          result,
		Err:             execErr,
		Events:          append([]events.Event(nil), cfg.Events.Events()[eventsBefore:]...),
		AccountSeedNext: counter.Value(),
	}
	if execErr != nil {
		log.Debug("runtime: call failed", "dest", dest, "cause", execErr.Error(), "origin_kind", execErr.Origin)
	}
	return out, nil
}

// ExecuteInstantiate implements spec.md §4.1's with_instantiate top-level
// entry: deploy a fresh contract from codeHash and invoke its constructor.
func ExecuteInstantiate(cfg Config, origin primitives.Address, codeHash primitives.Hash, gasLimit uint64, value primitives.Balance, input, salt []byte) (out Outcome, err error) {
	deps, counter := buildDeps(cfg)
	defer recoverFatal(&out, &err)

	root := gas.New(gasLimit)
	eventsBefore := cfg.Events.Len()
	_, contractAddr, result, execErr := exec.WithInstantiate(deps, origin, codeHash, root, value, input, salt)

	out = Outcome{
		Result:          result,
		Err:             execErr,
		Events:          append([]events.Event(nil), cfg.Events.Events()[eventsBefore:]...),
		AccountSeedNext: counter.Value(),
		ContractAddress: contractAddr,
	}
	if execErr != nil {
		log.Debug("runtime: instantiate failed", "code_hash", codeHash, "cause", execErr.Error(), "origin_kind", execErr.Origin)
	}
	return out, nil
}

// recoverFatal converts an exec/cache.go fatal-assertion panic into a
// returned error, matching the teacher's env.Stop/vmError recovery at the
// call-frame boundary (builtin/env.go) rather than letting an invariant
// violation unwind past this package.
func recoverFatal(out *Outcome, err *error) {
	if r := recover(); r != nil {
		log.Error("runtime: fatal cache invariant violation", "panic", r)
		*err = fmt.Errorf("runtime: fatal invariant violation: %v", r)
		*out = Outcome{}
	}
}
