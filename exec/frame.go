package exec

import (
	"github.com/substrate-contracts/executive/executable"
	"github.com/substrate-contracts/executive/gas"
	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/rent"
)

// Frame is spec.md §3's per-invocation activation record. Its entry_point
// and account_id are immutable for its lifetime (invariant 4); only cache
// and the meter's internal counters change during the frame's life.
type Frame struct {
	accountID        primitives.Address
	cache            cachedContract
	valueTransferred primitives.Balance
	rentParams       rent.Params
	entryPoint       executable.ExportedFunction
	nestedMeter      *gas.Meter
	module           *executable.Module

	// recorded once, at the start of raw_run, so a sibling instantiation
	// sharing this frame's code hash cannot retroactively re-price it
	// (spec.md §4.1).
	occupiedStorage uint32
	codeLen         uint32
}

// AccountID returns the frame's account id.
func (f *Frame) AccountID() primitives.Address { return f.accountID }

// EntryPoint returns the frame's entry point (Constructor or Call).
func (f *Frame) EntryPoint() executable.ExportedFunction { return f.entryPoint }
