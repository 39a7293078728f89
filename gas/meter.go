// Package gas implements the executive's nested gas sub-metering: a tree of
// meters where consuming from a child transitively reduces the ancestors'
// remaining gas, and closing a child returns its unused reservation to its
// parent. Modeled on the teacher's builtin/gascharger.Charger (which wraps a
// single xenv.Environment meter) generalized to the nested-frame shape
// spec.md §4.1/§5 requires, and on go-ethereum's Contract.Gas/UseGas
// reservation discipline (core/vm call-gas accounting).
package gas

import (
	"math"

	"github.com/holiman/uint256"
)

// Meter tracks the gas budget of one frame. The root meter (created with
// New) represents the budget handed down by the host transaction; every
// other meter is created via Nested and represents one call frame's
// sub-account of its parent.
type Meter struct {
	parent   *Meter
	reserved uint64 // amount taken from parent at creation time
	left     uint64 // remaining within this meter's own reservation
	used     uint64
	closed   bool
}

// New creates a root meter with the given gas limit.
func New(limit uint64) *Meter {
	return &Meter{left: limit, reserved: limit}
}

// Unbounded creates a root meter with no practical limit (math.MaxUint64).
func Unbounded() *Meter {
	return New(math.MaxUint64)
}

// Nested reserves up to limit gas from m and returns a child meter. The
// actual reservation is capped at m's own remaining gas: a child can never
// see more gas than its parent has left, which is how "consuming from the
// child consumes from the parent transitively" is realized — the parent's
// GasLeft already excludes everything reserved by open children.
func (m *Meter) Nested(limit uint64) *Meter {
	actual := limit
	if actual > m.left {
		actual = m.left
	}
	m.left -= actual
	return &Meter{parent: m, left: actual, reserved: actual}
}

// UseGas consumes amount from the meter. It reports false (out of gas)
// without mutating state when amount exceeds what remains.
func (m *Meter) UseGas(amount uint64) bool {
	if amount > m.left {
		return false
	}
	m.left -= amount
	m.used += amount
	return true
}

// GasLeft returns the gas remaining in this meter.
func (m *Meter) GasLeft() uint64 {
	return m.left
}

// GasSpent returns the gas consumed from this meter via UseGas.
func (m *Meter) GasSpent() uint64 {
	return m.used
}

// Close returns this meter's unused reservation to its parent. It is a
// no-op on the root meter (no parent) and is idempotent. Every frame must
// Close its nested_meter exactly once when it pops, matching "dropping the
// child returns unused gas" (spec.md §5).
func (m *Meter) Close() {
	if m.closed || m.parent == nil {
		m.closed = true
		return
	}
	m.closed = true
	// left already excludes gas spent here and by closed children, so only
	// the truly unused part of the reservation goes back to the parent.
	m.parent.left += m.left
}

// PriceOf returns weight*perUnit computed in fixed-width 256-bit integer
// arithmetic, so the product of two uint64 values cannot overflow, matching
// go-ethereum's use of uint256 for gas*price accounting on the hot path.
func PriceOf(weight uint64, perUnit uint64) *uint256.Int {
	w := uint256.NewInt(weight)
	p := uint256.NewInt(perUnit)
	return w.Mul(w, p)
}
