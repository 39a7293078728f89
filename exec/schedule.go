package exec

import (
	"github.com/substrate-contracts/executive/gas"
	"github.com/substrate-contracts/executive/primitives"
)

// Schedule is the weight/fee schedule spec.md §1 names as an out-of-scope
// external collaborator (consumed only through get_weight_price). The
// reference Schedule is a flat per-unit price; a host chain would supply a
// richer, per-opcode schedule instead.
type Schedule struct {
	WeightPrice uint64
}

// NewSchedule constructs a flat-price Schedule.
func NewSchedule(weightPrice uint64) *Schedule {
	return &Schedule{WeightPrice: weightPrice}
}

// Price converts a weight into a Balance at this schedule's per-unit price,
// via gas.PriceOf's fixed-width uint256 multiplication (matching the
// metering hot path's allocation-free arithmetic rather than promoting
// straight to big.Int for a plain multiply).
func (s *Schedule) Price(weight primitives.Weight) primitives.Balance {
	return gas.PriceOf(weight, s.WeightPrice).ToBig()
}
