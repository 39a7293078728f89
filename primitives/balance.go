package primitives

import "math/big"

// Balance is a non-negative integral currency amount. The executive never
// stores signed amounts; all saturating helpers below clamp at zero rather
// than going negative, mirroring acc.Account's AddBalance/SubBalance in the
// teacher repo.
type Balance = *big.Int

// ZeroBalance returns a fresh zero balance.
func ZeroBalance() Balance {
	return new(big.Int)
}

// NewBalance constructs a Balance from an int64, for tests and constants.
func NewBalance(v int64) Balance {
	return big.NewInt(v)
}

// SaturatingAdd returns a+b.
func SaturatingAdd(a, b Balance) Balance {
	return new(big.Int).Add(a, b)
}

// SaturatingSub returns max(a-b, 0).
func SaturatingSub(a, b Balance) Balance {
	r := new(big.Int).Sub(a, b)
	if r.Sign() < 0 {
		return new(big.Int)
	}
	return r
}

// LessThan reports whether a < b.
func LessThan(a, b Balance) bool {
	return a.Cmp(b) < 0
}
