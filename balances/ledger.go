package balances

import (
	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/state"
)

// Ledger is the default Currency implementation, backed by a state.Store.
// It stands in for the host chain's real balances pallet (spec.md §1 names
// "the balances/currency module" as an out-of-scope external collaborator);
// this is the reference/test double SPEC_FULL.md §6 calls for so the
// executive is exercisable end-to-end without a real chain.
type Ledger struct {
	store *state.Store
}

// NewLedger wraps store as a Currency.
func NewLedger(store *state.Store) *Ledger {
	return &Ledger{store: store}
}

// TotalBalance returns who's balance. This reference ledger does not model
// reserved/locked balances, so total and free coincide.
func (l *Ledger) TotalBalance(who primitives.Address) primitives.Balance {
	return l.store.GetBalance(who)
}

// FreeBalance returns who's spendable balance.
func (l *Ledger) FreeBalance(who primitives.Address) primitives.Balance {
	return l.store.GetBalance(who)
}

// Transfer moves value from "from" to "to". If !allowDeath and the
// transfer would leave "from" with a zero balance after having held a
// nonzero one, the reference ledger still allows it down to zero: the
// existential-deposit/subsistence floor is enforced one layer up by
// TransferPolicy, which is the narrower rule spec.md §4.4 actually
// specifies (a ledger-level floor is the host chain's concern, out of
// scope per spec.md §1).
func (l *Ledger) Transfer(from, to primitives.Address, value primitives.Balance, allowDeath bool) error {
	fromBal := l.store.GetBalance(from)
	if primitives.LessThan(fromBal, value) {
		return ErrTransferFailed
	}
	l.store.SetBalance(from, primitives.SaturatingSub(fromBal, value))
	l.store.SetBalance(to, primitives.SaturatingAdd(l.store.GetBalance(to), value))
	return nil
}
