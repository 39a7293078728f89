// Package balances implements spec.md §4.4's TransferPolicy over a
// Currency collaborator, the "balances/currency module" spec.md §1 names
// as an external collaborator. Grounded in the teacher's acc/account.go
// (AddBalance/SubBalance saturating semantics) and builtin/energy/energy.go
// (Transfer returning a uniform insufficient-balance style error).
package balances

import (
	"github.com/pkg/errors"

	"github.com/substrate-contracts/executive/primitives"
)

// ErrTransferFailed is the uniform error TransferPolicy.Transfer returns
// for any currency-layer failure, per spec.md §4.4's "translate any
// currency-layer error into a uniform TransferFailed".
var ErrTransferFailed = errors.New("balances: transfer failed")

// ErrBelowSubsistenceThreshold is returned when a keep-alive transfer from
// a contract would leave its total balance below the subsistence floor.
var ErrBelowSubsistenceThreshold = errors.New("balances: below subsistence threshold")

// Currency is the narrow collaborator the executive consumes for balance
// reads and transfers (spec.md §6's "Currency::{total_balance, free_balance,
// transfer}").
type Currency interface {
	TotalBalance(who primitives.Address) primitives.Balance
	FreeBalance(who primitives.Address) primitives.Balance
	// Transfer moves value from->to. allowDeath permits the sender's
	// balance to reach zero; otherwise the currency layer must itself
	// enforce its own existential deposit and report an error if crossed.
	Transfer(from, to primitives.Address, value primitives.Balance, allowDeath bool) error
}

// TransferPolicy applies spec.md §4.4's existential/subsistence rules on
// top of a Currency.
type TransferPolicy struct {
	Currency             Currency
	SubsistenceThreshold primitives.Balance
}

// New constructs a TransferPolicy.
func New(currency Currency, subsistenceThreshold primitives.Balance) *TransferPolicy {
	return &TransferPolicy{Currency: currency, SubsistenceThreshold: subsistenceThreshold}
}

// Transfer implements spec.md §4.4's transfer(sender_is_contract,
// allow_death, from, to, value).
func (p *TransferPolicy) Transfer(senderIsContract, allowDeath bool, from, to primitives.Address, value primitives.Balance) error {
	if value.Sign() == 0 {
		return nil
	}

	if !allowDeath && senderIsContract {
		remaining := primitives.SaturatingSub(p.Currency.TotalBalance(from), value)
		if primitives.LessThan(remaining, p.SubsistenceThreshold) {
			return ErrBelowSubsistenceThreshold
		}
	}

	if err := p.Currency.Transfer(from, to, value, allowDeath); err != nil {
		return errors.Wrap(ErrTransferFailed, err.Error())
	}
	return nil
}

// InitialTransfer implements spec.md §4.4's initial_transfer: the value
// moved into a freshly pushed frame before execution begins.
// callerIsContract is depth > 1 per spec.md's definition.
func (p *TransferPolicy) InitialTransfer(callerIsContract bool, from, to primitives.Address, valueTransferred primitives.Balance) error {
	return p.Transfer(callerIsContract, false, from, to, valueTransferred)
}
