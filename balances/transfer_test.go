package balances

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/state"
)

func newTestPolicy(t *testing.T) (*TransferPolicy, *Ledger) {
	t.Helper()
	s := state.New()
	ledger := NewLedger(s)
	policy := New(ledger, primitives.NewBalance(10))
	return policy, ledger
}

func TestZeroValueTransferAlwaysSucceeds(t *testing.T) {
	policy, _ := newTestPolicy(t)
	a := primitives.BytesToAddress([]byte("a"))
	b := primitives.BytesToAddress([]byte("b"))
	err := policy.Transfer(true, false, a, b, primitives.ZeroBalance())
	assert.NoError(t, err)
}

func TestContractKeepAliveBelowSubsistenceFails(t *testing.T) {
	policy, ledger := newTestPolicy(t)
	a := primitives.BytesToAddress([]byte("contract"))
	b := primitives.BytesToAddress([]byte("dest"))
	ledger.store.SetBalance(a, primitives.NewBalance(15))

	err := policy.Transfer(true, false, a, b, primitives.NewBalance(10))
	assert.ErrorIs(t, err, ErrBelowSubsistenceThreshold)
	assert.Equal(t, int64(15), ledger.TotalBalance(a).Int64())
	assert.Equal(t, int64(0), ledger.TotalBalance(b).Int64())
}

func TestContractKeepAliveAboveSubsistenceSucceeds(t *testing.T) {
	policy, ledger := newTestPolicy(t)
	a := primitives.BytesToAddress([]byte("contract"))
	b := primitives.BytesToAddress([]byte("dest"))
	ledger.store.SetBalance(a, primitives.NewBalance(100))

	err := policy.Transfer(true, false, a, b, primitives.NewBalance(50))
	assert.NoError(t, err)
	assert.Equal(t, int64(50), ledger.TotalBalance(a).Int64())
	assert.Equal(t, int64(50), ledger.TotalBalance(b).Int64())
}

func TestPlainSenderIgnoresSubsistence(t *testing.T) {
	policy, ledger := newTestPolicy(t)
	a := primitives.BytesToAddress([]byte("eoa"))
	b := primitives.BytesToAddress([]byte("dest"))
	ledger.store.SetBalance(a, primitives.NewBalance(5))

	err := policy.Transfer(false, false, a, b, primitives.NewBalance(5))
	assert.NoError(t, err)
	assert.Equal(t, int64(0), ledger.TotalBalance(a).Int64())
}

func TestAllowDeathBypassesSubsistence(t *testing.T) {
	policy, ledger := newTestPolicy(t)
	a := primitives.BytesToAddress([]byte("contract"))
	b := primitives.BytesToAddress([]byte("beneficiary"))
	ledger.store.SetBalance(a, primitives.NewBalance(20))

	err := policy.Transfer(true, true, a, b, primitives.NewBalance(20))
	assert.NoError(t, err)
	assert.Equal(t, int64(0), ledger.TotalBalance(a).Int64())
}

func TestInsufficientBalanceTranslatesToTransferFailed(t *testing.T) {
	policy, _ := newTestPolicy(t)
	a := primitives.BytesToAddress([]byte("poor"))
	b := primitives.BytesToAddress([]byte("dest"))

	err := policy.Transfer(false, false, a, b, primitives.NewBalance(1))
	assert.ErrorIs(t, err, ErrTransferFailed)
}

func TestInitialTransferUsesCallerDepthAsContractFlag(t *testing.T) {
	policy, ledger := newTestPolicy(t)
	a := primitives.BytesToAddress([]byte("contract"))
	b := primitives.BytesToAddress([]byte("callee"))
	ledger.store.SetBalance(a, primitives.NewBalance(15))

	err := policy.InitialTransfer(true, a, b, primitives.NewBalance(10))
	assert.ErrorIs(t, err, ErrBelowSubsistenceThreshold)
}
