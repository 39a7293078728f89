package exec

import (
	"testing"

	"github.com/substrate-contracts/executive/account"
	"github.com/substrate-contracts/executive/balances"
	"github.com/substrate-contracts/executive/events"
	"github.com/substrate-contracts/executive/executable"
	"github.com/substrate-contracts/executive/gas"
	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/rent"
	"github.com/substrate-contracts/executive/state"
)

// harness bundles a freshly wired Deps plus the concrete collaborators
// tests need direct access to (store, registry, event bus), mirroring the
// teacher's runtime_test.go helper-constructor style.
type harness struct {
	store    *state.Store
	ledger   *balances.Ledger
	registry *executable.Registry
	bus      *events.Bus
	deps     Deps
}

func newHarness(subsistence int64) *harness {
	store := state.New()
	ledger := balances.NewLedger(store)
	policy := balances.New(ledger, primitives.NewBalance(subsistence))
	registry := executable.NewRegistry()
	bus := events.NewBus()
	rentCalc := rent.NewLinear(store, primitives.ZeroBalance(), primitives.ZeroBalance())

	deps := Deps{
		Store:          store,
		TransferPolicy: policy,
		RentCalc:       rentCalc,
		Registry:       registry,
		Events:         bus,
		Schedule:       NewSchedule(1),
		Limits: Limits{
			MaxDepth:             10,
			MaxValueSize:         4096,
			SubsistenceThreshold: primitives.NewBalance(subsistence),
			TombstoneDeposit:     primitives.NewBalance(1),
		},
		Timestamp:             1000,
		BlockNumber:           1,
		DepositPerContract:    primitives.ZeroBalance(),
		DepositPerStorageByte: primitives.ZeroBalance(),
		DepositPerStorageItem: primitives.ZeroBalance(),
		AccountCounter:        account.NewCounter(0),
	}

	return &harness{store: store, ledger: ledger, registry: registry, bus: bus, deps: deps}
}

// deploy registers fn as a fresh code module and plants an alive contract
// record for addr pointing at it, ready to be called.
func (h *harness) deploy(t *testing.T, addr primitives.Address, fn executable.ContractFunc) primitives.Hash {
	t.Helper()
	hash := primitives.Keccak256(addr.Bytes())
	h.registry.Deploy(hash, 10, fn)
	h.registry.AddUser(hash)
	h.store.SetContractInfo(addr, &state.ContractInfo{
		TrieID:        primitives.Keccak256(addr.Bytes(), []byte("trie")),
		CodeHash:      hash,
		RentAllowance: primitives.NewBalance(1_000_000),
		DeductBlock:   h.deps.BlockNumber,
	})
	return hash
}

func (h *harness) rootMeter() *gas.Meter {
	return gas.New(1_000_000)
}
