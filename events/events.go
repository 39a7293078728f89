// Package events implements spec.md §6's event taxonomy
// (Instantiated/Terminated/Restored/ContractEmitted) and an in-memory
// ordered Bus standing in for "the event bus" spec.md §1 names as an
// out-of-scope external collaborator.
//
// Grounded in the teacher's builtin/env.go (deposit_event_indexed-style
// topic/data emission) and builtin/types.go's struct-per-event shape.
package events

import "github.com/substrate-contracts/executive/primitives"

// Kind discriminates the event taxonomy.
type Kind int

const (
	Instantiated Kind = iota
	Terminated
	Restored
	ContractEmitted
)

func (k Kind) String() string {
	switch k {
	case Instantiated:
		return "Instantiated"
	case Terminated:
		return "Terminated"
	case Restored:
		return "Restored"
	case ContractEmitted:
		return "ContractEmitted"
	default:
		return "Unknown"
	}
}

// Event is one deposited event. Fields not relevant to Kind are left zero.
type Event struct {
	Kind Kind

	// Instantiated
	Caller   primitives.Address
	Contract primitives.Address

	// Terminated
	Beneficiary primitives.Address

	// Restored
	Origin        primitives.Address
	Dest          primitives.Address
	CodeHash      primitives.Hash
	RentAllowance primitives.Balance

	// ContractEmitted
	Address primitives.Address
	Topics  []primitives.Hash
	Data    []byte
}

// Bus is an in-memory, ordered event log. Events are only appended, except
// that Truncate discards a suffix of them.
type Bus struct {
	events []Event
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Events returns every event deposited so far, in deposit order.
func (b *Bus) Events() []Event {
	return b.events
}

// DepositInstantiated records spec.md §6's Instantiated(caller, contract).
func (b *Bus) DepositInstantiated(caller, contract primitives.Address) {
	b.events = append(b.events, Event{Kind: Instantiated, Caller: caller, Contract: contract})
}

// DepositTerminated records Terminated(contract, beneficiary).
func (b *Bus) DepositTerminated(contract, beneficiary primitives.Address) {
	b.events = append(b.events, Event{Kind: Terminated, Contract: contract, Beneficiary: beneficiary})
}

// DepositRestored records Restored(origin, dest, code_hash, allowance).
func (b *Bus) DepositRestored(origin, dest primitives.Address, codeHash primitives.Hash, allowance primitives.Balance) {
	b.events = append(b.events, Event{Kind: Restored, Origin: origin, Dest: dest, CodeHash: codeHash, RentAllowance: allowance})
}

// DepositContractEmitted records ContractEmitted(address, data) with the
// contract-supplied topics, spec.md §4.3's deposit_event(topics, data).
func (b *Bus) DepositContractEmitted(address primitives.Address, topics []primitives.Hash, data []byte) {
	topicsCopy := make([]primitives.Hash, len(topics))
	copy(topicsCopy, topics)
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	b.events = append(b.events, Event{Kind: ContractEmitted, Address: address, Topics: topicsCopy, Data: dataCopy})
}

// Truncate discards every event deposited at index >= n, the companion
// primitive the executive needs to roll back events deposited during a
// frame that is later rolled back by the host storage transaction (events
// are not otherwise covered by state.Store's checkpoint/revert).
func (b *Bus) Truncate(n int) {
	b.events = b.events[:n]
}

// Len returns the number of events deposited so far, usable as a
// checkpoint with Truncate.
func (b *Bus) Len() int {
	return len(b.events)
}
