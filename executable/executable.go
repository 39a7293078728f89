// Package executable implements spec.md §6's ExecutableIface: the
// bytecode-VM/loader contract the executive consumes but never defines the
// instruction set for (spec.md §1 Non-goals). In place of a real VM this
// package supplies an in-memory code registry over a pluggable Go
// ContractFunc, the reference/test double SPEC_FULL.md §6 calls for.
//
// Grounded in the teacher's builtin/native/call.go (a Callable dispatched
// by selector/address rather than interpreted bytecode) and
// builtin/builtin.go's HandleNativeCall dispatch shape.
package executable

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/substrate-contracts/executive/primitives"
)

// ErrCodeNotFound is returned when no code is registered under a code hash.
var ErrCodeNotFound = errors.New("executable: code not found")

// ExportedFunction is spec.md §3's ExportedFunction: one of Constructor or
// Call.
type ExportedFunction int

const (
	Constructor ExportedFunction = iota
	Call
)

func (f ExportedFunction) String() string {
	if f == Constructor {
		return "constructor"
	}
	return "call"
}

// ReturnFlags carries the single REVERT bit spec.md §4.6/§7 treats as "a
// normal return the caller may react to", not a failure.
type ReturnFlags uint32

const ReturnFlagRevert ReturnFlags = 1

// Result is spec.md's ExecReturnValue: a successful (possibly reverted)
// execution outcome.
type Result struct {
	Flags ReturnFlags
	Data  []byte
}

// Reverted reports whether the REVERT flag is set.
func (r Result) Reverted() bool {
	return r.Flags&ReturnFlagRevert != 0
}

// Ext is the host-facing API an executing contract function may call back
// into; this is a narrowed forward-declaration of spec.md §4.3's Ext so
// that package executable does not import package exec (which implements
// Ext and in turn imports executable). Concrete calls are always made with
// an *exec.Stack underneath.
type Ext interface {
	Address() primitives.Address
	Caller() primitives.Address
	ValueTransferred() primitives.Balance
}

// ContractFunc is the reference "bytecode interpreter": a plain Go closure
// standing in for compiled bytecode. Real deployments would replace this
// package wholesale with an actual VM satisfying ExecutableIface.
type ContractFunc func(ext Ext, fn ExportedFunction, input []byte) (Result, error)

// Module is one registered code blob: its function plus bookkeeping the
// ExecutableIface contract requires (refcount, size).
type Module struct {
	hash     primitives.Hash
	fn       ContractFunc
	size     uint32
	refcount uint32
}

// CodeHash returns the module's content hash.
func (m *Module) CodeHash() primitives.Hash { return m.hash }

// CodeLen returns the module's own code size.
func (m *Module) CodeLen() uint32 { return m.size }

// AggregateCodeLen returns the same as CodeLen in this reference
// implementation, since no re-instrumentation inflates size.
func (m *Module) AggregateCodeLen() uint32 { return m.size }

// Refcount returns the number of live contracts sharing this module.
func (m *Module) Refcount() uint32 { return m.refcount }

// OccupiedStorage implements ExecutableIface's default
// occupied_storage() = aggregate_code_len()/refcount(), falling back to
// aggregate_code_len() when refcount is zero (spec.md §6).
func (m *Module) OccupiedStorage() uint32 {
	if m.refcount == 0 {
		return m.AggregateCodeLen()
	}
	return m.AggregateCodeLen() / m.refcount
}

// Execute runs the module's function inside ext. Per spec.md §6 this must
// be called inside a host storage transaction that rolls back on error;
// package exec's raw_run honors that.
func (m *Module) Execute(ext Ext, fn ExportedFunction, input []byte) (Result, error) {
	return m.fn(ext, fn, input)
}

// Registry is the in-memory code store implementing ExecutableIface's
// loader half (from_storage / from_storage_noinstr / add_user /
// remove_user / drop_from_storage).
type Registry struct {
	mu      sync.Mutex
	modules map[primitives.Hash]*Module
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[primitives.Hash]*Module)}
}

// Deploy registers fn under hash with the given reported size, ready to be
// loaded by FromStorage. It does not affect refcount; callers (instantiate)
// call AddUser separately, matching the teacher's explicit two-step
// deploy-then-reference pattern in builtin/builtin.go.
func (r *Registry) Deploy(hash primitives.Hash, size uint32, fn ContractFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[hash] = &Module{hash: hash, fn: fn, size: size}
}

// FromStorage implements ExecutableIface's from_storage: loads the module
// for execution. The reference registry performs no re-instrumentation, so
// this is identical to FromStorageNoInstr plus returning the callable form.
func (r *Registry) FromStorage(hash primitives.Hash) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[hash]
	if !ok {
		return nil, ErrCodeNotFound
	}
	return m, nil
}

// FromStorageNoInstr implements ExecutableIface's metadata-only load.
func (r *Registry) FromStorageNoInstr(hash primitives.Hash) (*Module, error) {
	return r.FromStorage(hash)
}

// AddUser implements ExecutableIface's add_user: refcount++, returning the
// module's own code size.
func (r *Registry) AddUser(hash primitives.Hash) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[hash]
	if !ok {
		return 0, ErrCodeNotFound
	}
	m.refcount++
	return m.size, nil
}

// RemoveUser implements ExecutableIface's remove_user: refcount--,
// dropping the module when it reaches zero. Returns the refcount after
// decrementing.
func (r *Registry) RemoveUser(hash primitives.Hash) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.modules[hash]
	if !ok {
		return 0
	}
	if m.refcount > 0 {
		m.refcount--
	}
	left := m.refcount
	if left == 0 {
		delete(r.modules, hash)
	}
	return left
}

// DropFromStorage implements the owner-drop path: unconditionally
// decrements refcount without the caller needing to observe the returned
// count, matching spec.md §6's drop_from_storage(self).
func (r *Registry) DropFromStorage(hash primitives.Hash) {
	r.RemoveUser(hash)
}
