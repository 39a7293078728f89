package exec

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substrate-contracts/executive/executable"
	"github.com/substrate-contracts/executive/primitives"
)

func addr(b byte) primitives.Address {
	return primitives.BytesToAddress([]byte{b})
}

// S1: a plain call to a callee that succeeds must commit its storage write
// and report a non-reverted result.
func TestS1_SimpleCallSucceeds(t *testing.T) {
	h := newHarness(10)
	origin := addr(1)
	callee := addr(2)
	h.store.SetBalance(origin, primitives.NewBalance(1000))
	h.store.SetBalance(callee, primitives.NewBalance(1000))

	h.deploy(t, callee, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		s := ext.(*Stack)
		s.SetStorage(primitives.BytesToHash([]byte("k")), []byte("v"))
		return executable.Result{Data: []byte("ok")}, nil
	})

	_, result, rerr := WithCall(h.deps, origin, callee, h.rootMeter(), primitives.NewBalance(5), []byte("in"))
	require.Nil(t, rerr)
	assert.False(t, result.Reverted())
	assert.Equal(t, []byte("ok"), result.Data)

	info, ok := h.store.GetContractInfo(callee)
	require.True(t, ok)
	got, ok := h.store.GetStorage(info.TrieID, primitives.BytesToHash([]byte("k")))
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, primitives.NewBalance(1005), h.store.GetBalance(callee))
}

// S2: a callee that reverts must have its storage writes and value
// transfer rolled back, but the call itself is not an error.
func TestS2_RevertRollsBackStateButIsNotAnError(t *testing.T) {
	h := newHarness(10)
	origin := addr(1)
	callee := addr(2)
	h.store.SetBalance(origin, primitives.NewBalance(1000))
	h.store.SetBalance(callee, primitives.NewBalance(1000))

	h.deploy(t, callee, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		s := ext.(*Stack)
		s.SetStorage(primitives.BytesToHash([]byte("k")), []byte("v"))
		return executable.Result{Flags: executable.ReturnFlagRevert}, nil
	})

	_, result, rerr := WithCall(h.deps, origin, callee, h.rootMeter(), primitives.NewBalance(5), nil)
	require.Nil(t, rerr)
	assert.True(t, result.Reverted())

	info, _ := h.store.GetContractInfo(callee)
	_, ok := h.store.GetStorage(info.TrieID, primitives.BytesToHash([]byte("k")))
	assert.False(t, ok, "storage write must be rolled back on revert")
	assert.Equal(t, primitives.NewBalance(1000), h.store.GetBalance(callee), "value transfer must be rolled back on revert")
}

// S3: a self-recursive call that reaches MaxDepth must only fail at the
// bottommost attempt; every ancestor frame observes its own recursive call
// succeed once the bottom frame swallows the depth error, so the top-level
// call returns Ok overall.
func TestS3_MaxDepthReached(t *testing.T) {
	h := newHarness(10)
	h.deps.Limits.MaxDepth = 3
	origin := addr(1)
	callee := addr(2)
	h.store.SetBalance(origin, primitives.NewBalance(1000))
	h.store.SetBalance(callee, primitives.NewBalance(1000))

	// Mirrors original_source/frame/contracts/src/exec.rs's max_depth test:
	// the bottommost recursive attempt is the only one that observes
	// MaxCallDepthReached directly; every frame unwinding above it must
	// see its own recursive call succeed (Ok), since the bottommost frame
	// swallows the depth error and returns success.
	reachedBottom := false
	h.deploy(t, callee, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		s := ext.(*Stack)
		_, err := s.Call(1000, callee, primitives.ZeroBalance(), nil)
		if !reachedBottom {
			require.NotNil(t, err, "the deepest recursive attempt must observe MaxCallDepthReached")
			assert.True(t, errors.Is(err, ErrMaxCallDepthReached))
			reachedBottom = true
		} else {
			assert.Nil(t, err, "a frame unwinding above the bottom must see its recursive call succeed")
		}
		return executable.Result{}, nil
	})

	_, result, rerr := WithCall(h.deps, origin, callee, h.rootMeter(), primitives.ZeroBalance(), nil)
	require.Nil(t, rerr, "unwinding calls all return Ok; only the deepest attempt ever sees MaxCallDepthReached")
	assert.False(t, result.Reverted())
	assert.True(t, reachedBottom, "the recursion must actually have reached the depth limit")
}

// S4: Caller() reports the immediate parent frame's account, and Address()
// reports the current frame's own account, at every depth.
func TestS4_CallerIdentityAtEachDepth(t *testing.T) {
	h := newHarness(10)
	origin := addr(1)
	mid := addr(2)
	leaf := addr(3)
	for _, a := range []primitives.Address{origin, mid, leaf} {
		h.store.SetBalance(a, primitives.NewBalance(1000))
	}

	var leafCaller, leafAddress primitives.Address
	h.deploy(t, leaf, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		leafCaller = ext.Caller()
		leafAddress = ext.Address()
		return executable.Result{}, nil
	})
	h.deploy(t, mid, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		s := ext.(*Stack)
		assert.Equal(t, origin, s.Caller())
		assert.Equal(t, mid, s.Address())
		_, err := s.Call(1000, leaf, primitives.ZeroBalance(), nil)
		return executable.Result{}, err.asError()
	})

	_, _, rerr := WithCall(h.deps, origin, mid, h.rootMeter(), primitives.ZeroBalance(), nil)
	require.Nil(t, rerr)
	assert.Equal(t, mid, leafCaller)
	assert.Equal(t, leaf, leafAddress)
}

// S6: a constructor that traps must leave no contract record behind and
// must roll back the account-seed counter (the seed is re-offered to the
// next instantiation attempt).
func TestS6_TrappedConstructorRollsBackSeedAndLeavesNoRecord(t *testing.T) {
	h := newHarness(10)
	origin := addr(1)
	h.store.SetBalance(origin, primitives.NewBalance(1000))

	hash := primitives.Keccak256([]byte("trap"))
	h.registry.Deploy(hash, 10, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		return executable.Result{}, errors.New("boom")
	})

	seedBefore := h.deps.AccountCounter.Value()
	s, _, _, rerr := WithInstantiate(h.deps, origin, hash, h.rootMeter(), primitives.ZeroBalance(), nil, []byte("salt"))
	require.NotNil(t, rerr)
	assert.Equal(t, seedBefore, h.deps.AccountCounter.Value(), "a trapped constructor must roll back the seed it consumed")
	_, ok := h.store.GetContractInfo(s.firstFrame.AccountID())
	assert.False(t, ok, "a trapped constructor must leave no contract record")
}

// S7: a constructor that terminates itself must not leave a contract
// record, and the instantiate call reports failure (a terminated
// constructor is not callable going forward).
func TestS7_ConstructorTerminatesItself(t *testing.T) {
	h := newHarness(10)
	origin := addr(1)
	beneficiary := addr(9)
	h.store.SetBalance(origin, primitives.NewBalance(1000))

	hash := primitives.Keccak256([]byte("suicidal"))
	h.registry.Deploy(hash, 10, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		s := ext.(*Stack)
		err := s.Terminate(beneficiary)
		return executable.Result{}, err.asError()
	})

	s, _, _, rerr := WithInstantiate(h.deps, origin, hash, h.rootMeter(), primitives.NewBalance(20), nil, []byte("salt"))
	require.NotNil(t, rerr)
	assert.True(t, errors.Is(rerr, ErrNotCallable))
	_, ok := h.store.GetContractInfo(s.firstFrame.AccountID())
	assert.False(t, ok)
}

// S8: RentParams is frozen at frame construction; mutating rent allowance
// or instantiating a sibling must not leak through an already-returned
// snapshot.
func TestS8_RentParamsSnapshotIsFrozen(t *testing.T) {
	h := newHarness(10)
	origin := addr(1)
	callee := addr(2)
	h.store.SetBalance(origin, primitives.NewBalance(1000))
	h.store.SetBalance(callee, primitives.NewBalance(1000))

	h.deploy(t, callee, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		s := ext.(*Stack)
		before := s.RentParams()
		s.SetRentAllowance(primitives.NewBalance(999))
		after := s.RentParams()
		assert.Equal(t, before.RentAllowance, after.RentAllowance, "RentParams snapshot must not change after SetRentAllowance")
		return executable.Result{}, nil
	})

	_, _, rerr := WithCall(h.deps, origin, callee, h.rootMeter(), primitives.ZeroBalance(), nil)
	require.Nil(t, rerr)
}

// Invariant: reentering the same account via a self-call must be visible
// to is_recursive-gated operations like Terminate/RestoreTo.
func TestReentranceDeniedForTerminate(t *testing.T) {
	h := newHarness(10)
	origin := addr(1)
	callee := addr(2)
	h.store.SetBalance(origin, primitives.NewBalance(1000))
	h.store.SetBalance(callee, primitives.NewBalance(1000))

	var innerErr *Error
	h.deploy(t, callee, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		s := ext.(*Stack)
		if len(input) == 0 {
			_, err := s.Call(1000, callee, primitives.ZeroBalance(), []byte("x"))
			return executable.Result{}, err.asError()
		}
		innerErr = s.Terminate(addr(9))
		return executable.Result{}, nil
	})

	_, _, rerr := WithCall(h.deps, origin, callee, h.rootMeter(), primitives.ZeroBalance(), nil)
	require.Nil(t, rerr)
	require.NotNil(t, innerErr)
	assert.True(t, errors.Is(innerErr, ErrReentranceDenied))
}

// Invariant: a contract that calls itself from the first frame gets a fresh
// frame for the same account; when that frame pops, the outer frame adopts
// its info (the self-call path, not invalidation) and still reads the
// inner frame's storage write.
func TestReentrantSelfCallWriteVisibleToOuterFrame(t *testing.T) {
	h := newHarness(10)
	origin := addr(1)
	callee := addr(2)
	h.store.SetBalance(origin, primitives.NewBalance(1000))
	h.store.SetBalance(callee, primitives.NewBalance(1000))

	h.deploy(t, callee, func(ext executable.Ext, fn executable.ExportedFunction, input []byte) (executable.Result, error) {
		s := ext.(*Stack)
		if len(input) == 0 {
			s.SetStorage(primitives.BytesToHash([]byte("k")), []byte("outer"))
			_, err := s.Call(1000, callee, primitives.ZeroBalance(), []byte("x"))
			if err != nil {
				return executable.Result{}, err.asError()
			}
			got, _ := s.GetStorage(primitives.BytesToHash([]byte("k")))
			assert.Equal(t, []byte("inner"), got, "outer frame must observe the inner frame's write to the shared storage trie")
			return executable.Result{}, nil
		}
		s.SetStorage(primitives.BytesToHash([]byte("k")), []byte("inner"))
		return executable.Result{}, nil
	})

	_, result, rerr := WithCall(h.deps, origin, callee, h.rootMeter(), primitives.ZeroBalance(), nil)
	require.Nil(t, rerr)
	assert.False(t, result.Reverted())
}

// asError lets a test ContractFunc return *exec.Error (which is not a
// plain error by itself being nil-checked through an interface) as a
// normal error value without the classic untyped-nil-in-interface trap.
func (e *Error) asError() error {
	if e == nil {
		return nil
	}
	return e
}
