package exec

import (
	"fmt"

	"github.com/substrate-contracts/executive/primitives"
	"github.com/substrate-contracts/executive/state"
)

// cacheState is spec.md §3's CachedContract tri-state.
type cacheState int

const (
	cacheCached cacheState = iota
	cacheInvalidated
	cacheTerminated
)

// cachedContract is one frame's view of its account's AliveContractInfo,
// spec.md §4.2. Mutating a Cached info in place is the frame's authoritative
// write; Invalidated/Terminated forbid further access except via load.
type cachedContract struct {
	state cacheState
	info  *state.ContractInfo
}

func newCachedCached(info *state.ContractInfo) cachedContract {
	return cachedContract{state: cacheCached, info: info}
}

// load reloads from storage if the cache is Invalidated, moving it to
// Cached. A no-op if already Cached or Terminated. Failing to find the
// account in storage while Invalidated is a fatal assertion (spec.md §4.2):
// invariant 1 guarantees the cache can always be rebuilt while the account
// is on the stack.
func (c *cachedContract) load(store *state.Store, account primitives.Address) {
	if c.state != cacheInvalidated {
		return
	}
	info, ok := store.GetContractInfo(account)
	if !ok {
		panic(fmt.Sprintf("exec: invariant violation: invalidated cache for %s has no backing storage record", account))
	}
	c.info = info
	c.state = cacheCached
}

// asAlive reloads if necessary and returns the live info for mutation.
// Mutating a Terminated frame's cache is a fatal assertion.
func (c *cachedContract) asAlive(store *state.Store, account primitives.Address) *state.ContractInfo {
	c.load(store, account)
	if c.state == cacheTerminated {
		panic(fmt.Sprintf("exec: invariant violation: attempted to access terminated contract %s", account))
	}
	return c.info
}

// invalidate reloads if necessary, then atomically swaps to Invalidated,
// returning the prior info to the caller.
func (c *cachedContract) invalidate(store *state.Store, account primitives.Address) *state.ContractInfo {
	c.load(store, account)
	prior := c.info
	c.state = cacheInvalidated
	c.info = nil
	return prior
}

// terminate reloads if necessary, then atomically swaps to Terminated,
// returning the prior info to the caller.
func (c *cachedContract) terminate(store *state.Store, account primitives.Address) *state.ContractInfo {
	c.load(store, account)
	prior := c.info
	c.state = cacheTerminated
	c.info = nil
	return prior
}

// isCached reports whether the cache currently holds a live, authoritative
// view without needing to reload.
func (c *cachedContract) isCached() bool {
	return c.state == cacheCached
}

// isTerminated reports whether the cache has been terminated.
func (c *cachedContract) isTerminated() bool {
	return c.state == cacheTerminated
}
