package consensus

import (
	"context"
	"fmt"

	"github.com/subchen/go-trylock/v2"

	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/types"
)

// ConsensusReader is the read-only view of Consensus handed out by read guards.
type ConsensusReader interface {
	CurView() types.ViewNumber
	CurEpoch() types.EpochNumber
	LastDecidedView() types.ViewNumber
	LockedView() types.ViewNumber
	HighQC() *types.QuorumCertificate
	LastActions() LastActions
	Metrics() *ConsensusMetricsValue
	ValidatedState(view types.ViewNumber) (types.View, bool)
	ValidatedViews() []types.ViewNumber
	SavedLeaf(commit types.Commitment) (*types.Leaf, bool)
	SavedLeavesCount() int
	SavedPayload(view types.ViewNumber) ([]byte, bool)
	SavedPayloadViews() []types.ViewNumber
	VidShares(view types.ViewNumber) map[types.SignatureKey]*types.VidShareMessage
	VidShareViews() []types.ViewNumber
	SavedDaCert(view types.ViewNumber) (*types.DaCertificate, bool)
	SavedDaCertViews() []types.ViewNumber
	LastProposal() (*types.QuorumProposalMessage, bool)
	LastProposalViews() []types.ViewNumber
	LastDaProposal() (*types.DaProposalMessage, bool)
	DaProposal(view types.ViewNumber) (*types.DaProposalMessage, bool)
	LastDaProposalViews() []types.ViewNumber
	State(view types.ViewNumber) types.ValidatedState
	StateAndDelta(view types.ViewNumber) (types.ValidatedState, types.StateDelta)
	DecidedLeaf() (*types.Leaf, error)
	DecidedState() (types.ValidatedState, error)
	VisitLeafAncestors(start types.ViewNumber, terminator Terminator, okWhenFinished bool, visit LeafVisitor) error
}

type sharedLock struct {
	// rw guards the consensus value. gate is held by writers and by the
	// upgradable reader, so at most one of them exists at a time and an
	// upgrade never races another writer.
	rw        trylock.TryLocker
	gate      trylock.TryLocker
	consensus *Consensus
}

// OuterConsensus shares one Consensus between tasks. Every access goes
// through a guard obtained from Read, Write or UpgradableRead and released
// with Release.
type OuterConsensus struct {
	log   tplog.Logger
	role  string
	trace bool
	lock  *sharedLock
}

func NewOuterConsensus(level tplogcmm.LogLevel, log tplog.Logger, consensus *Consensus, trace bool) *OuterConsensus {
	return &OuterConsensus{
		log:   tplog.CreateModuleLogger(level, "OuterConsensus", log),
		role:  "unnamed",
		trace: trace,
		lock: &sharedLock{
			rw:        trylock.New(),
			gate:      trylock.New(),
			consensus: consensus,
		},
	}
}

// Named returns a handle on the same lock whose trace lines name role as the holder.
func (oc *OuterConsensus) Named(role string) *OuterConsensus {
	named := *oc
	named.role = role
	return &named
}

func (oc *OuterConsensus) Role() string {
	return oc.role
}

func (oc *OuterConsensus) tracef(format string, args ...interface{}) {
	if oc.trace {
		oc.log.Tracef("%s: "+format, append([]interface{}{oc.role}, args...)...)
	}
}

// noWait is an already cancelled context: lock attempts made with it do
// not suspend.
var noWait = func() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}()

// tryReadAttempts bounds the retries of TryRead. A single attempt with
// noWait can lose the CAS to a concurrent reader while no writer holds the
// lock, and the lock does not tell the two failures apart.
const tryReadAttempts = 16

func lockErr(ctx context.Context, mode string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("acquire %s lock on consensus: %w", mode, err)
	}
	return fmt.Errorf("acquire %s lock on consensus failed", mode)
}

func (oc *OuterConsensus) acquireRead(ctx context.Context) bool {
	return oc.lock.rw.RTryLock(ctx)
}

func (oc *OuterConsensus) acquireWrite(ctx context.Context) bool {
	if !oc.lock.gate.TryLock(ctx) {
		return false
	}
	if !oc.lock.rw.TryLock(ctx) {
		oc.lock.gate.Unlock()
		return false
	}
	return true
}

func (oc *OuterConsensus) acquireUpgradable(ctx context.Context) bool {
	if !oc.lock.gate.TryLock(ctx) {
		return false
	}
	if !oc.lock.rw.RTryLock(ctx) {
		oc.lock.gate.Unlock()
		return false
	}
	return true
}

func (oc *OuterConsensus) Read(ctx context.Context) (*ReadGuard, error) {
	oc.tracef("Trying to acquire read lock on consensus")
	if !oc.acquireRead(ctx) {
		return nil, lockErr(ctx, "read")
	}
	oc.tracef("Acquired read lock on consensus")

	return &ReadGuard{ConsensusReader: oc.lock.consensus, outer: oc}, nil
}

// TryRead acquires the read lock only if no writer holds it. Under heavy
// reader contention it may still fail spuriously after tryReadAttempts.
func (oc *OuterConsensus) TryRead() (*ReadGuard, bool) {
	oc.tracef("Trying to acquire read lock on consensus")
	acquired := false
	for i := 0; i < tryReadAttempts && !acquired; i++ {
		acquired = oc.acquireRead(noWait)
	}
	if !acquired {
		oc.tracef("Failed to acquire read lock")
		return nil, false
	}
	oc.tracef("Acquired read lock on consensus")

	return &ReadGuard{ConsensusReader: oc.lock.consensus, outer: oc}, true
}

func (oc *OuterConsensus) Write(ctx context.Context) (*WriteGuard, error) {
	oc.tracef("Trying to acquire write lock on consensus")
	if !oc.acquireWrite(ctx) {
		return nil, lockErr(ctx, "write")
	}
	oc.tracef("Acquired write lock on consensus")

	return &WriteGuard{Consensus: oc.lock.consensus, outer: oc}, nil
}

// TryWrite acquires the write lock only if nobody holds the lock.
func (oc *OuterConsensus) TryWrite() (*WriteGuard, bool) {
	oc.tracef("Trying to acquire write lock on consensus")
	if !oc.acquireWrite(noWait) {
		oc.tracef("Failed to acquire write lock")
		return nil, false
	}
	oc.tracef("Acquired write lock on consensus")

	return &WriteGuard{Consensus: oc.lock.consensus, outer: oc}, true
}

// UpgradableRead acquires a read lock that coexists with plain readers but
// excludes writers and other upgradable readers, so the holder can later
// Upgrade it knowing nothing was written in between.
func (oc *OuterConsensus) UpgradableRead(ctx context.Context) (*UpgradableReadGuard, error) {
	oc.tracef("Trying to acquire upgradable read lock on consensus")
	if !oc.acquireUpgradable(ctx) {
		return nil, lockErr(ctx, "upgradable read")
	}
	oc.tracef("Acquired upgradable read lock on consensus")

	return &UpgradableReadGuard{ConsensusReader: oc.lock.consensus, outer: oc}, nil
}

type ReadGuard struct {
	ConsensusReader
	outer    *OuterConsensus
	released bool
}

func (g *ReadGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.outer.lock.rw.RUnlock()
	g.outer.tracef("Read lock released")
}

type WriteGuard struct {
	*Consensus
	outer    *OuterConsensus
	released bool
}

func (g *WriteGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.outer.lock.rw.Unlock()
	g.outer.lock.gate.Unlock()
	g.outer.tracef("Write lock released")
}

type UpgradableReadGuard struct {
	ConsensusReader
	outer    *OuterConsensus
	consumed bool
}

// Upgrade consumes the guard and returns a write guard. The upgradable
// reader keeps the gate throughout, so no writer can run in between; it
// waits only for plain readers to leave. On error the guard is released.
func (g *UpgradableReadGuard) Upgrade(ctx context.Context) (*WriteGuard, error) {
	if g.consumed {
		return nil, fmt.Errorf("upgradable read guard already consumed")
	}
	g.consumed = true

	g.outer.tracef("Trying to upgrade upgradable read lock on consensus")
	lock := g.outer.lock
	lock.rw.RUnlock()
	if !lock.rw.TryLock(ctx) {
		lock.gate.Unlock()
		return nil, lockErr(ctx, "upgraded write")
	}
	g.outer.tracef("Upgraded upgradable read lock on consensus")

	return &WriteGuard{Consensus: lock.consensus, outer: g.outer}, nil
}

// Release gives up the upgradable read lock; after Upgrade it does nothing.
func (g *UpgradableReadGuard) Release() {
	if g.consumed {
		return
	}
	g.consumed = true
	g.outer.lock.rw.RUnlock()
	g.outer.lock.gate.Unlock()
	g.outer.tracef("Upgradable read lock released")
}
