package node

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/dacore/consensus"
	"github.com/TopiaNetwork/dacore/eventhub"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/storage"
	"github.com/TopiaNetwork/dacore/storage/backend/memdb"
	"github.com/TopiaNetwork/dacore/types"
)

type decideEnv struct {
	outer   *consensus.OuterConsensus
	store   storage.Storage
	handler *decideHandler
	leaves  []*types.Leaf
}

func newDecideEnv(t *testing.T, chainLen int) *decideEnv {
	log := tplog.CreateWriterLogger(tplogcmm.InfoLevel, io.Discard)
	cons := consensus.NewConsensus(tplogcmm.InfoLevel, log, consensus.GenesisBaseline(types.NewBlockState(0, types.Commitment{})), nil)
	outer := consensus.NewOuterConsensus(tplogcmm.InfoLevel, log, cons, false)
	store := storage.NewKVStorage(tplogcmm.InfoLevel, log, memdb.NewMemBackend(log, "decide"))
	t.Cleanup(func() { store.Close() })

	leaves := []*types.Leaf{types.GenesisLeaf()}
	for v := 1; v <= chainLen; v++ {
		parent := leaves[v-1]
		qc := types.QuorumCertificate{ViewNumber: parent.ViewNumber, LeafCommitment: parent.Commit()}
		leaves = append(leaves, types.ExtendLeaf(parent, types.ViewNumber(v), qc, types.VidCommitment{byte(v)}))
	}

	return &decideEnv{
		outer:   outer,
		store:   store,
		handler: newDecideHandler(log, outer, store),
		leaves:  leaves,
	}
}

// decide builds the event deciding the leaves of views, newest first.
func (env *decideEnv) decide(views ...types.ViewNumber) *eventhub.LeafDecidedEvent {
	ev := &eventhub.LeafDecidedEvent{}
	for i := len(views) - 1; i >= 0; i-- {
		leaf := env.leaves[views[i]]
		ev.Leaves = append(ev.Leaves, &types.LeafInfo{
			Leaf:  leaf,
			State: types.NewBlockState(leaf.Height, types.Commitment{byte(leaf.ViewNumber)}),
			Delta: types.StateDelta{byte(leaf.ViewNumber)},
		})
	}
	last := env.leaves[views[len(views)-1]]
	ev.QC = &types.QuorumCertificate{ViewNumber: last.ViewNumber, LeafCommitment: last.Commit()}
	return ev
}

func (env *decideEnv) read(t *testing.T) *consensus.ReadGuard {
	guard, err := env.outer.Read(context.Background())
	require.NoError(t, err)
	return guard
}

func TestDecideHandlerConsecutiveDecides(t *testing.T) {
	env := newDecideEnv(t, 6)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleEvent(ctx, env.decide(1, 2), nil))

	guard := env.read(t)
	assert.Equal(t, types.ViewNumber(2), guard.LastDecidedView())
	assert.Equal(t, []types.ViewNumber{2}, guard.ValidatedViews())
	decided, err := guard.DecidedLeaf()
	require.NoError(t, err)
	assert.Equal(t, env.leaves[2].Commit(), decided.Commit())
	state, err := guard.DecidedState()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state.Height())
	guard.Release()

	// a DA record for a view not yet decided survives the next GC
	wGuard, err := env.outer.Write(ctx)
	require.NoError(t, err)
	require.NoError(t, wGuard.UpdateValidatedStateMap(5, types.NewDaView(types.VidCommitment{5}, 0)))
	wGuard.Release()

	require.NoError(t, env.handler.HandleEvent(ctx, env.decide(3, 4), nil))

	guard = env.read(t)
	assert.Equal(t, types.ViewNumber(4), guard.LastDecidedView())
	assert.Equal(t, []types.ViewNumber{4, 5}, guard.ValidatedViews())
	decided, err = guard.DecidedLeaf()
	require.NoError(t, err)
	assert.Equal(t, env.leaves[4].Commit(), decided.Commit())
	guard.Release()

	require.NoError(t, env.handler.HandleEvent(ctx, env.decide(5, 6), nil))

	guard = env.read(t)
	assert.Equal(t, types.ViewNumber(6), guard.LastDecidedView())
	assert.Equal(t, []types.ViewNumber{6}, guard.ValidatedViews())
	assert.Equal(t, 1, guard.SavedLeavesCount())
	assert.Equal(t, types.ViewNumber(6), guard.HighQC().ViewNumber)
	guard.Release()

	stored, err := env.store.LoadHighQC(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ViewNumber(6), stored.ViewNumber)
}

func TestDecideHandlerIgnoresOldDecide(t *testing.T) {
	env := newDecideEnv(t, 4)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleEvent(ctx, env.decide(1, 2, 3), nil))
	require.NoError(t, env.handler.HandleEvent(ctx, env.decide(2), nil))
	require.NoError(t, env.handler.HandleEvent(ctx, &eventhub.LeafDecidedEvent{}, nil))

	guard := env.read(t)
	assert.Equal(t, types.ViewNumber(3), guard.LastDecidedView())
	assert.Equal(t, []types.ViewNumber{3}, guard.ValidatedViews())
	guard.Release()

	require.NoError(t, env.handler.HandleEvent(ctx, env.decide(4), nil))
	guard = env.read(t)
	assert.Equal(t, types.ViewNumber(4), guard.LastDecidedView())
	guard.Release()
}

func TestDecideHandlerAnchorMismatchKeepsDecidedView(t *testing.T) {
	env := newDecideEnv(t, 4)
	ctx := context.Background()

	require.NoError(t, env.handler.HandleEvent(ctx, env.decide(1, 2), nil))

	wGuard, err := env.outer.Write(ctx)
	require.NoError(t, err)
	require.NoError(t, wGuard.UpdateValidatedStateMap(1, types.NewFailedView()))
	wGuard.Release()

	err = env.handler.HandleEvent(ctx, env.decide(3, 4), nil)
	assert.ErrorIs(t, err, consensus.ErrGarbageAnchorMismatch)

	guard := env.read(t)
	assert.Equal(t, types.ViewNumber(2), guard.LastDecidedView())
	assert.Equal(t, types.ViewNumber(2), guard.HighQC().ViewNumber)
	guard.Release()
}

func TestDecideHandlerRecordsQuorumProposals(t *testing.T) {
	env := newDecideEnv(t, 4)
	ctx := context.Background()

	proposal := func(view types.ViewNumber) *eventhub.QuorumProposalSendEvent {
		leaf := env.leaves[view]
		return &eventhub.QuorumProposalSendEvent{Proposal: &types.QuorumProposalMessage{
			Proposal:  types.QuorumProposal{ViewNumber: view, Leaf: *leaf, JustifyQC: leaf.Justify},
			Signature: []byte("sig"),
		}}
	}

	require.NoError(t, env.handler.HandleEvent(ctx, proposal(1), nil))
	require.NoError(t, env.handler.HandleEvent(ctx, proposal(3), nil))
	require.NoError(t, env.handler.HandleEvent(ctx, proposal(2), nil))

	guard := env.read(t)
	assert.Equal(t, []types.ViewNumber{1, 3}, guard.LastProposalViews())
	assert.Equal(t, types.ViewNumber(3), guard.LastActions().Proposed)
	guard.Release()

	require.NoError(t, env.handler.HandleEvent(ctx, env.decide(1, 2), nil))
	require.NoError(t, env.handler.HandleEvent(ctx, proposal(2), nil))

	guard = env.read(t)
	assert.Equal(t, []types.ViewNumber{3}, guard.LastProposalViews())
	guard.Release()

	assert.Error(t, env.handler.HandleEvent(ctx, &eventhub.QuorumProposalSendEvent{}, nil))
}
