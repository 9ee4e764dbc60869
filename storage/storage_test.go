package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/dacore/configuration"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/storage/backend"
	"github.com/TopiaNetwork/dacore/types"
)

func newTestStorage(t *testing.T, backendType configuration.BackendType) Storage {
	log := tplog.CreateWriterLogger(tplogcmm.InfoLevel, io.Discard)
	b, err := backend.NewBackend(backendType, log, t.TempDir(), "storage", 32)
	require.NoError(t, err)
	s := NewKVStorage(tplogcmm.DebugLevel, log, b)
	t.Cleanup(func() { s.Close() })
	return s
}

func testProposal(view types.ViewNumber) *types.DaProposalMessage {
	return &types.DaProposalMessage{
		Proposal: types.DaProposal{
			EncodedTransactions: []byte{byte(view), 1, 2, 3},
			Metadata:            types.PayloadMetadata{NumTransactions: 1},
			ViewNumber:          view,
			Epoch:               1,
			PayloadCommitment:   types.VidCommitment{byte(view)},
		},
		Signature: []byte("sig"),
	}
}

func testShare(view types.ViewNumber, recipient types.SignatureKey) *types.VidShareMessage {
	return &types.VidShareMessage{
		Share: types.VidDisperseShare{
			ViewNumber:        view,
			Epoch:             1,
			PayloadCommitment: types.VidCommitment{byte(view)},
			Recipient:         recipient,
			Share:             types.VidShare{Index: 0, TotalShares: 4, Data: []byte("data"), Proof: []byte("proof")},
		},
		Signature: []byte("sig"),
	}
}

func TestAppendAndLoadDa(t *testing.T) {
	for _, bt := range []configuration.BackendType{configuration.BackendType_Memdb, configuration.BackendType_Leveldb, configuration.BackendType_Badger} {
		t.Run(bt.String(), func(t *testing.T) {
			s := newTestStorage(t, bt)
			ctx := context.Background()

			_, err := s.LoadDaProposal(ctx, 3)
			assert.ErrorIs(t, err, ErrNotFound)

			p := testProposal(3)
			require.NoError(t, s.AppendDa(ctx, p, types.VidCommitment{9}))

			record, err := s.LoadDaProposal(ctx, 3)
			require.NoError(t, err)
			assert.Equal(t, *p, record.Proposal)
			assert.Equal(t, types.VidCommitment{9}, record.Commitment)
		})
	}
}

func TestAppendVidShares(t *testing.T) {
	s := newTestStorage(t, configuration.BackendType_Memdb)
	ctx := context.Background()

	require.NoError(t, s.AppendVid(ctx, testShare(2, "aa")))
	require.NoError(t, s.AppendVid(ctx, testShare(2, "bb")))
	require.NoError(t, s.AppendVid(ctx, testShare(3, "aa")))

	shares, err := s.LoadVidShares(ctx, 2)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, types.SignatureKey("aa"), shares[0].Share.Recipient)
	assert.Equal(t, types.SignatureKey("bb"), shares[1].Share.Recipient)

	shares, err = s.LoadVidShares(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestUpdateHighQCOnlyAdvances(t *testing.T) {
	s := newTestStorage(t, configuration.BackendType_Memdb)
	ctx := context.Background()

	_, err := s.LoadHighQC(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	qc5 := &types.QuorumCertificate{ViewNumber: 5, Epoch: 1, LeafCommitment: types.Commitment{5}, Signature: []byte("s5")}
	qc3 := &types.QuorumCertificate{ViewNumber: 3, Epoch: 1, LeafCommitment: types.Commitment{3}, Signature: []byte("s3")}
	require.NoError(t, s.UpdateHighQC(ctx, qc5))
	require.NoError(t, s.UpdateHighQC(ctx, qc3))

	qc, err := s.LoadHighQC(ctx)
	require.NoError(t, err)
	assert.Equal(t, qc5, qc)

	assert.Error(t, s.UpdateHighQC(ctx, nil))
}

func TestPruneBelow(t *testing.T) {
	s := newTestStorage(t, configuration.BackendType_Leveldb)
	ctx := context.Background()

	for v := types.ViewNumber(1); v <= 4; v++ {
		require.NoError(t, s.AppendDa(ctx, testProposal(v), types.VidCommitment{byte(v)}))
		require.NoError(t, s.AppendVid(ctx, testShare(v, "aa")))
	}

	removed, err := s.PruneBelow(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	_, err = s.LoadDaProposal(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.LoadDaProposal(ctx, 3)
	assert.NoError(t, err)

	shares, err := s.LoadVidShares(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, shares)
	shares, err = s.LoadVidShares(ctx, 4)
	require.NoError(t, err)
	assert.Len(t, shares, 1)
}

func TestCancelledContext(t *testing.T) {
	s := newTestStorage(t, configuration.BackendType_Memdb)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.AppendDa(ctx, testProposal(1), types.VidCommitment{}), context.Canceled)
	_, err := s.LoadDaProposal(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
