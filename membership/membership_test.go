package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/types"
)

func newTestLogger(t *testing.T) tplog.Logger {
	log, err := tplog.CreateMainLogger(tplogcmm.InfoLevel, tplog.JSONFormat, tplog.StdErrOutput, "")
	require.NoError(t, err)
	return log
}

var testKeys = []types.SignatureKey{"aa", "bb", "cc", "dd"}

func TestLeaderRoundRobin(t *testing.T) {
	m, err := NewStaticMembership(newTestLogger(t), testKeys, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, m.TotalNodes(0))
	for view := types.ViewNumber(0); view < 8; view++ {
		leader, err := m.Leader(view, 0)
		require.NoError(t, err)
		assert.Equal(t, testKeys[uint64(view)%4], leader)
		assert.True(t, m.IsLeader(view, 0, leader))
	}
	assert.False(t, m.IsLeader(1, 0, "aa"))
}

func TestDaCommittee(t *testing.T) {
	m, err := NewStaticMembership(newTestLogger(t), testKeys, []types.SignatureKey{"dd", "bb"})
	require.NoError(t, err)

	assert.True(t, m.HasDaStake("bb", 0))
	assert.False(t, m.HasDaStake("aa", 0))
	assert.Equal(t, []types.SignatureKey{"bb", "dd"}, m.DaCommitteeMembers(0))

	all, err := NewStaticMembership(newTestLogger(t), testKeys, nil)
	require.NoError(t, err)
	assert.Len(t, all.DaCommitteeMembers(3), 4)
}

func TestStakeTable(t *testing.T) {
	m, err := NewStaticMembership(newTestLogger(t), testKeys, nil)
	require.NoError(t, err)

	table := m.StakeTable(0)
	require.Len(t, table, 4)
	for i, entry := range table {
		assert.Equal(t, testKeys[i], entry.Key)
		assert.Equal(t, uint64(1), entry.Stake)
	}

	keys := m.NodeKeys()
	keys[0] = "zz"
	assert.Equal(t, types.SignatureKey("aa"), m.NodeKeys()[0])
}

func TestInvalidMembership(t *testing.T) {
	_, err := NewStaticMembership(newTestLogger(t), nil, nil)
	assert.Error(t, err)

	_, err = NewStaticMembership(newTestLogger(t), []types.SignatureKey{"aa", "aa"}, nil)
	assert.Error(t, err)

	_, err = NewStaticMembership(newTestLogger(t), testKeys, []types.SignatureKey{"ee"})
	assert.Error(t, err)
}
