package membership

import (
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"

	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/types"
)

const MOD_NAME = "membership"

// Membership answers who leads a view and who sits on the DA committee.
type Membership interface {
	TotalNodes(epoch types.EpochNumber) int

	Leader(view types.ViewNumber, epoch types.EpochNumber) (types.SignatureKey, error)

	IsLeader(view types.ViewNumber, epoch types.EpochNumber, key types.SignatureKey) bool

	HasDaStake(key types.SignatureKey, epoch types.EpochNumber) bool

	DaCommitteeMembers(epoch types.EpochNumber) []types.SignatureKey

	StakeTable(epoch types.EpochNumber) []types.StakeTableEntry
}

type activeNodeInfos struct {
	sync        sync.RWMutex
	nodeKeys    []types.SignatureKey //leader order
	daCommittee mapset.Set           //types.SignatureKey
	nodeWeights map[types.SignatureKey]uint64
}

// StaticMembership elects leaders round robin over a fixed node list; the
// same set serves every epoch.
type StaticMembership struct {
	log   tplog.Logger
	infos *activeNodeInfos
}

// NewStaticMembership takes the nodes in leader order. An empty daCommittee
// puts every node on the committee.
func NewStaticMembership(log tplog.Logger, nodeKeys []types.SignatureKey, daCommittee []types.SignatureKey) (*StaticMembership, error) {
	memLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, MOD_NAME, log)
	if len(nodeKeys) == 0 {
		err := fmt.Errorf("Empty node set")
		memLog.Errorf("%v", err)
		return nil, err
	}

	infos := &activeNodeInfos{
		daCommittee: mapset.NewSet(),
		nodeWeights: make(map[types.SignatureKey]uint64, len(nodeKeys)),
	}
	for _, key := range nodeKeys {
		if _, ok := infos.nodeWeights[key]; ok {
			err := fmt.Errorf("Duplicate node key %s", key)
			memLog.Errorf("%v", err)
			return nil, err
		}
		infos.nodeKeys = append(infos.nodeKeys, key)
		infos.nodeWeights[key] = 1
	}

	if len(daCommittee) == 0 {
		daCommittee = nodeKeys
	}
	for _, key := range daCommittee {
		if _, ok := infos.nodeWeights[key]; !ok {
			err := fmt.Errorf("DA committee member %s is not a node", key)
			memLog.Errorf("%v", err)
			return nil, err
		}
		infos.daCommittee.Add(key)
	}

	return &StaticMembership{
		log:   memLog,
		infos: infos,
	}, nil
}

func (m *StaticMembership) TotalNodes(epoch types.EpochNumber) int {
	m.infos.sync.RLock()
	defer m.infos.sync.RUnlock()

	return len(m.infos.nodeKeys)
}

func (m *StaticMembership) Leader(view types.ViewNumber, epoch types.EpochNumber) (types.SignatureKey, error) {
	m.infos.sync.RLock()
	defer m.infos.sync.RUnlock()

	if len(m.infos.nodeKeys) == 0 {
		return "", fmt.Errorf("No leader for %s epoch %d: empty node set", view, epoch)
	}

	return m.infos.nodeKeys[uint64(view)%uint64(len(m.infos.nodeKeys))], nil
}

func (m *StaticMembership) IsLeader(view types.ViewNumber, epoch types.EpochNumber, key types.SignatureKey) bool {
	leader, err := m.Leader(view, epoch)
	if err != nil {
		return false
	}
	return leader == key
}

func (m *StaticMembership) HasDaStake(key types.SignatureKey, epoch types.EpochNumber) bool {
	return m.infos.daCommittee.Contains(key)
}

func (m *StaticMembership) DaCommitteeMembers(epoch types.EpochNumber) []types.SignatureKey {
	members := make([]types.SignatureKey, 0, m.infos.daCommittee.Cardinality())
	for _, member := range m.infos.daCommittee.ToSlice() {
		members = append(members, member.(types.SignatureKey))
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	return members
}

func (m *StaticMembership) StakeTable(epoch types.EpochNumber) []types.StakeTableEntry {
	m.infos.sync.RLock()
	defer m.infos.sync.RUnlock()

	table := make([]types.StakeTableEntry, 0, len(m.infos.nodeKeys))
	for _, key := range m.infos.nodeKeys {
		table = append(table, types.StakeTableEntry{Key: key, Stake: m.infos.nodeWeights[key]})
	}

	return table
}

// NodeKeys returns the node list in leader order.
func (m *StaticMembership) NodeKeys() []types.SignatureKey {
	m.infos.sync.RLock()
	defer m.infos.sync.RUnlock()

	keys := make([]types.SignatureKey, len(m.infos.nodeKeys))
	copy(keys, m.infos.nodeKeys)
	return keys
}
