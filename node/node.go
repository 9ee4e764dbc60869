package node

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/AsynkronIT/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"

	tpcmm "github.com/TopiaNetwork/dacore/common"
	"github.com/TopiaNetwork/dacore/configuration"
	"github.com/TopiaNetwork/dacore/consensus"
	"github.com/TopiaNetwork/dacore/crypt"
	tpcrtypes "github.com/TopiaNetwork/dacore/crypt/types"
	"github.com/TopiaNetwork/dacore/eventhub"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/membership"
	"github.com/TopiaNetwork/dacore/storage"
	"github.com/TopiaNetwork/dacore/storage/backend"
	"github.com/TopiaNetwork/dacore/task"
	"github.com/TopiaNetwork/dacore/task/da"
	"github.com/TopiaNetwork/dacore/types"
	"github.com/TopiaNetwork/dacore/vid"
)

const (
	MOD_NAME = "node"
)

type Node struct {
	log        tplog.Logger
	level      tplogcmm.LogLevel
	config     *configuration.Configuration
	sysActor   *actor.ActorSystem
	registry   *prometheus.Registry
	crypt      crypt.CryptService
	publicKey  types.SignatureKey
	storage    storage.Storage
	consensus  *consensus.OuterConsensus
	hub        *eventhub.EventHub
	disperser  *vid.Disperser
	membership *membership.StaticMembership
	tasks      []*task.Task
	stopOnce   sync.Once
	stopErr    error
}

func resolvePrivateKey(log tplog.Logger, cs crypt.CryptService, nodeConfig *configuration.NodeConfiguration) (tpcrtypes.PrivateKey, error) {
	if nodeConfig.PrivateKey != "" {
		return tpcmm.DecodeHex(nodeConfig.PrivateKey)
	}
	if nodeConfig.KeySeed != "" {
		priKey, _, err := cs.GeneratePriPubKeyBySeed([]byte(nodeConfig.KeySeed))
		return priKey, err
	}

	log.Warn("No private key configured, generating an ephemeral one")
	priKey, _, err := cs.GeneratePriPubKey()
	return priKey, err
}

func genesisBaseline(genesis *configuration.GenesisData) (*consensus.Baseline, error) {
	var root types.Commitment
	if genesis.StateRoot != "" {
		rootBytes, err := tpcmm.DecodeHex(genesis.StateRoot)
		if err != nil {
			return nil, fmt.Errorf("Invalid genesis state root: %v", err)
		}
		if len(rootBytes) != len(root) {
			return nil, fmt.Errorf("Invalid genesis state root length %d", len(rootBytes))
		}
		copy(root[:], rootBytes)
	}

	baseline := consensus.GenesisBaseline(types.NewBlockState(genesis.StateHeight, root))
	baseline.CurView = types.ViewNumber(genesis.View)
	baseline.CurEpoch = types.EpochNumber(genesis.Epoch)

	return baseline, nil
}

func storagePath(config *configuration.Configuration) string {
	path := config.StorageConfig.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(config.NodeConfig.RootPath, path)
	}
	return path
}

func NewNode(config *configuration.Configuration, mainLog tplog.Logger) (*Node, error) {
	level, err := tplogcmm.ParseLogLevel(config.LogConfig.Level)
	if err != nil {
		return nil, err
	}
	log := tplog.CreateModuleLogger(level, MOD_NAME, mainLog)

	if err = config.Validate(); err != nil {
		log.Errorf("Invalid configuration: %v", err)
		return nil, err
	}

	cs := crypt.CreateCryptService(mainLog, config.CSConfig.CryptType)
	priKey, err := resolvePrivateKey(log, cs, config.NodeConfig)
	if err != nil {
		log.Errorf("Resolve private key err: %v", err)
		return nil, err
	}
	pubKey, err := cs.ConvertToPublic(priKey)
	if err != nil {
		return nil, err
	}
	publicKey := types.SignatureKeyFromPublic(pubKey)

	nodeKeys := []types.SignatureKey{publicKey}
	if len(config.NodeConfig.NodeKeys) > 0 {
		nodeKeys = nodeKeys[:0]
		for _, k := range config.NodeConfig.NodeKeys {
			nodeKeys = append(nodeKeys, types.SignatureKey(k))
		}
	}
	var daCommittee []types.SignatureKey
	for _, k := range config.NodeConfig.DaCommitteeKeys {
		daCommittee = append(daCommittee, types.SignatureKey(k))
	}
	mem, err := membership.NewStaticMembership(mainLog, nodeKeys, daCommittee)
	if err != nil {
		return nil, err
	}
	if !contains(nodeKeys, publicKey) {
		err = fmt.Errorf("Own key %s is not a known node key", publicKey)
		log.Errorf("%v", err)
		return nil, err
	}

	baseline, err := genesisBaseline(config.Genesis)
	if err != nil {
		log.Errorf("%v", err)
		return nil, err
	}

	var registry *prometheus.Registry
	var reg prometheus.Registerer
	if config.MetricsConfig.Enabled {
		registry = prometheus.NewRegistry()
		reg = registry
	}
	metrics := consensus.NewConsensusMetricsValue(reg, config.MetricsConfig.Namespace)

	backendType, _ := configuration.ParseBackendType(config.StorageConfig.Backend)
	backendDB, err := backend.NewBackend(backendType, mainLog, storagePath(config), "dacore", config.StorageConfig.CacheSize)
	if err != nil {
		return nil, err
	}
	store := storage.NewKVStorage(level, mainLog, backendDB)

	cons := consensus.NewConsensus(level, mainLog, baseline, metrics)
	outer := consensus.NewOuterConsensus(level, mainLog, cons, config.CSConfig.LockTrace)

	hub := eventhub.NewEventHub(level, mainLog, config.CSConfig.EventCapacity)
	if reg != nil {
		hub.RegisterMetrics(reg, config.MetricsConfig.Namespace)
	}

	disperser := vid.NewDisperser(level, mainLog, config.VidConfig.Workers)

	daState, err := da.NewDaTaskState(level, mainLog, outer, mem, cs, store, disperser, priKey,
		config.CSConfig.ProcessedProposalCache, config.CSConfig.OptimisticVid)
	if err != nil {
		disperser.Stop()
		store.Close()
		return nil, err
	}
	daState.SetLockWaitTimeout(config.CSConfig.LockWaitTimeout)

	sysActor := actor.NewActorSystem()
	tasks := []*task.Task{
		task.NewTask(level, mainLog, sysActor, hub, daState),
		task.NewTask(level, mainLog, sysActor, hub, newDecideHandler(log, outer, store)),
	}

	log.Infof("Node %s created with %d nodes, storage %s", publicKey, mem.TotalNodes(0), backendType)

	return &Node{
		log:        log,
		level:      level,
		config:     config,
		sysActor:   sysActor,
		registry:   registry,
		crypt:      cs,
		publicKey:  publicKey,
		storage:    store,
		consensus:  outer,
		hub:        hub,
		disperser:  disperser,
		membership: mem,
		tasks:      tasks,
	}, nil
}

func contains(keys []types.SignatureKey, key types.SignatureKey) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func (n *Node) PublicKey() types.SignatureKey {
	return n.publicKey
}

func (n *Node) EventHub() *eventhub.EventHub {
	return n.hub
}

func (n *Node) Consensus() *consensus.OuterConsensus {
	return n.consensus
}

func (n *Node) Storage() storage.Storage {
	return n.storage
}

func (n *Node) Membership() membership.Membership {
	return n.membership
}

// Registry is nil when metrics are disabled.
func (n *Node) Registry() *prometheus.Registry {
	return n.registry
}

func (n *Node) Start() error {
	for i, t := range n.tasks {
		if err := t.Start(); err != nil {
			for _, started := range n.tasks[:i] {
				started.Stop()
			}
			return err
		}
	}

	n.log.Infof("All tasks were started, hub %s", n.hub)
	return nil
}

// Run starts the node and blocks until SIGINT or SIGTERM.
func (n *Node) Run() error {
	if err := n.Start(); err != nil {
		return err
	}

	gracefulStop := make(chan os.Signal, 1)
	signal.Notify(gracefulStop, syscall.SIGTERM, syscall.SIGINT)

	sig := <-gracefulStop
	n.log.Warnf("Caught signal %v, graceful stop", sig)

	return n.Stop()
}

func (n *Node) Stop() error {
	n.stopOnce.Do(func() {
		if err := n.hub.Publish(&eventhub.ShutdownEvent{}); err != nil {
			n.log.Debugf("Publish shutdown: %v", err)
		}
		for _, t := range n.tasks {
			t.Stop()
		}
		n.hub.Close()
		n.disperser.Stop()

		if n.stopErr = n.storage.Close(); n.stopErr != nil {
			n.log.Errorf("Close storage err: %v", n.stopErr)
			return
		}
		n.log.Info("Node stopped")
	})

	return n.stopErr
}
