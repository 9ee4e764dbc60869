package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigurationOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{"CSConfig":{"EventCapacity":16,"ProcessedProposalCache":8},"StorageConfig":{"Backend":"memdb"}}`), 0o644)
	require.NoError(t, err)

	config, err := LoadConfiguration(path)
	require.NoError(t, err)

	assert.Equal(t, 16, config.CSConfig.EventCapacity)
	assert.Equal(t, "memdb", config.StorageConfig.Backend)
	assert.Equal(t, DefVidConfiguration().Workers, config.VidConfig.Workers)
	assert.Equal(t, "info", config.LogConfig.Level)
	assert.Equal(t, path, config.Path())
}

func TestValidateRejectsUnknownCommitteeKey(t *testing.T) {
	config := DefConfiguration()
	config.NodeConfig.NodeKeys = []string{"aa", "bb"}
	config.NodeConfig.DaCommitteeKeys = []string{"cc"}

	assert.Error(t, config.Validate())

	config.NodeConfig.DaCommitteeKeys = []string{"bb"}
	assert.NoError(t, config.Validate())

	config.StorageConfig.Backend = "rocksdb"
	assert.Error(t, config.Validate())
}

func TestGenesisSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.json")
	genesis := &GenesisData{View: 3, Epoch: 1, StateHeight: 10, StateRoot: "ab"}
	require.NoError(t, genesis.Save(path))

	loaded := new(GenesisData)
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, genesis, loaded)
}
