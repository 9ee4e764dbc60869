package configuration

import (
	"fmt"
	"os"

	"github.com/TopiaNetwork/dacore/codec"
)

type Configuration struct {
	fsPath        string
	NodeConfig    *NodeConfiguration
	CSConfig      *ConsensusConfiguration
	VidConfig     *VidConfiguration
	StorageConfig *StorageConfiguration
	LogConfig     *LogConfiguration
	MetricsConfig *MetricsConfiguration
	Genesis       *GenesisData
}

func DefConfiguration() *Configuration {
	return &Configuration{
		NodeConfig:    DefNodeConfiguration(),
		CSConfig:      DefConsensusConfiguration(),
		VidConfig:     DefVidConfiguration(),
		StorageConfig: DefStorageConfiguration(),
		LogConfig:     DefLogConfiguration(),
		MetricsConfig: DefMetricsConfiguration(),
		Genesis:       DefGenesisData(),
	}
}

// LoadConfiguration overlays the JSON file at path on the defaults. Sections
// missing from the file keep their default values.
func LoadConfiguration(path string) (*Configuration, error) {
	config := DefConfiguration()

	dataBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Read configuration %s err: %v", path, err)
	}

	marshaler := codec.CreateMarshaler(codec.CodecType_JSON)
	if err = marshaler.Unmarshal(dataBytes, config); err != nil {
		return nil, fmt.Errorf("Unmarshal configuration %s err: %v", path, err)
	}
	config.fsPath = path

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Configuration) Save(path string) error {
	marshaler := codec.CreateMarshaler(codec.CodecType_JSON)
	dataBytes, err := marshaler.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, dataBytes, 0o644)
}

func (c *Configuration) Path() string {
	return c.fsPath
}

func (c *Configuration) Validate() error {
	if c.CSConfig.EventCapacity <= 0 {
		return fmt.Errorf("Invalid event capacity %d", c.CSConfig.EventCapacity)
	}
	if c.CSConfig.ProcessedProposalCache <= 0 {
		return fmt.Errorf("Invalid processed proposal cache size %d", c.CSConfig.ProcessedProposalCache)
	}
	if c.VidConfig.Workers <= 0 {
		return fmt.Errorf("Invalid vid worker count %d", c.VidConfig.Workers)
	}
	if _, err := ParseBackendType(c.StorageConfig.Backend); err != nil {
		return err
	}
	for _, daKey := range c.NodeConfig.DaCommitteeKeys {
		if !contains(c.NodeConfig.NodeKeys, daKey) {
			return fmt.Errorf("DA committee key %s is not a known node key", daKey)
		}
	}

	return nil
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
