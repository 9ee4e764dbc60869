package configuration

import (
	"os"
	"path/filepath"
)

type NodeConfiguration struct {
	RootPath string
	// PrivateKey is the hex encoded BLS private key; KeySeed derives one when it is empty.
	PrivateKey string
	KeySeed    string
	// NodeKeys lists the hex encoded public keys of all nodes in leader order.
	NodeKeys        []string
	DaCommitteeKeys []string
}

func DefNodeConfiguration() *NodeConfiguration {
	homeDir, _ := os.UserHomeDir()
	return &NodeConfiguration{
		RootPath: filepath.Join(homeDir, ".dacore"),
	}
}
