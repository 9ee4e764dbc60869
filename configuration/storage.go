package configuration

import (
	"fmt"
	"strings"
)

type BackendType byte

const (
	BackendType_Unknown BackendType = iota
	BackendType_Badger
	BackendType_Leveldb
	BackendType_Memdb
)

func (t BackendType) String() string {
	switch t {
	case BackendType_Badger:
		return "badger"
	case BackendType_Leveldb:
		return "leveldb"
	case BackendType_Memdb:
		return "memdb"
	}
	return "unknown"
}

func ParseBackendType(s string) (BackendType, error) {
	switch strings.ToLower(s) {
	case "badger":
		return BackendType_Badger, nil
	case "leveldb":
		return BackendType_Leveldb, nil
	case "memdb", "memory":
		return BackendType_Memdb, nil
	}
	return BackendType_Unknown, fmt.Errorf("Unknown storage backend %q", s)
}

type StorageConfiguration struct {
	Backend   string
	Path      string //relative paths are resolved under NodeConfiguration.RootPath
	CacheSize int
}

func DefStorageConfiguration() *StorageConfiguration {
	return &StorageConfiguration{
		Backend:   BackendType_Badger.String(),
		Path:      "data",
		CacheSize: 256,
	}
}
