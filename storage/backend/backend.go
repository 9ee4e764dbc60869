package backend

import (
	"fmt"

	"github.com/TopiaNetwork/dacore/configuration"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	"github.com/TopiaNetwork/dacore/storage/backend/badger"
	tpstcmm "github.com/TopiaNetwork/dacore/storage/backend/common"
	"github.com/TopiaNetwork/dacore/storage/backend/leveldb"
	"github.com/TopiaNetwork/dacore/storage/backend/memdb"
)

const (
	DefaultCacheSize = 8192
)

// Backend is an ordered key/value store. Get returns nil, nil for a missing key.
type Backend interface {
	Get(key []byte) ([]byte, error)

	Has(key []byte) (bool, error)

	Set(key, value []byte) error

	SetSync(key, value []byte) error

	Delete(key []byte) error

	// Iterator walks keys in [start, end) in ascending order; nil bounds are open.
	Iterator(start, end []byte) (tpstcmm.Iterator, error)

	NewBatch() tpstcmm.Batch

	Close() error
}

func NewBackend(backendType configuration.BackendType, log tplog.Logger, path string, name string, cacheSize int) (Backend, error) {
	bLog := tplog.CreateModuleLogger(tplogcmm.InfoLevel, "StorageBackend", log)
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	switch backendType {
	case configuration.BackendType_Leveldb:
		return leveldb.NewLeveldbBackend(bLog, name, path, cacheSize)
	case configuration.BackendType_Badger:
		return badger.NewBadgerBackend(bLog, name, path, cacheSize)
	case configuration.BackendType_Memdb:
		return memdb.NewMemBackend(bLog, name), nil
	}

	err := fmt.Errorf("Invalid backend type %d", backendType)
	bLog.Errorf("%v", err)
	return nil, err
}
