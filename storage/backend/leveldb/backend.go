package leveldb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	tpcmm "github.com/TopiaNetwork/dacore/common"
	tplog "github.com/TopiaNetwork/dacore/log"
	tpstcmm "github.com/TopiaNetwork/dacore/storage/backend/common"
)

type LeveldbBackend struct {
	log   tplog.Logger
	name  string
	cache *lru.ARCCache
	db    *leveldb.DB
}

func NewLeveldbBackend(log tplog.Logger, name string, path string, cacheSize int) (*LeveldbBackend, error) {
	pathWithName := filepath.Join(path, name+".db")
	if err := os.MkdirAll(pathWithName, 0755); err != nil {
		log.Errorf("can't change the path %s to 0755", pathWithName)
		return nil, err
	}

	db, err := leveldb.OpenFile(pathWithName, nil)
	if err != nil {
		err = fmt.Errorf("Create leveldb %s error %v, dbPath=%s", name, err, pathWithName)
		log.Errorf("%v", err)
		return nil, err
	}

	cache, _ := lru.NewARC(cacheSize)
	return &LeveldbBackend{
		log:   log,
		name:  name,
		cache: cache,
		db:    db,
	}, nil
}

func (b *LeveldbBackend) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, tpstcmm.ErrKeyEmpty
	}
	if val, ok := b.cache.Get(string(key)); ok {
		return tpcmm.BytesCopy(val.([]byte)), nil
	}

	val, err := b.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if val == nil {
		val = []byte{}
	}
	b.cache.Add(string(key), tpcmm.BytesCopy(val))

	return val, nil
}

func (b *LeveldbBackend) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, tpstcmm.ErrKeyEmpty
	}
	if b.cache.Contains(string(key)) {
		return true, nil
	}
	return b.db.Has(key, nil)
}

func (b *LeveldbBackend) put(key, value []byte, sync bool) error {
	if err := tpstcmm.ValidateKv(key, value); err != nil {
		return err
	}
	b.cache.Remove(string(key))
	return b.db.Put(key, value, &opt.WriteOptions{Sync: sync})
}

func (b *LeveldbBackend) Set(key []byte, value []byte) error {
	return b.put(key, value, false)
}

func (b *LeveldbBackend) SetSync(key []byte, value []byte) error {
	return b.put(key, value, true)
}

func (b *LeveldbBackend) Delete(key []byte) error {
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	b.cache.Remove(string(key))
	return b.db.Delete(key, nil)
}

func (b *LeveldbBackend) Iterator(start, end []byte) (tpstcmm.Iterator, error) {
	it := b.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	lit := &leveldbIterator{source: it, start: start, end: end}
	lit.valid = it.Next()

	return lit, nil
}

func (b *LeveldbBackend) NewBatch() tpstcmm.Batch {
	return &leveldbBatch{backend: b, batch: new(leveldb.Batch)}
}

func (b *LeveldbBackend) Close() error {
	b.cache.Purge()
	return b.db.Close()
}

type leveldbIterator struct {
	source     iterator.Iterator
	start, end []byte
	valid      bool
}

func (it *leveldbIterator) Domain() ([]byte, []byte) {
	return it.start, it.end
}

func (it *leveldbIterator) Valid() bool {
	return it.valid
}

func (it *leveldbIterator) Next() {
	if !it.valid {
		panic("iterator is invalid")
	}
	it.valid = it.source.Next()
}

func (it *leveldbIterator) Key() []byte {
	if !it.valid {
		panic("iterator is invalid")
	}
	return tpcmm.BytesCopy(it.source.Key())
}

func (it *leveldbIterator) Value() []byte {
	if !it.valid {
		panic("iterator is invalid")
	}
	return tpcmm.BytesCopy(it.source.Value())
}

func (it *leveldbIterator) Error() error {
	return it.source.Error()
}

func (it *leveldbIterator) Close() error {
	it.source.Release()
	return nil
}

type leveldbBatch struct {
	backend *LeveldbBackend
	batch   *leveldb.Batch
	keys    [][]byte
}

func (lb *leveldbBatch) Set(key, value []byte) error {
	if lb.batch == nil {
		return tpstcmm.ErrTransactionClosed
	}
	if err := tpstcmm.ValidateKv(key, value); err != nil {
		return err
	}
	lb.batch.Put(key, value)
	lb.keys = append(lb.keys, key)
	return nil
}

func (lb *leveldbBatch) Delete(key []byte) error {
	if lb.batch == nil {
		return tpstcmm.ErrTransactionClosed
	}
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	lb.batch.Delete(key)
	lb.keys = append(lb.keys, key)
	return nil
}

func (lb *leveldbBatch) write(sync bool) error {
	if lb.batch == nil {
		return tpstcmm.ErrTransactionClosed
	}
	for _, key := range lb.keys {
		lb.backend.cache.Remove(string(key))
	}
	err := lb.backend.db.Write(lb.batch, &opt.WriteOptions{Sync: sync})
	if err != nil {
		return err
	}
	return lb.Close()
}

func (lb *leveldbBatch) Write() error {
	return lb.write(false)
}

func (lb *leveldbBatch) WriteSync() error {
	return lb.write(true)
}

func (lb *leveldbBatch) Close() error {
	if lb.batch != nil {
		lb.batch.Reset()
		lb.batch = nil
	}
	lb.keys = nil
	return nil
}
