package badger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"
	lru "github.com/hashicorp/golang-lru"

	tpcmm "github.com/TopiaNetwork/dacore/common"
	tplog "github.com/TopiaNetwork/dacore/log"
	tpstcmm "github.com/TopiaNetwork/dacore/storage/backend/common"
)

type BadgerBackend struct {
	log   tplog.Logger
	name  string
	cache *lru.ARCCache
	db    *badger.DB
}

func NewBadgerBackend(log tplog.Logger, name string, path string, cacheSize int) (*BadgerBackend, error) {
	pathWithName := filepath.Join(path, name+".db")
	if err := os.MkdirAll(pathWithName, 0755); err != nil {
		log.Errorf("can't change the path %s to 0755", pathWithName)
		return nil, err
	}

	opts := badger.DefaultOptions(pathWithName)
	opts.SyncWrites = false
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		err = fmt.Errorf("can't open badger: path=%s, err=%v", pathWithName, err)
		log.Errorf("%v", err)
		return nil, err
	}

	cache, _ := lru.NewARC(cacheSize)
	return &BadgerBackend{
		log:   log,
		name:  name,
		cache: cache,
		db:    db,
	}, nil
}

func (b *BadgerBackend) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, tpstcmm.ErrKeyEmpty
	}
	if val, ok := b.cache.Get(string(key)); ok {
		return tpcmm.BytesCopy(val.([]byte)), nil
	}

	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
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

func (b *BadgerBackend) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, tpstcmm.ErrKeyEmpty
	}
	if b.cache.Contains(string(key)) {
		return true, nil
	}

	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}

	return err == nil, err
}

func (b *BadgerBackend) Set(key, value []byte) error {
	if err := tpstcmm.ValidateKv(key, value); err != nil {
		return err
	}
	b.cache.Remove(string(key))
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func withSync(db *badger.DB, err error) error {
	if err != nil {
		return err
	}
	return db.Sync()
}

func (b *BadgerBackend) SetSync(key, value []byte) error {
	return withSync(b.db, b.Set(key, value))
}

func (b *BadgerBackend) Delete(key []byte) error {
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	b.cache.Remove(string(key))
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *BadgerBackend) Iterator(start, end []byte) (tpstcmm.Iterator, error) {
	txn := b.db.NewTransaction(false)
	source := txn.NewIterator(badger.DefaultIteratorOptions)
	if start == nil {
		source.Rewind()
	} else {
		source.Seek(start)
	}

	return &badgerIterator{txn: txn, source: source, start: start, end: end}, nil
}

func (b *BadgerBackend) NewBatch() tpstcmm.Batch {
	return &badgerBatch{backend: b, wb: b.db.NewWriteBatch()}
}

func (b *BadgerBackend) Close() error {
	b.cache.Purge()
	return b.db.Close()
}

type badgerIterator struct {
	txn        *badger.Txn
	source     *badger.Iterator
	start, end []byte
	err        error
}

func (it *badgerIterator) Domain() ([]byte, []byte) {
	return it.start, it.end
}

func (it *badgerIterator) Valid() bool {
	if !it.source.Valid() {
		return false
	}
	return tpstcmm.InDomain(it.source.Item().Key(), it.start, it.end)
}

func (it *badgerIterator) Next() {
	if !it.Valid() {
		panic("iterator is invalid")
	}
	it.source.Next()
}

func (it *badgerIterator) Key() []byte {
	if !it.Valid() {
		panic("iterator is invalid")
	}
	return it.source.Item().KeyCopy(nil)
}

func (it *badgerIterator) Value() []byte {
	if !it.Valid() {
		panic("iterator is invalid")
	}
	val, err := it.source.Item().ValueCopy(nil)
	if err != nil {
		it.err = err
	}
	return val
}

func (it *badgerIterator) Error() error {
	return it.err
}

func (it *badgerIterator) Close() error {
	it.source.Close()
	it.txn.Discard()
	return nil
}

type badgerBatch struct {
	backend *BadgerBackend
	wb      *badger.WriteBatch
	closed  bool
}

func (bb *badgerBatch) Set(key, value []byte) error {
	if bb.closed {
		return tpstcmm.ErrTransactionClosed
	}
	if err := tpstcmm.ValidateKv(key, value); err != nil {
		return err
	}
	bb.backend.cache.Remove(string(key))
	return bb.wb.Set(tpcmm.BytesCopy(key), tpcmm.BytesCopy(value))
}

func (bb *badgerBatch) Delete(key []byte) error {
	if bb.closed {
		return tpstcmm.ErrTransactionClosed
	}
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	bb.backend.cache.Remove(string(key))
	return bb.wb.Delete(tpcmm.BytesCopy(key))
}

func (bb *badgerBatch) Write() error {
	if bb.closed {
		return tpstcmm.ErrTransactionClosed
	}
	bb.closed = true
	return bb.wb.Flush()
}

func (bb *badgerBatch) WriteSync() error {
	return withSync(bb.backend.db, bb.Write())
}

func (bb *badgerBatch) Close() error {
	if !bb.closed {
		bb.closed = true
		bb.wb.Cancel()
	}
	return nil
}
