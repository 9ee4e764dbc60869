package memdb

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	tpcmm "github.com/TopiaNetwork/dacore/common"
	tplog "github.com/TopiaNetwork/dacore/log"
	tpstcmm "github.com/TopiaNetwork/dacore/storage/backend/common"
)

const (
	// The approximate number of items and children per B-tree node.
	bTreeDegree = 32
)

type item struct {
	key   []byte
	value []byte
}

func (i *item) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(*item).key) < 0
}

// MemBackend keeps everything in an in-process B-tree. Nothing survives Close.
type MemBackend struct {
	log    tplog.Logger
	name   string
	mtx    sync.RWMutex
	btree  *btree.BTree
	closed bool
}

func NewMemBackend(log tplog.Logger, name string) *MemBackend {
	return &MemBackend{
		log:   log,
		name:  name,
		btree: btree.New(bTreeDegree),
	}
}

func (b *MemBackend) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, tpstcmm.ErrKeyEmpty
	}
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	if b.closed {
		return nil, tpstcmm.ErrBackendClosed
	}
	found := b.btree.Get(&item{key: key})
	if found == nil {
		return nil, nil
	}

	return tpcmm.BytesCopy(found.(*item).value), nil
}

func (b *MemBackend) Has(key []byte) (bool, error) {
	val, err := b.Get(key)
	return val != nil, err
}

func (b *MemBackend) set(key, value []byte) {
	b.btree.ReplaceOrInsert(&item{key: tpcmm.BytesCopy(key), value: tpcmm.BytesCopy(value)})
}

func (b *MemBackend) Set(key, value []byte) error {
	if err := tpstcmm.ValidateKv(key, value); err != nil {
		return err
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.closed {
		return tpstcmm.ErrBackendClosed
	}
	b.set(key, value)

	return nil
}

func (b *MemBackend) SetSync(key, value []byte) error {
	return b.Set(key, value)
}

func (b *MemBackend) Delete(key []byte) error {
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.closed {
		return tpstcmm.ErrBackendClosed
	}
	b.btree.Delete(&item{key: key})

	return nil
}

// Iterator iterates over a snapshot of the range taken at creation.
func (b *MemBackend) Iterator(start, end []byte) (tpstcmm.Iterator, error) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	if b.closed {
		return nil, tpstcmm.ErrBackendClosed
	}

	var items []*item
	collect := func(i btree.Item) bool {
		it := i.(*item)
		if !tpstcmm.InDomain(it.key, start, end) {
			return false
		}
		items = append(items, &item{key: tpcmm.BytesCopy(it.key), value: tpcmm.BytesCopy(it.value)})
		return true
	}
	if start == nil {
		b.btree.Ascend(collect)
	} else {
		b.btree.AscendGreaterOrEqual(&item{key: start}, collect)
	}

	return &memIterator{start: start, end: end, items: items}, nil
}

func (b *MemBackend) NewBatch() tpstcmm.Batch {
	return &memBatch{backend: b}
}

func (b *MemBackend) Close() error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	b.closed = true
	b.btree = btree.New(bTreeDegree)

	return nil
}

type memIterator struct {
	start, end []byte
	items      []*item
	pos        int
}

func (it *memIterator) Domain() ([]byte, []byte) {
	return it.start, it.end
}

func (it *memIterator) Valid() bool {
	return it.pos < len(it.items)
}

func (it *memIterator) Next() {
	if !it.Valid() {
		panic("iterator is invalid")
	}
	it.pos++
}

func (it *memIterator) Key() []byte {
	if !it.Valid() {
		panic("iterator is invalid")
	}
	return it.items[it.pos].key
}

func (it *memIterator) Value() []byte {
	if !it.Valid() {
		panic("iterator is invalid")
	}
	return it.items[it.pos].value
}

func (it *memIterator) Error() error {
	return nil
}

func (it *memIterator) Close() error {
	it.items = nil
	return nil
}

type memOp struct {
	delete bool
	key    []byte
	value  []byte
}

type memBatch struct {
	backend *MemBackend
	ops     []memOp
	closed  bool
}

func (mb *memBatch) Set(key, value []byte) error {
	if mb.closed {
		return tpstcmm.ErrTransactionClosed
	}
	if err := tpstcmm.ValidateKv(key, value); err != nil {
		return err
	}
	mb.ops = append(mb.ops, memOp{key: tpcmm.BytesCopy(key), value: tpcmm.BytesCopy(value)})
	return nil
}

func (mb *memBatch) Delete(key []byte) error {
	if mb.closed {
		return tpstcmm.ErrTransactionClosed
	}
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	mb.ops = append(mb.ops, memOp{delete: true, key: tpcmm.BytesCopy(key)})
	return nil
}

func (mb *memBatch) Write() error {
	if mb.closed {
		return tpstcmm.ErrTransactionClosed
	}
	b := mb.backend
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if b.closed {
		return tpstcmm.ErrBackendClosed
	}
	for _, op := range mb.ops {
		if op.delete {
			b.btree.Delete(&item{key: op.key})
		} else {
			b.set(op.key, op.value)
		}
	}

	return mb.Close()
}

func (mb *memBatch) WriteSync() error {
	return mb.Write()
}

func (mb *memBatch) Close() error {
	mb.closed = true
	mb.ops = nil
	return nil
}
