package backend

import (
	tpcmm "github.com/TopiaNetwork/dacore/common"
	tpstcmm "github.com/TopiaNetwork/dacore/storage/backend/common"
)

func prefixed(prefix, key []byte) []byte {
	return append(tpcmm.BytesCopy(prefix), key...)
}

type prefixIterator struct {
	prefix     []byte
	start, end []byte
	source     tpstcmm.Iterator
}

func (itr *prefixIterator) Domain() ([]byte, []byte) {
	return itr.start, itr.end
}

func (itr *prefixIterator) Valid() bool {
	return itr.source.Valid()
}

func (itr *prefixIterator) Next() {
	itr.source.Next()
}

func (itr *prefixIterator) Key() []byte {
	return itr.source.Key()[len(itr.prefix):]
}

func (itr *prefixIterator) Value() []byte {
	return itr.source.Value()
}

func (itr *prefixIterator) Error() error {
	return itr.source.Error()
}

func (itr *prefixIterator) Close() error {
	return itr.source.Close()
}

type prefixBatch struct {
	prefix []byte
	source tpstcmm.Batch
}

func (pb *prefixBatch) Set(key, value []byte) error {
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	return pb.source.Set(prefixed(pb.prefix, key), value)
}

func (pb *prefixBatch) Delete(key []byte) error {
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	return pb.source.Delete(prefixed(pb.prefix, key))
}

func (pb *prefixBatch) Write() error {
	return pb.source.Write()
}

func (pb *prefixBatch) WriteSync() error {
	return pb.source.WriteSync()
}

func (pb *prefixBatch) Close() error {
	return pb.source.Close()
}

// BackendPrefixed scopes every key of the wrapped backend under prefix. Closing
// it does not close the wrapped backend.
type BackendPrefixed struct {
	prefix  []byte
	backend Backend
}

func NewBackendPrefixed(prefix []byte, backend Backend) Backend {
	return &BackendPrefixed{
		prefix:  tpcmm.BytesCopy(prefix),
		backend: backend,
	}
}

func (b *BackendPrefixed) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, tpstcmm.ErrKeyEmpty
	}
	return b.backend.Get(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Has(key []byte) (bool, error) {
	if len(key) == 0 {
		return false, tpstcmm.ErrKeyEmpty
	}
	return b.backend.Has(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Set(key []byte, value []byte) error {
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	return b.backend.Set(prefixed(b.prefix, key), value)
}

func (b *BackendPrefixed) SetSync(key []byte, value []byte) error {
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	return b.backend.SetSync(prefixed(b.prefix, key), value)
}

func (b *BackendPrefixed) Delete(key []byte) error {
	if len(key) == 0 {
		return tpstcmm.ErrKeyEmpty
	}
	return b.backend.Delete(prefixed(b.prefix, key))
}

func (b *BackendPrefixed) Iterator(start, end []byte) (tpstcmm.Iterator, error) {
	pStart := prefixed(b.prefix, start)
	var pEnd []byte
	if end == nil {
		pEnd = tpstcmm.PrefixEnd(b.prefix)
	} else {
		pEnd = prefixed(b.prefix, end)
	}

	source, err := b.backend.Iterator(pStart, pEnd)
	if err != nil {
		return nil, err
	}

	return &prefixIterator{prefix: b.prefix, start: start, end: end, source: source}, nil
}

func (b *BackendPrefixed) NewBatch() tpstcmm.Batch {
	return &prefixBatch{prefix: b.prefix, source: b.backend.NewBatch()}
}

func (b *BackendPrefixed) Close() error {
	return nil
}
