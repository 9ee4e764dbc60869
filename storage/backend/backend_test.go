package backend

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TopiaNetwork/dacore/configuration"
	tplog "github.com/TopiaNetwork/dacore/log"
	tplogcmm "github.com/TopiaNetwork/dacore/log/common"
	tpstcmm "github.com/TopiaNetwork/dacore/storage/backend/common"
)

var allBackends = []configuration.BackendType{
	configuration.BackendType_Memdb,
	configuration.BackendType_Leveldb,
	configuration.BackendType_Badger,
}

func newTestBackend(t *testing.T, backendType configuration.BackendType) Backend {
	log := tplog.CreateWriterLogger(tplogcmm.InfoLevel, io.Discard)
	b, err := NewBackend(backendType, log, t.TempDir(), "test", 64)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func collect(t *testing.T, it tpstcmm.Iterator) []string {
	defer it.Close()
	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Error())
	return keys
}

func TestBackendGetSetDelete(t *testing.T) {
	for _, bt := range allBackends {
		t.Run(bt.String(), func(t *testing.T) {
			b := newTestBackend(t, bt)

			val, err := b.Get([]byte("missing"))
			require.NoError(t, err)
			assert.Nil(t, val)

			require.NoError(t, b.Set([]byte("k1"), []byte("v1")))
			val, err = b.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), val)

			// cached value must not alias the returned slice
			val[0] = 'x'
			val, err = b.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), val)

			require.NoError(t, b.SetSync([]byte("k1"), []byte("v2")))
			val, err = b.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), val)

			has, err := b.Has([]byte("k1"))
			require.NoError(t, err)
			assert.True(t, has)

			require.NoError(t, b.Delete([]byte("k1")))
			has, err = b.Has([]byte("k1"))
			require.NoError(t, err)
			assert.False(t, has)

			assert.ErrorIs(t, b.Set(nil, []byte("v")), tpstcmm.ErrKeyEmpty)
			assert.ErrorIs(t, b.Set([]byte("k"), nil), tpstcmm.ErrValueNil)
		})
	}
}

func TestBackendIterator(t *testing.T) {
	for _, bt := range allBackends {
		t.Run(bt.String(), func(t *testing.T) {
			b := newTestBackend(t, bt)
			for _, k := range []string{"a/1", "a/2", "a/3", "b/1"} {
				require.NoError(t, b.Set([]byte(k), []byte(k)))
			}

			it, err := b.Iterator(nil, nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"a/1", "a/2", "a/3", "b/1"}, collect(t, it))

			it, err = b.Iterator([]byte("a/"), tpstcmm.PrefixEnd([]byte("a/")))
			require.NoError(t, err)
			assert.Equal(t, []string{"a/1", "a/2", "a/3"}, collect(t, it))

			it, err = b.Iterator([]byte("a/2"), []byte("b/1"))
			require.NoError(t, err)
			start, end := it.Domain()
			assert.Equal(t, []byte("a/2"), start)
			assert.Equal(t, []byte("b/1"), end)
			assert.Equal(t, []string{"a/2", "a/3"}, collect(t, it))
		})
	}
}

func TestBackendBatch(t *testing.T) {
	for _, bt := range allBackends {
		t.Run(bt.String(), func(t *testing.T) {
			b := newTestBackend(t, bt)
			require.NoError(t, b.Set([]byte("old"), []byte("x")))

			batch := b.NewBatch()
			require.NoError(t, batch.Set([]byte("k1"), []byte("v1")))
			require.NoError(t, batch.Set([]byte("k2"), []byte("v2")))
			require.NoError(t, batch.Delete([]byte("old")))

			val, err := b.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Nil(t, val)

			require.NoError(t, batch.Write())
			assert.ErrorIs(t, batch.Set([]byte("k3"), []byte("v3")), tpstcmm.ErrTransactionClosed)
			require.NoError(t, batch.Close())

			val, err = b.Get([]byte("k2"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), val)
			has, err := b.Has([]byte("old"))
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestBackendBatchClose(t *testing.T) {
	for _, bt := range allBackends {
		t.Run(bt.String(), func(t *testing.T) {
			b := newTestBackend(t, bt)

			batch := b.NewBatch()
			require.NoError(t, batch.Set([]byte("k1"), []byte("v1")))
			require.NoError(t, batch.Close())
			require.NoError(t, batch.Close())
			assert.ErrorIs(t, batch.Write(), tpstcmm.ErrTransactionClosed)

			val, err := b.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Nil(t, val)
		})
	}
}

func TestNewBackendInvalidType(t *testing.T) {
	log := tplog.CreateWriterLogger(tplogcmm.InfoLevel, io.Discard)
	_, err := NewBackend(configuration.BackendType_Unknown, log, t.TempDir(), "test", 0)
	assert.Error(t, err)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("b"), tpstcmm.PrefixEnd([]byte("a")))
	assert.Equal(t, []byte{0x01}, tpstcmm.PrefixEnd([]byte{0x00, 0xff}))
	assert.Nil(t, tpstcmm.PrefixEnd([]byte{0xff, 0xff}))
}

func TestBackendPrefixed(t *testing.T) {
	b := newTestBackend(t, configuration.BackendType_Memdb)
	require.NoError(t, b.Set([]byte("other"), []byte("x")))
	require.NoError(t, b.Set([]byte("p/z"), []byte("x")))

	p := NewBackendPrefixed([]byte("p/"), b)
	require.NoError(t, p.Set([]byte("a"), []byte("1")))
	batch := p.NewBatch()
	require.NoError(t, batch.Set([]byte("b"), []byte("2")))
	require.NoError(t, batch.Write())

	val, err := b.Get([]byte("p/a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	val, err = p.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), val)

	it, err := p.Iterator(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "z"}, collect(t, it))

	it, err = p.Iterator([]byte("a"), []byte("z"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, collect(t, it))

	require.NoError(t, p.Close())
	val, err = b.Get([]byte("other"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), val)
}
