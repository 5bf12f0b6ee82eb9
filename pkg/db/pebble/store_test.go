package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/tribunal/pkg/db"
)

func TestKVStore(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "put_get_delete", fn: testPutGetDelete},
		{name: "closed_store", fn: testClosedStore},
		{name: "batch_atomic_commit", fn: testBatchAtomicCommit},
		{name: "batch_discarded_on_close", fn: testBatchDiscardedOnClose},
		{name: "batch_after_store_close", fn: testBatchAfterStoreClose},
		{name: "prefix_iteration", fn: testPrefixIteration},
		{name: "iterator_exhaustion", fn: testIteratorExhaustion},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewKVStore()
			require.NoError(t, err)
			defer store.Close() //nolint:errcheck

			tc.fn(t, store)
		})
	}
}

func testPutGetDelete(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("subject"), []byte("valid")))

	got, err := store.Get([]byte("subject"))
	require.NoError(t, err)
	assert.Equal(t, []byte("valid"), got)

	require.NoError(t, store.Delete([]byte("subject")))
	_, err = store.Get([]byte("subject"))
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error
	assert.NoError(t, store.Delete([]byte("missing")))
}

func testClosedStore(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Close())

	_, err := store.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Put([]byte("k"), []byte("v")), ErrClosed)
	assert.ErrorIs(t, store.Delete([]byte("k")), ErrClosed)
	_, err = store.NewIterator(nil, nil)
	assert.ErrorIs(t, err, ErrClosed)

	assert.NoError(t, store.Close())
}

func testBatchAtomicCommit(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("pool"), []byte("100")))

	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("escrow"), []byte("40")))
	require.NoError(t, batch.Put([]byte("pool"), []byte("60")))
	require.NoError(t, batch.Delete([]byte("record")))
	assert.Equal(t, 3, batch.Len())

	// Nothing is visible before commit
	got, err := store.Get([]byte("pool"))
	require.NoError(t, err)
	assert.Equal(t, []byte("100"), got)

	require.NoError(t, batch.Commit())

	got, err = store.Get([]byte("pool"))
	require.NoError(t, err)
	assert.Equal(t, []byte("60"), got)
	got, err = store.Get([]byte("escrow"))
	require.NoError(t, err)
	assert.Equal(t, []byte("40"), got)

	assert.ErrorIs(t, batch.Put([]byte("x"), []byte("y")), ErrBatchDone)
	assert.ErrorIs(t, batch.Delete([]byte("x")), ErrBatchDone)
	assert.ErrorIs(t, batch.Commit(), ErrBatchDone)
	assert.NoError(t, batch.Close())
}

func testBatchDiscardedOnClose(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("k"), []byte("v")))
	require.NoError(t, batch.Close())
	assert.NoError(t, batch.Close())

	_, err := store.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func testBatchAfterStoreClose(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("k"), []byte("v")))
	require.NoError(t, store.Close())

	assert.ErrorIs(t, batch.Commit(), ErrClosed)
	assert.NoError(t, batch.Close())
}

func testPrefixIteration(t *testing.T, store db.KVStore) {
	for _, k := range []string{"a1", "b1", "b2", "b3", "c1"} {
		require.NoError(t, store.Put([]byte(k), []byte("v-"+k)))
	}

	iter, err := store.NewIterator([]byte("b"), db.PrefixEnd([]byte("b")))
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	var keys []string
	for iter.Next() {
		v, err := iter.Value()
		require.NoError(t, err)
		assert.Equal(t, "v-"+string(iter.Key()), string(v))
		keys = append(keys, string(iter.Key()))
	}
	assert.Equal(t, []string{"b1", "b2", "b3"}, keys)
}

func testIteratorExhaustion(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("only"), []byte("one")))

	iter, err := store.NewIterator(nil, nil)
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	assert.False(t, iter.Valid())
	assert.True(t, iter.Next())
	assert.True(t, iter.Valid())
	assert.False(t, iter.Next())
	assert.False(t, iter.Valid())
	// An exhausted iterator must not wrap around to the first key
	assert.False(t, iter.Next())

	_, err = iter.Value()
	assert.ErrorIs(t, err, ErrIteratorInvalid)
}

func TestKVStore_OnDiskReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewKVStore(WithPath(dir), WithCacheSize(8), WithoutSync())
	require.NoError(t, err)
	require.NoError(t, store.Put([]byte("round"), []byte{3}))
	require.NoError(t, store.Close())

	reopened, err := NewKVStore(WithPath(dir))
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	got, err := reopened.Get([]byte("round"))
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, got)
}
