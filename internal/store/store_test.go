package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/opentab/internal/store"
)

// implementations returns a fresh instance of every DB implementation.
func implementations(t *testing.T) map[string]store.DB {
	t.Helper()

	ldb, err := store.OpenLevelDB(filepath.Join(t.TempDir(), "ledger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ldb.Close() })

	return map[string]store.DB{
		"leveldb": ldb,
		"memdb":   store.NewMemDB(),
	}
}

func TestDB_PutGetDelete(t *testing.T) {
	for name, db := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(store.NamespaceUTXO, "tx1:0", []byte(`{"a":1}`)))

			got, err := db.Get(store.NamespaceUTXO, "tx1:0")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"a":1}`), got)

			require.NoError(t, db.Delete(store.NamespaceUTXO, "tx1:0"))
			_, err = db.Get(store.NamespaceUTXO, "tx1:0")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestDB_NamespacesAreIsolated(t *testing.T) {
	for name, db := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(store.NamespaceUTXO, "key", []byte("utxo")))
			require.NoError(t, db.Put(store.NamespaceAddress, "key", []byte("addr")))

			got, err := db.Get(store.NamespaceUTXO, "key")
			require.NoError(t, err)
			assert.Equal(t, []byte("utxo"), got)

			got, err = db.Get(store.NamespaceAddress, "key")
			require.NoError(t, err)
			assert.Equal(t, []byte("addr"), got)

			require.NoError(t, db.Delete(store.NamespaceUTXO, "key"))
			_, err = db.Get(store.NamespaceAddress, "key")
			assert.NoError(t, err, "deleting in one namespace must not touch the other")
		})
	}
}

func TestDB_GetMissing(t *testing.T) {
	for name, db := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get(store.NamespaceUTXO, "absent")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestDB_DeleteMissingIsNoop(t *testing.T) {
	for name, db := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, db.Delete(store.NamespaceUTXO, "absent"))
		})
	}
}

func TestDB_Overwrite(t *testing.T) {
	for name, db := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(store.NamespaceUTXO, "k", []byte("v1")))
			require.NoError(t, db.Put(store.NamespaceUTXO, "k", []byte("v2")))

			got, err := db.Get(store.NamespaceUTXO, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v2"), got)
		})
	}
}

func TestDB_Iterate(t *testing.T) {
	for name, db := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(store.NamespaceUTXO, "tx1:0", []byte("a")))
			require.NoError(t, db.Put(store.NamespaceUTXO, "tx2:1", []byte("b")))
			require.NoError(t, db.Put(store.NamespaceAddress, "payer", []byte("c")))

			seen := map[string]string{}
			err := db.Iterate(store.NamespaceUTXO, func(key string, value []byte) bool {
				seen[key] = string(value)
				return true
			})
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"tx1:0": "a", "tx2:1": "b"}, seen)
		})
	}
}

func TestDB_IterateEarlyStop(t *testing.T) {
	for name, db := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(store.NamespaceUTXO, "a", []byte("1")))
			require.NoError(t, db.Put(store.NamespaceUTXO, "b", []byte("2")))

			count := 0
			err := db.Iterate(store.NamespaceUTXO, func(string, []byte) bool {
				count++
				return false
			})
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestLevelDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")

	db, err := store.OpenLevelDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Put(store.NamespaceUTXO, "tx1:0", []byte("persisted")))
	require.NoError(t, db.Close())

	db, err = store.OpenLevelDB(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	got, err := db.Get(store.NamespaceUTXO, "tx1:0")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}
