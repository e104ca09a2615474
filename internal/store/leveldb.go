package store

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a DB backed by an on-disk goleveldb database. Namespaces map to
// key prefixes within a single keyspace.
type LevelDB struct {
	db *leveldb.DB
}

// compile-time interface check
var _ DB = (*LevelDB)(nil)

// OpenLevelDB opens (or creates) the ledger database at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening ledger db at %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

// Get returns the value for key in namespace, or ErrNotFound.
func (l *LevelDB) Get(namespace, key string) ([]byte, error) {
	value, err := l.db.Get(nsKey(namespace, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger db get: %w", err)
	}
	return value, nil
}

// Put stores value under key in namespace.
func (l *LevelDB) Put(namespace, key string, value []byte) error {
	if err := l.db.Put(nsKey(namespace, key), value, nil); err != nil {
		return fmt.Errorf("ledger db put: %w", err)
	}
	return nil
}

// Delete removes key from namespace.
func (l *LevelDB) Delete(namespace, key string) error {
	if err := l.db.Delete(nsKey(namespace, key), nil); err != nil {
		return fmt.Errorf("ledger db delete: %w", err)
	}
	return nil
}

// Iterate walks all entries of a namespace.
func (l *LevelDB) Iterate(namespace string, fn func(key string, value []byte) bool) error {
	prefix := nsPrefix(namespace)
	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		key := string(iter.Key()[len(prefix):])
		value := append([]byte(nil), iter.Value()...)
		if !fn(key, value) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("ledger db iterate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}
