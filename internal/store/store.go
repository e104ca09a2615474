// Package store provides the persistent key-value store backing the payment
// ledger. Records live in two logical namespaces: one keyed by UTXO id and
// one keyed by payer address. Values are opaque JSON blobs; the ledger owns
// their shape.
package store

import "errors"

// Namespaces of the ledger store.
const (
	// NamespaceUTXO holds ledger entries keyed by "txid:vout".
	NamespaceUTXO = "utxo"

	// NamespaceAddress holds per-payer entry lists keyed by payer address.
	// It is a secondary index, reconstructible from NamespaceUTXO.
	NamespaceAddress = "addr"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("store: key not found")

// DB is the contract the ledger engine requires from a store. Each
// operation is atomic per key; cross-key atomicity is not required.
type DB interface {
	// Get returns the value for key in namespace, or ErrNotFound.
	Get(namespace, key string) ([]byte, error)

	// Put stores value under key in namespace, overwriting any prior value.
	Put(namespace, key string, value []byte) error

	// Delete removes key from namespace. Deleting an absent key is a no-op.
	Delete(namespace, key string) error

	// Iterate walks all entries of a namespace in unspecified order. The
	// callback returning false stops the walk.
	Iterate(namespace string, fn func(key string, value []byte) bool) error

	// Close releases the underlying resources.
	Close() error
}

// nsKey builds the physical key for a namespaced entry.
func nsKey(namespace, key string) []byte {
	return []byte(namespace + ":" + key)
}

// nsPrefix is the physical key prefix of a namespace.
func nsPrefix(namespace string) []byte {
	return []byte(namespace + ":")
}
