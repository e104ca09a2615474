package facilitator

import (
	"encoding/json"

	"github.com/mrz1836/opentab/internal/store"
)

// RebuildAddressIndex drops every address-index record and reconstructs the
// index from the UTXO namespace. The UTXO namespace is the source of truth;
// the index exists only to serve check-my-tab selection, so losing it between
// runs is recoverable by calling this at startup.
func (l *Ledger) RebuildAddressIndex() error {
	var stale []string
	if err := l.db.Iterate(store.NamespaceAddress, func(key string, _ []byte) bool {
		stale = append(stale, key)
		return true
	}); err != nil {
		return err
	}
	for _, payer := range stale {
		if err := l.db.Delete(store.NamespaceAddress, payer); err != nil {
			return err
		}
	}

	byPayer := make(map[string][]*LedgerEntry)
	var decodeFailures int
	if err := l.db.Iterate(store.NamespaceUTXO, func(key string, value []byte) bool {
		entry, err := decodeLedgerEntry(value)
		if err != nil {
			decodeFailures++
			l.logger.Warn("skipping undecodable ledger entry during rebuild",
				"utxo_id", key, "error", err)
			return true
		}
		byPayer[entry.PayerAddress] = append(byPayer[entry.PayerAddress], entry)
		return true
	}); err != nil {
		return err
	}

	for payer, entries := range byPayer {
		data, err := json.Marshal(entries)
		if err != nil {
			return err
		}
		if err := l.db.Put(store.NamespaceAddress, payer, data); err != nil {
			return err
		}
	}

	l.logger.Info("rebuilt address index",
		"payers", len(byPayer), "decode_failures", decodeFailures)
	return nil
}
