package facilitator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mrz1836/opentab/internal/chain"
	"github.com/mrz1836/opentab/internal/store"
	taberr "github.com/mrz1836/opentab/pkg/errors"
)

// Ledger is the debit engine. It owns both views of ledger state: the UTXO
// namespace (source of truth) and the per-payer address index (advisory,
// reconstructible). Debits against one UTXO id are mutually exclusive;
// distinct ids proceed concurrently.
type Ledger struct {
	db            store.DB
	validator     chain.Validator
	serverAddress string
	locks         *keyedMutex
	logger        hclog.Logger
	now           func() time.Time
}

// LedgerOptions configures a Ledger.
type LedgerOptions struct {
	DB            store.DB
	Validator     chain.Validator
	ServerAddress string
	Logger        hclog.Logger

	// Now overrides the clock; tests use it for deterministic timestamps.
	Now func() time.Time
}

// NewLedger creates the debit engine.
func NewLedger(opts LedgerOptions) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		db:            opts.DB,
		validator:     opts.Validator,
		serverAddress: opts.ServerAddress,
		locks:         newKeyedMutex(),
		logger:        logger.Named("ledger"),
		now:           now,
	}
}

// DebitResult is the outcome of a single debit.
type DebitResult struct {
	Valid         bool
	InvalidReason string

	// RemainingBalanceSat is the balance after a valid debit. For
	// insufficient_utxo_balance it carries the balance that was available.
	RemainingBalanceSat Satoshis

	// Entry is the ledger entry after a valid debit. When the debit drove
	// the balance to zero the entry is already deleted from both stores.
	Entry *LedgerEntry
}

func invalidDebit(reason string) *DebitResult {
	return &DebitResult{InvalidReason: reason}
}

// Debit charges cost against the UTXO the authorization references. For
// check-my-tab authorizations the caller passes the selected entry. A nil
// error with an invalid result is a verdict; a non-nil error means the
// ledger itself could not be consulted.
func (l *Ledger) Debit(ctx context.Context, auth *Authorization, cost Satoshis, selected *LedgerEntry) (*DebitResult, error) {
	if auth == nil {
		return invalidDebit(taberr.ReasonMissingAuthorization), nil
	}

	ref := auth.Ref()
	outpoint := ref.Outpoint
	if ref.AnyForAddress {
		if selected == nil {
			return invalidDebit(taberr.ReasonNoUTXOForAddress), nil
		}
		outpoint = chain.Outpoint{TxID: selected.TxID, Vout: selected.Vout}
	}

	utxoID := outpoint.String()
	unlock := l.locks.Lock(utxoID)
	defer unlock()

	entry, found, err := l.getEntry(utxoID)
	if err != nil {
		return nil, err
	}

	if !found {
		if ref.AnyForAddress {
			// Selection happened outside this lock, so the selected copy
			// may be stale: a concurrent debit can have drained and
			// deleted the entry in the meantime. Re-read the index under
			// the lock and repair only while it still lists this UTXO;
			// a drained entry is gone from both stores and must stay gone.
			fresh := l.indexedEntry(auth.From, utxoID)
			if fresh == nil {
				return invalidDebit(taberr.ReasonNoUTXOForAddress), nil
			}
			l.logger.Warn("repairing ledger entry from address index", "utxo_id", utxoID)
			if err := l.putEntry(fresh); err != nil {
				return nil, err
			}
			entry = fresh
		} else {
			return l.createAndDebit(ctx, auth, outpoint, cost)
		}
	}

	return l.debitExisting(entry, cost)
}

// createAndDebit validates the outpoint on chain and opens a ledger entry
// already charged with the first debit.
func (l *Ledger) createAndDebit(ctx context.Context, auth *Authorization, outpoint chain.Outpoint, cost Satoshis) (*DebitResult, error) {
	validation, err := l.validator.ValidateUTXO(ctx, outpoint)
	if err != nil {
		l.logger.Error("chain validation failed", "utxo_id", outpoint.String(), "error", err)
		return invalidDebit(taberr.ReasonUTXOValidationError), nil
	}
	if !validation.IsValid {
		reason := validation.InvalidReason
		if reason == "" {
			reason = taberr.ReasonUTXONotFound
		}
		return invalidDebit(reason), nil
	}

	amount := Satoshis(validation.AmountSat)
	remaining := amount - cost
	if remaining < 0 {
		return &DebitResult{
			InvalidReason:       taberr.ReasonInsufficientUTXOBalance,
			RemainingBalanceSat: amount,
		}, nil
	}

	now := l.now().UTC().Format(time.RFC3339)
	entry := &LedgerEntry{
		UtxoID:              outpoint.String(),
		TxID:                outpoint.TxID,
		Vout:                outpoint.Vout,
		PayerAddress:        auth.From,
		ReceiverAddress:     validation.ReceiverAddress,
		TransactionValueSat: amount,
		RemainingBalanceSat: remaining,
		TotalDebitedSat:     cost,
		FirstSeen:           now,
		LastUpdated:         now,
		LastChecked:         now,
	}

	if err := l.putEntry(entry); err != nil {
		return nil, err
	}
	l.upsertAddressEntry(entry)

	if remaining == 0 {
		l.removeEntry(entry)
	}

	l.logger.Debug("opened ledger entry",
		"utxo_id", entry.UtxoID, "payer", entry.PayerAddress,
		"value_sat", entry.TransactionValueSat, "debited_sat", cost)

	return &DebitResult{Valid: true, RemainingBalanceSat: remaining, Entry: entry}, nil
}

// debitExisting charges cost against an open entry, deleting it when drained.
func (l *Ledger) debitExisting(entry *LedgerEntry, cost Satoshis) (*DebitResult, error) {
	newRemaining := entry.RemainingBalanceSat - cost
	if newRemaining < 0 {
		return &DebitResult{
			InvalidReason:       taberr.ReasonInsufficientUTXOBalance,
			RemainingBalanceSat: entry.RemainingBalanceSat,
		}, nil
	}

	now := l.now().UTC().Format(time.RFC3339)
	updated := *entry
	updated.RemainingBalanceSat = newRemaining
	updated.TotalDebitedSat += cost
	updated.LastUpdated = now
	updated.LastChecked = now

	if err := l.putEntry(&updated); err != nil {
		return nil, err
	}
	l.updateAddressEntry(&updated)

	if newRemaining == 0 {
		l.removeEntry(&updated)
	}

	l.logger.Debug("debited ledger entry",
		"utxo_id", updated.UtxoID, "debited_sat", cost, "remaining_sat", newRemaining)

	return &DebitResult{Valid: true, RemainingBalanceSat: newRemaining, Entry: &updated}, nil
}

// removeEntry deletes a drained entry from both stores. Address-index
// failures are logged and swallowed; the UTXO namespace is authoritative.
func (l *Ledger) removeEntry(entry *LedgerEntry) {
	if err := l.db.Delete(store.NamespaceUTXO, entry.UtxoID); err != nil {
		l.logger.Error("deleting drained ledger entry", "utxo_id", entry.UtxoID, "error", err)
	}
	l.removeAddressEntry(entry.PayerAddress, entry.UtxoID)
}

// ---- UTXO namespace accessors -------------------------------------------

func (l *Ledger) getEntry(utxoID string) (*LedgerEntry, bool, error) {
	data, err := l.db.Get(store.NamespaceUTXO, utxoID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading ledger entry %s: %w", utxoID, err)
	}
	entry, err := decodeLedgerEntry(data)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

func (l *Ledger) putEntry(entry *LedgerEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding ledger entry: %w", err)
	}
	if err := l.db.Put(store.NamespaceUTXO, entry.UtxoID, data); err != nil {
		return fmt.Errorf("writing ledger entry %s: %w", entry.UtxoID, err)
	}
	return nil
}

// ---- Address index -------------------------------------------------------
//
// Every index mutation follows the corresponding UTXO-namespace write and
// never fails the debit: the index is reconstructible (RebuildAddressIndex)
// and advisory.

func (l *Ledger) addressEntries(payer string) []*LedgerEntry {
	data, err := l.db.Get(store.NamespaceAddress, payer)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		l.logger.Error("reading address index", "payer", payer, "error", err)
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not a list; treat as empty.
		l.logger.Warn("address index record is not a list", "payer", payer)
		return nil
	}

	entries := make([]*LedgerEntry, 0, len(raw))
	for _, item := range raw {
		entry, err := decodeLedgerEntry(item)
		if err != nil {
			l.logger.Warn("skipping undecodable address index item", "payer", payer, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// indexedEntry returns the payer's index record for utxoID, or nil when the
// index no longer lists it.
func (l *Ledger) indexedEntry(payer, utxoID string) *LedgerEntry {
	for _, e := range l.addressEntries(payer) {
		if e.UtxoID == utxoID {
			return e
		}
	}
	return nil
}

func (l *Ledger) writeAddressEntries(payer string, entries []*LedgerEntry) {
	if len(entries) == 0 {
		if err := l.db.Delete(store.NamespaceAddress, payer); err != nil {
			l.logger.Error("deleting empty address index", "payer", payer, "error", err)
		}
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		l.logger.Error("encoding address index", "payer", payer, "error", err)
		return
	}
	if err := l.db.Put(store.NamespaceAddress, payer, data); err != nil {
		l.logger.Error("writing address index", "payer", payer, "error", err)
	}
}

func (l *Ledger) upsertAddressEntry(entry *LedgerEntry) {
	entries := l.addressEntries(entry.PayerAddress)
	for i, e := range entries {
		if e.UtxoID == entry.UtxoID {
			entries[i] = entry
			l.writeAddressEntries(entry.PayerAddress, entries)
			return
		}
	}
	l.writeAddressEntries(entry.PayerAddress, append(entries, entry))
}

func (l *Ledger) updateAddressEntry(entry *LedgerEntry) {
	l.upsertAddressEntry(entry)
}

func (l *Ledger) removeAddressEntry(payer, utxoID string) {
	entries := l.addressEntries(payer)
	kept := entries[:0]
	for _, e := range entries {
		if e.UtxoID != utxoID {
			kept = append(kept, e)
		}
	}
	l.writeAddressEntries(payer, kept)
}
