package facilitator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/opentab/internal/facilitator"
	"github.com/mrz1836/opentab/internal/store"
)

func TestRebuildAddressIndex(t *testing.T) {
	t.Parallel()

	db := store.NewMemDB()
	ledger := newTestLedger(t, db, fundedValidator(testUTXOValue))
	ctx := context.Background()

	// Open tabs on two distinct UTXOs.
	_, err := ledger.Debit(ctx, specificAuth(testTxID, 0, 500), 500, nil)
	require.NoError(t, err)
	_, err = ledger.Debit(ctx, specificAuth(testTxIDAlt, 0, 700), 700, nil)
	require.NoError(t, err)

	// Corrupt the index: drop it entirely.
	require.NoError(t, db.Delete(store.NamespaceAddress, payerAddr))
	assert.Equal(t, 0, db.Len(store.NamespaceAddress))

	require.NoError(t, ledger.RebuildAddressIndex())
	assert.Equal(t, 1, db.Len(store.NamespaceAddress))

	// Selection works again off the rebuilt index.
	entry := ledger.SelectUTXO(payerAddr, serverAddr, 500)
	require.NotNil(t, entry)
}

func TestRebuildAddressIndex_DropsStaleRecords(t *testing.T) {
	t.Parallel()

	db := store.NewMemDB()
	ledger := newTestLedger(t, db, fundedValidator(testUTXOValue))

	// A leftover index record whose payer has no ledger entries.
	require.NoError(t, db.Put(store.NamespaceAddress, "bitcoincash:qghost", []byte(`[]`)))

	require.NoError(t, ledger.RebuildAddressIndex())
	assert.Equal(t, 0, db.Len(store.NamespaceAddress))
}

func TestRebuildAddressIndex_SkipsCorruptEntries(t *testing.T) {
	t.Parallel()

	db := store.NewMemDB()
	ledger := newTestLedger(t, db, fundedValidator(testUTXOValue))

	require.NoError(t, db.Put(store.NamespaceUTXO, "bad:0", []byte(`{not json`)))
	_, err := ledger.Debit(context.Background(), specificAuth(testTxID, 0, 500), 500, nil)
	require.NoError(t, err)

	require.NoError(t, ledger.RebuildAddressIndex())
	assert.Equal(t, 1, db.Len(store.NamespaceAddress))
}

func TestSelectUTXO_FiltersByReceiver(t *testing.T) {
	t.Parallel()

	db := store.NewMemDB()
	ledger := newTestLedger(t, db, fundedValidator(testUTXOValue))

	seedEntries(t, db, &facilitator.LedgerEntry{
		UtxoID: testTxID + ":0", TxID: testTxID, Vout: 0,
		PayerAddress:        payerAddr,
		ReceiverAddress:     "bitcoincash:qsomeoneelse000000000000000000000000000000",
		TransactionValueSat: 2000, RemainingBalanceSat: 2000,
		FirstSeen: "2025-01-01T00:00:00Z",
	})

	assert.Nil(t, ledger.SelectUTXO(payerAddr, serverAddr, 500),
		"tabs paying another receiver are not spendable here")
}
