// Package chain defines the interface to the Bitcoin Cash node the
// facilitator validates funding UTXOs against and broadcasts settlements
// through, plus common client hardening utilities.
package chain

import (
	"context"
	"fmt"
)

// Outpoint identifies a transaction output on chain.
type Outpoint struct {
	TxID string
	Vout uint32
}

// String returns the ledger key form "txid:vout".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Vout)
}

// UTXOValidation is the chain's view of a funding output. When IsValid is
// false, InvalidReason carries a reason code from the closed set (for
// example "utxo_not_found" or "invalid_receiver_address").
type UTXOValidation struct {
	IsValid         bool
	InvalidReason   string
	AmountSat       int64
	ReceiverAddress string
}

// Output is a single recipient of a broadcast transaction.
type Output struct {
	Address   string
	AmountSat int64
}

// Validator checks that an outpoint exists, is unspent, and pays the
// facilitator's address.
type Validator interface {
	// ValidateUTXO returns the chain's view of the outpoint. A non-nil
	// error means the chain could not be consulted; a validation verdict,
	// including a negative one, comes back as a UTXOValidation.
	ValidateUTXO(ctx context.Context, out Outpoint) (*UTXOValidation, error)
}

// BalanceReader reports the spendable satoshi balance of an address.
type BalanceReader interface {
	GetBalance(ctx context.Context, address string) (int64, error)
}

// Broadcaster builds, signs and broadcasts a transaction paying the given
// outputs from the wallet held by the node endpoint. Broadcasts are never
// retried; a failure surfaces directly.
type Broadcaster interface {
	SendOutputs(ctx context.Context, outputs []Output) (txid string, err error)
}

// Client combines every node operation the facilitator uses.
type Client interface {
	Validator
	BalanceReader
	Broadcaster
}
