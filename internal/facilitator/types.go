// Package facilitator implements the payment core: the UTXO-backed debit
// ledger, payment verification, and on-chain settlement.
package facilitator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mrz1836/opentab/internal/chain"
)

// anyTxID is the wire sentinel a payer sends instead of a txid to let the
// facilitator pick a funded UTXO ("check my tab"). It never crosses into the
// ledger engine; see OutpointRef.
const anyTxID = "*"

// Satoshis is an exact satoshi amount. The wire tolerates both JSON numbers
// and strings; responses always use strings so large amounts survive
// JSON-number consumers.
type Satoshis int64

// MarshalJSON encodes the amount as a decimal string.
func (s Satoshis) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(s), 10))
}

// UnmarshalJSON accepts either a JSON integer or a decimal string.
func (s *Satoshis) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid satoshi amount %q", raw)
	}
	*s = Satoshis(value)
	return nil
}

// String returns the decimal form.
func (s Satoshis) String() string {
	return strconv.FormatInt(int64(s), 10)
}

// Authorization is the payer-signed statement funding a call. Field order
// matters: SigningMessage serializes in declaration order and payers sign
// that exact form.
type Authorization struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Value  Satoshis `json:"value"`
	TxID   string   `json:"txid"`
	Vout   *uint32  `json:"vout,omitempty"`
	Amount Satoshis `json:"amount,omitempty"`
}

// OutpointRef is the tagged form of the authorization's UTXO reference:
// either a specific outpoint or "any funded UTXO of mine".
type OutpointRef struct {
	AnyForAddress bool
	Outpoint      chain.Outpoint
}

// Ref returns the tagged outpoint reference.
func (a *Authorization) Ref() OutpointRef {
	if a.TxID == anyTxID {
		return OutpointRef{AnyForAddress: true}
	}
	var vout uint32
	if a.Vout != nil {
		vout = *a.Vout
	}
	return OutpointRef{Outpoint: chain.Outpoint{TxID: a.TxID, Vout: vout}}
}

// SigningMessage is the deterministic serialization the payer signed: the
// authorization as a JSON object in declaration order, amounts as strings,
// including the txid sentinel for check-my-tab authorizations.
func (a *Authorization) SigningMessage() (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("serializing authorization: %w", err)
	}
	return string(data), nil
}

// acceptedBlock is the v2 payload wrapper naming the accepted offer.
type acceptedBlock struct {
	Scheme  string `json:"scheme"`
	Network string `json:"network"`
}

// signedPayload carries the signature and the authorization it covers.
type signedPayload struct {
	Signature     string         `json:"signature"`
	Authorization *Authorization `json:"authorization"`
}

// PaymentPayload is the client's payment proof. Two wire shapes exist: v1
// carries scheme/network at the top level, v2 nests them under "accepted".
type PaymentPayload struct {
	Scheme   string         `json:"scheme,omitempty"`
	Network  string         `json:"network,omitempty"`
	Accepted *acceptedBlock `json:"accepted,omitempty"`
	Payload  *signedPayload `json:"payload"`
}

// EffectiveScheme returns the scheme, preferring the v2 accepted block.
func (p *PaymentPayload) EffectiveScheme() string {
	if p.Accepted != nil && p.Accepted.Scheme != "" {
		return p.Accepted.Scheme
	}
	return p.Scheme
}

// EffectiveNetwork returns the network, preferring the v2 accepted block.
func (p *PaymentPayload) EffectiveNetwork() string {
	if p.Accepted != nil && p.Accepted.Network != "" {
		return p.Accepted.Network
	}
	return p.Network
}

// Authorization returns the signed authorization, or nil when absent.
func (p *PaymentPayload) Authorization() *Authorization {
	if p.Payload == nil {
		return nil
	}
	return p.Payload.Authorization
}

// Signature returns the payload signature, or "" when absent.
func (p *PaymentPayload) Signature() string {
	if p.Payload == nil {
		return ""
	}
	return p.Payload.Signature
}

// PaymentRequirements describes what the resource server demands.
type PaymentRequirements struct {
	Scheme            string    `json:"scheme"`
	Network           string    `json:"network"`
	PayTo             string    `json:"payTo"`
	Amount            *Satoshis `json:"amount,omitempty"`
	MinAmountRequired *Satoshis `json:"minAmountRequired,omitempty"`
	MaxAmountRequired *Satoshis `json:"maxAmountRequired,omitempty"`
}

// Cost returns the call cost: the first of amount, minAmountRequired,
// maxAmountRequired that is present.
func (r *PaymentRequirements) Cost() (Satoshis, bool) {
	for _, v := range []*Satoshis{r.Amount, r.MinAmountRequired, r.MaxAmountRequired} {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// LedgerEntry is the persisted record tracking how much of a funded UTXO
// remains debitable. Identity and monetary origin fields are immutable after
// creation; remaining/debited move in lockstep so that
// transactionValueSat == remainingBalanceSat + totalDebitedSat always holds.
type LedgerEntry struct {
	UtxoID              string   `json:"utxoId"`
	TxID                string   `json:"txid"`
	Vout                uint32   `json:"vout"`
	PayerAddress        string   `json:"payerAddress"`
	ReceiverAddress     string   `json:"receiverAddress"`
	TransactionValueSat Satoshis `json:"transactionValueSat"`
	RemainingBalanceSat Satoshis `json:"remainingBalanceSat"`
	TotalDebitedSat     Satoshis `json:"totalDebitedSat"`
	FirstSeen           string   `json:"firstSeen"`
	LastUpdated         string   `json:"lastUpdated"`
	LastChecked         string   `json:"lastChecked"`
}

// decodeLedgerEntry parses a persisted entry, tolerating the legacy field
// name "remainingBalance" written by earlier releases.
func decodeLedgerEntry(data []byte) (*LedgerEntry, error) {
	var wire struct {
		LedgerEntry
		LegacyRemaining *Satoshis `json:"remainingBalance"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding ledger entry: %w", err)
	}

	entry := wire.LedgerEntry
	if entry.RemainingBalanceSat == 0 && wire.LegacyRemaining != nil {
		entry.RemainingBalanceSat = *wire.LegacyRemaining
	}
	return &entry, nil
}

// firstSeenTime parses the entry's creation timestamp for FIFO ordering.
// Missing or malformed timestamps sort to the epoch, draining first.
func (e *LedgerEntry) firstSeenTime() time.Time {
	ts, err := time.Parse(time.RFC3339, e.FirstSeen)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return ts
}

// LedgerSummary is the slice of a ledger entry exposed in verify results.
type LedgerSummary struct {
	UtxoID              string   `json:"utxoId"`
	TransactionValueSat Satoshis `json:"transactionValueSat"`
	TotalDebitedSat     Satoshis `json:"totalDebitedSat"`
	LastUpdated         string   `json:"lastUpdated"`
}

// VerifyResult is the uniform outcome of payment verification.
type VerifyResult struct {
	IsValid             bool           `json:"isValid"`
	InvalidReason       string         `json:"invalidReason,omitempty"`
	Payer               string         `json:"payer"`
	RemainingBalanceSat *Satoshis      `json:"remainingBalanceSat,omitempty"`
	LedgerEntry         *LedgerSummary `json:"ledgerEntry,omitempty"`
}

// SettleResult is the uniform outcome of settlement. Network is always the
// canonical network id; this facilitator is single-network and never echoes
// the input tag.
type SettleResult struct {
	Success             bool      `json:"success"`
	ErrorReason         string    `json:"errorReason,omitempty"`
	Transaction         string    `json:"transaction"`
	Network             string    `json:"network"`
	Payer               string    `json:"payer"`
	RemainingBalanceSat *Satoshis `json:"remainingBalanceSat,omitempty"`
}

// addrEqual compares two BCH addresses, tolerating a missing or present
// "bitcoincash:" prefix on either side.
func addrEqual(a, b string) bool {
	return stripAddrPrefix(a) != "" && stripAddrPrefix(a) == stripAddrPrefix(b)
}

func stripAddrPrefix(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	return strings.TrimPrefix(addr, "bitcoincash:")
}
