// Package bchsig verifies Bitcoin Cash signed messages: the payer signs the
// serialized authorization with the key behind their address, the
// facilitator recovers the public key from the compact signature and checks
// it hashes to that address.
package bchsig

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// messageMagic prefixes every signed message, as in the reference clients.
const messageMagic = "Bitcoin Signed Message:\n"

// Verifier checks signed messages against payer addresses.
type Verifier struct{}

// NewVerifier creates a message signature verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify reports whether signature (base64 compact signature) was produced
// over message by the key behind address. The address may be a cash address
// (with or without prefix) or a legacy base58 address.
func (v *Verifier) Verify(address, signature, message string) (bool, error) {
	wantHash, err := pubKeyHash(address)
	if err != nil {
		return false, err
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("decoding signature: %w", err)
	}

	pubKey, compressed, err := ecdsa.RecoverCompact(sig, MessageHash(message))
	if err != nil {
		return false, fmt.Errorf("recovering public key: %w", err)
	}

	var serialized []byte
	if compressed {
		serialized = pubKey.SerializeCompressed()
	} else {
		serialized = pubKey.SerializeUncompressed()
	}

	return bytes.Equal(btcutil.Hash160(serialized), wantHash), nil
}

// MessageHash computes the double-SHA256 digest of the magic-prefixed
// message, the digest reference clients sign.
func MessageHash(message string) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarString(&buf, 0, messageMagic)
	_ = wire.WriteVarString(&buf, 0, message)
	return chainhash.DoubleHashB(buf.Bytes())
}

// pubKeyHash extracts the 20-byte pubkey hash from a cash address or a
// legacy base58 P2PKH address.
func pubKeyHash(address string) ([]byte, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidCashAddr)
	}

	// Legacy base58 addresses start with '1'; everything else is treated
	// as a cash address.
	if address[0] == '1' {
		decoded, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams)
		if err != nil {
			return nil, fmt.Errorf("decoding legacy address: %w", err)
		}
		p2pkh, ok := decoded.(*btcutil.AddressPubKeyHash)
		if !ok {
			return nil, fmt.Errorf("%w: not a P2PKH address", ErrInvalidCashAddr)
		}
		return p2pkh.Hash160()[:], nil
	}

	return DecodeCashAddr(address)
}
