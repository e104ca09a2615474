package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	"github.com/mrz1836/opentab/internal/bchsig"
)

// BIP44 path components for the facilitator's receiving key:
// m/44'/145'/0'/0/0 (145 is the BCH coin type).
const (
	purposeBIP44 = 44
	coinTypeBCH  = 145
)

// ErrInvalidMnemonic indicates the mnemonic failed BIP39 validation.
var ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")

// DeriveAddress derives the facilitator's cash address from a BIP39 mnemonic
// at m/44'/145'/0'/0/0.
func DeriveAddress(mnemonic string) (string, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return "", fmt.Errorf("deriving master key: %w", err)
	}

	for _, step := range []uint32{
		bip32.FirstHardenedChild + purposeBIP44,
		bip32.FirstHardenedChild + coinTypeBCH,
		bip32.FirstHardenedChild, // account 0'
		0,                        // external chain
		0,                        // index 0
	} {
		if key, err = key.NewChildKey(step); err != nil {
			return "", fmt.Errorf("deriving child key: %w", err)
		}
	}

	pubKey := key.PublicKey().Key // compressed, 33 bytes
	return bchsig.EncodeCashAddr(btcutil.Hash160(pubKey))
}
