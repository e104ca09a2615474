// Package wallet manages the facilitator's own funds: the coins settlements
// are broadcast from. It does not custody client funds.
package wallet

import (
	"context"
	"errors"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/mrz1836/opentab/internal/chain"
)

// ErrNoIdentity indicates neither an address nor a mnemonic was configured.
var ErrNoIdentity = errors.New("wallet has neither address nor mnemonic")

// Options configures the facilitator wallet.
type Options struct {
	// Address is the facilitator's receiving address (SERVER_BCH_ADDRESS).
	// When empty, it is derived from Mnemonic at first use.
	Address string

	// Mnemonic is the BIP39 phrase behind the wallet (SERVER_MNEMONIC).
	Mnemonic string

	// Client performs balance queries and broadcasts.
	Client chain.Client

	// Logger for wallet diagnostics.
	Logger hclog.Logger
}

// Wallet is the facilitator's spending wallet. Initialization is lazy and
// idempotent; a failed initialization is retried on the next use.
type Wallet struct {
	mu          sync.Mutex
	initialized bool
	address     string
	mnemonic    string
	client      chain.Client
	logger      hclog.Logger
}

// New creates a wallet. No derivation or network traffic happens until
// Initialize (or the first operation needing it).
func New(opts Options) *Wallet {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Wallet{
		address:  opts.Address,
		mnemonic: opts.Mnemonic,
		client:   opts.Client,
		logger:   logger.Named("wallet"),
	}
}

// Initialize resolves the wallet address, deriving it from the mnemonic when
// not configured directly. Safe to call concurrently and repeatedly.
func (w *Wallet) Initialize(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.initialized {
		return nil
	}

	if w.address == "" {
		if w.mnemonic == "" {
			return ErrNoIdentity
		}
		address, err := DeriveAddress(w.mnemonic)
		if err != nil {
			return err
		}
		w.address = address
		w.logger.Info("derived wallet address from mnemonic", "address", address)
	}

	w.initialized = true
	return nil
}

// Address returns the wallet's receiving address. Empty until initialized
// when only a mnemonic was configured.
func (w *Wallet) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}

// BalanceSat returns the wallet's spendable balance in satoshis.
func (w *Wallet) BalanceSat(ctx context.Context) (int64, error) {
	if err := w.Initialize(ctx); err != nil {
		return 0, err
	}
	return w.client.GetBalance(ctx, w.Address())
}

// Send broadcasts a transaction paying the outputs and returns its txid.
func (w *Wallet) Send(ctx context.Context, outputs []chain.Output) (string, error) {
	if err := w.Initialize(ctx); err != nil {
		return "", err
	}
	return w.client.SendOutputs(ctx, outputs)
}
