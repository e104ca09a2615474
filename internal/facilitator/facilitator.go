package facilitator

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/mrz1836/opentab/internal/chain"
)

// SignatureVerifier checks that a message was signed by the holder of an
// address's key.
type SignatureVerifier interface {
	Verify(address, signature, message string) (bool, error)
}

// SettlementWallet is the facilitator's spending identity.
type SettlementWallet interface {
	Initialize(ctx context.Context) error
	BalanceSat(ctx context.Context) (int64, error)
	Send(ctx context.Context, outputs []chain.Output) (string, error)
}

// Facilitator ties the ledger, signature verification, and the settlement
// wallet into the verify and settle pipelines.
type Facilitator struct {
	ledger        *Ledger
	verifier      SignatureVerifier
	wallet        SettlementWallet
	serverAddress string
	logger        hclog.Logger
}

// Options configures a Facilitator.
type Options struct {
	Ledger        *Ledger
	Verifier      SignatureVerifier
	Wallet        SettlementWallet
	ServerAddress string
	Logger        hclog.Logger
}

// New creates a Facilitator.
func New(opts Options) *Facilitator {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Facilitator{
		ledger:        opts.Ledger,
		verifier:      opts.Verifier,
		wallet:        opts.Wallet,
		serverAddress: opts.ServerAddress,
		logger:        logger.Named("facilitator"),
	}
}

// Ledger exposes the underlying debit engine.
func (f *Facilitator) Ledger() *Ledger {
	return f.ledger
}
