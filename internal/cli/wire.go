package cli

import (
	"github.com/mrz1836/opentab/internal/bchsig"
	"github.com/mrz1836/opentab/internal/chain"
	"github.com/mrz1836/opentab/internal/chain/bch"
	"github.com/mrz1836/opentab/internal/facilitator"
	"github.com/mrz1836/opentab/internal/store"
	"github.com/mrz1836/opentab/internal/wallet"
)

// openStore opens the ledger database named by the configuration.
func openStore() (store.DB, error) {
	return store.OpenLevelDB(cfg.DBPath)
}

// buildChainClient constructs the node gateway client behind its guard
// (retry, rate limiting, validation coalescing, traffic counters).
func buildChainClient(recorder chain.Recorder) chain.Client {
	client := bch.NewClient(&bch.ClientOptions{
		BaseURL:       cfg.ChainURL,
		BearerToken:   cfg.BearerToken,
		APIType:       bch.APIType(cfg.APIType),
		ServerAddress: serverAddress(),
		Logger:        logger,
	})
	return chain.NewGuard(client).WithRecorder(recorder)
}

// serverAddress resolves the facilitator's receiving address: configured
// directly, or derived from the mnemonic.
func serverAddress() string {
	if cfg.ServerAddress != "" {
		return cfg.ServerAddress
	}
	if cfg.Mnemonic != "" {
		if addr, err := wallet.DeriveAddress(cfg.Mnemonic); err == nil {
			return addr
		}
	}
	return ""
}

// buildFacilitator wires the full payment core on top of an open store.
func buildFacilitator(db store.DB, client chain.Client) *facilitator.Facilitator {
	addr := serverAddress()

	ledger := facilitator.NewLedger(facilitator.LedgerOptions{
		DB:            db,
		Validator:     client,
		ServerAddress: addr,
		Logger:        logger,
	})

	w := wallet.New(wallet.Options{
		Address:  cfg.ServerAddress,
		Mnemonic: cfg.Mnemonic,
		Client:   client,
		Logger:   logger,
	})

	return facilitator.New(facilitator.Options{
		Ledger:        ledger,
		Verifier:      bchsig.NewVerifier(),
		Wallet:        w,
		ServerAddress: addr,
		Logger:        logger,
	})
}
