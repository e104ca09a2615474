package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/opentab/internal/facilitator"
)

var rebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Rebuild the payer address index from the ledger",
	Long: `Rebuild-index drops the payer address index and reconstructs it from
the authoritative UTXO records. Run it when the index is suspected stale or
after restoring a ledger database from backup.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("closing ledger db", "error", err)
			}
		}()

		ledger := facilitator.NewLedger(facilitator.LedgerOptions{
			DB:            db,
			ServerAddress: serverAddress(),
			Logger:        logger,
		})
		return ledger.RebuildAddressIndex()
	},
}

func init() {
	rootCmd.AddCommand(rebuildIndexCmd)
}
