package cli

import (
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrz1836/opentab/internal/metrics"
	"github.com/mrz1836/opentab/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the facilitator HTTP server",
	Long: `Serve opens the ledger database, rebuilds the payer address index,
and serves the payment API until interrupted.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := openStore()
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Error("closing ledger db", "error", err)
			}
		}()

		m := metrics.New()
		client := buildChainClient(m)
		f := buildFacilitator(db, client)

		if err := f.Ledger().RebuildAddressIndex(); err != nil {
			return err
		}

		srv := server.New(server.Options{
			Service: f,
			Metrics: m,
			Logger:  logger,
			Port:    cfg.Port,
		})

		logger.Info("starting facilitator",
			"port", cfg.Port, "env", cfg.Env,
			"api_type", cfg.APIType, "db_path", cfg.DBPath)

		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("shutdown complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
