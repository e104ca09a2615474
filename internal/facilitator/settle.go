package facilitator

import (
	"context"
	"errors"

	"github.com/mrz1836/opentab/internal/chain"
	"github.com/mrz1836/opentab/internal/chain/bch"
	"github.com/mrz1836/opentab/internal/network"
	taberr "github.com/mrz1836/opentab/pkg/errors"
)

// Settle re-verifies the payment and, when valid, pays the authorized amount
// from the facilitator wallet to the resource server. Like Verify it never
// returns an error: every failure maps onto a reason code in the result.
func (f *Facilitator) Settle(ctx context.Context, payload *PaymentPayload, requirements *PaymentRequirements) (result *SettleResult) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("panic during settle", "panic", r)
			result = &SettleResult{
				ErrorReason: taberr.ReasonUnexpectedSettleError,
				Network:     network.CanonicalID,
			}
		}
	}()

	var payer string
	failed := func(reason string) *SettleResult {
		return &SettleResult{
			ErrorReason: reason,
			Network:     network.CanonicalID,
			Payer:       payer,
		}
	}

	verified := f.Verify(ctx, payload, requirements)
	payer = verified.Payer
	if !verified.IsValid {
		return failed(verified.InvalidReason)
	}

	auth := payload.Authorization()
	payTo := f.payTo(requirements)

	if err := f.wallet.Initialize(ctx); err != nil {
		f.logger.Error("wallet initialization failed", "error", err)
		return failed(taberr.ReasonUnexpectedSettleError)
	}

	balance, err := f.wallet.BalanceSat(ctx)
	if err != nil {
		f.logger.Error("wallet balance lookup failed", "error", err)
		return failed(taberr.ReasonUnexpectedSettleError)
	}
	if balance < int64(auth.Value) {
		f.logger.Warn("wallet cannot cover settlement",
			"balance_sat", balance, "required_sat", auth.Value)
		return failed(taberr.ReasonInsufficientFunds)
	}

	txid, err := f.wallet.Send(ctx, []chain.Output{{
		Address:   payTo,
		AmountSat: int64(auth.Value),
	}})
	if err != nil {
		if errors.Is(err, bch.ErrEmptyTxID) {
			f.logger.Error("broadcast returned no transaction id", "payer", payer)
			return failed(taberr.ReasonInvalidTransactionState)
		}
		f.logger.Error("settlement broadcast failed", "payer", payer, "error", err)
		return failed(taberr.ReasonUnexpectedSettleError)
	}
	if txid == "" {
		f.logger.Error("broadcast returned no transaction id", "payer", payer)
		return failed(taberr.ReasonInvalidTransactionState)
	}

	f.logger.Info("payment settled",
		"payer", payer, "pay_to", payTo,
		"amount_sat", auth.Value, "txid", txid)

	return &SettleResult{
		Success:             true,
		Transaction:         txid,
		Network:             network.CanonicalID,
		Payer:               payer,
		RemainingBalanceSat: verified.RemainingBalanceSat,
	}
}
