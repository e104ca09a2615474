package facilitator

import (
	"context"

	"github.com/mrz1836/opentab/internal/network"
	taberr "github.com/mrz1836/opentab/pkg/errors"
)

// Verify runs the verification pipeline: network and scheme gates, payload
// structure checks, signature recovery, UTXO selection for check-my-tab
// authorizations, and finally a ledger debit. It never returns an error;
// every failure, including a panic in a downstream component, maps onto a
// reason code in the result. Failures before the signature step carry no
// payer: nothing about the payload is trusted yet.
func (f *Facilitator) Verify(ctx context.Context, payload *PaymentPayload, requirements *PaymentRequirements) (result *VerifyResult) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("panic during verify", "panic", r)
			result = &VerifyResult{InvalidReason: taberr.ReasonUnexpectedVerifyError}
		}
	}()

	invalid := func(reason, payer string) *VerifyResult {
		return &VerifyResult{InvalidReason: reason, Payer: payer}
	}

	if payload == nil || requirements == nil {
		return invalid(taberr.ReasonInvalidPayload, "")
	}

	if !network.Same(requirements.Network, payload.EffectiveNetwork()) {
		return invalid(taberr.ReasonInvalidNetwork, "")
	}

	if requirements.Scheme != network.Scheme || payload.EffectiveScheme() != network.Scheme {
		return invalid(taberr.ReasonInvalidScheme, "")
	}

	auth := payload.Authorization()
	if auth == nil {
		return invalid(taberr.ReasonMissingAuthorization, "")
	}
	if auth.From == "" || auth.To == "" || auth.TxID == "" || payload.Signature() == "" {
		return invalid(taberr.ReasonInvalidPayload, "")
	}
	payer := auth.From

	cost, ok := requirements.Cost()
	if !ok || cost <= 0 {
		return invalid(taberr.ReasonInvalidPayment, payer)
	}
	if auth.Value < cost {
		return invalid(taberr.ReasonInvalidPayment, payer)
	}
	payTo := f.payTo(requirements)
	if payTo == "" || !addrEqual(auth.To, payTo) {
		return invalid(taberr.ReasonInvalidPayment, payer)
	}

	message, err := auth.SigningMessage()
	if err != nil {
		f.logger.Error("serializing authorization for signature check", "error", err)
		return invalid(taberr.ReasonUnexpectedVerifyError, payer)
	}
	valid, err := f.verifier.Verify(auth.From, payload.Signature(), message)
	if err != nil {
		f.logger.Debug("signature verification failed", "payer", payer, "error", err)
		return invalid(taberr.ReasonInvalidSignature, payer)
	}
	if !valid {
		return invalid(taberr.ReasonInvalidSignature, payer)
	}

	var selected *LedgerEntry
	if auth.Ref().AnyForAddress {
		selected = f.ledger.SelectUTXO(auth.From, payTo, cost)
		if selected == nil {
			return invalid(taberr.ReasonNoUTXOForAddress, payer)
		}
	}

	debit, err := f.ledger.Debit(ctx, auth, cost, selected)
	if err != nil {
		f.logger.Error("ledger debit failed", "payer", payer, "error", err)
		return invalid(taberr.ReasonUnexpectedVerifyError, payer)
	}
	if !debit.Valid {
		return invalid(debit.InvalidReason, payer)
	}

	remaining := debit.RemainingBalanceSat
	out := &VerifyResult{
		IsValid:             true,
		Payer:               payer,
		RemainingBalanceSat: &remaining,
	}
	if debit.Entry != nil {
		out.LedgerEntry = &LedgerSummary{
			UtxoID:              debit.Entry.UtxoID,
			TransactionValueSat: debit.Entry.TransactionValueSat,
			TotalDebitedSat:     debit.Entry.TotalDebitedSat,
			LastUpdated:         debit.Entry.LastUpdated,
		}
	}
	return out
}

// payTo resolves the settlement receiver: the requirements' payTo, falling
// back to the facilitator's own address when the requirements leave it blank.
// A payment with no resolvable receiver cannot be settled and is rejected.
func (f *Facilitator) payTo(requirements *PaymentRequirements) string {
	if requirements.PayTo != "" {
		return requirements.PayTo
	}
	return f.serverAddress
}
