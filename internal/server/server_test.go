package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/opentab/internal/facilitator"
	"github.com/mrz1836/opentab/internal/metrics"
	"github.com/mrz1836/opentab/internal/network"
	"github.com/mrz1836/opentab/internal/server"
	taberr "github.com/mrz1836/opentab/pkg/errors"
)

type stubService struct {
	verifyResult *facilitator.VerifyResult
	settleResult *facilitator.SettleResult
}

func (s *stubService) Verify(context.Context, *facilitator.PaymentPayload, *facilitator.PaymentRequirements) *facilitator.VerifyResult {
	return s.verifyResult
}

func (s *stubService) Settle(context.Context, *facilitator.PaymentPayload, *facilitator.PaymentRequirements) *facilitator.SettleResult {
	return s.settleResult
}

func newTestServer(svc server.PaymentService) http.Handler {
	return server.New(server.Options{
		Service: svc,
		Metrics: metrics.New(),
	}).Routes()
}

func requestBody(t *testing.T) *bytes.Reader {
	return requestBodyWith(t, "1000", "1000")
}

// requestBodyWith builds a request whose authorized value and requirements
// amount may differ.
func requestBodyWith(t *testing.T, value, amount string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"x402Version": 2,
		"paymentPayload": map[string]interface{}{
			"accepted": map[string]string{"scheme": "utxo", "network": network.CanonicalID},
			"payload": map[string]interface{}{
				"signature": "sig",
				"authorization": map[string]interface{}{
					"from": "payer", "to": "server", "value": value, "txid": "abc",
				},
			},
		},
		"paymentRequirements": map[string]interface{}{
			"scheme": "utxo", "network": network.CanonicalID,
			"payTo": "server", "amount": amount,
		},
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestVerifyEndpoint_ValidPayment(t *testing.T) {
	t.Parallel()

	remaining := facilitator.Satoshis(1000)
	h := newTestServer(&stubService{verifyResult: &facilitator.VerifyResult{
		IsValid:             true,
		Payer:               "payer",
		RemainingBalanceSat: &remaining,
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", requestBody(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result facilitator.VerifyResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsValid)
	assert.Equal(t, "payer", result.Payer)

	// Amounts cross the wire as strings.
	assert.Contains(t, rec.Body.String(), `"remainingBalanceSat":"1000"`)
}

func TestVerifyEndpoint_InvalidPaymentStillHTTP200(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubService{verifyResult: &facilitator.VerifyResult{
		InvalidReason: taberr.ReasonInsufficientUTXOBalance,
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", requestBody(t)))

	assert.Equal(t, http.StatusOK, rec.Code, "an invalid payment is a result, not an HTTP error")
	assert.Contains(t, rec.Body.String(), taberr.ReasonInsufficientUTXOBalance)
}

func TestVerifyEndpoint_MalformedJSON(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubService{verifyResult: &facilitator.VerifyResult{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettleEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubService{settleResult: &facilitator.SettleResult{
		Success:     true,
		Transaction: "txid123",
		Network:     network.CanonicalID,
		Payer:       "payer",
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/settle", requestBody(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	var result facilitator.SettleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "txid123", result.Transaction)
	assert.Equal(t, network.CanonicalID, result.Network)
}

func TestSupportedEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/supported", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp facilitator.SupportedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Kinds, 1)
	assert.Equal(t, "utxo", resp.Kinds[0].Scheme)
	assert.NotNil(t, resp.Extensions)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	h := server.New(server.Options{Service: &stubService{
		verifyResult: &facilitator.VerifyResult{IsValid: true},
	}, Metrics: m}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", requestBody(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "opentab_verify_total")
}

func TestVerifyEndpoint_RecordsDebitedCost(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	h := server.New(server.Options{Service: &stubService{
		verifyResult: &facilitator.VerifyResult{IsValid: true},
	}, Metrics: m}).Routes()

	// Authorized value 2000, requirements cost 1000: the tab is debited the
	// cost, so the counter must move by 1000.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verify", requestBodyWith(t, "2000", "1000")))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(1000), counterValue(t, m, "opentab_debited_satoshis_total"))
}

// counterValue reads a plain counter from the metrics registry by name.
func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verify", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
