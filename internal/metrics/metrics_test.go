package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taberr "github.com/mrz1836/opentab/pkg/errors"
)

func TestRecordVerify(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordVerify("", 1000)
	m.RecordVerify("", 500)
	m.RecordVerify(taberr.ReasonInsufficientUTXOBalance, 0)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.verifyTotal.WithLabelValues("valid")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.verifyTotal.WithLabelValues(taberr.ReasonInsufficientUTXOBalance)), 0.001)
	assert.InDelta(t, 1500.0, testutil.ToFloat64(m.debitedSat), 0.001)
}

func TestRecordSettle(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordSettle("", 1000)
	m.RecordSettle(taberr.ReasonInsufficientFunds, 0)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.settleTotal.WithLabelValues("valid")), 0.001)
	assert.InDelta(t, 1000.0, testutil.ToFloat64(m.settledSat), 0.001)
}

func TestRecordChainRequest(t *testing.T) {
	t.Parallel()
	m := New()

	m.RecordChainRequest("txData", nil)
	m.RecordChainRequest("txData", errors.New("timeout"))

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.chainRequests.WithLabelValues("txData", "ok")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.chainRequests.WithLabelValues("txData", "error")), 0.001)
}

func TestIsolatedRegistries(t *testing.T) {
	t.Parallel()

	a := New()
	b := New()
	a.RecordVerify("", 100)

	families, err := b.Gatherer().Gather()
	require.NoError(t, err)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if metric.GetCounter() != nil {
				assert.Zero(t, metric.GetCounter().GetValue())
			}
		}
	}
}
