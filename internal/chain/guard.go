package chain

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Endpoint names used for rate limiting.
const (
	endpointValidate  = "validate"
	endpointBalance   = "balance"
	endpointBroadcast = "broadcast"
)

// Recorder observes gateway traffic per endpoint. Implemented by the
// metrics package; a nil recorder disables observation.
type Recorder interface {
	RecordChainRequest(endpoint string, err error)
}

// Guard hardens a node client: reads get bounded retries and a coalescing
// gate that deduplicates concurrent validations of the same outpoint;
// everything is rate limited. Broadcasts are never retried.
type Guard struct {
	next     Client
	limiter  *RateLimiter
	retry    RetryConfig
	recorder Recorder
	flight   singleflight.Group
}

var _ Client = (*Guard)(nil)

// NewGuard wraps a node client with the default limits.
func NewGuard(next Client) *Guard {
	return NewGuardWithConfig(next, DefaultRateLimiter(), DefaultRetryConfig())
}

// NewGuardWithConfig wraps a node client with explicit limits.
func NewGuardWithConfig(next Client, limiter *RateLimiter, retry RetryConfig) *Guard {
	return &Guard{next: next, limiter: limiter, retry: retry}
}

// WithRecorder attaches a traffic recorder and returns the guard.
func (g *Guard) WithRecorder(r Recorder) *Guard {
	g.recorder = r
	return g
}

// record reports the final outcome of one logical gateway call.
func (g *Guard) record(endpoint string, err error) {
	if g.recorder != nil {
		g.recorder.RecordChainRequest(endpoint, err)
	}
}

// ValidateUTXO validates an outpoint with retries. Concurrent calls for the
// same outpoint share a single in-flight request.
func (g *Guard) ValidateUTXO(ctx context.Context, out Outpoint) (*UTXOValidation, error) {
	v, err, _ := g.flight.Do(out.String(), func() (interface{}, error) {
		return RetryWithConfig(ctx, g.retry, func() (*UTXOValidation, error) {
			if err := g.limiter.Wait(ctx, endpointValidate); err != nil {
				return nil, err
			}
			return g.next.ValidateUTXO(ctx, out)
		})
	})
	g.record(endpointValidate, err)
	if err != nil {
		return nil, err
	}
	validation, ok := v.(*UTXOValidation)
	if !ok {
		return nil, ErrRetryable
	}
	return validation, nil
}

// GetBalance queries a balance with retries.
func (g *Guard) GetBalance(ctx context.Context, address string) (int64, error) {
	balance, err := RetryWithConfig(ctx, g.retry, func() (int64, error) {
		if err := g.limiter.Wait(ctx, endpointBalance); err != nil {
			return 0, err
		}
		return g.next.GetBalance(ctx, address)
	})
	g.record(endpointBalance, err)
	return balance, err
}

// SendOutputs broadcasts a transaction. No retries: a broadcast that failed
// in an unknown state must not be repeated.
func (g *Guard) SendOutputs(ctx context.Context, outputs []Output) (string, error) {
	if err := g.limiter.Wait(ctx, endpointBroadcast); err != nil {
		g.record(endpointBroadcast, err)
		return "", err
	}
	txid, err := g.next.SendOutputs(ctx, outputs)
	g.record(endpointBroadcast, err)
	return txid, err
}
