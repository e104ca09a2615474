// Package server exposes the facilitator over HTTP: payment verification and
// settlement endpoints, the capability descriptor, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/mrz1836/opentab/internal/facilitator"
	"github.com/mrz1836/opentab/internal/metrics"
)

// PaymentService is the core surface the HTTP layer translates to. The
// concrete implementation is *facilitator.Facilitator.
type PaymentService interface {
	Verify(ctx context.Context, payload *facilitator.PaymentPayload, requirements *facilitator.PaymentRequirements) *facilitator.VerifyResult
	Settle(ctx context.Context, payload *facilitator.PaymentPayload, requirements *facilitator.PaymentRequirements) *facilitator.SettleResult
}

// Server is the HTTP front of the facilitator.
type Server struct {
	service PaymentService
	metrics *metrics.Metrics
	logger  hclog.Logger
	http    *http.Server
}

// Options configures a Server.
type Options struct {
	Service PaymentService
	Metrics *metrics.Metrics
	Logger  hclog.Logger
	Port    int
}

// New builds the server and its route table.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		service: opts.Service,
		metrics: m,
		logger:  logger.Named("http"),
	}

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the router. Exposed for tests.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/verify", s.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/settle", s.handleSettle).Methods(http.MethodPost)
	r.HandleFunc("/supported", s.handleSupported).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

// ListenAndServe blocks serving HTTP until the context is canceled, then
// drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.http.Addr, err)
	}
	s.logger.Info("listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

// paymentRequest is the body of /verify and /settle.
type paymentRequest struct {
	X402Version         int                              `json:"x402Version"`
	PaymentPayload      *facilitator.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *facilitator.PaymentRequirements `json:"paymentRequirements"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	result := s.service.Verify(r.Context(), req.PaymentPayload, req.PaymentRequirements)

	// The ledger debits the requirements cost, not the authorized value.
	var debited int64
	if result.IsValid && req.PaymentRequirements != nil {
		if cost, ok := req.PaymentRequirements.Cost(); ok {
			debited = int64(cost)
		}
	}
	s.metrics.RecordVerify(result.InvalidReason, debited)

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "request body is not valid JSON")
		return
	}

	result := s.service.Settle(r.Context(), req.PaymentPayload, req.PaymentRequirements)

	var settled int64
	if result.Success && req.PaymentPayload != nil {
		if auth := req.PaymentPayload.Authorization(); auth != nil {
			settled = int64(auth.Value)
		}
	}
	s.metrics.RecordSettle(result.ErrorReason, settled)

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSupported(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, facilitator.SupportedKinds())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
