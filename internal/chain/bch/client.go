// Package bch provides the Bitcoin Cash node client implementation.
//
// The client speaks to a node gateway in one of two dialects selected by
// API_TYPE: the consumer-api (bch-consumer style JSON-over-POST) or the
// rest-api (RESTful GET endpoints). Both expose the same three operations
// the facilitator needs: transaction output lookup, address balance, and a
// wallet send.
package bch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mrz1836/opentab/internal/chain"
	taberr "github.com/mrz1836/opentab/pkg/errors"
)

const (
	// defaultTimeout is the default HTTP request timeout.
	defaultTimeout = 30 * time.Second

	// satsPerBCH converts the consumer-api's BCH-denominated values.
	satsPerBCH = 1e8
)

// APIType selects the node gateway dialect.
type APIType string

// Supported gateway dialects.
const (
	APITypeConsumer APIType = "consumer-api"
	APITypeREST     APIType = "rest-api"
)

// ErrEmptyTxID indicates the gateway accepted a send but returned no txid.
var ErrEmptyTxID = errors.New("gateway returned no transaction id")

// ClientOptions contains configuration for the BCH client.
type ClientOptions struct {
	// BaseURL is the node gateway URL (BCH_SERVER_URL).
	BaseURL string

	// BearerToken authenticates against metered gateways.
	BearerToken string

	// APIType selects the gateway dialect.
	APIType APIType

	// ServerAddress is the facilitator's receiving address. ValidateUTXO
	// reports invalid_receiver_address for outputs paying anywhere else.
	ServerAddress string

	// Logger for request diagnostics.
	Logger hclog.Logger
}

// Client provides Bitcoin Cash node operations.
type Client struct {
	baseURL       string
	bearerToken   string
	apiType       APIType
	serverAddress string
	httpClient    *http.Client
	logger        hclog.Logger
}

var _ chain.Client = (*Client)(nil)

// NewClient creates a new BCH node client.
func NewClient(opts *ClientOptions) *Client {
	c := &Client{
		apiType: APITypeConsumer,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: hclog.NewNullLogger(),
	}

	if opts != nil {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
		c.bearerToken = opts.BearerToken
		c.serverAddress = opts.ServerAddress
		if opts.APIType != "" {
			c.apiType = opts.APIType
		}
		if opts.Logger != nil {
			c.logger = opts.Logger.Named("bch")
		}
	}

	return c
}

// txOutput is a transaction output as reported by either gateway dialect.
type txOutput struct {
	// rest-api reports satoshis directly; consumer-api reports BCH.
	ValueSat     *int64   `json:"valueSat"`
	Value        *float64 `json:"value"`
	ScriptPubKey struct {
		Addresses []string `json:"addresses"`
	} `json:"scriptPubKey"`
}

// txDetails is the transaction lookup response body.
type txDetails struct {
	TxID string     `json:"txid"`
	Vout []txOutput `json:"vout"`
}

// consumerTxDataResponse wraps txDetails in the consumer-api envelope.
type consumerTxDataResponse struct {
	TxData txDetails `json:"txData"`
}

// consumerUTXOValidResponse is the consumer-api spent check response.
type consumerUTXOValidResponse struct {
	IsValid bool `json:"isValid"`
}

// ValidateUTXO looks up the outpoint and checks that it pays the configured
// facilitator address. A verdict, including a negative one, comes back as a
// UTXOValidation; errors mean the chain could not be consulted.
func (c *Client) ValidateUTXO(ctx context.Context, out chain.Outpoint) (*chain.UTXOValidation, error) {
	details, found, err := c.fetchTxDetails(ctx, out.TxID)
	if err != nil {
		return nil, err
	}
	if !found || int(out.Vout) >= len(details.Vout) {
		return &chain.UTXOValidation{InvalidReason: taberr.ReasonUTXONotFound}, nil
	}

	output := details.Vout[out.Vout]
	receiver := ""
	if len(output.ScriptPubKey.Addresses) > 0 {
		receiver = output.ScriptPubKey.Addresses[0]
	}

	if !sameAddress(receiver, c.serverAddress) {
		c.logger.Debug("utxo pays foreign address", "txid", out.TxID, "vout", out.Vout, "receiver", receiver)
		return &chain.UTXOValidation{
			InvalidReason:   taberr.ReasonInvalidReceiverAddress,
			ReceiverAddress: receiver,
		}, nil
	}

	// The consumer-api can also tell whether the output is still unspent.
	if c.apiType == APITypeConsumer {
		unspent, err := c.utxoIsUnspent(ctx, out)
		if err != nil {
			return nil, err
		}
		if !unspent {
			return &chain.UTXOValidation{InvalidReason: taberr.ReasonUTXONotFound}, nil
		}
	}

	return &chain.UTXOValidation{
		IsValid:         true,
		AmountSat:       outputValueSat(output),
		ReceiverAddress: receiver,
	}, nil
}

// balanceResponse is the address balance response of either dialect.
type balanceResponse struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
}

// consumerBalanceResponse wraps balanceResponse in the consumer-api envelope.
type consumerBalanceResponse struct {
	Balance balanceResponse `json:"balance"`
}

// GetBalance retrieves the confirmed + unconfirmed satoshi balance of an
// address.
func (c *Client) GetBalance(ctx context.Context, address string) (int64, error) {
	var balance balanceResponse

	if c.apiType == APITypeConsumer {
		var envelope consumerBalanceResponse
		body := map[string]string{"address": address}
		if err := c.postJSON(ctx, "/bch/balance", body, &envelope); err != nil {
			return 0, err
		}
		balance = envelope.Balance
	} else {
		path := fmt.Sprintf("/address/%s/balance", address)
		if err := c.getJSON(ctx, path, &balance); err != nil {
			return 0, err
		}
	}

	return balance.Confirmed + balance.Unconfirmed, nil
}

// sendRequest is the wallet send request body.
type sendRequest struct {
	Outputs []sendOutput `json:"outputs"`
}

type sendOutput struct {
	Address   string `json:"address"`
	AmountSat int64  `json:"amountSat"`
}

// sendResponse is the wallet send response body.
type sendResponse struct {
	TxID string `json:"txid"`
}

// SendOutputs instructs the gateway wallet to broadcast a transaction paying
// the outputs. Returns the broadcast txid.
func (c *Client) SendOutputs(ctx context.Context, outputs []chain.Output) (string, error) {
	body := sendRequest{Outputs: make([]sendOutput, 0, len(outputs))}
	for _, o := range outputs {
		body.Outputs = append(body.Outputs, sendOutput{Address: o.Address, AmountSat: o.AmountSat})
	}

	var resp sendResponse
	if err := c.postJSON(ctx, "/wallet/send", body, &resp); err != nil {
		return "", err
	}
	if resp.TxID == "" {
		return "", ErrEmptyTxID
	}

	c.logger.Info("broadcast accepted", "txid", resp.TxID, "outputs", len(outputs))
	return resp.TxID, nil
}

// fetchTxDetails returns the transaction, a found flag, and an error when
// the gateway could not be consulted.
func (c *Client) fetchTxDetails(ctx context.Context, txid string) (*txDetails, bool, error) {
	if c.apiType == APITypeConsumer {
		var envelope consumerTxDataResponse
		err := c.postJSON(ctx, "/bch/txData", map[string]string{"txid": txid}, &envelope)
		if errors.Is(err, errHTTPNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if envelope.TxData.TxID == "" {
			return nil, false, nil
		}
		return &envelope.TxData, true, nil
	}

	var details txDetails
	err := c.getJSON(ctx, "/tx/"+txid, &details)
	if errors.Is(err, errHTTPNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &details, true, nil
}

// utxoIsUnspent asks the consumer-api whether the outpoint is still unspent.
func (c *Client) utxoIsUnspent(ctx context.Context, out chain.Outpoint) (bool, error) {
	body := map[string]interface{}{
		"utxo": map[string]interface{}{
			"tx_hash": out.TxID,
			"tx_pos":  out.Vout,
		},
	}

	var resp consumerUTXOValidResponse
	err := c.postJSON(ctx, "/bch/utxoIsValid", body, &resp)
	if errors.Is(err, errHTTPNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.IsValid, nil
}

// errHTTPNotFound marks a 404 from the gateway.
var errHTTPNotFound = errors.New("gateway: not found")

func (c *Client) getJSON(ctx context.Context, path string, into interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, into)
}

func (c *Client) postJSON(ctx context.Context, path string, body, into interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, into)
}

func (c *Client) do(req *http.Request, into interface{}) error {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chain.WrapRetryable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errHTTPNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return chain.ErrRateLimited
	case resp.StatusCode >= 500:
		return chain.WrapRetryable(fmt.Errorf("gateway: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("gateway: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return chain.WrapRetryable(err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// outputValueSat normalizes the two dialects' value fields to satoshis.
func outputValueSat(o txOutput) int64 {
	if o.ValueSat != nil {
		return *o.ValueSat
	}
	if o.Value != nil {
		return int64(math.Round(*o.Value * satsPerBCH))
	}
	return 0
}

// sameAddress compares two BCH addresses, tolerating a missing or present
// "bitcoincash:" prefix on either side.
func sameAddress(a, b string) bool {
	return stripPrefix(a) != "" && stripPrefix(a) == stripPrefix(b)
}

func stripPrefix(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	return strings.TrimPrefix(addr, "bitcoincash:")
}
