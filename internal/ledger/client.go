// Package ledger submits certificate mint transactions to the certification
// contract and waits for on-chain confirmation.
package ledger

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

var (
	// ErrMintFailed is returned when the mint transaction reverted.
	ErrMintFailed = errors.New("mint transaction reverted")
	// ErrNotConfirmed is returned when confirmation did not arrive in time.
	ErrNotConfirmed = errors.New("mint transaction not confirmed")
)

// MintPayload is the contract call payload. Every field is part of the
// on-chain verification contract; the hash must match the digest an
// independent verifier derives from the same tuple.
type MintPayload struct {
	To               string `json:"to"`
	ReraPermit       string `json:"reraPermit"`
	PropertyID       string `json:"propertyId"`
	DeveloperName    string `json:"developerName"`
	ProjectName      string `json:"projectName"`
	Location         string `json:"location"`
	UnitType         string `json:"unitType"`
	BrokerCompany    string `json:"brokerCompany"`
	ListingID        string `json:"listingId"`
	VerificationDate int64  `json:"verificationDate"`
	VerificationHash string `json:"verificationHash"`
	TokenURI         string `json:"tokenUri"`
	ExpiresAt        int64  `json:"expiresAt"`
}

// Config holds client settings.
type Config struct {
	RPCURL          string
	ContractAddress string
	WalletAddress   string
	Timeout         time.Duration
	PollInterval    time.Duration
	ConfirmTimeout  time.Duration
}

// Client submits mint calls over JSON-RPC and polls for receipts.
type Client struct {
	httpClient     *http.Client
	rpcURL         string
	contract       string
	wallet         string
	pollInterval   time.Duration
	confirmTimeout time.Duration
	log            *logger.Logger
}

// NewClient creates a ledger client.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("contract address required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}
	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout == 0 {
		confirmTimeout = 90 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("ledger")
	}

	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		rpcURL:         cfg.RPCURL,
		contract:       cfg.ContractAddress,
		wallet:         cfg.WalletAddress,
		pollInterval:   pollInterval,
		confirmTimeout: confirmTimeout,
		log:            log,
	}, nil
}

// WalletAddress returns the configured minting wallet.
func (c *Client) WalletAddress() string { return c.wallet }

// Mint submits the certificate mint and blocks until the transaction is
// confirmed, returning the transaction hash. Any failure leaves nothing
// usable behind: callers must treat the mint as not having happened.
func (c *Client) Mint(ctx context.Context, payload MintPayload) (string, error) {
	if payload.To == "" {
		payload.To = c.wallet
	}

	result, err := c.call(ctx, "cert_mintCertificate", []interface{}{c.contract, payload})
	if err != nil {
		return "", fmt.Errorf("submit mint: %w", err)
	}

	var txHash string
	if err := json.Unmarshal(result, &txHash); err != nil || txHash == "" {
		return "", fmt.Errorf("submit mint: malformed transaction hash in response")
	}

	c.log.WithField("tx_hash", txHash).
		WithField("property_id", payload.PropertyID).
		Info("mint submitted, awaiting confirmation")

	if err := c.waitForReceipt(ctx, txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// waitForReceipt polls for the transaction receipt until it reports success,
// reports a revert, or the confirmation window closes.
func (c *Client) waitForReceipt(ctx context.Context, txHash string) error {
	wctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		result, err := c.call(wctx, "cert_getTransactionReceipt", []interface{}{txHash})
		if err == nil && len(result) > 0 && string(result) != "null" {
			var receipt struct {
				Status      string `json:"status"`
				BlockNumber uint64 `json:"blockNumber"`
			}
			if err := json.Unmarshal(result, &receipt); err != nil {
				return fmt.Errorf("decode receipt: %w", err)
			}
			switch receipt.Status {
			case "0x1", "confirmed", "success":
				return nil
			case "0x0", "reverted", "failed":
				return fmt.Errorf("receipt for %s: %w", txHash, ErrMintFailed)
			}
			// Receipt present but still settling; keep polling.
		}

		select {
		case <-wctx.Done():
			return fmt.Errorf("awaiting receipt for %s: %w", txHash, ErrNotConfirmed)
		case <-ticker.C:
		}
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

const listingAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewListingID generates the short opaque token attached to a single mint
// attempt. It is regenerated per attempt and never persisted.
func NewListingID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in no state to mint.
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = listingAlphabet[int(b)%len(listingAlphabet)]
	}
	return string(buf)
}
