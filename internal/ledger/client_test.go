package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func samplePayload() MintPayload {
	return MintPayload{
		ReraPermit:       "RERA-12345",
		PropertyID:       "PROP-001",
		DeveloperName:    "Emaar Properties",
		ProjectName:      "Marina Vista",
		Location:         "Dubai Marina",
		UnitType:         "2BR",
		BrokerCompany:    "Alpha Realty,Beta Homes",
		ListingID:        "A1B2C3",
		VerificationDate: 1700000000,
		VerificationHash: "0xabc",
		TokenURI:         "https://gateway/ipfs/QmMeta",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		RPCURL:          server.URL,
		ContractAddress: "0xcontract",
		WalletAddress:   "0xwallet",
		PollInterval:    5 * time.Millisecond,
		ConfirmTimeout:  200 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func rpcHandler(t *testing.T, onCall func(method string) (any, *rpcError)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
		}
		result, rpcErr := onCall(req.Method)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestMintConfirmed(t *testing.T) {
	var receiptCalls int32
	client := newTestClient(t, rpcHandler(t, func(method string) (any, *rpcError) {
		switch method {
		case "cert_mintCertificate":
			return "0xdeadbeef", nil
		case "cert_getTransactionReceipt":
			// First poll: not yet mined; second: confirmed.
			if atomic.AddInt32(&receiptCalls, 1) == 1 {
				return nil, nil
			}
			return map[string]any{"status": "0x1", "blockNumber": 42}, nil
		}
		return nil, &rpcError{Code: -32601, Message: "unknown method"}
	}))

	txHash, err := client.Mint(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if txHash != "0xdeadbeef" {
		t.Fatalf("tx hash = %q", txHash)
	}
}

func TestMintReverted(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, func(method string) (any, *rpcError) {
		switch method {
		case "cert_mintCertificate":
			return "0xdeadbeef", nil
		case "cert_getTransactionReceipt":
			return map[string]any{"status": "0x0"}, nil
		}
		return nil, nil
	}))

	_, err := client.Mint(context.Background(), samplePayload())
	if !errors.Is(err, ErrMintFailed) {
		t.Fatalf("expected ErrMintFailed, got %v", err)
	}
}

func TestMintConfirmationTimeout(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, func(method string) (any, *rpcError) {
		switch method {
		case "cert_mintCertificate":
			return "0xdeadbeef", nil
		case "cert_getTransactionReceipt":
			return nil, nil // never mined
		}
		return nil, nil
	}))

	_, err := client.Mint(context.Background(), samplePayload())
	if !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
}

func TestMintSubmitError(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, func(method string) (any, *rpcError) {
		return nil, &rpcError{Code: -32000, Message: "insufficient funds"}
	}))

	if _, err := client.Mint(context.Background(), samplePayload()); err == nil {
		t.Fatalf("expected submit error")
	}
}

func TestNewListingID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewListingID()
		if len(id) != 6 {
			t.Fatalf("listing id %q length %d", id, len(id))
		}
		for _, r := range id {
			if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'Z') {
				t.Fatalf("listing id %q has invalid rune %q", id, r)
			}
		}
		seen[id] = true
	}
	if len(seen) < 90 {
		t.Fatalf("listing ids collide too often: %d unique of 100", len(seen))
	}
}
