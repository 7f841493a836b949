package ipfs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		APIURL:  server.URL,
		Gateway: "gateway.example.com",
		JWT:     "test-jwt",
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestPinFile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinFileToIPFS" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-jwt" {
			t.Errorf("authorization header = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmTestCID"})
	})

	pin, err := client.PinFile(context.Background(), []byte("image-bytes"), "villa.png")
	if err != nil {
		t.Fatalf("pin file: %v", err)
	}
	if pin.CID != "QmTestCID" {
		t.Fatalf("cid = %q", pin.CID)
	}
	if pin.URL != "https://gateway.example.com/ipfs/QmTestCID" {
		t.Fatalf("url = %q", pin.URL)
	}
}

func TestPinJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinJSONToIPFS" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if _, ok := body["pinataContent"]; !ok {
			t.Errorf("missing pinataContent wrapper")
		}
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmMetaCID"})
	})

	url, err := client.PinJSON(context.Background(), map[string]string{"name": "Certiqas"})
	if err != nil {
		t.Fatalf("pin json: %v", err)
	}
	if url != "https://gateway.example.com/ipfs/QmMetaCID" {
		t.Fatalf("url = %q", url)
	}
}

func TestPinFailureSurfacesUpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusPaymentRequired)
	})

	if _, err := client.PinFile(context.Background(), []byte("x"), "a.png"); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
	if _, err := client.PinJSON(context.Background(), map[string]string{}); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}
