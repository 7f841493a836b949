// Package ipfs provides the content-addressed store client used to pin
// certificate artifacts and metadata documents.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/taimoor511/certiqas-backend/internal/apperr"
	"github.com/taimoor511/certiqas-backend/pkg/logger"
)

// Pin is the result of pinning a blob: its content identifier and a publicly
// fetchable gateway URL.
type Pin struct {
	CID string
	URL string
}

// Client talks to a Pinata-compatible pinning API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	gateway    string
	jwt        string
	log        *logger.Logger
}

// Config holds client settings.
type Config struct {
	APIURL  string
	Gateway string // gateway host, e.g. gateway.pinata.cloud
	JWT     string
	Timeout time.Duration
}

// NewClient constructs a pinning client.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		return nil, fmt.Errorf("pinning API URL required")
	}
	gateway := strings.TrimSpace(cfg.Gateway)
	if gateway == "" {
		return nil, fmt.Errorf("gateway host required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("ipfs")
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		gateway:    gateway,
		jwt:        strings.TrimSpace(cfg.JWT),
		log:        log,
	}, nil
}

// PinFile uploads a binary blob and returns its CID and gateway URL.
func (c *Client) PinFile(ctx context.Context, data []byte, name string) (Pin, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return Pin{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Pin{}, fmt.Errorf("write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Pin{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	cid, err := c.pin(ctx, c.apiURL+"/pinning/pinFileToIPFS", mw.FormDataContentType(), &body)
	if err != nil {
		return Pin{}, apperr.Upstream(err, "content store upload failed for %s", name)
	}

	c.log.WithField("cid", cid).WithField("name", name).Debug("pinned file")
	return Pin{CID: cid, URL: c.gatewayURL(cid)}, nil
}

// PinJSON uploads a JSON document and returns its gateway URL. Used for the
// certificate metadata document whose URL becomes the tokenUri.
func (c *Client) PinJSON(ctx context.Context, doc any) (string, error) {
	payload, err := json.Marshal(map[string]any{"pinataContent": doc})
	if err != nil {
		return "", fmt.Errorf("marshal metadata document: %w", err)
	}

	cid, err := c.pin(ctx, c.apiURL+"/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Upstream(err, "content store metadata upload failed")
	}

	c.log.WithField("cid", cid).Debug("pinned metadata")
	return c.gatewayURL(cid), nil
}

func (c *Client) pin(ctx context.Context, url, contentType string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("build pin request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.jwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read pin response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pin status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode pin response: %w", err)
	}
	if parsed.IpfsHash == "" {
		return "", fmt.Errorf("pin response missing IpfsHash")
	}
	return parsed.IpfsHash, nil
}

func (c *Client) gatewayURL(cid string) string {
	return fmt.Sprintf("https://%s/ipfs/%s", c.gateway, cid)
}
