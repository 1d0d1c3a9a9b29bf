// Package confirmation talks to the backend indexer that reports whether a
// locked transfer has settled on the destination chain.
package confirmation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/topdeveloper55/ether-pulse-bridge/pkg/bridge"
)

const maxResponseBytes = 4 << 20

// Record is one transfer as reported by the confirmation backend.
type Record struct {
	TxHash      string      `json:"txHash"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	SourceChain uint64      `json:"sourceChain"`
	TargetChain uint64      `json:"targetChain"`
	Token       string      `json:"token"`
	Amount      json.Number `json:"amount"`
	Confirmed   bool        `json:"confirmed"`
	Timestamp   string      `json:"timestamp"`
}

// Client queries the confirmation backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a backend client. timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the records the backend holds for txHash. An empty result
// means the transfer is not yet known.
func (c *Client) Lookup(ctx context.Context, txHash string) ([]Record, error) {
	body, status, err := c.get(ctx, "/transactions/"+url.PathEscape(txHash))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

// Recent returns the backend's recent transfer list.
func (c *Client) Recent(ctx context.Context) ([]Record, error) {
	body, status, err := c.get(ctx, "/transactions")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, body); err != nil {
		return nil, err
	}
	return decodeRecords(body)
}

// Count returns the total number of bridged transfers.
func (c *Client) Count(ctx context.Context) (int64, error) {
	v, err := c.scalar(ctx, "/count", "count")
	if err != nil {
		return 0, err
	}
	n, err := v.Int64()
	if err != nil {
		return 0, bridge.UnreachableError(fmt.Errorf("decode count %q: %w", v.String(), err))
	}
	return n, nil
}

// Volume returns the total bridged volume as a decimal string.
func (c *Client) Volume(ctx context.Context) (string, error) {
	v, err := c.scalar(ctx, "/volume", "volume")
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, bridge.UnreachableError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, bridge.UnreachableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, bridge.UnreachableError(fmt.Errorf("read response: %w", err))
	}
	return body, resp.StatusCode, nil
}

// scalar reads an endpoint that answers either a bare number or string, or
// an object holding one under key.
func (c *Client) scalar(ctx context.Context, path, key string) (json.Number, error) {
	body, status, err := c.get(ctx, path)
	if err != nil {
		return "", err
	}
	if err := checkStatus(status, body); err != nil {
		return "", err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return "", bridge.UnreachableError(fmt.Errorf("decode %s: %w", path, err))
		}
		raw, ok := obj[key]
		if !ok {
			return "", bridge.UnreachableError(fmt.Errorf("decode %s: missing %q", path, key))
		}
		trimmed = raw
	}
	return decodeNumber(path, trimmed)
}

func decodeNumber(path string, raw []byte) (json.Number, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(s)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", bridge.UnreachableError(fmt.Errorf("decode %s: %w", path, err))
	}
	return n, nil
}

func decodeRecords(body []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '{' {
		var one Record
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, bridge.UnreachableError(fmt.Errorf("decode record: %w", err))
		}
		return []Record{one}, nil
	}
	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, bridge.UnreachableError(fmt.Errorf("decode records: %w", err))
	}
	return records, nil
}

func checkStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return bridge.UnreachableError(fmt.Errorf("backend returned status %d: %s", status, snippet))
}
