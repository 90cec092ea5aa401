// Package entropy supplies model seeds from random.org when an API key is
// configured, falling back to crypto/rand.
package entropy

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultEndpoint is the random.org JSON-RPC endpoint.
const DefaultEndpoint = "https://api.random.org/json-rpc/4/invoke"

const (
	poolSize   = 50
	maxRetries = 3
)

// Client hands out seeds from a pool filled by random.org.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	pool []int64
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// WithEndpoint points the client at another JSON-RPC server.
func (c *Client) WithEndpoint(url string) *Client {
	c.endpoint = url
	return c
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Seed returns a seed from the pool, refilling from random.org when empty.
// Any failure falls back to crypto/rand. A nil client always uses crypto/rand.
func (c *Client) Seed(ctx context.Context) int64 {
	if !c.Enabled() {
		return CryptoSeed()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) == 0 {
		if err := c.refill(ctx); err != nil {
			slog.Warn("random.org unavailable, using crypto/rand", "error", err)
			return CryptoSeed()
		}
	}
	seed := c.pool[0]
	c.pool = c.pool[1:]
	return seed
}

func (c *Client) refill(ctx context.Context) error {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]any{
			"apiKey": c.apiKey,
			"n":      2 * poolSize,
			"min":    0,
			"max":    1_000_000_000,
		},
		"id": 1,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	var data []int64
	op := func() error {
		var err error
		data, err = c.fetch(ctx, body)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return err
	}

	// Two draws per seed: random.org integers are capped at 1e9.
	for i := 0; i+1 < len(data); i += 2 {
		c.pool = append(c.pool, data[i]*1_000_000_000+data[i+1])
	}
	slog.Debug("random.org pool refilled", "count", len(c.pool))
	return nil
}

func (c *Client) fetch(ctx context.Context, body []byte) ([]int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("random.org status %d", resp.StatusCode)
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Result struct {
			Random struct {
				Data []int64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse response: %w", err))
	}
	if result.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("random.org: %s", result.Error.Message))
	}
	if len(result.Result.Random.Data) < 2 {
		return nil, backoff.Permanent(fmt.Errorf("random.org returned %d integers", len(result.Result.Random.Data)))
	}
	return result.Result.Random.Data, nil
}

// CryptoSeed returns a non-negative seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
