package lighter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	nextNoncePath = "/api/v1/nextNonce"

	// Venue business code for a rejected nonce. A single invalid nonce
	// means the whole cache is out of sync, so it is flushed entirely.
	codeInvalidNonce = 21104
	codeOK           = 200
)

// Client talks to the venue REST API and fronts it with a per-account
// nonce prefetch cache. The first request for an account hits the API
// and caches the follow-up nonce; later requests are served locally and
// post-incremented. It also remembers the last account index seen, which
// identifies the operator's own fills in the trade stream.
type Client struct {
	restURL    string
	apiKeyIdx  int64
	httpClient *http.Client
	logger     *slog.Logger

	mu         sync.Mutex
	nonceCache map[int64]int64
	accountIdx int64
	accountSet bool
}

// NewClient creates a venue REST client.
func NewClient(restURL string, apiKeyIndex int64) *Client {
	return &Client{
		restURL:   restURL,
		apiKeyIdx: apiKeyIndex,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger:     slog.Default().With("module", "lighter_client"),
		nonceCache: make(map[int64]int64),
	}
}

type nonceResponse struct {
	Code  int64 `json:"code"`
	Nonce int64 `json:"nonce"`
}

// NextNonce returns the next transaction nonce for an account. Cached
// values are served without a round trip and incremented in place.
func (c *Client) NextNonce(ctx context.Context, accountIndex int64) (int64, error) {
	c.mu.Lock()
	c.accountIdx = accountIndex
	c.accountSet = true
	if nonce, ok := c.nonceCache[accountIndex]; ok {
		c.nonceCache[accountIndex] = nonce + 1
		c.mu.Unlock()
		c.logger.Debug("Nonce served from cache", "account", accountIndex, "nonce", nonce)
		return nonce, nil
	}
	c.mu.Unlock()

	nonce, err := c.fetchNonce(ctx, accountIndex)
	if err != nil {
		return 0, err
	}

	// The caller consumes this nonce, so the follow-up goes in the cache.
	c.mu.Lock()
	c.nonceCache[accountIndex] = nonce + 1
	c.mu.Unlock()
	c.logger.Debug("Nonce fetched", "account", accountIndex, "nonce", nonce)
	return nonce, nil
}

func (c *Client) fetchNonce(ctx context.Context, accountIndex int64) (int64, error) {
	url := fmt.Sprintf("%s%s?account_index=%d&api_key_index=%d", c.restURL, nextNoncePath, accountIndex, c.apiKeyIdx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("nextNonce request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("nextNonce api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var nr nonceResponse
	if err := json.Unmarshal(body, &nr); err != nil {
		return 0, fmt.Errorf("failed to parse nonce response: %w", err)
	}
	if nr.Code != codeOK {
		return 0, fmt.Errorf("nextNonce business error: code=%d", nr.Code)
	}
	return nr.Nonce, nil
}

// HandleTxCode inspects a transaction submission result code and flushes
// the whole nonce cache when the venue rejected the nonce.
func (c *Client) HandleTxCode(code int64) {
	if code != codeInvalidNonce {
		return
	}
	c.mu.Lock()
	c.nonceCache = make(map[int64]int64)
	c.mu.Unlock()
	c.logger.Warn("Invalid nonce, cache flushed")
}

// NonceHandler serves the prefetch cache over HTTP so local tooling can
// draw nonces without talking to the venue directly. The account index
// defaults to the pinned operator account when the query omits it.
func (c *Client) NonceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountIdx, ok := c.AccountIndex()
		if raw := r.URL.Query().Get("account_index"); raw != "" {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				http.Error(w, "invalid account_index", http.StatusBadRequest)
				return
			}
			accountIdx, ok = v, true
		}
		if !ok {
			http.Error(w, "no account index configured", http.StatusBadRequest)
			return
		}

		nonce, err := c.NextNonce(r.Context(), accountIdx)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(nonceResponse{Code: codeOK, Nonce: nonce})
	}
}

// TxResultHandler ingests transaction submission results from local
// tooling, feeding venue business codes back into the nonce cache.
func (c *Client) TxResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code int64 `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		c.HandleTxCode(body.Code)
		w.WriteHeader(http.StatusAccepted)
	}
}

// SetAccountIndex pins the operator account, e.g. from config.
func (c *Client) SetAccountIndex(idx int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountIdx = idx
	c.accountSet = true
}

// AccountIndex returns the last observed operator account index.
func (c *Client) AccountIndex() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountIdx, c.accountSet
}

// CachedNonces reports the cache size, for diagnostics.
func (c *Client) CachedNonces() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nonceCache)
}
