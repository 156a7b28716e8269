package retrieval

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/medscribe-ai/platform/pkg/common/logger"
	"github.com/medscribe-ai/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// Searcher returns ranked passages for a query. Results enrich generation
// prompts only; validation stays grounded in the original source text.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.RetrievedPassage, error)
}

// Client talks to the external passage-retrieval service over HTTP and
// caches responses in Redis keyed by query hash.
type Client struct {
	baseURL  string
	http     *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewClient(baseURL string, timeout time.Duration, cache *redis.Client, cacheTTL time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout, Transport: transport},
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type searchResponse struct {
	Passages []models.RetrievedPassage `json:"passages"`
}

func (c *Client) Search(ctx context.Context, query string, k int) ([]models.RetrievedPassage, error) {
	cacheKey := passageCacheKey(query, k)
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var passages []models.RetrievedPassage
			if err := json.Unmarshal(cached, &passages); err == nil {
				return passages, nil
			}
		}
	}

	body, err := json.Marshal(searchRequest{Query: query, K: k})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("retrieval service returned %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if encoded, err := json.Marshal(parsed.Passages); err == nil {
			if err := c.cache.Set(ctx, cacheKey, encoded, c.cacheTTL).Err(); err != nil {
				logger.Log.WithError(err).Warn("failed to cache retrieval passages")
			}
		}
	}

	return parsed.Passages, nil
}

func passageCacheKey(query string, k int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("retrieval:%s:%d", hex.EncodeToString(sum[:8]), k)
}
