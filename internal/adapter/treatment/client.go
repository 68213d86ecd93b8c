// Package treatment fetches the TEOTIL3 treatment-type vocabulary and checks
// site types against it.
package treatment

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/oslomod/teotil3-scenarios/internal/domain"
)

// DefaultURL is the published treatment-type table.
const DefaultURL = "https://raw.githubusercontent.com/NIVANorge/teotil3/refs/heads/main/data/point_source_treatment_types.csv"

const cacheKey = "teotil3:treatment_types"

const (
	fetchAttempts  = 3
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Cache stores the raw CSV between runs. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client loads the vocabulary once per process, from the cache when possible.
type Client struct {
	url    string
	http   *http.Client
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	types map[string]map[string]struct{}
}

// NewClient returns a Client. cache may be nil.
func NewClient(url string, timeout time.Duration, cache Cache, ttl time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// ValidateType reports an error wrapping domain.ErrInvalidInput when siteType
// is not listed for sector.
func (c *Client) ValidateType(ctx context.Context, sector, siteType string) error {
	types, err := c.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := types[sector][siteType]; !ok {
		return fmt.Errorf("%w: site type '%s' is not a valid type for %s in TEOTIL3",
			domain.ErrInvalidInput, siteType, strings.ToLower(sector))
	}
	return nil
}

// Types lists the valid types for sector, sorted.
func (c *Client) Types(ctx context.Context, sector string) ([]string, error) {
	types, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(types[sector]))
	for t := range types[sector] {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (c *Client) load(ctx context.Context) (map[string]map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.types != nil {
		return c.types, nil
	}

	data, err := c.cached(ctx)
	if err != nil {
		return nil, err
	}
	fetched := false
	if data == nil {
		if data, err = c.fetch(ctx); err != nil {
			return nil, err
		}
		fetched = true
	}

	types, err := parse(data)
	if err != nil {
		return nil, err
	}
	if fetched && c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, data, c.ttl); err != nil {
			c.logger.Warn("treatment types not cached", "error", err)
		}
	}
	c.types = types
	return types, nil
}

func (c *Client) cached(ctx context.Context) ([]byte, error) {
	if c.cache == nil {
		return nil, nil
	}
	data, err := c.cache.Get(ctx, cacheKey)
	if err != nil {
		c.logger.Warn("treatment type cache unavailable", "error", err)
		return nil, nil
	}
	if data != nil {
		c.logger.Debug("treatment types read from cache")
	}
	return data, nil
}

// fetch downloads the table, retrying transport errors and 5xx responses.
func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		data, retryable, err := c.fetchOnce(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable || attempt == fetchAttempts {
			break
		}
		c.logger.Warn("treatment type fetch failed, retrying", "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("fetch treatment types: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, fmt.Errorf("fetch treatment types: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("fetch treatment types: %w", err)
	}
	c.logger.Info("treatment types fetched", "url", c.url, "bytes", len(data))
	return data, false, nil
}

// parse reads a CSV with at least sector and type columns.
func parse(data []byte) (map[string]map[string]struct{}, error) {
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse treatment types: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parse treatment types: empty table")
	}
	sectorCol, typeCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case "sector":
			sectorCol = i
		case "type":
			typeCol = i
		}
	}
	if sectorCol < 0 || typeCol < 0 {
		return nil, fmt.Errorf("parse treatment types: need sector and type columns, got %v", rows[0])
	}

	out := make(map[string]map[string]struct{})
	for _, row := range rows[1:] {
		sector, typ := strings.TrimSpace(row[sectorCol]), strings.TrimSpace(row[typeCol])
		if sector == "" || typ == "" {
			continue
		}
		if out[sector] == nil {
			out[sector] = make(map[string]struct{})
		}
		out[sector][typ] = struct{}{}
	}
	return out, nil
}
