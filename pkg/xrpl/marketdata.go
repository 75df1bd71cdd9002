package xrpl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ammclob/internal/market"

	"golang.org/x/time/rate"
)

// MarketDataClient fetches bucketed market data for one pair and interval.
type MarketDataClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewMarketDataClient creates the client. A non-positive rps disables rate limiting.
func NewMarketDataClient(baseURL string, timeout time.Duration, rps float64, burst int) *MarketDataClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &MarketDataClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// MarketDataURL builds the request URL for one query.
func (c *MarketDataClient) MarketDataURL(q market.Query) string {
	params := url.Values{}
	params.Set("interval", q.Key.Interval.Meta().APIValue)
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprint(q.Limit))
	}
	params.Set("descending", fmt.Sprint(q.Descending))
	switch q.Filter {
	case market.FilterAMMOnly:
		params.Set("only_amm", "true")
	case market.FilterCLOBOnly:
		params.Set("exclude_amm", "true")
	}

	return fmt.Sprintf("%s/v1/iou/market_data/%s/%s?%s",
		c.baseURL,
		url.PathEscape(q.Key.Pair.Base.APIString()),
		url.PathEscape(q.Key.Pair.Counter.APIString()),
		params.Encode(),
	)
}

// FetchBuckets returns the buckets in wire order. Each call hits the network
// exactly once; there is no retry.
func (c *MarketDataClient) FetchBuckets(ctx context.Context, q market.Query) ([]market.Bucket, error) {
	if !q.Key.Interval.IsValid() {
		return nil, fmt.Errorf("%w: %q", market.ErrInvalidInterval, q.Key.Interval)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MarketDataURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("market data error: status %d: %s", resp.StatusCode, body)
	}

	var raw []MarketDataBucket
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return ParseBucketList(raw), nil
}

// ParseBucketList converts wire buckets to market buckets, skipping rows
// without a timestamp.
func ParseBucketList(raw []MarketDataBucket) []market.Bucket {
	out := make([]market.Bucket, 0, len(raw))
	for _, row := range raw {
		if row.Timestamp == "" {
			continue // no join key
		}
		out = append(out, market.Bucket{
			Timestamp:     row.Timestamp,
			Open:          row.Open.InexactFloat64(),
			High:          row.High.InexactFloat64(),
			Low:           row.Low.InexactFloat64(),
			Close:         row.Close.InexactFloat64(),
			BaseVolume:    row.BaseVolume.InexactFloat64(),
			CounterVolume: row.CounterVolume.InexactFloat64(),
			ExchangeCount: int(row.Exchanges.IntPart()),
		})
	}
	return out
}
