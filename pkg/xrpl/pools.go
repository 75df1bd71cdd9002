package xrpl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ammclob/internal/market"
)

// PoolClient reads the AMM pool listing.
type PoolClient struct {
	url        string
	httpClient *http.Client
}

func NewPoolClient(url string, timeout time.Duration) *PoolClient {
	return &PoolClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetPools fetches the listing and keeps pools whose issued assets carry a
// display name. Indexes are assigned in listing order after filtering.
func (c *PoolClient) GetPools(ctx context.Context) ([]market.Pool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("pool listing error: status %d: %s", resp.StatusCode, body)
	}

	var entries []PoolEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return ToPools(entries), nil
}

// ToPools filters and converts raw pool entries.
func ToPools(entries []PoolEntry) []market.Pool {
	var pools []market.Pool
	for _, e := range entries {
		if !displayable(e.Asset, e.AssetName) || !displayable(e.Asset2, e.Asset2Name) {
			continue
		}
		pools = append(pools, market.Pool{
			Index: len(pools),
			ID:    e.Index,
			Pair: market.Pair{
				Base:    toAssetRef(e.Asset),
				Counter: toAssetRef(e.Asset2),
			},
			BaseName:    AssetDisplayName(e.Asset, e.AssetName),
			CounterName: AssetDisplayName(e.Asset2, e.Asset2Name),
		})
	}
	return pools
}

// AssetDisplayName prefers the registered name, then "username currency", then XRP.
func AssetDisplayName(asset PoolCurrency, name *PoolAssetName) string {
	if name != nil && name.Name != "" {
		return name.Name
	}
	if name != nil && name.Username != "" {
		return name.Username + " " + asset.Currency
	}
	return market.NativeCode
}

func displayable(asset PoolCurrency, name *PoolAssetName) bool {
	return asset.Issuer == "" || name != nil
}

func toAssetRef(c PoolCurrency) market.AssetRef {
	if c.Currency == market.NativeCode || c.Issuer == "" {
		return market.XRP()
	}
	return market.Issued(c.Issuer, c.Currency)
}
