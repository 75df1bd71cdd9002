package xrpl

import "github.com/shopspring/decimal"

// MarketDataBucket is one element of the market_data response array.
// Numeric fields accept both JSON numbers and quoted decimals.
type MarketDataBucket struct {
	Timestamp     string          `json:"timestamp"`      // Bucket start, e.g. "2024-05-01T08:00:00Z"
	Open          decimal.Decimal `json:"open"`           // Opening price in counter units
	High          decimal.Decimal `json:"high"`           // Highest price during the interval
	Low           decimal.Decimal `json:"low"`            // Lowest price during the interval
	Close         decimal.Decimal `json:"close"`          // Closing price
	BaseVolume    decimal.Decimal `json:"base_volume"`    // Volume in base units
	CounterVolume decimal.Decimal `json:"counter_volume"` // Volume in counter units
	Exchanges     decimal.Decimal `json:"exchanges"`      // Number of fills in the bucket
}

// PoolCurrency is an asset as the pool listing encodes it.
type PoolCurrency struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
}

// PoolAssetName is the optional display metadata attached to an issued asset.
type PoolAssetName struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// PoolEntry is one element of the AMM pools response array.
type PoolEntry struct {
	Index      string         `json:"index"`
	Account    string         `json:"Account"`
	Asset      PoolCurrency   `json:"Asset"`
	Asset2     PoolCurrency   `json:"Asset2"`
	AssetName  *PoolAssetName `json:"AssetName"`
	Asset2Name *PoolAssetName `json:"Asset2Name"`
	// ... extra
}
