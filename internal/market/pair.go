package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAsset is returned when an asset string cannot be parsed.
var ErrInvalidAsset = errors.New("invalid asset")

// NativeCode is the currency code of the ledger's native asset.
const NativeCode = "XRP"

// AssetRef identifies one side of a trading pair: either the native asset
// or an issued currency {issuer, code}.
type AssetRef struct {
	Native bool   `json:"native,omitempty"`
	Issuer string `json:"issuer,omitempty"`
	Code   string `json:"code,omitempty"`
}

// XRP returns the native asset marker.
func XRP() AssetRef {
	return AssetRef{Native: true}
}

// Issued returns an issued-currency asset reference.
func Issued(issuer, code string) AssetRef {
	return AssetRef{Issuer: issuer, Code: code}
}

// ParseAssetRef parses the wire form: "XRP" or "<issuer>_<code>".
func ParseAssetRef(s string) (AssetRef, error) {
	s = strings.TrimSpace(s)
	if s == NativeCode {
		return XRP(), nil
	}
	issuer, code, ok := strings.Cut(s, "_")
	if !ok || issuer == "" || code == "" {
		return AssetRef{}, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}
	return Issued(issuer, code), nil
}

// APIString renders the asset the way the market data API expects it in a path.
func (a AssetRef) APIString() string {
	if a.Native {
		return NativeCode
	}
	return a.Issuer + "_" + a.Code
}

func (a AssetRef) String() string { return a.APIString() }

// Pair is a base/counter trading pair. Two pairs are the same pair iff they are ==.
type Pair struct {
	Base    AssetRef `json:"base"`
	Counter AssetRef `json:"counter"`
}

func (p Pair) String() string {
	return p.Base.APIString() + "/" + p.Counter.APIString()
}

// Key is the effective request key. Changing it invalidates every fetched series.
type Key struct {
	Pair     Pair     `json:"pair"`
	Interval Interval `json:"interval"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.Pair, k.Interval)
}

// Query is one market data request: a key, a trade filter and wire options.
type Query struct {
	Key        Key
	Filter     Filter
	Descending bool
	Limit      int
}

// Pool is one selectable pair from the pool directory, with display names.
type Pool struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Pair        Pair   `json:"pair"`
	BaseName    string `json:"base_name"`
	CounterName string `json:"counter_name"`
}

// Label renders the pool the way the selector shows it: "counter/base".
func (p Pool) Label() string {
	return p.CounterName + "/" + p.BaseName
}
