package xrpl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ammclob/internal/market"
)

var testKey = market.Key{
	Pair: market.Pair{
		Base:    market.XRP(),
		Counter: market.Issued("rhub8VRN55s94qWKDv6jmDy1pUykJzF3wq", "USD"),
	},
	Interval: market.Interval8Hour,
}

// go test -v --run TestMarketDataURL
func TestMarketDataURL(t *testing.T) {
	client := NewMarketDataClient("https://data.example.org", time.Second, 0, 0)

	cases := []struct {
		filter market.Filter
		want   string
		absent string
	}{
		{market.FilterAMMOnly, "only_amm=true", "exclude_amm"},
		{market.FilterCLOBOnly, "exclude_amm=true", "only_amm"},
		{market.FilterAll, "interval=8h", "_amm"},
	}

	for _, tc := range cases {
		got := client.MarketDataURL(market.Query{Key: testKey, Filter: tc.filter, Descending: true, Limit: 321})
		if !strings.HasPrefix(got, "https://data.example.org/v1/iou/market_data/XRP/rhub8VRN55s94qWKDv6jmDy1pUykJzF3wq_USD?") {
			t.Errorf("unexpected path: %s", got)
		}
		if !strings.Contains(got, tc.want) {
			t.Errorf("%s: expected %q in %s", tc.filter, tc.want, got)
		}
		if strings.Contains(got, tc.absent) {
			t.Errorf("%s: unexpected %q in %s", tc.filter, tc.absent, got)
		}
		if !strings.Contains(got, "limit=321") || !strings.Contains(got, "descending=true") {
			t.Errorf("%s: missing limit/descending in %s", tc.filter, got)
		}
	}
}

// go test -v --run TestFetchBuckets
func TestFetchBuckets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("only_amm") != "true" {
			t.Errorf("expected only_amm filter, got %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"timestamp":"2024-05-01T16:00:00Z","open":"0.52","high":0.55,"low":"0.5","close":"0.54","base_volume":"1200.5","counter_volume":650,"exchanges":12},
			{"timestamp":"","open":1,"high":1,"low":1,"close":1},
			{"timestamp":"2024-05-01T08:00:00Z","open":0.5,"high":0.53,"low":0.49,"close":0.52,"base_volume":800,"counter_volume":410,"exchanges":"7"}
		]`))
	}))
	defer srv.Close()

	client := NewMarketDataClient(srv.URL, 5*time.Second, 10, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	buckets, err := client.FetchBuckets(ctx, market.Query{Key: testKey, Filter: market.FilterAMMOnly, Descending: true, Limit: 321})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets (blank timestamp skipped), got %d", len(buckets))
	}

	// Wire order is kept; callers normalize.
	if buckets[0].Timestamp != "2024-05-01T16:00:00Z" {
		t.Errorf("unexpected first timestamp: %s", buckets[0].Timestamp)
	}
	if buckets[0].Close != 0.54 || buckets[0].BaseVolume != 1200.5 || buckets[0].ExchangeCount != 12 {
		t.Errorf("unexpected first bucket: %+v", buckets[0])
	}
	if buckets[1].ExchangeCount != 7 {
		t.Errorf("expected quoted exchange count to parse, got %d", buckets[1].ExchangeCount)
	}
}

// go test -v --run TestFetchBucketsStatusError
func TestFetchBucketsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown pair", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewMarketDataClient(srv.URL, 5*time.Second, 0, 0)
	_, err := client.FetchBuckets(context.Background(), market.Query{Key: testKey})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "unknown pair") {
		t.Errorf("error should carry status and body: %v", err)
	}
}

// go test -v --run TestFetchBucketsInvalidInterval
func TestFetchBucketsInvalidInterval(t *testing.T) {
	client := NewMarketDataClient("http://127.0.0.1:0", time.Second, 0, 0)
	q := market.Query{Key: market.Key{Pair: testKey.Pair, Interval: market.Interval("2w")}}
	if _, err := client.FetchBuckets(context.Background(), q); err == nil {
		t.Fatal("expected invalid interval error")
	}
}

// go test -v --run TestGetPools
func TestGetPools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"index":"P0","Account":"rAMM0","Asset":{"currency":"XRP"},"Asset2":{"currency":"USD","issuer":"rBitstamp"},"Asset2Name":{"name":"Bitstamp USD"}},
			{"index":"P1","Account":"rAMM1","Asset":{"currency":"XRP"},"Asset2":{"currency":"FOO","issuer":"rNobody"}},
			{"index":"P2","Account":"rAMM2","Asset":{"currency":"SOLO","issuer":"rSolo"},"AssetName":{"username":"sologenic"},"Asset2":{"currency":"XRP"}}
		]`))
	}))
	defer srv.Close()

	client := NewPoolClient(srv.URL, 5*time.Second)
	pools, err := client.GetPools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("expected unnamed issued pool to be filtered, got %d pools", len(pools))
	}

	if pools[0].Index != 0 || pools[0].ID != "P0" || pools[0].Label() != "Bitstamp USD/XRP" {
		t.Errorf("unexpected first pool: %+v label=%s", pools[0], pools[0].Label())
	}
	if !pools[0].Pair.Base.Native || pools[0].Pair.Counter.APIString() != "rBitstamp_USD" {
		t.Errorf("unexpected first pair: %s", pools[0].Pair)
	}

	if pools[1].Index != 1 || pools[1].BaseName != "sologenic SOLO" || pools[1].CounterName != "XRP" {
		t.Errorf("unexpected second pool: %+v", pools[1])
	}
}

// go test -v --run TestAssetDisplayName
func TestAssetDisplayName(t *testing.T) {
	usd := PoolCurrency{Currency: "USD", Issuer: "rX"}
	if got := AssetDisplayName(usd, &PoolAssetName{Name: "Dollar", Username: "bank"}); got != "Dollar" {
		t.Errorf("name should win, got %s", got)
	}
	if got := AssetDisplayName(usd, &PoolAssetName{Username: "bank"}); got != "bank USD" {
		t.Errorf("username fallback, got %s", got)
	}
	if got := AssetDisplayName(PoolCurrency{Currency: "XRP"}, nil); got != "XRP" {
		t.Errorf("native fallback, got %s", got)
	}
}
