package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ammclob/config"
	"ammclob/internal/market"
	"ammclob/internal/refresh"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pools", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"index":"P0","Asset":{"currency":"XRP"},"Asset2":{"currency":"USD","issuer":"rBitstamp"},"Asset2Name":{"name":"Bitstamp USD"}}
		]`))
	})
	mux.HandleFunc("/v1/iou/market_data/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "rBitstamp_USD") {
			http.NotFound(w, r)
			return
		}
		// descending on the wire
		_, _ = w.Write([]byte(`[
			{"timestamp":"2024-05-01T08:00:00Z","open":0.51,"high":0.52,"low":0.5,"close":0.52,"base_volume":100,"counter_volume":52,"exchanges":4},
			{"timestamp":"2024-05-01T00:00:00Z","open":0.5,"high":0.51,"low":0.49,"close":0.51,"base_volume":80,"counter_volume":40,"exchanges":3}
		]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(base string) *config.Config {
	return &config.Config{
		XRPL: config.XRPLConfig{
			MarketData: config.MarketDataConfig{BaseURL: base, Timeout: 5 * time.Second},
			Pools:      config.PoolsConfig{URL: base + "/pools", Timeout: 5 * time.Second},
		},
		Chart: config.ChartConfig{
			Interval:          "8h",
			Limit:             321,
			Descending:        true,
			UndefinedPolicy:   "omit",
			DefaultSource:     "BLENDED",
			DefaultComparison: "RAW_PAIR",
			AutoSelect:        true,
		},
		Schedule: config.ScheduleConfig{PoolRefresh: "@midnight"},
		Server:   config.ServerConfig{Address: "127.0.0.1:0", ShutdownTimeout: time.Second},
	}
}

func TestServiceAutoSelectsFirstPool(t *testing.T) {
	up := upstream(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := Start(ctx, testConfig(up.URL), zap.NewNop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return svc.Controller().Status().State == refresh.Ready
	}, 5*time.Second, 10*time.Millisecond)

	st := svc.Controller().Status()
	assert.Equal(t, market.Interval8Hour, st.Key.Interval)
	assert.Equal(t, market.Issued("rBitstamp", "USD"), st.Key.Pair.Counter)

	frame, err := svc.Controller().Frame()
	require.NoError(t, err)
	require.Len(t, frame.Candles, 2)
	assert.Less(t, frame.Candles[0].Time, frame.Candles[1].Time)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.Schedule.ChartRefresh = "sometimes"

	_, err := Start(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
