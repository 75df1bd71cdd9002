package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ammclob/internal/derive"
	"ammclob/internal/market"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// go test -v --run TestLoadDefaults
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.XRPL.MarketData.BaseURL != "https://data.xrplf.org" {
		t.Errorf("unexpected base url: %s", cfg.XRPL.MarketData.BaseURL)
	}
	if cfg.Chart.Interval != "8h" || cfg.Chart.Limit != 321 || !cfg.Chart.Descending {
		t.Errorf("unexpected chart defaults: %+v", cfg.Chart)
	}
	if cfg.Schedule.PoolRefresh != "@midnight" {
		t.Errorf("unexpected pool refresh: %s", cfg.Schedule.PoolRefresh)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("unexpected shutdown timeout: %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("file value should override default, got %s", cfg.Log.Level)
	}

	view, err := cfg.Chart.View()
	if err != nil {
		t.Fatalf("unexpected view error: %v", err)
	}
	if view != (derive.View{Source: market.SourceBlended, Comparison: derive.RawPair}) {
		t.Errorf("unexpected default view: %+v", view)
	}
}

// go test -v --run TestLoadEnvOverride
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AMMCLOB_CHART_INTERVAL", "1h")
	t.Setenv("AMMCLOB_SERVER_ADDRESS", ":9090")

	cfg, err := Load(writeConfig(t, "chart:\n  interval: 4h\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Chart.Interval != "1h" {
		t.Errorf("env should override file, got %s", cfg.Chart.Interval)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("env should override default, got %s", cfg.Server.Address)
	}
}

// go test -v --run TestLoadRejectsInvalid
func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, `
chart:
  interval: 2w
  limit: 0
  undefined_policy: hide
  default_source: DEX
  default_comparison: RATIO
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"chart.interval", "chart.limit", "chart.undefined_policy", "chart.default_source"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error: %v", want, err)
		}
	}
}

// go test -v --run TestLoadMissingFile
func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for explicit missing file")
	}
}
