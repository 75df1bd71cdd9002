package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ammclob/internal/market"
	"ammclob/internal/memorystore"

	"go.uber.org/zap"
)

type stubLister struct {
	pools []market.Pool
	err   error
}

func (s stubLister) GetPools(ctx context.Context) ([]market.Pool, error) {
	return s.pools, s.err
}

func testPools() []market.Pool {
	return []market.Pool{
		{Index: 0, Pair: market.Pair{Base: market.XRP(), Counter: market.Issued("rA", "USD")}, BaseName: "XRP", CounterName: "Bitstamp USD"},
		{Index: 1, Pair: market.Pair{Base: market.XRP(), Counter: market.Issued("rB", "EUR")}, BaseName: "XRP", CounterName: "Gatehub EUR"},
	}
}

// go test -v --run TestDirectoryRefresh
func TestDirectoryRefresh(t *testing.T) {
	var loaded []market.Pool
	d := &Directory{
		Loader: &PoolLoader{Client: stubLister{pools: testPools()}, Timeout: time.Second, Logger: zap.NewNop()},
		Store:  memorystore.NewPoolStore(),
		OnLoad: func(p []market.Pool) { loaded = p },
	}

	if err := d.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Store.Count() != 2 {
		t.Fatalf("expected 2 pools in store, got %d", d.Store.Count())
	}
	if len(loaded) != 2 || loaded[0].Label() != "Bitstamp USD/XRP" {
		t.Errorf("OnLoad got unexpected listing: %+v", loaded)
	}
}

// go test -v --run TestDirectoryRefreshFailureKeepsListing
func TestDirectoryRefreshFailureKeepsListing(t *testing.T) {
	store := memorystore.NewPoolStore()
	store.Replace(testPools())

	called := false
	d := &Directory{
		Loader: &PoolLoader{Client: stubLister{err: errors.New("503")}, Logger: zap.NewNop()},
		Store:  store,
		OnLoad: func([]market.Pool) { called = true },
	}

	if err := d.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if called {
		t.Error("OnLoad must not run on failure")
	}
	if store.Count() != 2 {
		t.Errorf("expected previous listing to survive, got %d", store.Count())
	}
}

// go test -v --run TestSchedulerRegister
func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(context.Background(), zap.NewNop())
	d := &Directory{
		Loader: &PoolLoader{Client: stubLister{}, Logger: zap.NewNop()},
		Store:  memorystore.NewPoolStore(),
	}

	if err := s.AddPoolRefresh("@midnight", d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddChartRefresh("*/5 * * * *", func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddChartRefresh("", func() {}); err != nil {
		t.Fatalf("empty spec should be a no-op: %v", err)
	}
	if err := s.AddChartRefresh("every now and then", func() {}); err == nil {
		t.Error("expected invalid spec to be rejected")
	}
	if s.Entries() != 2 {
		t.Errorf("expected 2 entries, got %d", s.Entries())
	}

	s.Start()
	s.Stop()
}
