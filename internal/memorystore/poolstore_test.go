package memorystore

import (
	"testing"

	"ammclob/internal/market"
)

func pool(i int, code string) market.Pool {
	return market.Pool{
		Index:       i,
		Pair:        market.Pair{Base: market.XRP(), Counter: market.Issued("rIssuer", code)},
		BaseName:    "XRP",
		CounterName: code,
	}
}

// go test -v --run TestPoolStoreWorker
func TestPoolStoreWorker(t *testing.T) {
	store := NewPoolStore()
	store.Replace([]market.Pool{pool(0, "OLD")})

	ch := make(chan market.Pool)
	done := store.StartWorker(ch)

	ch <- pool(0, "USD")
	// Listing is only swapped when the stream closes.
	if got := store.All(); len(got) != 1 || got[0].CounterName != "OLD" {
		t.Fatalf("listing changed before stream closed: %+v", got)
	}
	ch <- pool(1, "EUR")
	close(ch)
	<-done

	if store.Count() != 2 {
		t.Fatalf("expected 2 pools, got %d", store.Count())
	}
	if store.Loads() != 2 {
		t.Errorf("expected 2 loads, got %d", store.Loads())
	}
	p, ok := store.Get(1)
	if !ok || p.CounterName != "EUR" {
		t.Errorf("unexpected pool at 1: %+v", p)
	}
	if _, ok := store.Get(2); ok {
		t.Error("expected out-of-range index to miss")
	}
	if _, ok := store.Find(pool(9, "USD").Pair); !ok {
		t.Error("expected USD pair to be found")
	}
}

// go test -v --run TestPoolStoreEmptyStreamKeepsListing
func TestPoolStoreEmptyStreamKeepsListing(t *testing.T) {
	store := NewPoolStore()
	store.Replace([]market.Pool{pool(0, "USD")})

	ch := make(chan market.Pool)
	done := store.StartWorker(ch)
	close(ch)
	<-done

	if store.Count() != 1 {
		t.Fatalf("expected previous listing to survive, got %d pools", store.Count())
	}
}

// go test -v --run TestPoolStoreCopyOut
func TestPoolStoreCopyOut(t *testing.T) {
	store := NewPoolStore()
	store.Replace([]market.Pool{pool(0, "USD")})

	all := store.All()
	all[0].CounterName = "mutated"
	if p, _ := store.Get(0); p.CounterName != "USD" {
		t.Errorf("All must return a copy, got %s", p.CounterName)
	}
}
