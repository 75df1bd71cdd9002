package directory

import (
	"context"
	"time"

	"ammclob/internal/market"
	"ammclob/internal/memorystore"

	"go.uber.org/zap"
)

// PoolLister is the pool listing collaborator.
type PoolLister interface {
	GetPools(ctx context.Context) ([]market.Pool, error)
}

type PoolLoader struct {
	Client  PoolLister
	Timeout time.Duration
	Logger  *zap.Logger
}

// LoadPools fetches the pool listing and streams it into ch.
// The request is bounded by the loader's timeout.
func (l *PoolLoader) LoadPools(ctx context.Context, ch chan<- market.Pool) error {
	defer close(ch) // Ensure downstream consumers can exit cleanly

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	pools, err := l.Client.GetPools(ctx)
	if err != nil {
		l.Logger.Error("failed to load AMM pools", zap.Error(err))
		return err
	}
	l.Logger.Info("loaded pools", zap.Int("count", len(pools)))

	for _, pool := range pools {
		select {
		case ch <- pool:
		case <-ctx.Done():
			l.Logger.Warn("pool streaming interrupted", zap.Error(ctx.Err()))
			return ctx.Err()
		}
	}

	return nil
}

// Directory keeps a PoolStore in sync with the pool listing.
type Directory struct {
	Loader *PoolLoader
	Store  *memorystore.PoolStore
	// OnLoad runs after every successful swap with the new listing.
	OnLoad func([]market.Pool)
}

// Refresh loads the listing once. On failure the previous listing is kept.
func (d *Directory) Refresh(ctx context.Context) error {
	ch := make(chan market.Pool, 100)
	done := d.Store.StartWorker(ch)

	err := d.Loader.LoadPools(ctx, ch)
	<-done
	if err != nil {
		return err
	}

	if d.OnLoad != nil {
		d.OnLoad(d.Store.All())
	}
	return nil
}
