// Package refresh owns the fetch lifecycle of the chart: which key is
// current, which generation may still write, and what the user may see.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"ammclob/internal/align"
	"ammclob/internal/derive"
	"ammclob/internal/market"
	"ammclob/internal/present"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source is the market data collaborator. It returns or fails once per call.
type Source interface {
	FetchBuckets(ctx context.Context, q market.Query) ([]market.Bucket, error)
}

type Options struct {
	Limit      int
	Descending bool
	View       derive.View
	Present    present.Options
}

// Controller is the single writer of the current generation and snapshot.
// Superseded fetches are not aborted; their results are dropped at merge.
type Controller struct {
	ctx    context.Context
	source Source
	opts   Options
	logger *zap.Logger

	mu         sync.Mutex
	generation uint64
	key        market.Key
	hasKey     bool
	state      State
	err        error
	view       derive.View
	snapshot   *Snapshot

	notifyMu sync.Mutex
	subMu    sync.Mutex
	subs     map[int]func(Status)
	nextSub  int
}

// NewController builds an IDLE controller. Fetches run under ctx, not under
// the context of whoever triggered them.
func NewController(ctx context.Context, source Source, opts Options, logger *zap.Logger) *Controller {
	return &Controller{
		ctx:    ctx,
		source: source,
		opts:   opts,
		logger: logger,
		view:   opts.View,
		subs:   make(map[int]func(Status)),
	}
}

// Select makes (pair, interval) the current key. A different key mints a new
// generation and enters FETCHING; the current key is a no-op.
func (c *Controller) Select(pair market.Pair, interval market.Interval) (uint64, error) {
	if !interval.IsValid() {
		return 0, fmt.Errorf("%w: %q", market.ErrInvalidInterval, interval)
	}
	key := market.Key{Pair: pair, Interval: interval}

	c.mu.Lock()
	if c.hasKey && c.key == key {
		gen := c.generation
		c.mu.Unlock()
		return gen, nil
	}
	gen, st := c.beginLocked(key)
	c.logger.Info("request key changed", zap.Stringer("key", key), zap.Uint64("generation", gen))
	c.unlockAndNotify(st)
	go c.fetch(gen, key)
	return gen, nil
}

// Reload re-issues the current key under a new generation. It is a no-op while IDLE.
func (c *Controller) Reload() (uint64, bool) {
	c.mu.Lock()
	if !c.hasKey {
		c.mu.Unlock()
		return 0, false
	}
	key := c.key
	gen, st := c.beginLocked(key)
	c.logger.Debug("reload", zap.Stringer("key", key), zap.Uint64("generation", gen))
	c.unlockAndNotify(st)
	go c.fetch(gen, key)
	return gen, true
}

// beginLocked mints a generation and enters FETCHING. The previous snapshot is
// cleared so no stale data stays visible.
func (c *Controller) beginLocked(key market.Key) (uint64, Status) {
	c.generation++
	c.key = key
	c.hasKey = true
	c.state = Fetching
	c.err = nil
	c.snapshot = nil
	return c.generation, c.statusLocked()
}

func (c *Controller) fetch(gen uint64, key market.Key) {
	var results [3][]market.Bucket

	// Each goroutine writes only its own slot; the group gates the merge on all three.
	g, ctx := errgroup.WithContext(c.ctx)
	for i, src := range market.Sources() {
		i, src := i, src
		g.Go(func() error {
			buckets, err := c.source.FetchBuckets(ctx, market.Query{
				Key:        key,
				Filter:     src.Filter(),
				Descending: c.opts.Descending,
				Limit:      c.opts.Limit,
			})
			if err != nil {
				return &FetchError{Source: src, Err: fmt.Errorf("%w: %w", ErrTransport, err)}
			}
			if len(buckets) == 0 {
				return &FetchError{Source: src, Err: ErrSourceEmpty}
			}
			if c.opts.Descending {
				slices.Reverse(buckets)
			}
			results[i] = buckets
			return nil
		})
	}
	err := g.Wait()

	if err != nil {
		c.fail(gen, key, err)
		return
	}

	snap := &Snapshot{
		Generation: gen,
		Key:        key,
		AMM:        market.NewSeries(market.SourceAMM, key, results[0]),
		CLOB:       market.NewSeries(market.SourceCLOB, key, results[1]),
		Blended:    market.NewSeries(market.SourceBlended, key, results[2]),
	}
	snap.Rows = align.Align(snap.AMM, snap.CLOB, snap.Blended)
	c.merge(snap)
}

func (c *Controller) merge(snap *Snapshot) {
	c.mu.Lock()
	if snap.Generation != c.generation {
		current := c.generation
		c.mu.Unlock()
		c.logger.Debug("discarding stale response",
			zap.Uint64("generation", snap.Generation),
			zap.Uint64("current", current),
			zap.Stringer("key", snap.Key))
		return
	}
	c.state = Ready
	c.err = nil
	c.snapshot = snap
	c.logger.Info("chart data ready",
		zap.Uint64("generation", snap.Generation),
		zap.Stringer("key", snap.Key),
		zap.Int("rows", len(snap.Rows)),
		zap.Int("partial", align.CountPartial(snap.Rows)),
		zap.Int("duplicates", snap.AMM.Dropped()+snap.CLOB.Dropped()+snap.Blended.Dropped()))
	for _, series := range []*market.Series{snap.AMM, snap.CLOB, snap.Blended} {
		if series.Dropped() > 0 {
			c.logger.Debug("dropped duplicate buckets",
				zap.Stringer("source", series.Source()),
				zap.Stringer("key", series.Key()),
				zap.Int("dropped", series.Dropped()))
		}
	}
	c.unlockAndNotify(c.statusLocked())
}

func (c *Controller) fail(gen uint64, key market.Key, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding stale failure", zap.Uint64("generation", gen), zap.Error(err))
		return
	}
	c.state = Failed
	c.err = err
	c.snapshot = nil
	c.logger.Warn("chart refresh failed",
		zap.Uint64("generation", gen),
		zap.Stringer("key", key),
		zap.Error(err))
	c.unlockAndNotify(c.statusLocked())
}

// SetView changes the display selection. It never refetches; listeners are
// notified so they can re-render the current snapshot.
func (c *Controller) SetView(v derive.View) error {
	if err := v.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.view = v
	c.unlockAndNotify(c.statusLocked())
	return nil
}

func (c *Controller) View() derive.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	return Status{
		State:      c.state,
		Generation: c.generation,
		Key:        c.key,
		HasKey:     c.hasKey,
		Err:        c.err,
	}
}

// Snapshot returns the READY snapshot, or nil in any other state.
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Ready {
		return nil
	}
	return c.snapshot
}

// Frame renders the READY snapshot with the current view. It returns
// ErrNotReady while IDLE or FETCHING and the failure cause while FAILED.
func (c *Controller) Frame() (present.Frame, error) {
	c.mu.Lock()
	state, snap, view, ferr := c.state, c.snapshot, c.view, c.err
	c.mu.Unlock()

	switch state {
	case Ready:
	case Failed:
		return present.Frame{}, ferr
	default:
		return present.Frame{}, ErrNotReady
	}

	f, err := present.Build(snap.Key, snap.Rows, view, c.opts.Present)
	if err != nil {
		return present.Frame{}, err
	}
	f.Generation = snap.Generation
	return f, nil
}

// Subscribe registers fn for every state transition and view change. fn runs
// on the goroutine that caused the transition, in transition order. It must
// not block and must not call back into the Controller.
func (c *Controller) Subscribe(fn func(Status)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

// unlockAndNotify releases c.mu and delivers st. notifyMu is taken before
// c.mu is released so listeners observe transitions in commit order.
func (c *Controller) unlockAndNotify(st Status) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Unlock()

	c.subMu.Lock()
	fns := make([]func(Status), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// IsSourceEmpty reports whether err is a SourceEmpty failure.
func IsSourceEmpty(err error) bool {
	return errors.Is(err, ErrSourceEmpty)
}
