package service

import (
	"context"
	"fmt"
	"sync"

	"ammclob/config"
	"ammclob/internal/directory"
	"ammclob/internal/market"
	"ammclob/internal/memorystore"
	"ammclob/internal/present"
	"ammclob/internal/refresh"
	"ammclob/internal/server"
	"ammclob/pkg/xrpl"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service wires the clients, the refresh controller, the pool directory and
// the HTTP boundary.
type Service struct {
	cfg        *config.Config
	logger     *zap.Logger
	controller *refresh.Controller
	pools      *memorystore.PoolStore
	directory  *directory.Directory
	scheduler  *directory.Scheduler
	server     *server.Server

	autoSelect sync.Once
}

// Start builds every component. Nothing touches the network until Run.
func Start(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	interval, err := market.ParseInterval(cfg.Chart.Interval)
	if err != nil {
		return nil, fmt.Errorf("chart interval: %w", err)
	}
	view, err := cfg.Chart.View()
	if err != nil {
		return nil, err
	}
	policy, err := present.ParseUndefinedPolicy(cfg.Chart.UndefinedPolicy)
	if err != nil {
		return nil, err
	}

	// Create REST clients for market data and the pool listing
	marketData := xrpl.NewMarketDataClient(
		cfg.XRPL.MarketData.BaseURL,
		cfg.XRPL.MarketData.Timeout,
		cfg.XRPL.MarketData.RateLimit,
		cfg.XRPL.MarketData.Burst,
	)
	poolClient := xrpl.NewPoolClient(cfg.XRPL.Pools.URL, cfg.XRPL.Pools.Timeout)

	s := &Service{
		cfg:    cfg,
		logger: logger,
		pools:  memorystore.NewPoolStore(),
	}

	s.controller = refresh.NewController(ctx, marketData, refresh.Options{
		Limit:      cfg.Chart.Limit,
		Descending: cfg.Chart.Descending,
		View:       view,
		Present:    present.Options{Policy: policy},
	}, logger.Named("refresh"))

	s.directory = &directory.Directory{
		Loader: &directory.PoolLoader{
			Client:  poolClient,
			Timeout: cfg.XRPL.Pools.Timeout,
			Logger:  logger.Named("directory"),
		},
		Store: s.pools,
	}
	if cfg.Chart.AutoSelect {
		s.directory.OnLoad = func(pools []market.Pool) { s.selectFirst(pools, interval) }
	}

	s.scheduler = directory.NewScheduler(ctx, logger.Named("scheduler"))
	if err := s.scheduler.AddPoolRefresh(cfg.Schedule.PoolRefresh, s.directory); err != nil {
		return nil, err
	}
	if err := s.scheduler.AddChartRefresh(cfg.Schedule.ChartRefresh, func() { s.controller.Reload() }); err != nil {
		return nil, err
	}

	s.server = server.New(cfg.Server, s.controller, s.pools, interval, logger.Named("server"))
	return s, nil
}

// Controller exposes the refresh controller.
func (s *Service) Controller() *refresh.Controller { return s.controller }

// Run loads the pool directory, starts the scheduler and serves until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.scheduler.Start()
	defer s.scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A failed initial load is not fatal; the scheduler retries on its next tick.
		if err := s.directory.Refresh(gctx); err != nil {
			s.logger.Warn("initial pool load failed", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		return s.server.Run(gctx)
	})
	return g.Wait()
}

// selectFirst picks pool 0 once, unless a pair was already chosen.
func (s *Service) selectFirst(pools []market.Pool, interval market.Interval) {
	if len(pools) == 0 {
		return
	}
	s.autoSelect.Do(func() {
		if s.controller.Status().HasKey {
			return
		}
		first := pools[0]
		if _, err := s.controller.Select(first.Pair, interval); err != nil {
			s.logger.Warn("auto-select failed", zap.String("pool", first.Label()), zap.Error(err))
			return
		}
		s.logger.Info("auto-selected pool", zap.String("pool", first.Label()), zap.Stringer("interval", interval))
	})
}
