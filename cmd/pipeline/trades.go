package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchScope/internal/chain"
	"launchScope/internal/config"
	"launchScope/internal/market"
	"launchScope/internal/model"
	"launchScope/internal/store"
	"launchScope/internal/store/postgres"
	redisstore "launchScope/internal/store/redis"
	"launchScope/internal/trades"
)

func runTrades(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTrades(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	pool, err := parseAddress(cfg.Pool)
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	cache, cleanup, err := openTradeCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	normalizer, err := market.NewNormalizer(cfg.Decimals)
	if err != nil {
		return err
	}

	reconciler := trades.NewReconciler(trades.Config{
		Pool:         pool,
		StartBlock:   cfg.StartBlock,
		CacheTimeout: cfg.CacheTimeout,
	}, chainClient, normalizer, cache, logger)

	records, err := reconciler.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh trades: %w", err)
	}

	query := trades.Query{
		Kind:      model.TradeKind(cfg.Kind),
		StartTime: cfg.StartTime,
		EndTime:   cfg.EndTime,
	}
	records = trades.Filter(records, query)
	if cfg.ChartOrder {
		trades.SortAscending(records)
	}

	encoder := json.NewEncoder(os.Stdout)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return fmt.Errorf("encode trade: %w", err)
		}
	}

	stats := trades.Summarize(records)
	if err := encoder.Encode(map[string]interface{}{
		"buy_count":    stats.BuyCount,
		"sell_count":   stats.SellCount,
		"total_volume": stats.TotalVolume.String(),
	}); err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	logger.Info("trades complete",
		zap.String("pool", pool.Hex()),
		zap.Int("records", len(records)),
		zap.Int("buys", stats.BuyCount),
		zap.Int("sells", stats.SellCount),
	)

	return nil
}

// openTradeCache picks the configured cache backend: Postgres when a
// DSN is set, otherwise Redis, otherwise none. A backend that fails to
// open degrades to no cache rather than aborting, since the reconciler
// works from live data alone.
func openTradeCache(ctx context.Context, cfg config.TradesConfig, logger *zap.Logger) (store.TradeCache, func(), error) {
	if cfg.PGDSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			logger.Warn("postgres unavailable, continuing without cache", zap.Error(err))
			return store.Noop{}, func() {}, nil
		}
		if err := pgStore.EnsureSchema(ctx); err != nil {
			logger.Warn("postgres schema setup failed, continuing without cache", zap.Error(err))
			pgStore.Close()
			return store.Noop{}, func() {}, nil
		}
		return pgStore, pgStore.Close, nil
	}

	if cfg.RedisAddr != "" {
		cache, err := redisstore.New(ctx, cfg.RedisAddr, cfg.RedisTTL)
		if err != nil {
			logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
			return store.Noop{}, func() {}, nil
		}
		return cache, func() { cache.Close() }, nil
	}

	return store.Noop{}, func() {}, nil
}
