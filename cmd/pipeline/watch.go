package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchScope/internal/chain"
	"launchScope/internal/config"
	"launchScope/internal/curve"
	"launchScope/internal/poller"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
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

	pools, err := parseAddresses(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}

	pollerCfg := poller.Config{
		Interval:       cfg.Interval,
		RetryDelay:     cfg.RetryDelay,
		MaxRetries:     cfg.MaxRetries,
		StaleThreshold: cfg.StaleThreshold,
		FetchTimeout:   cfg.FetchTimeout,
	}

	pollers := make(map[string]*poller.Poller, len(pools))
	for _, pool := range pools {
		reader, err := curve.NewReader(chainClient, pool)
		if err != nil {
			return err
		}
		p, err := poller.New(pollerCfg, reader, logger.With(zap.String("pool", pool.Hex())))
		if err != nil {
			return err
		}
		pollers[pool.Hex()] = p
	}

	logger.Info("watch start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("chain_id", chainID.String()),
		zap.Int("pools", len(pools)),
		zap.Duration("interval", cfg.Interval),
		zap.Duration("stale_threshold", cfg.StaleThreshold),
	)

	for _, p := range pollers {
		p.Start(ctx)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, p := range pollers {
				p.Stop()
			}
			return nil
		case <-ticker.C:
			for pool, p := range pollers {
				logSnapshot(logger, pool, p.Snapshot())
			}
		}
	}
}

func logSnapshot(logger *zap.Logger, pool string, snap poller.Snapshot) {
	fields := []zap.Field{
		zap.String("pool", pool),
		zap.String("state", string(snap.State)),
		zap.Bool("stale", snap.Stale),
	}
	if !snap.HasData {
		logger.Info("no price data yet", fields...)
		return
	}

	fields = append(fields,
		zap.String("price", snap.Current.Price.String()),
		zap.String("direction", string(snap.Direction)),
		zap.String("change_bps", snap.ChangeBps.String()),
		zap.Uint64("progress_pct", snap.Progress),
	)
	if snap.LastErr != nil {
		fields = append(fields, zap.NamedError("last_error", snap.LastErr))
	}
	logger.Info("price status", fields...)
}
