package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pipeline",
		Short:        "Launch pool price & trade reconciliation pipeline",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll live prices for launch pools",
		RunE:  runWatch,
	}

	watchCmd.Flags().String("rpc", "", "ledger RPC URL")
	watchCmd.Flags().StringSlice("pool", nil, "launch pool addresses (comma-separated)")
	watchCmd.Flags().Duration("interval", 10*time.Second, "polling interval")
	watchCmd.Flags().Duration("retry-delay", 2*time.Second, "delay between bounded retries")
	watchCmd.Flags().Int("max-retries", 3, "consecutive failures before disconnecting")
	watchCmd.Flags().Duration("stale-threshold", 30*time.Second, "price freshness window (must exceed interval)")
	watchCmd.Flags().Duration("fetch-timeout", 10*time.Second, "budget for one price fetch cycle")
	watchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(watchCmd)

	tradesCmd := &cobra.Command{
		Use:   "trades",
		Short: "Reconcile and print trade history for a pool",
		RunE:  runTrades,
	}

	tradesCmd.Flags().String("rpc", "", "ledger RPC URL")
	tradesCmd.Flags().String("pool", "", "launch pool address")
	tradesCmd.Flags().Uint64("from", 0, "start block when no cached history exists")
	tradesCmd.Flags().Uint("decimals", 18, "token decimals for per-unit prices")
	tradesCmd.Flags().String("redis-addr", "", "Redis address for the trade cache")
	tradesCmd.Flags().Duration("redis-ttl", 24*time.Hour, "Redis cache TTL")
	tradesCmd.Flags().String("pg-dsn", "", "Postgres DSN for the durable trade store")
	tradesCmd.Flags().Duration("cache-timeout", 2*time.Second, "budget for cache reads/writes")
	tradesCmd.Flags().String("kind", "", "filter by kind (buy or sell)")
	tradesCmd.Flags().Uint64("start-time", 0, "filter: earliest timestamp (unix seconds, inclusive)")
	tradesCmd.Flags().Uint64("end-time", 0, "filter: latest timestamp (unix seconds, inclusive)")
	tradesCmd.Flags().Bool("chart-order", false, "print oldest first instead of newest first")
	tradesCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(tradesCmd)

	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Aggregate and value balances across owner addresses",
		RunE:  runPortfolio,
	}

	portfolioCmd.Flags().String("rpc", "", "ledger RPC URL")
	portfolioCmd.Flags().StringSlice("owner", nil, "owner addresses (comma-separated)")
	portfolioCmd.Flags().StringSlice("token", nil, "token addresses (comma-separated)")
	portfolioCmd.Flags().StringSlice("market", nil, "token=pool mappings for price lookup (comma-separated)")
	portfolioCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(portfolioCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func parseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

func parseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		address, err := parseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, nil
}
