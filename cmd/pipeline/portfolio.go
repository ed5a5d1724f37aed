package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"launchScope/internal/chain"
	"launchScope/internal/config"
	"launchScope/internal/curve"
	"launchScope/internal/portfolio"
)

func runPortfolio(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPortfolio(cfgFile, cmd.Flags())
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

	owners, err := parseAddresses(cfg.Owners)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if len(owners) == 0 {
		return fmt.Errorf("at least one owner address is required")
	}
	tokens, err := parseAddresses(cfg.Tokens)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("at least one token address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	balances := portfolio.NewChainBalances(chainClient)
	holdings, fetchErrors := portfolio.FetchHoldings(ctx, balances, owners, tokens, logger)
	aggregated := portfolio.Aggregate(holdings)

	markets := make(map[string]string, len(cfg.Markets))
	for token, poolAddr := range cfg.Markets {
		markets[strings.ToLower(token)] = poolAddr
	}

	prices := make(map[string]*big.Int, len(aggregated))
	for _, holding := range aggregated {
		poolAddr, ok := markets[strings.ToLower(holding.TokenAddress)]
		if !ok {
			continue
		}

		pool, err := parseAddress(poolAddr)
		if err != nil {
			return fmt.Errorf("market %s: %w", holding.TokenAddress, err)
		}
		reader, err := curve.NewReader(chainClient, pool)
		if err != nil {
			return err
		}

		params, err := reader.CurveParameters(ctx)
		if err != nil {
			logger.Warn("curve parameters fetch failed",
				zap.String("token", holding.TokenAddress), zap.Error(err))
			continue
		}
		state, err := reader.CurveState(ctx)
		if err != nil {
			logger.Warn("curve state fetch failed",
				zap.String("token", holding.TokenAddress), zap.Error(err))
			continue
		}

		prices[strings.ToLower(holding.TokenAddress)] = curve.Price(params, state.TokensSold)
	}

	valuation := portfolio.Value(aggregated, prices)

	out := map[string]interface{}{
		"total_value":    valuation.Total.String(),
		"tokens":         encodeTokenValues(valuation.PerToken),
		"missing_prices": valuation.MissingPrices,
		"fetch_errors":   len(fetchErrors),
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("encode portfolio: %w", err)
	}

	logger.Info("portfolio complete",
		zap.Int("holdings", len(holdings)),
		zap.Int("tokens", len(aggregated)),
		zap.Int("fetch_errors", len(fetchErrors)),
	)

	return nil
}

func encodeTokenValues(values []portfolio.TokenValue) []map[string]string {
	out := make([]map[string]string, 0, len(values))
	for _, value := range values {
		out = append(out, map[string]string{
			"token":   value.TokenAddress,
			"balance": value.Balance.String(),
			"price":   value.Price.String(),
			"value":   value.Value.String(),
		})
	}
	return out
}
