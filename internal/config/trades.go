package config

import (
	"time"

	"github.com/spf13/pflag"
)

// TradesConfig holds configuration for the trades command.
type TradesConfig struct {
	RPCURL       string
	Pool         string
	StartBlock   uint64
	Decimals     uint8
	RedisAddr    string
	RedisTTL     time.Duration
	PGDSN        string
	CacheTimeout time.Duration
	Kind         string
	StartTime    uint64
	EndTime      uint64
	ChartOrder   bool
	LogLevel     string
}

// LoadTrades merges config file, environment variables, and flags into
// TradesConfig.
func LoadTrades(cfgFile string, flags *pflag.FlagSet) (TradesConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"decimals":      18,
		"redis-ttl":     24 * time.Hour,
		"cache-timeout": 2 * time.Second,
		"log-level":     "info",
	})
	if err != nil {
		return TradesConfig{}, err
	}

	cfg := TradesConfig{
		RPCURL:       v.GetString("rpc"),
		Pool:         v.GetString("pool"),
		StartBlock:   v.GetUint64("from"),
		Decimals:     uint8(v.GetUint("decimals")),
		RedisAddr:    v.GetString("redis-addr"),
		RedisTTL:     v.GetDuration("redis-ttl"),
		PGDSN:        v.GetString("pg-dsn"),
		CacheTimeout: v.GetDuration("cache-timeout"),
		Kind:         v.GetString("kind"),
		StartTime:    v.GetUint64("start-time"),
		EndTime:      v.GetUint64("end-time"),
		ChartOrder:   v.GetBool("chart-order"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
