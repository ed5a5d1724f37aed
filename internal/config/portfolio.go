package config

import (
	"github.com/spf13/pflag"
)

// PortfolioConfig holds configuration for the portfolio command.
// Markets maps token address to its launch pool address so each held
// token's price can be read from its curve.
type PortfolioConfig struct {
	RPCURL   string
	Owners   []string
	Tokens   []string
	Markets  map[string]string
	LogLevel string
}

// LoadPortfolio merges config file, environment variables, and flags
// into PortfolioConfig.
func LoadPortfolio(cfgFile string, flags *pflag.FlagSet) (PortfolioConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"log-level": "info",
	})
	if err != nil {
		return PortfolioConfig{}, err
	}

	cfg := PortfolioConfig{
		RPCURL:   v.GetString("rpc"),
		Owners:   getStringSlice(v, "owner"),
		Tokens:   getStringSlice(v, "token"),
		Markets:  getStringMap(v, "market"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
