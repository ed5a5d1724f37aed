package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// WatchConfig holds configuration for the watch command.
type WatchConfig struct {
	RPCURL         string
	Pools          []string
	Interval       time.Duration
	RetryDelay     time.Duration
	MaxRetries     int
	StaleThreshold time.Duration
	FetchTimeout   time.Duration
	LogLevel       string
}

// LoadWatch merges config file, environment variables, and flags into
// WatchConfig.
func LoadWatch(cfgFile string, flags *pflag.FlagSet) (WatchConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"interval":        10 * time.Second,
		"retry-delay":     2 * time.Second,
		"max-retries":     3,
		"stale-threshold": 30 * time.Second,
		"fetch-timeout":   10 * time.Second,
		"log-level":       "info",
	})
	if err != nil {
		return WatchConfig{}, err
	}

	cfg := WatchConfig{
		RPCURL:         v.GetString("rpc"),
		Pools:          getStringSlice(v, "pool"),
		Interval:       v.GetDuration("interval"),
		RetryDelay:     v.GetDuration("retry-delay"),
		MaxRetries:     v.GetInt("max-retries"),
		StaleThreshold: v.GetDuration("stale-threshold"),
		FetchTimeout:   v.GetDuration("fetch-timeout"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("PIPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, item := range typed {
			out[k] = fmt.Sprintf("%v", item)
		}
		return out
	case []string:
		return parseStringMap(strings.Join(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return parseStringMap(strings.Join(items, ","))
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
