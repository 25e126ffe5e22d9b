package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds engine settings loaded from flags, env, or config file.
type Config struct {
	ChainID                uint64
	DomainName             string
	DomainVersion          string
	FeeBps                 uint64
	Out                    string
	NonceCheckpoint        string
	NonceCheckpointEnabled bool
	PgDSN                  string
	MaxRetries             int
	RetryBackoff           time.Duration
	LogLevel               string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("domain-name", "swapforge")
	v.SetDefault("domain-version", "1")
	v.SetDefault("fee-bps", uint64(30))
	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("nonce-checkpoint", "./data/nonces.json")
	v.SetDefault("nonce-checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		ChainID:                v.GetUint64("chain-id"),
		DomainName:             v.GetString("domain-name"),
		DomainVersion:          v.GetString("domain-version"),
		FeeBps:                 v.GetUint64("fee-bps"),
		Out:                    v.GetString("out"),
		NonceCheckpoint:        v.GetString("nonce-checkpoint"),
		NonceCheckpointEnabled: v.GetBool("nonce-checkpoint-enabled"),
		PgDSN:                  v.GetString("pg-dsn"),
		MaxRetries:             v.GetInt("max-retries"),
		RetryBackoff:           v.GetDuration("retry-backoff"),
		LogLevel:               v.GetString("log-level"),
	}

	return cfg, nil
}
