package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vitwit/pipay"
	"github.com/vitwit/pipay/types"
	"gopkg.in/yaml.v3"
)

const (
	envAPIKey     = "PIPAY_API_KEY"
	envWalletSeed = "PIPAY_WALLET_SEED"
	envNetwork    = "PIPAY_NETWORK"
)

// cliConfig is the on-disk configuration of the CLI.
type cliConfig struct {
	APIKey       string `yaml:"api_key"`
	WalletSeed   string `yaml:"wallet_seed"`
	Network      string `yaml:"network"`
	types.Config `yaml:",inline"`
}

// loadConfig reads path (optional) and applies environment overrides.
func loadConfig(path string) (*cliConfig, error) {
	cfg := &cliConfig{Config: *types.DefaultConfig()}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv(envAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(envWalletSeed); v != "" {
		cfg.WalletSeed = v
	}
	if v := os.Getenv(envNetwork); v != "" {
		cfg.Network = v
	}
	if cfg.Network == "" {
		cfg.Network = string(types.NetworkTestnet)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is not set (config api_key or %s)", envAPIKey)
	}
	if cfg.WalletSeed == "" {
		return nil, fmt.Errorf("wallet seed is not set (config wallet_seed or %s)", envWalletSeed)
	}
	return cfg, nil
}

// newClient loads the configuration and returns an initialized client.
func newClient(ctx context.Context) (*pipay.Client, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if networkOverride != "" {
		cfg.Network = networkOverride
	}

	client := pipay.New(&cfg.Config)
	if err := client.Initialize(ctx, cfg.APIKey, cfg.WalletSeed, cfg.Network); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return client, nil
}
