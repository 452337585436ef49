package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Config describes everything the demo process loads at startup.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Wallet  WalletConfig  `json:"wallet"`
}

// LoggingConfig feeds pkg/logger.Init.
type LoggingConfig struct {
	Level       string      `json:"level"`
	Format      string      `json:"format"`
	OutputPaths []string    `json:"output_paths"`
	Audit       AuditConfig `json:"audit"`
}

// AuditConfig controls the signing audit trail written by the dev wallet.
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// WalletConfig configures the in-process dev wallet that plays the host
// provider role when no external wallet injects itself.
type WalletConfig struct {
	// ChainConfig points at the YAML file listing upstream chains.
	ChainConfig string `json:"chain_config"`
	// Chain selects which entry of the chain config to connect to.
	Chain string `json:"chain"`
	// PrivateKey is the dev account key as 0x-hex. Dev use only; a real
	// deployment injects an external provider and never configures a key.
	PrivateKey string `json:"private_key"`
	// AutoApprove makes the dev wallet grant and sign without prompting.
	AutoApprove bool `json:"auto_approve"`
}

// Load parses the JSON configuration file at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("empty config path")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// applyDefaults fills in sensible values for fields the user left empty.
func (c *Config) applyDefaults(baseDir string) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Audit.Enabled && c.Logging.Audit.Path == "" {
		c.Logging.Audit.Path = filepath.Join(baseDir, "logs", "wallet-audit.log")
	}

	if c.Wallet.ChainConfig == "" {
		c.Wallet.ChainConfig = filepath.Join(baseDir, "chains.yaml")
	} else if !filepath.IsAbs(c.Wallet.ChainConfig) {
		c.Wallet.ChainConfig = filepath.Join(baseDir, c.Wallet.ChainConfig)
	}
}
