// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/agora/database/plugin"
	"github.com/blinklabs-io/agora/governance"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "agora.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultBlobPlugin      = "badger"
	DefaultMetadataPlugin  = "sqlite"
	ClockModeManual        = "manual"
	ClockModeTimed         = "timed"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

// ErrPluginListRequested is returned when the user requests to list available plugins
// This is not an error condition but a successful operation that displays plugin information
var ErrPluginListRequested = errors.New("plugin list requested")

var ErrInvalidConfig = errors.New("invalid configuration")

type DatabaseConfig struct {
	Path           string `yaml:"path"           envconfig:"AGORA_DATABASE_PATH"`
	BlobPlugin     string `yaml:"blobPlugin"     envconfig:"AGORA_DATABASE_BLOB_PLUGIN"`
	MetadataPlugin string `yaml:"metadataPlugin" envconfig:"AGORA_DATABASE_METADATA_PLUGIN"`
	// Dsn is the connection string for the postgres and mysql plugins
	Dsn string `yaml:"dsn" envconfig:"AGORA_DATABASE_DSN"`
}

type APIConfig struct {
	// ListenAddress is empty to disable the API
	ListenAddress string  `yaml:"listenAddress" envconfig:"AGORA_API_LISTEN_ADDRESS"`
	RateLimit     float64 `yaml:"rateLimit"     envconfig:"AGORA_API_RATE_LIMIT"`
	RateBurst     int     `yaml:"rateBurst"     envconfig:"AGORA_API_RATE_BURST"`
}

type MetricsConfig struct {
	BindAddr string `yaml:"bindAddr" envconfig:"AGORA_METRICS_BIND_ADDR"`
	// Port is 0 to disable the metrics listener
	Port uint `yaml:"port" envconfig:"AGORA_METRICS_PORT"`
}

type ClockConfig struct {
	Mode        string `yaml:"mode"        envconfig:"AGORA_CLOCK_MODE"`
	EpochLength string `yaml:"epochLength" envconfig:"AGORA_CLOCK_EPOCH_LENGTH"`
	// Genesis is the RFC 3339 start of epoch 0 for the timed clock
	Genesis string `yaml:"genesis" envconfig:"AGORA_CLOCK_GENESIS"`
}

type GenesisAccount struct {
	Name    string `yaml:"name"`
	Balance string `yaml:"balance"`
}

type GenesisConfig struct {
	VoteTokenName   string           `yaml:"voteTokenName"   envconfig:"AGORA_GENESIS_VOTE_TOKEN_NAME"`
	VoteTokenSymbol string           `yaml:"voteTokenSymbol" envconfig:"AGORA_GENESIS_VOTE_TOKEN_SYMBOL"`
	Accounts        []GenesisAccount `yaml:"accounts"        ignored:"true"`
	Counter         bool             `yaml:"counter"         envconfig:"AGORA_GENESIS_COUNTER"`
	Relay           bool             `yaml:"relay"           envconfig:"AGORA_GENESIS_RELAY"`
}

type GovernanceConfig struct {
	ProposalDuration uint64 `yaml:"proposalDuration" envconfig:"AGORA_GOVERNANCE_PROPOSAL_DURATION"`
	// Quorum is one of any, percent or fixed
	Quorum       string `yaml:"quorum"       envconfig:"AGORA_GOVERNANCE_QUORUM"`
	QuorumValue  string `yaml:"quorumValue"  envconfig:"AGORA_GOVERNANCE_QUORUM_VALUE"`
	QuorumSupply string `yaml:"quorumSupply" envconfig:"AGORA_GOVERNANCE_QUORUM_SUPPLY"`
}

type TracingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"AGORA_TRACING_ENABLED"`
	Stdout  bool `yaml:"stdout"  envconfig:"AGORA_TRACING_STDOUT"`
}

type Config struct {
	Database        DatabaseConfig   `yaml:"database"        envconfig:"DATABASE"`
	API             APIConfig        `yaml:"api"             envconfig:"API"`
	Metrics         MetricsConfig    `yaml:"metrics"         envconfig:"METRICS"`
	Clock           ClockConfig      `yaml:"clock"           envconfig:"CLOCK"`
	Genesis         GenesisConfig    `yaml:"genesis"         envconfig:"GENESIS"`
	Governance      GovernanceConfig `yaml:"governance"      envconfig:"GOVERNANCE"`
	Tracing         TracingConfig    `yaml:"tracing"         envconfig:"TRACING"`
	Debug           bool             `yaml:"debug"           envconfig:"AGORA_DEBUG"`
	ShutdownTimeout string           `yaml:"shutdownTimeout" envconfig:"AGORA_SHUTDOWN_TIMEOUT"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:           ".agora",
			BlobPlugin:     DefaultBlobPlugin,
			MetadataPlugin: DefaultMetadataPlugin,
		},
		API: APIConfig{
			ListenAddress: ":3000",
			RateLimit:     20,
			RateBurst:     40,
		},
		Metrics: MetricsConfig{
			BindAddr: "0.0.0.0",
			Port:     12798,
		},
		Clock: ClockConfig{
			Mode: ClockModeManual,
		},
		Genesis: GenesisConfig{
			VoteTokenName:   "Vote Token",
			VoteTokenSymbol: "VOTE",
			Accounts: []GenesisAccount{
				{Name: "admin", Balance: "1000000"},
			},
			Counter: true,
			Relay:   true,
		},
		Governance: GovernanceConfig{
			ProposalDuration: 10,
			Quorum:           "any",
			QuorumSupply:     "resolution",
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadConfig reads the YAML config file, if any, over the defaults and then
// applies AGORA_* environment variables
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.agora/agora.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".agora", "agora.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/agora/agora.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/agora/agora.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("agora", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value that is parsed later when the node is built
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("%w: shutdownTimeout %q", ErrInvalidConfig, c.ShutdownTimeout)
	}
	switch c.Clock.Mode {
	case ClockModeManual:
	case ClockModeTimed:
		d, err := time.ParseDuration(c.Clock.EpochLength)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: clock epochLength %q", ErrInvalidConfig, c.Clock.EpochLength)
		}
		if c.Clock.Genesis != "" {
			if _, err := time.Parse(time.RFC3339, c.Clock.Genesis); err != nil {
				return fmt.Errorf("%w: clock genesis %q", ErrInvalidConfig, c.Clock.Genesis)
			}
		}
	default:
		return fmt.Errorf(
			"%w: clock mode %q (must be '%s' or '%s')",
			ErrInvalidConfig,
			c.Clock.Mode,
			ClockModeManual,
			ClockModeTimed,
		)
	}
	if _, err := c.QuorumRule(); err != nil {
		return err
	}
	if _, err := c.QuorumSupply(); err != nil {
		return err
	}
	if len(c.Genesis.Accounts) == 0 {
		return fmt.Errorf("%w: no genesis accounts", ErrInvalidConfig)
	}
	for _, acct := range c.Genesis.Accounts {
		if acct.Balance == "" {
			continue
		}
		if _, err := decimal.NewFromString(acct.Balance); err != nil {
			return fmt.Errorf(
				"%w: genesis balance %q for %s",
				ErrInvalidConfig,
				acct.Balance,
				acct.Name,
			)
		}
	}
	return nil
}

func (c *Config) QuorumRule() (governance.QuorumRule, error) {
	return governance.ParseQuorumRule(c.Governance.Quorum, c.Governance.QuorumValue)
}

func (c *Config) QuorumSupply() (governance.QuorumSupply, error) {
	return governance.ParseQuorumSupply(c.Governance.QuorumSupply)
}

// ListPlugins writes the registered storage plugins and returns
// ErrPluginListRequested
func ListPlugins() error {
	for _, pluginType := range []plugin.PluginType{
		plugin.PluginTypeBlob,
		plugin.PluginTypeMetadata,
	} {
		fmt.Printf("Available %s plugins:\n", plugin.PluginTypeName(pluginType))
		for _, p := range plugin.GetPlugins(pluginType) {
			fmt.Printf("  %s: %s\n", p.Name, p.Description)
		}
	}
	return ErrPluginListRequested
}
