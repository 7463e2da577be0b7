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

package agora

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/agora/governance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Clock modes
const (
	ClockModeManual = "manual"
	ClockModeTimed  = "timed"
)

// GenesisAccount is an account created at genesis with its vote token balance
type GenesisAccount struct {
	Name    string
	Balance decimal.Decimal
}

// GenesisConfig describes the initial ledger. The first account creates the
// vote token and the components and holds the undistributed supply.
type GenesisConfig struct {
	VoteTokenName   string
	VoteTokenSymbol string
	Accounts        []GenesisAccount
	// Counter deploys a controlled counter whose badge is custodied by the registry
	Counter bool
	// Relay deploys an authority relay that accepts credentials from the registry
	Relay bool
}

// GovernanceConfig is the registry configuration applied at genesis
type GovernanceConfig struct {
	ProposalDuration uint64
	Quorum           governance.QuorumRule
	QuorumSupply     governance.QuorumSupply
}

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	dataDir          string
	blobPlugin       string
	metadataPlugin   string
	metadataDsn      string
	apiListenAddress string
	apiRateLimit     float64
	apiRateBurst     int
	clockMode        string
	epochLength      time.Duration
	clockGenesis     time.Time
	genesis          GenesisConfig
	governance       GovernanceConfig
	tracing          bool
	tracingStdout    bool
	shutdownTimeout  time.Duration
}

func (c *Config) validate() error {
	switch c.clockMode {
	case ClockModeManual:
	case ClockModeTimed:
		if c.epochLength <= 0 {
			return errors.New("timed clock requires a positive epoch length")
		}
	default:
		return fmt.Errorf("unknown clock mode: %s", c.clockMode)
	}
	if len(c.genesis.Accounts) == 0 {
		return errors.New("genesis requires at least one account")
	}
	seen := make(map[string]bool)
	for _, acct := range c.genesis.Accounts {
		if acct.Name == "" {
			return errors.New("genesis account without name")
		}
		if seen[acct.Name] {
			return fmt.Errorf("duplicate genesis account: %s", acct.Name)
		}
		seen[acct.Name] = true
		if acct.Balance.Sign() < 0 {
			return fmt.Errorf("negative genesis balance for %s", acct.Name)
		}
	}
	if c.governance.ProposalDuration == 0 {
		return errors.New("proposal duration must be positive")
	}
	if c.apiRateLimit < 0 {
		return errors.New("API rate limit must not be negative")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new agora config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		clockMode: ClockModeManual,
		genesis: GenesisConfig{
			VoteTokenName:   "Vote Token",
			VoteTokenSymbol: "VOTE",
			Accounts: []GenesisAccount{
				{Name: "admin", Balance: decimal.NewFromInt(1000000)},
			},
			Counter: true,
			Relay:   true,
		},
		governance: GovernanceConfig{
			ProposalDuration: 10,
			Quorum:           governance.AnyQuorum(),
		},
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. The default discards all logs
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithMetadataDsn specifies the connection string for network metadata plugins
func WithMetadataDsn(dsn string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataDsn = dsn
	}
}

// WithAPIListenAddress specifies the REST API listen address. Empty disables the API
func WithAPIListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithAPIRateLimit limits each API client to perSecond requests with the given burst
func WithAPIRateLimit(perSecond float64, burst int) ConfigOptionFunc {
	return func(c *Config) {
		c.apiRateLimit = perSecond
		c.apiRateBurst = burst
	}
}

// WithManualClock selects an epoch clock advanced explicitly. This is the default
func WithManualClock() ConfigOptionFunc {
	return func(c *Config) {
		c.clockMode = ClockModeManual
	}
}

// WithTimedClock selects an epoch clock derived from wall time, with epoch 0
// starting at genesis
func WithTimedClock(genesis time.Time, epochLength time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.clockMode = ClockModeTimed
		c.clockGenesis = genesis
		c.epochLength = epochLength
	}
}

// WithGenesis specifies the initial accounts and components
func WithGenesis(genesis GenesisConfig) ConfigOptionFunc {
	return func(c *Config) {
		c.genesis = genesis
	}
}

// WithGovernance specifies the registry configuration used at genesis
func WithGovernance(cfg GovernanceConfig) ConfigOptionFunc {
	return func(c *Config) {
		c.governance = cfg
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) OTLP collector at localhost:4318,
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
