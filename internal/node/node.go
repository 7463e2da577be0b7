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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/agora"
	"github.com/blinklabs-io/agora/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Options converts the loaded config into node options
func Options(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) ([]agora.ConfigOptionFunc, error) {
	shutdownTimeout, err := time.ParseDuration(cfg.ShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	quorum, err := cfg.QuorumRule()
	if err != nil {
		return nil, err
	}
	quorumSupply, err := cfg.QuorumSupply()
	if err != nil {
		return nil, err
	}
	genesis, err := genesisConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts := []agora.ConfigOptionFunc{
		agora.WithLogger(logger),
		agora.WithPrometheusRegistry(promRegistry),
		agora.WithDatabasePath(cfg.Database.Path),
		agora.WithBlobPlugin(cfg.Database.BlobPlugin),
		agora.WithMetadataPlugin(cfg.Database.MetadataPlugin),
		agora.WithMetadataDsn(cfg.Database.Dsn),
		agora.WithAPIListenAddress(cfg.API.ListenAddress),
		agora.WithAPIRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		agora.WithGenesis(genesis),
		agora.WithGovernance(agora.GovernanceConfig{
			ProposalDuration: cfg.Governance.ProposalDuration,
			Quorum:           quorum,
			QuorumSupply:     quorumSupply,
		}),
		agora.WithTracing(cfg.Tracing.Enabled),
		agora.WithTracingStdout(cfg.Tracing.Stdout),
		agora.WithShutdownTimeout(shutdownTimeout),
	}
	switch cfg.Clock.Mode {
	case config.ClockModeTimed:
		epochLength, err := time.ParseDuration(cfg.Clock.EpochLength)
		if err != nil {
			return nil, fmt.Errorf("invalid epoch length: %w", err)
		}
		clockGenesis := time.Now()
		if cfg.Clock.Genesis != "" {
			clockGenesis, err = time.Parse(time.RFC3339, cfg.Clock.Genesis)
			if err != nil {
				return nil, fmt.Errorf("invalid clock genesis: %w", err)
			}
		}
		opts = append(opts, agora.WithTimedClock(clockGenesis, epochLength))
	default:
		opts = append(opts, agora.WithManualClock())
	}
	return opts, nil
}

func genesisConfig(cfg *config.Config) (agora.GenesisConfig, error) {
	ret := agora.GenesisConfig{
		VoteTokenName:   cfg.Genesis.VoteTokenName,
		VoteTokenSymbol: cfg.Genesis.VoteTokenSymbol,
		Counter:         cfg.Genesis.Counter,
		Relay:           cfg.Genesis.Relay,
	}
	for _, acct := range cfg.Genesis.Accounts {
		tmpAcct := agora.GenesisAccount{Name: acct.Name}
		if acct.Balance != "" {
			balance, err := decimal.NewFromString(acct.Balance)
			if err != nil {
				return ret, fmt.Errorf(
					"invalid genesis balance for %s: %w",
					acct.Name,
					err,
				)
			}
			tmpAcct.Balance = balance
		}
		ret.Accounts = append(ret.Accounts, tmpAcct)
	}
	return ret, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := Options(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	n, err := agora.New(agora.NewConfig(opts...))
	if err != nil {
		return err
	}
	shutdownTimeout, _ := time.ParseDuration(cfg.ShutdownTimeout)

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	g, ctx := errgroup.WithContext(signalCtx)
	g.Go(func() error {
		return n.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("initiating graceful shutdown", "component", "node")
		return n.Stop()
	})

	// Metrics and debug listener
	if cfg.Metrics.Port > 0 {
		metricsAddr := fmt.Sprintf(
			"%s:%d",
			cfg.Metrics.BindAddr,
			cfg.Metrics.Port,
		)
		http.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		g.Go(func() error {
			err := metricsServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to start metrics listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				shutdownTimeout,
			)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error(
					"metrics server shutdown error",
					"component", "node",
					"error", err,
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", err)
		return err
	}
	logger.Info("shutdown complete", "component", "node")
	return nil
}
