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
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/blinklabs-io/agora/api"
	"github.com/blinklabs-io/agora/controlled"
	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/event"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/blinklabs-io/agora/relay"
)

type Node struct {
	config              Config
	eventBus            *event.EventBus
	db                  *database.Database
	manualClock         *ledger.ManualClock
	timedClock          *ledger.TimedClock
	ledger              *ledger.Ledger
	governanceBlueprint *governance.Blueprint
	relayBlueprint      *relay.Blueprint
	counterBlueprint    *controlled.Blueprint
	deployment          Deployment
	api                 *api.Server
	shutdownFuncs       []func(context.Context) error
	ready               chan struct{}
	done                chan struct{}
	shutdownOnce        sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	return n, nil
}

// Run starts the node and blocks until Stop is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.start(ctx); err != nil {
		return errors.Join(err, n.Stop())
	}
	close(n.ready)
	// Wait for shutdown signal
	<-n.done
	return nil
}

// Ready is closed once the node has started
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

func (n *Node) start(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		MetadataDsn:    n.config.metadataDsn,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
	})
	if db != nil {
		n.db = db
	}
	if err != nil {
		var tsErr database.CommitTimestampError
		if errors.As(err, &tsErr) {
			n.config.logger.Error(
				"database stores are out of sync, refusing to start",
				"error", err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Configure epoch clock
	var clock ledger.EpochClock
	switch n.config.clockMode {
	case ClockModeTimed:
		n.timedClock, err = ledger.NewTimedClock(ledger.TimedClockConfig{
			Genesis:      n.config.clockGenesis,
			EpochLength:  n.config.epochLength,
			EventBus:     n.eventBus,
			Logger:       n.config.logger,
			PromRegistry: n.config.promRegistry,
		})
		clock = n.timedClock
	default:
		n.manualClock, err = ledger.NewManualClock(ledger.ManualClockConfig{
			Database:     n.db,
			EventBus:     n.eventBus,
			Logger:       n.config.logger,
			PromRegistry: n.config.promRegistry,
		})
		clock = n.manualClock
	}
	if err != nil {
		return fmt.Errorf("failed to create epoch clock: %w", err)
	}
	// Load ledger and components
	n.ledger, err = ledger.New(ledger.Config{
		Database:     n.db,
		Clock:        clock,
		EventBus:     n.eventBus,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	n.governanceBlueprint = governance.NewBlueprint(governance.BlueprintConfig{
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	n.governanceBlueprint.Register(n.ledger)
	n.relayBlueprint = relay.NewBlueprint(relay.BlueprintConfig{
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	n.relayBlueprint.Register(n.ledger)
	n.counterBlueprint = controlled.NewBlueprint(n.config.logger)
	n.counterBlueprint.Register(n.ledger)
	if err := n.ledger.LoadComponents(ctx); err != nil {
		return err
	}
	n.deployment, err = n.bootstrap(ctx)
	if err != nil {
		return err
	}
	n.eventBus.SubscribeFunc(
		governance.ProposalResolvedEventType,
		n.handleGovernanceEvent,
	)
	n.eventBus.SubscribeFunc(
		governance.ProposalExecutedEventType,
		n.handleGovernanceEvent,
	)
	if n.timedClock != nil {
		n.timedClock.Start(ctx)
	}
	// Configure API
	if n.config.apiListenAddress != "" {
		n.api, err = api.New(
			api.Config{
				ListenAddress: n.config.apiListenAddress,
				RateLimit:     n.config.apiRateLimit,
				RateBurst:     n.config.apiRateBurst,
			},
			api.NewNodeAdapter(api.NodeAdapterConfig{
				Ledger:   n.ledger,
				Registry: n.deployment.Registry,
				Counter:  n.deployment.Counter,
				Clock:    n.manualClock,
			}),
			n.config.logger,
		)
		if err != nil {
			return err
		}
		if err := n.api.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) handleGovernanceEvent(evt event.Event) {
	switch data := evt.Data.(type) {
	case governance.ProposalResolvedEvent:
		n.config.logger.Info(
			fmt.Sprintf("proposal %d resolved: %s", data.ProposalID, data.Result),
			"component", "node",
			"registry", data.Registry,
			"total_cast", data.TotalCast.String(),
		)
	case governance.ProposalExecutedEvent:
		n.config.logger.Info(
			fmt.Sprintf("proposal %d executed", data.ProposalID),
			"component", "node",
			"registry", data.Registry,
			"mode", data.Mode.String(),
			"target", data.Component,
			"method", data.Method,
		)
	}
}

// Ledger returns the node's ledger. It is nil until the node is ready
func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

// Deployment returns the genesis addresses. It is empty until the node is ready
func (n *Node) Deployment() Deployment {
	return n.deployment
}

// ManualClock returns the manual epoch clock, or nil when the clock is timed
func (n *Node) ManualClock() *ledger.ManualClock {
	return n.manualClock
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// APIAddr returns the bound API address, or nil when the API is disabled
func (n *Node) APIAddr() net.Addr {
	if n.api == nil {
		return nil
	}
	return n.api.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if n.timedClock != nil {
		n.timedClock.Stop()
	}

	// Phase 2: Close database
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
