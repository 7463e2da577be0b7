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

package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/event"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	Database     *database.Database
	Clock        EpochClock
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Ledger executes serialized transactions against the database and hosts
// the live component instances
type Ledger struct {
	config       Config
	logger       *slog.Logger
	db           *database.Database
	clock        EpochClock
	eventBus     *event.EventBus
	metrics      *ledgerMetrics
	txMutex      sync.RWMutex
	componentsMu sync.RWMutex
	components   map[Address]Component
	blueprints   map[string]BlueprintLoader
}

func New(cfg Config) (*Ledger, error) {
	if cfg.Database == nil {
		return nil, ErrNoDatabase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	l := &Ledger{
		config:     cfg,
		logger:     cfg.Logger.With("component", "ledger"),
		db:         cfg.Database,
		clock:      cfg.Clock,
		eventBus:   cfg.EventBus,
		components: make(map[Address]Component),
		blueprints: make(map[string]BlueprintLoader),
	}
	if l.clock == nil {
		clock, err := NewManualClock(ManualClockConfig{
			Database: cfg.Database,
			EventBus: cfg.EventBus,
			Logger:   cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("load epoch clock: %w", err)
		}
		l.clock = clock
	}
	if cfg.PromRegistry != nil {
		l.metrics = &ledgerMetrics{}
		l.metrics.init(cfg.PromRegistry)
	}
	return l, nil
}

func (l *Ledger) Database() *database.Database {
	return l.db
}

func (l *Ledger) Clock() EpochClock {
	return l.clock
}

func (l *Ledger) CurrentEpoch() uint64 {
	return l.clock.CurrentEpoch()
}

// RegisterBlueprint makes a blueprint loadable by LoadComponents
func (l *Ledger) RegisterBlueprint(name string, loader BlueprintLoader) {
	l.componentsMu.Lock()
	defer l.componentsMu.Unlock()
	l.blueprints[name] = loader
}

// LoadComponents rebuilds every recorded component from its blueprint
func (l *Ledger) LoadComponents(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := l.db.Transaction(false)
	defer txn.Release()
	rows, err := l.db.Metadata().GetComponents(txn.Metadata())
	if err != nil {
		return fmt.Errorf("load components: %w", err)
	}
	l.componentsMu.Lock()
	defer l.componentsMu.Unlock()
	for _, row := range rows {
		loader, ok := l.blueprints[row.Blueprint]
		if !ok {
			return fmt.Errorf("%w: %s", ErrBlueprintNotFound, row.Blueprint)
		}
		comp, err := loader(Address(row.Address))
		if err != nil {
			return fmt.Errorf("load component %s: %w", row.Address, err)
		}
		l.components[Address(row.Address)] = comp
	}
	l.logger.Debug("loaded components", "count", len(rows))
	return nil
}

func (l *Ledger) Component(addr Address) (Component, bool) {
	l.componentsMu.RLock()
	defer l.componentsMu.RUnlock()
	comp, ok := l.components[addr]
	return comp, ok
}

// Execute runs fn as a single transaction signed by signer. An empty signer
// runs a system transaction. Any error from fn, or a bucket left unconsumed,
// rolls back every change. Events emitted by fn are published after commit.
func (l *Ledger) Execute(
	ctx context.Context,
	signer Address,
	fn func(*Tx) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	// The epoch is read before the database transaction opens
	epoch := l.clock.CurrentEpoch()
	l.txMutex.Lock()
	tx := l.newTx(ctx, signer, epoch, true)
	err := l.run(tx, fn)
	l.txMutex.Unlock()
	if l.metrics != nil {
		l.metrics.txDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if l.metrics != nil {
			l.metrics.txTotal.WithLabelValues("failed").Inc()
		}
		l.logger.Debug(
			"transaction failed",
			"tx", tx.id,
			"signer", signer,
			"epoch", epoch,
			"error", err,
		)
		return err
	}
	if l.metrics != nil {
		l.metrics.txTotal.WithLabelValues("committed").Inc()
	}
	for _, fn := range tx.commitHooks {
		fn()
	}
	l.publish(tx)
	return nil
}

func (l *Ledger) run(tx *Tx, fn func(*Tx) error) error {
	defer tx.txn.Release()
	if tx.signer != "" {
		ok, err := tx.AccountExists(tx.signer)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("signer: %w: %s", ErrAccountNotFound, tx.signer)
		}
	}
	if err := fn(tx); err != nil {
		return err
	}
	if dangling := tx.danglingBuckets(); len(dangling) > 0 {
		return fmt.Errorf("%w: %v", ErrDanglingBucket, dangling)
	}
	if err := tx.txn.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if len(tx.newComponents) > 0 {
		l.componentsMu.Lock()
		for addr, comp := range tx.newComponents {
			l.components[addr] = comp
		}
		l.componentsMu.Unlock()
	}
	return nil
}

// View runs fn in a read-only transaction. Mutating operations fail with
// ErrReadOnly.
func (l *Ledger) View(ctx context.Context, fn func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	epoch := l.clock.CurrentEpoch()
	l.txMutex.RLock()
	defer l.txMutex.RUnlock()
	tx := l.newTx(ctx, "", epoch, false)
	defer tx.txn.Release()
	return fn(tx)
}

func (l *Ledger) publish(tx *Tx) {
	if l.eventBus == nil {
		return
	}
	for _, evt := range tx.events {
		l.eventBus.Publish(evt.Type, evt)
	}
	l.eventBus.Publish(
		TransactionEventType,
		event.NewEvent(
			TransactionEventType,
			TransactionEvent{
				ID:     tx.id,
				Signer: tx.signer,
				Epoch:  tx.epoch,
				Events: len(tx.events),
			},
		),
	)
}
