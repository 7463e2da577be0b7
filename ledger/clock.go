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
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/event"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// EpochClock is the source of the current epoch. Epochs never decrease.
type EpochClock interface {
	CurrentEpoch() uint64
}

type ManualClockConfig struct {
	Database     *database.Database
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// ManualClock is an epoch clock advanced explicitly. The epoch is persisted
// in the ledger state so it survives restarts.
type ManualClock struct {
	config  ManualClockConfig
	logger  *slog.Logger
	metrics *clockMetrics
	mu      sync.Mutex
	epoch   atomic.Uint64
}

func NewManualClock(cfg ManualClockConfig) (*ManualClock, error) {
	if cfg.Database == nil {
		return nil, ErrNoDatabase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c := &ManualClock{
		config: cfg,
		logger: cfg.Logger.With("component", "epoch_clock"),
	}
	state, err := cfg.Database.Metadata().GetLedgerState(nil)
	if err != nil {
		return nil, err
	}
	c.epoch.Store(state.Epoch)
	if cfg.PromRegistry != nil {
		c.metrics = &clockMetrics{}
		c.metrics.init(cfg.PromRegistry)
		c.metrics.epoch.Set(float64(state.Epoch))
	}
	return c, nil
}

func (c *ManualClock) CurrentEpoch() uint64 {
	return c.epoch.Load()
}

// SetEpoch moves the clock to epoch. Setting the current epoch again is a no-op.
func (c *ManualClock) SetEpoch(epoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.epoch.Load()
	if epoch < prev {
		return fmt.Errorf("%w: %d -> %d", ErrEpochRegression, prev, epoch)
	}
	if epoch == prev {
		return nil
	}
	txn := c.config.Database.Transaction(true)
	defer txn.Release()
	if err := c.config.Database.Metadata().SetLedgerEpoch(epoch, txn.Metadata()); err != nil {
		return fmt.Errorf("persist epoch: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("persist epoch: %w", err)
	}
	c.epoch.Store(epoch)
	if c.metrics != nil {
		c.metrics.epoch.Set(float64(epoch))
	}
	c.logger.Info(
		fmt.Sprintf("epoch changed from %d to %d", prev, epoch),
		"epoch", epoch,
	)
	if c.config.EventBus != nil {
		c.config.EventBus.Publish(
			EpochChangeEventType,
			event.NewEvent(
				EpochChangeEventType,
				EpochChangeEvent{PreviousEpoch: prev, Epoch: epoch},
			),
		)
	}
	return nil
}

// Advance moves the clock forward by n epochs and returns the new epoch
func (c *ManualClock) Advance(n uint64) (uint64, error) {
	epoch := c.epoch.Load() + n
	if err := c.SetEpoch(epoch); err != nil {
		return 0, err
	}
	return epoch, nil
}

type TimedClockConfig struct {
	// Clock defaults to the real wall clock
	Clock clockwork.Clock
	// Genesis is the start of epoch 0
	Genesis      time.Time
	EpochLength  time.Duration
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// TimedClock derives the epoch from wall time. When started, it publishes an
// epoch change event at every epoch boundary.
type TimedClock struct {
	config  TimedClockConfig
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *clockMetrics
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewTimedClock(cfg TimedClockConfig) (*TimedClock, error) {
	if cfg.EpochLength <= 0 {
		return nil, ErrInvalidEpochLength
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c := &TimedClock{
		config: cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("component", "epoch_clock"),
	}
	if cfg.PromRegistry != nil {
		c.metrics = &clockMetrics{}
		c.metrics.init(cfg.PromRegistry)
	}
	return c, nil
}

func (c *TimedClock) CurrentEpoch() uint64 {
	return c.epochAt(c.clock.Now())
}

func (c *TimedClock) epochAt(t time.Time) uint64 {
	if t.Before(c.config.Genesis) {
		return 0
	}
	return uint64(t.Sub(c.config.Genesis) / c.config.EpochLength)
}

// EpochStart returns the time at which epoch begins
func (c *TimedClock) EpochStart(epoch uint64) time.Time {
	return c.config.Genesis.Add(time.Duration(epoch) * c.config.EpochLength)
}

// Start runs the boundary loop until Stop is called or ctx is done
func (c *TimedClock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

func (c *TimedClock) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *TimedClock) run(ctx context.Context) {
	defer c.wg.Done()
	last := c.CurrentEpoch()
	if c.metrics != nil {
		c.metrics.epoch.Set(float64(last))
	}
	for {
		timer := c.clock.NewTimer(c.EpochStart(last + 1).Sub(c.clock.Now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
		epoch := c.CurrentEpoch()
		if epoch <= last {
			continue
		}
		c.logger.Info(
			fmt.Sprintf("epoch changed from %d to %d", last, epoch),
			"epoch", epoch,
		)
		if c.metrics != nil {
			c.metrics.epoch.Set(float64(epoch))
		}
		if c.config.EventBus != nil {
			c.config.EventBus.Publish(
				EpochChangeEventType,
				event.NewEvent(
					EpochChangeEventType,
					EpochChangeEvent{PreviousEpoch: last, Epoch: epoch},
				),
			)
		}
		last = epoch
	}
}
