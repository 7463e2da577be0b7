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

package controlled

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
)

const BlueprintName = "controlled"

const (
	MethodIncrement = "increment"
	MethodCount     = "count"
)

var ErrUnauthorized = errors.New("admin badge proof required")

type Blueprint struct {
	logger *slog.Logger
}

func NewBlueprint(logger *slog.Logger) *Blueprint {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Blueprint{
		logger: logger.With("component", "controlled"),
	}
}

func (b *Blueprint) Register(l *ledger.Ledger) {
	l.RegisterBlueprint(BlueprintName, b.Load)
}

func (b *Blueprint) Load(address ledger.Address) (ledger.Component, error) {
	return b.newCounter(address), nil
}

// Instantiate creates a counter at zero and returns its admin badge
func (b *Blueprint) Instantiate(tx *ledger.Tx) (ledger.Address, *ledger.Bucket, error) {
	var badge *ledger.Bucket
	addr, err := tx.NewComponent(BlueprintName, func(addr ledger.Address) (ledger.Component, error) {
		adminBadge, bucket, err := tx.CreateResource(
			ledger.ResourceSpec{
				Kind:   ledger.ResourceKindFungible,
				Name:   "Counter Admin Badge",
				Symbol: "CADM",
			},
			decimal.NewFromInt(1),
		)
		if err != nil {
			return nil, err
		}
		if err := tx.DB().Metadata().AddCounter(
			&models.Counter{
				Component:  string(addr),
				AdminBadge: string(adminBadge),
			},
			tx.Txn().Metadata(),
		); err != nil {
			return nil, fmt.Errorf("add counter: %w", err)
		}
		badge = bucket
		return b.newCounter(addr), nil
	})
	if err != nil {
		return "", nil, err
	}
	return addr, badge, nil
}

// Counter is a target whose mutation is gated on its admin badge
type Counter struct {
	*ledger.Router
	address ledger.Address
	logger  *slog.Logger
}

func (b *Blueprint) newCounter(address ledger.Address) *Counter {
	c := &Counter{
		Router:  ledger.NewRouter(),
		address: address,
		logger:  b.logger.With("counter", address),
	}
	c.Handle(MethodIncrement, c.increment)
	c.Handle(MethodCount, c.count)
	return c
}

func (c *Counter) Address() ledger.Address {
	return c.address
}

func (c *Counter) increment(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	counter, err := tx.DB().Metadata().GetCounter(string(c.address), tx.Txn().Metadata())
	if err != nil {
		return nil, err
	}
	if !call.HasProof(ledger.Address(counter.AdminBadge), decimal.NewFromInt(1)) {
		return nil, ErrUnauthorized
	}
	count := counter.Count + 1
	if err := tx.DB().Metadata().SetCounterCount(string(c.address), count, tx.Txn().Metadata()); err != nil {
		return nil, err
	}
	tx.OnCommit(func() {
		c.logger.Info(fmt.Sprintf("counter incremented to %d", count), "caller", call.Caller)
	})
	return ledger.NewResult(count)
}

func (c *Counter) count(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	counter, err := tx.DB().Metadata().GetCounter(string(c.address), tx.Txn().Metadata())
	if err != nil {
		return nil, err
	}
	return ledger.NewResult(counter.Count)
}

// Count reads the counter value through a call
func Count(tx *ledger.Tx, counter ledger.Address) (uint64, error) {
	res, err := tx.Call(counter, MethodCount, ledger.Request{})
	if err != nil {
		return 0, err
	}
	var ret uint64
	if err := res.Decode(&ret); err != nil {
		return 0, err
	}
	return ret, nil
}
