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

package api

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/agora/controlled"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
)

type NodeAdapterConfig struct {
	Ledger   *ledger.Ledger
	Registry ledger.Address
	// Counter is the controlled counter reported by CounterValue
	Counter ledger.Address
	// Clock, when set, allows the epoch to be advanced over the API
	Clock *ledger.ManualClock
}

// NodeAdapter drives a governance registry on a ledger to implement
// the Node interface. Every call runs in its own ledger transaction.
type NodeAdapter struct {
	config     NodeAdapterConfig
	governance *governance.Client
}

// NewNodeAdapter creates a NodeAdapter. Panics if no ledger is
// configured.
func NewNodeAdapter(cfg NodeAdapterConfig) *NodeAdapter {
	if cfg.Ledger == nil {
		panic("NewNodeAdapter: Ledger must not be nil")
	}
	return &NodeAdapter{
		config:     cfg,
		governance: governance.NewClient(cfg.Registry),
	}
}

func (a *NodeAdapter) CurrentEpoch() uint64 {
	return a.config.Ledger.CurrentEpoch()
}

func (a *NodeAdapter) AdvanceEpoch(
	_ context.Context,
	n uint64,
) (uint64, error) {
	if a.config.Clock == nil {
		return 0, ErrNoManualClock
	}
	return a.config.Clock.Advance(n)
}

func (a *NodeAdapter) RegistryInfo(
	ctx context.Context,
) (*governance.InstanceInfo, error) {
	var ret *governance.InstanceInfo
	err := a.config.Ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.Config(tx)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) Proposals(
	ctx context.Context,
) ([]*governance.Proposal, error) {
	var ret []*governance.Proposal
	err := a.config.Ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.ListProposals(tx)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) Proposal(
	ctx context.Context,
	id uint64,
) (*governance.Proposal, error) {
	var ret *governance.Proposal
	err := a.config.Ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.GetProposal(tx, id)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) ProposalResult(
	ctx context.Context,
	id uint64,
) (governance.Result, error) {
	var ret governance.Result
	err := a.config.Ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.GetResult(tx, id)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) CreateProposal(
	ctx context.Context,
	signer ledger.Address,
	args governance.CreateProposalArgs,
) (uint64, error) {
	var ret uint64
	err := a.config.Ledger.Execute(ctx, signer, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.CreateProposal(tx, args)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) CastVote(
	ctx context.Context,
	signer ledger.Address,
	id uint64,
	option uint32,
	amount decimal.Decimal,
) (string, error) {
	var ret string
	err := a.config.Ledger.Execute(ctx, signer, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.CastVote(tx, id, option, amount)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) Resolve(
	ctx context.Context,
	signer ledger.Address,
	id uint64,
) (governance.Result, error) {
	var ret governance.Result
	err := a.config.Ledger.Execute(ctx, signer, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.Resolve(tx, id)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) ResolveExecutive(
	ctx context.Context,
	signer ledger.Address,
	id uint64,
	relay ledger.Address,
	followup string,
) (governance.Result, error) {
	var ret governance.Result
	err := a.config.Ledger.Execute(ctx, signer, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.ResolveExecutive(tx, id, relay, followup)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) Redeem(
	ctx context.Context,
	signer ledger.Address,
	receiptID string,
) (decimal.Decimal, error) {
	var ret decimal.Decimal
	err := a.config.Ledger.Execute(ctx, signer, func(tx *ledger.Tx) error {
		var err error
		ret, err = a.governance.Redeem(tx, receiptID)
		return err
	})
	return ret, err
}

func (a *NodeAdapter) Balance(
	ctx context.Context,
	account ledger.Address,
	resource ledger.Address,
) (decimal.Decimal, error) {
	var ret decimal.Decimal
	err := a.config.Ledger.View(ctx, func(tx *ledger.Tx) error {
		ok, err := tx.AccountExists(account)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, account)
		}
		ret, err = tx.Balance(ledger.AccountVault(account, resource))
		return err
	})
	return ret, err
}

func (a *NodeAdapter) CounterValue(ctx context.Context) (uint64, error) {
	if a.config.Counter == "" {
		return 0, fmt.Errorf("%w: no counter configured", ledger.ErrComponentNotFound)
	}
	var ret uint64
	err := a.config.Ledger.View(ctx, func(tx *ledger.Tx) error {
		var err error
		ret, err = controlled.Count(tx, a.config.Counter)
		return err
	})
	return ret, err
}
