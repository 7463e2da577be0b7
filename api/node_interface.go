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

	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
)

// Node is the interface that the API server uses to query and
// drive the governance ledger. This decouples the HTTP server
// from the concrete node wiring and enables testing with mock
// implementations.
type Node interface {
	// CurrentEpoch returns the epoch of the ledger clock.
	CurrentEpoch() uint64

	// AdvanceEpoch moves a manual clock forward by n epochs.
	AdvanceEpoch(ctx context.Context, n uint64) (uint64, error)

	// RegistryInfo returns the governance registry configuration.
	RegistryInfo(ctx context.Context) (*governance.InstanceInfo, error)

	Proposals(ctx context.Context) ([]*governance.Proposal, error)

	Proposal(
		ctx context.Context,
		id uint64,
	) (*governance.Proposal, error)

	ProposalResult(
		ctx context.Context,
		id uint64,
	) (governance.Result, error)

	CreateProposal(
		ctx context.Context,
		signer ledger.Address,
		args governance.CreateProposalArgs,
	) (uint64, error)

	// CastVote locks amount of the signer's vote tokens and
	// returns the receipt ID.
	CastVote(
		ctx context.Context,
		signer ledger.Address,
		id uint64,
		option uint32,
		amount decimal.Decimal,
	) (string, error)

	Resolve(
		ctx context.Context,
		signer ledger.Address,
		id uint64,
	) (governance.Result, error)

	ResolveExecutive(
		ctx context.Context,
		signer ledger.Address,
		id uint64,
		relay ledger.Address,
		followup string,
	) (governance.Result, error)

	// Redeem returns the amount of vote tokens released.
	Redeem(
		ctx context.Context,
		signer ledger.Address,
		receiptID string,
	) (decimal.Decimal, error)

	Balance(
		ctx context.Context,
		account ledger.Address,
		resource ledger.Address,
	) (decimal.Decimal, error)

	// CounterValue returns the count of the controlled counter.
	CounterValue(ctx context.Context) (uint64, error)
}
