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

package governance

import (
	"github.com/blinklabs-io/agora/event"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
)

const (
	ProposalCreatedEventType  event.EventType = "governance.proposal_created"
	VoteCastEventType         event.EventType = "governance.vote_cast"
	ReceiptRedeemedEventType  event.EventType = "governance.receipt_redeemed"
	ProposalResolvedEventType event.EventType = "governance.proposal_resolved"
	ProposalExecutedEventType event.EventType = "governance.proposal_executed"
)

type ProposalCreatedEvent struct {
	Registry   ledger.Address
	ProposalID uint64
	Kind       ProposalKind
	Deadline   uint64
}

// VoteCastEvent carries no voter identity
type VoteCastEvent struct {
	Registry   ledger.Address
	ProposalID uint64
	Option     uint32
	Amount     decimal.Decimal
}

type ReceiptRedeemedEvent struct {
	Registry   ledger.Address
	ProposalID uint64
	Option     uint32
	Amount     decimal.Decimal
	// Retracted is set when the redemption reduced an open tally
	Retracted bool
}

type ProposalResolvedEvent struct {
	Registry   ledger.Address
	ProposalID uint64
	Result     Result
	TotalCast  decimal.Decimal
}

type ProposalExecutedEvent struct {
	Registry   ledger.Address
	ProposalID uint64
	Mode       ExecutionMode
	Component  ledger.Address
	Method     string
}
