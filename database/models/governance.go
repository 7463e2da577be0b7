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


package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrGovernanceInstanceNotFound = errors.New("governance instance not found")
	ErrProposalNotFound           = errors.New("proposal not found")
	ErrVoteReceiptNotFound        = errors.New("vote receipt not found")
)

// GovernanceInstance is the configuration and id counter of a registry
type GovernanceInstance struct {
	ID               uint            `gorm:"primarykey"`
	Component        string          `gorm:"size:128;uniqueIndex;not null"`
	ProposalDuration uint64          `gorm:"not null"`
	QuorumKind       uint8           `gorm:"not null"`
	QuorumValue      decimal.Decimal `gorm:"not null"`
	QuorumSupply     uint8           `gorm:"not null"`
	VoteToken        string          `gorm:"size:128;not null"`
	IdentityToken    string          `gorm:"size:128"`
	TallyMode        uint8           `gorm:"not null"`
	VoteSubsidy      uint8           `gorm:"not null"`
	AdminBadge       string          `gorm:"size:128;not null"`
	ReceiptResource  string          `gorm:"size:128;not null"`
	NextProposalID   uint64          `gorm:"not null"`
}

func (GovernanceInstance) TableName() string {
	return "governance_instance"
}

// Proposal is the persisted form of a registry proposal. Target holds the
// CBOR-encoded executive target and is nil for advisory proposals.
type Proposal struct {
	ID             uint             `gorm:"primarykey"`
	Registry       string           `gorm:"size:128;uniqueIndex:idx_proposal_id,priority:1;not null"`
	ProposalID     uint64           `gorm:"uniqueIndex:idx_proposal_id,priority:2;not null"`
	Kind           uint8            `gorm:"not null"`
	Deadline       uint64           `gorm:"index;not null"`
	Status         uint8            `gorm:"index;not null"`
	Outcome        uint8            `gorm:"not null"`
	Winner         uint32           `gorm:"not null"`
	SupplySnapshot decimal.Decimal  `gorm:"not null"`
	CreatedEpoch   uint64           `gorm:"not null"`
	ClosedEpoch    *uint64
	ExecutedEpoch  *uint64
	Target         []byte
	Options        []ProposalOption `gorm:"foreignKey:ProposalRef;constraint:OnDelete:CASCADE"`
}

func (Proposal) TableName() string {
	return "proposal"
}

// ProposalOption is one ballot option and its running tally
type ProposalOption struct {
	ID          uint            `gorm:"primarykey"`
	ProposalRef uint            `gorm:"uniqueIndex:idx_proposal_option,priority:1;not null"`
	OptionIndex uint32          `gorm:"uniqueIndex:idx_proposal_option,priority:2;not null"`
	Label       string          `gorm:"size:256;not null"`
	Tally       decimal.Decimal `gorm:"not null"`
}

func (ProposalOption) TableName() string {
	return "proposal_option"
}

// VoteReceipt records the escrow backing one receipt token
type VoteReceipt struct {
	ID            uint            `gorm:"primarykey"`
	Registry      string          `gorm:"size:128;uniqueIndex:idx_vote_receipt,priority:1;not null"`
	ReceiptID     string          `gorm:"size:64;uniqueIndex:idx_vote_receipt,priority:2;not null"`
	ProposalID    uint64          `gorm:"index;not null"`
	OptionIndex   uint32          `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"not null"`
	VoteToken     string          `gorm:"size:128;not null"`
	CastEpoch     uint64          `gorm:"not null"`
	RedeemedEpoch *uint64         `gorm:"index"`
}

func (VoteReceipt) TableName() string {
	return "vote_receipt"
}
