// Copyright 2025 Blink Labs Software
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


package metadata

import (
	"fmt"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/plugin"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Substrate
	GetLedgerState(types.Txn) (*models.LedgerState, error)
	SetLedgerEpoch(uint64, types.Txn) error
	AddAccount(*models.Account, types.Txn) error
	GetAccount(string, types.Txn) (*models.Account, error)
	AddResource(*models.Resource, types.Txn) error
	GetResource(string, types.Txn) (*models.Resource, error)
	SetResourceSupply(string, decimal.Decimal, types.Txn) error
	GetVaultBalance(
		string, // owner
		string, // resource
		string, // label
		types.Txn,
	) (decimal.Decimal, error)
	SetVaultBalance(
		string, // owner
		string, // resource
		string, // label
		decimal.Decimal,
		types.Txn,
	) error
	GetVaults(string, types.Txn) ([]models.Vault, error)
	AddNonFungible(*models.NonFungible, types.Txn) error
	GetNonFungible(
		string, // resource
		string, // local id
		types.Txn,
	) (*models.NonFungible, error)
	SetNonFungibleOwner(
		string, // resource
		string, // local id
		string, // owner
		string, // label
		types.Txn,
	) error
	BurnNonFungible(
		string, // resource
		string, // local id
		types.Txn,
	) error
	GetNonFungibleIDs(
		string, // owner
		string, // resource
		string, // label
		types.Txn,
	) ([]string, error)

	// Components
	AddComponent(*models.Component, types.Txn) error
	GetComponent(string, types.Txn) (*models.Component, error)
	GetComponents(types.Txn) ([]models.Component, error)

	// Governance
	AddGovernanceInstance(*models.GovernanceInstance, types.Txn) error
	GetGovernanceInstance(string, types.Txn) (*models.GovernanceInstance, error)
	SetGovernanceInstance(*models.GovernanceInstance, types.Txn) error
	AddProposal(*models.Proposal, types.Txn) error
	GetProposal(
		string, // registry
		uint64, // proposal id
		types.Txn,
	) (*models.Proposal, error)
	GetProposals(string, types.Txn) ([]models.Proposal, error)
	SaveProposal(*models.Proposal, types.Txn) error
	AddVoteReceipt(*models.VoteReceipt, types.Txn) error
	GetVoteReceipt(
		string, // registry
		string, // receipt id
		types.Txn,
	) (*models.VoteReceipt, error)
	SetVoteReceiptRedeemed(
		string, // registry
		string, // receipt id
		uint64, // epoch
		types.Txn,
	) error
	GetLiveVoteReceipts(string, types.Txn) ([]models.VoteReceipt, error)

	// Relay and counter
	AddRelayInstance(*models.RelayInstance, types.Txn) error
	GetRelayInstance(string, types.Txn) (*models.RelayInstance, error)
	GetCredentialSlot(
		string, // relay
		string, // slot name
		types.Txn,
	) (*models.CredentialSlot, error)
	AddCredentialSlot(*models.CredentialSlot, types.Txn) error
	DeleteCredentialSlot(
		string, // relay
		string, // slot name
		types.Txn,
	) error
	AddCounter(*models.Counter, types.Txn) error
	GetCounter(string, types.Txn) (*models.Counter, error)
	SetCounterCount(string, uint64, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
