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


package gormstore

import (
	"errors"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/types"
	"gorm.io/gorm"
)

func (s *Store) AddGovernanceInstance(
	instance *models.GovernanceInstance,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(instance).Error
}

func (s *Store) GetGovernanceInstance(
	component string,
	txn types.Txn,
) (*models.GovernanceInstance, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var instance models.GovernanceInstance
	if result := db.Where("component = ?", component).First(&instance); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrGovernanceInstanceNotFound
		}
		return nil, result.Error
	}
	return &instance, nil
}

// SetGovernanceInstance saves all fields of an existing instance
func (s *Store) SetGovernanceInstance(
	instance *models.GovernanceInstance,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Save(instance).Error
}

// AddProposal inserts a proposal together with its options
func (s *Store) AddProposal(proposal *models.Proposal, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(proposal).Error
}

func preloadOptions(db *gorm.DB) *gorm.DB {
	return db.Order("option_index")
}

func (s *Store) GetProposal(
	registry string,
	proposalID uint64,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var proposal models.Proposal
	result := db.Preload("Options", preloadOptions).
		Where("registry = ? AND proposal_id = ?", registry, proposalID).
		First(&proposal)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrProposalNotFound
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// GetProposals returns every proposal of a registry ordered by id
func (s *Store) GetProposals(
	registry string,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var proposals []models.Proposal
	result := db.Preload("Options", preloadOptions).
		Where("registry = ?", registry).
		Order("proposal_id").
		Find(&proposals)
	if result.Error != nil {
		return nil, result.Error
	}
	return proposals, nil
}

// SaveProposal updates a proposal row and its option tallies
func (s *Store) SaveProposal(proposal *models.Proposal, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Omit("Options").Save(proposal); result.Error != nil {
		return result.Error
	}
	for i := range proposal.Options {
		opt := &proposal.Options[i]
		result := db.Model(&models.ProposalOption{}).
			Where("id = ?", opt.ID).
			Update("tally", opt.Tally)
		if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

func (s *Store) AddVoteReceipt(receipt *models.VoteReceipt, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(receipt).Error
}

func (s *Store) GetVoteReceipt(
	registry string,
	receiptID string,
	txn types.Txn,
) (*models.VoteReceipt, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var receipt models.VoteReceipt
	result := db.Where("registry = ? AND receipt_id = ?", registry, receiptID).
		First(&receipt)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrVoteReceiptNotFound
		}
		return nil, result.Error
	}
	return &receipt, nil
}

// SetVoteReceiptRedeemed marks a live receipt as redeemed. It fails with
// ErrVoteReceiptNotFound if the receipt is unknown or already redeemed.
func (s *Store) SetVoteReceiptRedeemed(
	registry string,
	receiptID string,
	epoch uint64,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.VoteReceipt{}).
		Where(
			"registry = ? AND receipt_id = ? AND redeemed_epoch IS NULL",
			registry,
			receiptID,
		).
		Update("redeemed_epoch", epoch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrVoteReceiptNotFound
	}
	return nil
}

// GetLiveVoteReceipts returns the receipts of a registry that were not redeemed
func (s *Store) GetLiveVoteReceipts(
	registry string,
	txn types.Txn,
) ([]models.VoteReceipt, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var receipts []models.VoteReceipt
	result := db.Where("registry = ? AND redeemed_epoch IS NULL", registry).
		Order("id").
		Find(&receipts)
	if result.Error != nil {
		return nil, result.Error
	}
	return receipts, nil
}
