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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ledgerStateRowId = 1

// GetLedgerState returns the substrate state row, or a zero state if none was written
func (s *Store) GetLedgerState(txn types.Txn) (*models.LedgerState, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var state models.LedgerState
	if result := db.First(&state, ledgerStateRowId); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return &models.LedgerState{ID: ledgerStateRowId}, nil
		}
		return nil, result.Error
	}
	return &state, nil
}

// SetLedgerEpoch stores the current epoch
func (s *Store) SetLedgerEpoch(epoch uint64, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	state := models.LedgerState{
		ID:    ledgerStateRowId,
		Epoch: epoch,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"epoch"}),
	}).Create(&state).Error
}

func (s *Store) AddAccount(account *models.Account, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(account).Error
}

func (s *Store) GetAccount(address string, txn types.Txn) (*models.Account, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var account models.Account
	if result := db.Where("address = ?", address).First(&account); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

func (s *Store) AddResource(resource *models.Resource, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(resource).Error
}

func (s *Store) GetResource(address string, txn types.Txn) (*models.Resource, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var resource models.Resource
	if result := db.Where("address = ?", address).First(&resource); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrResourceNotFound
		}
		return nil, result.Error
	}
	return &resource, nil
}

func (s *Store) SetResourceSupply(
	address string,
	supply decimal.Decimal,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Resource{}).
		Where("address = ?", address).
		Update("total_supply", supply)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrResourceNotFound
	}
	return nil
}

// GetVaultBalance returns the balance of a vault, which is zero for a vault never written
func (s *Store) GetVaultBalance(
	owner string,
	resource string,
	label string,
	txn types.Txn,
) (decimal.Decimal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return decimal.Zero, err
	}
	var vault models.Vault
	result := db.Where(
		"owner = ? AND resource = ? AND label = ?",
		owner,
		resource,
		label,
	).First(&vault)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, result.Error
	}
	return vault.Balance, nil
}

func (s *Store) SetVaultBalance(
	owner string,
	resource string,
	label string,
	balance decimal.Decimal,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	vault := models.Vault{
		Owner:    owner,
		Resource: resource,
		Label:    label,
		Balance:  balance,
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "owner"},
			{Name: "resource"},
			{Name: "label"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"balance"}),
	}).Create(&vault).Error
}

// GetVaults returns every vault held by an owner
func (s *Store) GetVaults(owner string, txn types.Txn) ([]models.Vault, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var vaults []models.Vault
	if result := db.Where("owner = ?", owner).
		Order("resource, label").
		Find(&vaults); result.Error != nil {
		return nil, result.Error
	}
	return vaults, nil
}

func (s *Store) AddNonFungible(nf *models.NonFungible, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(nf).Error
}

func (s *Store) GetNonFungible(
	resource string,
	localID string,
	txn types.Txn,
) (*models.NonFungible, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var nf models.NonFungible
	result := db.Where("resource = ? AND local_id = ?", resource, localID).
		First(&nf)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrNonFungibleNotFound
		}
		return nil, result.Error
	}
	return &nf, nil
}

func (s *Store) SetNonFungibleOwner(
	resource string,
	localID string,
	owner string,
	label string,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.NonFungible{}).
		Where("resource = ? AND local_id = ? AND burned = ?", resource, localID, false).
		Updates(map[string]any{"owner": owner, "label": label})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNonFungibleNotFound
	}
	return nil
}

func (s *Store) BurnNonFungible(
	resource string,
	localID string,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.NonFungible{}).
		Where("resource = ? AND local_id = ? AND burned = ?", resource, localID, false).
		Updates(map[string]any{"owner": "", "label": "", "burned": true})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrNonFungibleNotFound
	}
	return nil
}

// GetNonFungibleIDs returns the unburned local ids held in a vault
func (s *Store) GetNonFungibleIDs(
	owner string,
	resource string,
	label string,
	txn types.Txn,
) ([]string, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ids []string
	result := db.Model(&models.NonFungible{}).
		Where(
			"owner = ? AND resource = ? AND label = ? AND burned = ?",
			owner,
			resource,
			label,
			false,
		).
		Order("local_id").
		Pluck("local_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}
