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

func (s *Store) AddRelayInstance(relay *models.RelayInstance, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(relay).Error
}

func (s *Store) GetRelayInstance(
	component string,
	txn types.Txn,
) (*models.RelayInstance, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var relay models.RelayInstance
	if result := db.Where("component = ?", component).First(&relay); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrRelayInstanceNotFound
		}
		return nil, result.Error
	}
	return &relay, nil
}

// GetCredentialSlot returns the occupied slot, or nil if the slot is empty
func (s *Store) GetCredentialSlot(
	relay string,
	name string,
	txn types.Txn,
) (*models.CredentialSlot, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var slot models.CredentialSlot
	if result := db.Where("relay = ? AND name = ?", relay, name).First(&slot); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &slot, nil
}

func (s *Store) AddCredentialSlot(slot *models.CredentialSlot, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(slot).Error
}

func (s *Store) DeleteCredentialSlot(relay string, name string, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("relay = ? AND name = ?", relay, name).
		Delete(&models.CredentialSlot{}).Error
}

func (s *Store) AddCounter(counter *models.Counter, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(counter).Error
}

func (s *Store) GetCounter(component string, txn types.Txn) (*models.Counter, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var counter models.Counter
	if result := db.Where("component = ?", component).First(&counter); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrCounterNotFound
		}
		return nil, result.Error
	}
	return &counter, nil
}

func (s *Store) SetCounterCount(component string, count uint64, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Counter{}).
		Where("component = ?", component).
		Update("count", count)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrCounterNotFound
	}
	return nil
}
