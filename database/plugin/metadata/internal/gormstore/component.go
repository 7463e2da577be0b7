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

func (s *Store) AddComponent(component *models.Component, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(component).Error
}

func (s *Store) GetComponent(address string, txn types.Txn) (*models.Component, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var component models.Component
	if result := db.Where("address = ?", address).First(&component); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrComponentNotFound
		}
		return nil, result.Error
	}
	return &component, nil
}

// GetComponents returns all instantiated components in creation order
func (s *Store) GetComponents(txn types.Txn) ([]models.Component, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var components []models.Component
	if result := db.Order("id").Find(&components); result.Error != nil {
		return nil, result.Error
	}
	return components, nil
}
