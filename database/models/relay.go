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
	ErrRelayInstanceNotFound = errors.New("relay instance not found")
	ErrCounterNotFound       = errors.New("counter not found")
)

// RelayInstance binds a relay component to its only permitted depositor
type RelayInstance struct {
	ID        uint   `gorm:"primarykey"`
	Component string `gorm:"size:128;uniqueIndex;not null"`
	Depositor string `gorm:"size:128;not null"`
}

func (RelayInstance) TableName() string {
	return "relay_instance"
}

// CredentialSlot is an occupied relay slot. An empty slot has no row.
type CredentialSlot struct {
	ID          uint            `gorm:"primarykey"`
	Relay       string          `gorm:"size:128;uniqueIndex:idx_credential_slot,priority:1;not null"`
	Name        string          `gorm:"size:64;uniqueIndex:idx_credential_slot,priority:2;not null"`
	Resource    string          `gorm:"size:128;not null"`
	Amount      decimal.Decimal `gorm:"not null"`
	Depositor   string          `gorm:"size:128;not null"`
	StoredEpoch uint64          `gorm:"not null"`
}

func (CredentialSlot) TableName() string {
	return "credential_slot"
}

// Counter is the state of a controlled counter component
type Counter struct {
	ID         uint   `gorm:"primarykey"`
	Component  string `gorm:"size:128;uniqueIndex;not null"`
	AdminBadge string `gorm:"size:128;not null"`
	Count      uint64 `gorm:"not null"`
}

func (Counter) TableName() string {
	return "counter"
}
