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
	ErrAccountNotFound     = errors.New("account not found")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrNonFungibleNotFound = errors.New("non-fungible not found")
)

const (
	ResourceKindFungible    uint8 = 1
	ResourceKindNonFungible uint8 = 2
)

// LedgerState holds the single row of substrate-wide state
type LedgerState struct {
	ID    uint   `gorm:"primarykey"`
	Epoch uint64 `gorm:"not null"`
}

func (LedgerState) TableName() string {
	return "ledger_state"
}

// Account is a named principal that can sign transactions
type Account struct {
	ID         uint   `gorm:"primarykey"`
	Address    string `gorm:"size:128;uniqueIndex;not null"`
	AddedEpoch uint64 `gorm:"not null"`
}

func (Account) TableName() string {
	return "account"
}

// Resource is a fungible or non-fungible token definition. An empty Minter
// means the supply is fixed at creation.
type Resource struct {
	ID          uint            `gorm:"primarykey"`
	Address     string          `gorm:"size:128;uniqueIndex;not null"`
	Kind        uint8           `gorm:"not null"`
	Name        string          `gorm:"size:128"`
	Symbol      string          `gorm:"size:32"`
	Minter      string          `gorm:"size:128"`
	TotalSupply decimal.Decimal `gorm:"not null"`
	AddedEpoch  uint64          `gorm:"not null"`
}

func (Resource) TableName() string {
	return "resource"
}

// Vault is a fungible balance keyed by owner, resource and label
type Vault struct {
	ID       uint            `gorm:"primarykey"`
	Owner    string          `gorm:"size:128;uniqueIndex:idx_vault_key,priority:1;not null"`
	Resource string          `gorm:"size:128;uniqueIndex:idx_vault_key,priority:2;not null"`
	Label    string          `gorm:"size:64;uniqueIndex:idx_vault_key,priority:3;not null"`
	Balance  decimal.Decimal `gorm:"not null"`
}

func (Vault) TableName() string {
	return "vault"
}

// NonFungible is a single unit of a non-fungible resource. Owner is empty
// while the unit is held in a bucket.
type NonFungible struct {
	ID          uint   `gorm:"primarykey"`
	Resource    string `gorm:"size:128;uniqueIndex:idx_nonfungible_id,priority:1;not null"`
	LocalID     string `gorm:"size:64;uniqueIndex:idx_nonfungible_id,priority:2;not null"`
	Owner       string `gorm:"size:128;index:idx_nonfungible_owner,priority:1"`
	Label       string `gorm:"size:64;index:idx_nonfungible_owner,priority:2"`
	Data        []byte
	Burned      bool   `gorm:"not null"`
	MintedEpoch uint64 `gorm:"not null"`
}

func (NonFungible) TableName() string {
	return "non_fungible"
}
