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

package ledger

import (
	"fmt"
	"strings"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AccountPrefix   = "account_"
	ComponentPrefix = "component_"
	ResourcePrefix  = "resource_"
)

// Address identifies an account, component or resource on the ledger
type Address string

func (a Address) String() string {
	return string(a)
}

func (a Address) IsAccount() bool {
	return strings.HasPrefix(string(a), AccountPrefix)
}

func (a Address) IsComponent() bool {
	return strings.HasPrefix(string(a), ComponentPrefix)
}

func (a Address) IsResource() bool {
	return strings.HasPrefix(string(a), ResourcePrefix)
}

// AccountAddress returns the address of the named account
func AccountAddress(name string) Address {
	if strings.HasPrefix(name, AccountPrefix) {
		return Address(name)
	}
	return Address(AccountPrefix + name)
}

// ParseAddress validates an address string
func ParseAddress(s string) (Address, error) {
	for _, prefix := range []string{AccountPrefix, ComponentPrefix, ResourcePrefix} {
		if strings.HasPrefix(s, prefix) && len(s) > len(prefix) {
			return Address(s), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
}

func newAddress(prefix string) Address {
	return Address(prefix + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

type ResourceKind uint8

const (
	ResourceKindFungible    = ResourceKind(models.ResourceKindFungible)
	ResourceKindNonFungible = ResourceKind(models.ResourceKindNonFungible)
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindFungible:
		return "fungible"
	case ResourceKindNonFungible:
		return "non-fungible"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ResourceSpec describes a resource to create. A mintable resource gets the
// creating actor as its minter.
type ResourceSpec struct {
	Kind     ResourceKind
	Name     string
	Symbol   string
	Mintable bool
}

// Resource is the current definition and supply of a resource
type Resource struct {
	Address     Address
	Kind        ResourceKind
	Name        string
	Symbol      string
	Minter      Address
	TotalSupply decimal.Decimal
}

// VaultKey identifies a vault. Accounts use the empty label.
type VaultKey struct {
	Owner    Address
	Resource Address
	Label    string
}

func AccountVault(account Address, resource Address) VaultKey {
	return VaultKey{Owner: account, Resource: resource}
}

func (k VaultKey) String() string {
	if k.Label == "" {
		return fmt.Sprintf("%s/%s", k.Owner, k.Resource)
	}
	return fmt.Sprintf("%s/%s/%s", k.Owner, k.Resource, k.Label)
}
