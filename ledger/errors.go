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
	"errors"

	"github.com/blinklabs-io/agora/database/models"
)

var (
	ErrAccountNotFound      = models.ErrAccountNotFound
	ErrResourceNotFound     = models.ErrResourceNotFound
	ErrNonFungibleNotFound  = models.ErrNonFungibleNotFound
	ErrComponentNotFound    = models.ErrComponentNotFound
	ErrAccountExists        = errors.New("account already exists")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrUnauthorizedWithdraw = errors.New("unauthorized withdraw")
	ErrUnauthorizedDeposit  = errors.New("unauthorized deposit")
	ErrUnauthorizedMint     = errors.New("unauthorized mint or burn")
	ErrResourceMismatch     = errors.New("resource mismatch")
	ErrResourceKind         = errors.New("operation not supported for resource kind")
	ErrNonFungibleBurned    = errors.New("non-fungible is burned")
	ErrDanglingBucket       = errors.New("dangling bucket at end of transaction")
	ErrBucketConsumed       = errors.New("bucket already consumed")
	ErrForeignBucket        = errors.New("bucket does not belong to this transaction")
	ErrMissingBucket        = errors.New("missing bucket argument")
	ErrInvalidProof         = errors.New("proof does not belong to this transaction")
	ErrMethodNotFound       = errors.New("method not found")
	ErrBlueprintNotFound    = errors.New("blueprint not found")
	ErrReadOnly             = errors.New("transaction is read-only")
	ErrEpochRegression      = errors.New("epoch cannot go backwards")
	ErrInvalidEpochLength   = errors.New("epoch length must be positive")
	ErrNoDatabase           = errors.New("no database configured")
)
