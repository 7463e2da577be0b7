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


package types

import (
	"errors"
	"slices"
	"strconv"
)

const (
	ProposalDocumentKeyPrefix = "pd"
)

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction belongs to a different store
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned by operations that require a transaction
var ErrNilTxn = errors.New("nil transaction")

// ErrNoStoreAvailable is returned when a read-write transaction has no backing store
var ErrNoStoreAvailable = errors.New("no store available")

// ErrBlobStoreUnavailable is returned when the blob store has been closed
var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// Txn is the common commit/rollback contract of the blob and metadata stores
type Txn interface {
	Commit() error
	Rollback() error
}

// ProposalDocumentKey returns the blob key for a proposal's title and pitch
func ProposalDocumentKey(registry string, proposalID uint64) []byte {
	return slices.Concat(
		[]byte(ProposalDocumentKeyPrefix),
		[]byte(registry),
		[]byte{':'},
		[]byte(strconv.FormatUint(proposalID, 10)),
	)
}
