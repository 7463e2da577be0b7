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

package api

import (
	"errors"
	"net/http"

	"github.com/blinklabs-io/agora/controlled"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/blinklabs-io/agora/relay"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrMissingSigner   = errors.New("missing " + SignerHeader + " header")
	ErrNoManualClock   = errors.New("epoch clock cannot be advanced")
	ErrAlreadyStarted  = errors.New("server already started")
	ErrTooManyRequests = errors.New("too many requests")
)

var errorStatuses = []struct {
	status int
	errs   []error
}{
	{
		status: http.StatusNotFound,
		errs: []error{
			governance.ErrProposalNotFound,
			governance.ErrReceiptNotFound,
			ledger.ErrAccountNotFound,
			ledger.ErrResourceNotFound,
			ledger.ErrComponentNotFound,
			ledger.ErrNonFungibleNotFound,
		},
	},
	{
		status: http.StatusForbidden,
		errs: []error{
			governance.ErrUnauthorized,
			governance.ErrIdentityGateFailed,
			controlled.ErrUnauthorized,
			relay.ErrUnauthorizedDepositor,
			relay.ErrUnauthorizedCaller,
			ledger.ErrUnauthorizedWithdraw,
			ledger.ErrUnauthorizedDeposit,
			ledger.ErrUnauthorizedMint,
		},
	},
	{
		status: http.StatusConflict,
		errs: []error{
			governance.ErrProposalNotOpen,
			governance.ErrProposalNotClosed,
			governance.ErrDeadlineNotReached,
			governance.ErrReceiptAlreadyRedeemed,
			governance.ErrAlreadyExecuted,
			governance.ErrCredentialNotReturned,
			relay.ErrCredentialSlotEmpty,
			relay.ErrCredentialSlotOccupied,
			ledger.ErrInsufficientBalance,
			ledger.ErrNonFungibleBurned,
			ledger.ErrEpochRegression,
			ErrNoManualClock,
		},
	},
	{
		status: http.StatusBadRequest,
		errs: []error{
			ErrInvalidRequest,
			ErrMissingSigner,
			ErrInvalidPagination,
			governance.ErrInvalidOption,
			governance.ErrInvalidOptions,
			governance.ErrDeadlinePassed,
			governance.ErrDeadlineTooFar,
			governance.ErrCurrencyMismatch,
			governance.ErrMalformedTarget,
			governance.ErrEmptyVote,
			governance.ErrInvalidConfig,
			ledger.ErrInvalidAddress,
			ledger.ErrInvalidAmount,
			ledger.ErrResourceMismatch,
			ledger.ErrResourceKind,
			ledger.ErrMethodNotFound,
			relay.ErrInvalidSlot,
		},
	},
}

// statusForError maps a domain error to an HTTP status code
func statusForError(err error) int {
	for _, entry := range errorStatuses {
		for _, target := range entry.errs {
			if errors.Is(err, target) {
				return entry.status
			}
		}
	}
	return http.StatusInternalServerError
}
