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

package governance

import (
	"errors"

	"github.com/blinklabs-io/agora/database/models"
)

var (
	ErrProposalNotFound       = models.ErrProposalNotFound
	ErrReceiptNotFound        = models.ErrVoteReceiptNotFound
	ErrInvalidOption          = errors.New("option index out of range")
	ErrInvalidOptions         = errors.New("invalid proposal options")
	ErrProposalNotOpen        = errors.New("proposal is not open")
	ErrProposalNotClosed      = errors.New("proposal is not closed")
	ErrDeadlineNotReached     = errors.New("deadline not reached")
	ErrDeadlinePassed         = errors.New("deadline must be in the future")
	ErrDeadlineTooFar         = errors.New("deadline exceeds proposal duration")
	ErrCurrencyMismatch       = errors.New("vote token mismatch")
	ErrIdentityGateFailed     = errors.New("identity token proof required")
	ErrReceiptAlreadyRedeemed = errors.New("receipt already redeemed")
	ErrMalformedTarget        = errors.New("malformed executive target")
	ErrEmptyVote              = errors.New("vote bucket is empty")
	ErrUnauthorized           = errors.New("admin badge proof required")
	ErrAlreadyExecuted        = errors.New("proposal already executed")
	ErrCredentialNotReturned  = errors.New("relay did not return the credential")
	ErrInvalidConfig          = errors.New("invalid governance configuration")
	ErrEscrowMismatch         = errors.New("escrow balance does not match live receipts")
)
