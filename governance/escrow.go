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
	"fmt"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
)

// VerifyEscrow checks that the escrow vault holds exactly the vote tokens
// backing live receipts, and that every open tally equals the live receipts
// cast for it
func VerifyEscrow(tx *ledger.Tx, registry ledger.Address) error {
	store := tx.DB().Metadata()
	inst, err := store.GetGovernanceInstance(string(registry), tx.Txn().Metadata())
	if err != nil {
		return err
	}
	receipts, err := store.GetLiveVoteReceipts(string(registry), tx.Txn().Metadata())
	if err != nil {
		return err
	}
	live := decimal.Zero
	byOption := make(map[uint64]map[uint32]decimal.Decimal)
	for _, receipt := range receipts {
		live = live.Add(receipt.Amount)
		if byOption[receipt.ProposalID] == nil {
			byOption[receipt.ProposalID] = make(map[uint32]decimal.Decimal)
		}
		byOption[receipt.ProposalID][receipt.OptionIndex] = byOption[receipt.ProposalID][receipt.OptionIndex].Add(receipt.Amount)
	}
	balance, err := tx.Balance(ledger.VaultKey{
		Owner:    registry,
		Resource: ledger.Address(inst.VoteToken),
		Label:    VaultEscrow,
	})
	if err != nil {
		return err
	}
	if !balance.Equal(live) {
		return fmt.Errorf(
			"%w: escrow holds %s, live receipts total %s",
			ErrEscrowMismatch,
			balance.String(),
			live.String(),
		)
	}
	proposals, err := store.GetProposals(string(registry), tx.Txn().Metadata())
	if err != nil {
		return err
	}
	for _, p := range proposals {
		if ProposalStatus(p.Status) != ProposalStatusOpen {
			continue
		}
		if err := verifyTally(&p, byOption[p.ProposalID]); err != nil {
			return err
		}
	}
	return nil
}

func verifyTally(p *models.Proposal, live map[uint32]decimal.Decimal) error {
	for _, opt := range p.Options {
		if !opt.Tally.Equal(live[opt.OptionIndex]) {
			return fmt.Errorf(
				"%w: proposal %d option %d tallies %s, live receipts total %s",
				ErrEscrowMismatch,
				p.ProposalID,
				opt.OptionIndex,
				opt.Tally.String(),
				live[opt.OptionIndex].String(),
			)
		}
	}
	return nil
}
