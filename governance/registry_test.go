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

package governance_test

import (
	"testing"

	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymousVotingScenario(t *testing.T) {
	h := newHarness(t, "1000000", nil)
	id := h.advisory(5, "zero", "one", "two")
	assert.Equal(t, uint64(0), id)

	receipts := []string{
		h.vote(id, 1, "100"),
		h.vote(id, 2, "50"),
		h.vote(id, 0, "100"),
		h.vote(id, 2, "51"),
	}
	assert.Equal(t, []string{"100", "100", "101"}, h.tally(id))
	assert.True(t, dec("999699").Equal(h.voterBalance()))
	assert.True(t, h.proposal(id).Result.IsOpen())

	h.advanceTo(5)
	assert.Equal(t, governance.Decided(2), h.mustResolve(id))

	for _, receipt := range receipts {
		h.mustRedeem(receipt)
	}
	assert.True(t, dec("1000000").Equal(h.voterBalance()))
	// Redemption after close leaves the frozen tally alone
	assert.Equal(t, []string{"100", "100", "101"}, h.tally(id))
	assert.Equal(t, governance.Decided(2), h.proposal(id).Result)
}

func TestWithdrawalCreatesTie(t *testing.T) {
	h := newHarness(t, "1000000", nil)
	id := h.advisory(5, "zero", "one", "two")
	h.vote(id, 1, "100")
	fifty := h.vote(id, 2, "50")
	h.vote(id, 0, "100")
	h.vote(id, 2, "51")

	amount := h.mustRedeem(fifty)
	assert.True(t, dec("50").Equal(amount))
	assert.Equal(t, []string{"100", "100", "51"}, h.tally(id))

	h.advanceTo(5)
	assert.Equal(t, governance.Decided(0), h.mustResolve(id))
}

func TestWithdrawalChangesOutcome(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.advisory(3, "zero", "one", "two")
	h.vote(id, 0, "10")
	h.vote(id, 1, "5")
	fifteen := h.vote(id, 2, "15")
	h.mustRedeem(fifteen)

	h.advanceTo(3)
	assert.Equal(t, governance.Decided(0), h.mustResolve(id))
}

func TestTieBreakLowestIndex(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.advisory(2, "zero", "one", "two")
	h.vote(id, 1, "10")
	h.vote(id, 0, "10")
	h.vote(id, 2, "5")
	h.advanceTo(2)
	assert.Equal(t, governance.Decided(0), h.mustResolve(id))
}

func TestRedeemIsNetZero(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.advisory(4, "yes", "no")
	h.vote(id, 0, "7.25")
	before := h.tally(id)
	balance := h.voterBalance()

	receipt := h.vote(id, 0, "12.5")
	assert.Equal(t, []string{"19.75", "0"}, h.tally(id))
	amount := h.mustRedeem(receipt)
	assert.True(t, dec("12.5").Equal(amount))
	assert.Equal(t, before, h.tally(id))
	assert.True(t, balance.Equal(h.voterBalance()))
}

func TestDoubleRedeem(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.advisory(4, "yes", "no")
	receipt := h.vote(id, 1, "10")
	h.mustRedeem(receipt)

	_, err := h.redeem(receipt)
	require.ErrorIs(t, err, governance.ErrReceiptAlreadyRedeemed)
	h.verifyEscrow()
	assert.True(t, dec("1000").Equal(h.voterBalance()))

	_, err = h.redeem("no-such-receipt")
	require.ErrorIs(t, err, governance.ErrReceiptNotFound)
}

func TestReceiptIsBearer(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.advisory(4, "yes", "no")
	receipt := h.vote(id, 1, "40")
	info := h.config()

	// Hand the receipt to another account, which then redeems it
	h.exec(voter, func(tx *ledger.Tx) error {
		b, err := tx.WithdrawNonFungibles(ledger.AccountVault(voter, info.ReceiptResource), []string{receipt})
		if err != nil {
			return err
		}
		return tx.Deposit(ledger.AccountVault(outsider, info.ReceiptResource), b)
	})
	_, err := h.redeem(receipt)
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	h.exec(outsider, func(tx *ledger.Tx) error {
		amount, err := h.client.Redeem(tx, receipt)
		if err != nil {
			return err
		}
		assert.True(t, dec("40").Equal(amount))
		return nil
	})
	assert.True(t, dec("40").Equal(h.balance(ledger.AccountVault(outsider, h.token))))
	assert.Equal(t, []string{"0", "0"}, h.tally(id))
	h.verifyEscrow()
}

func TestFixedQuorum(t *testing.T) {
	h := newHarness(t, "10000", func(cfg *governance.InstanceConfig) {
		cfg.Quorum = governance.FixedQuorum(decimal.NewFromInt(1000))
	})
	testDefs := []struct {
		amount   string
		expected governance.Result
	}{
		{amount: "999", expected: governance.Inconclusive()},
		{amount: "1000", expected: governance.Decided(0)},
		{amount: "1301", expected: governance.Decided(0)},
		{amount: "130.1", expected: governance.Inconclusive()},
	}
	ids := make([]uint64, len(testDefs))
	for i, testDef := range testDefs {
		ids[i] = h.advisory(5, "yes", "no")
		h.vote(ids[i], 0, testDef.amount)
	}
	h.advanceTo(5)
	for i, testDef := range testDefs {
		assert.Equal(t, testDef.expected, h.mustResolve(ids[i]), "cast %s", testDef.amount)
	}
}

func TestPercentQuorum(t *testing.T) {
	testDefs := []struct {
		name string
		mode governance.QuorumSupply
	}{
		{name: "resolution supply", mode: governance.QuorumSupplyResolution},
		{name: "creation supply", mode: governance.QuorumSupplyCreation},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			h := newHarness(t, "10000", func(cfg *governance.InstanceConfig) {
				cfg.Quorum = governance.PercentQuorum(decimal.NewFromInt(10))
				cfg.QuorumSupply = testDef.mode
			})
			pass := h.advisory(5, "yes", "no")
			fail := h.advisory(5, "yes", "no")
			h.vote(pass, 1, "1301")
			h.vote(fail, 1, "130.1")
			h.advanceTo(5)
			assert.Equal(t, governance.Decided(1), h.mustResolve(pass))
			assert.Equal(t, governance.Inconclusive(), h.mustResolve(fail))
		})
	}
}

func TestPercentQuorumSupplyChange(t *testing.T) {
	testDefs := []struct {
		name     string
		mode     governance.QuorumSupply
		expected governance.Result
	}{
		{
			name:     "measured at resolution",
			mode:     governance.QuorumSupplyResolution,
			expected: governance.Inconclusive(),
		},
		{
			name:     "measured at creation",
			mode:     governance.QuorumSupplyCreation,
			expected: governance.Decided(0),
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			h := newHarness(t, "10000", func(cfg *governance.InstanceConfig) {
				cfg.Quorum = governance.PercentQuorum(decimal.NewFromInt(10))
				cfg.QuorumSupply = testDef.mode
			})
			id := h.advisory(5, "yes", "no")
			h.vote(id, 0, "1000")
			// Doubling the supply after creation doubles the live requirement
			h.exec(voter, func(tx *ledger.Tx) error {
				b, err := tx.Mint(h.token, decimal.NewFromInt(10000))
				if err != nil {
					return err
				}
				return tx.Deposit(ledger.AccountVault(voter, h.token), b)
			})
			h.advanceTo(5)
			assert.Equal(t, testDef.expected, h.mustResolve(id))
			assert.True(t, dec("10000").Equal(h.proposal(id).SupplySnapshot))
		})
	}
}

func TestCastVoteErrors(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.advisory(5, "yes", "no")
	closed := h.advisory(2, "yes", "no")

	var other ledger.Address
	h.exec(voter, func(tx *ledger.Tx) error {
		addr, b, err := tx.CreateResource(
			ledger.ResourceSpec{Kind: ledger.ResourceKindFungible, Name: "Other"},
			decimal.NewFromInt(100),
		)
		if err != nil {
			return err
		}
		other = addr
		return tx.Deposit(ledger.AccountVault(voter, addr), b)
	})

	_, err := h.castVote(voter, 99, 0, "1")
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	_, err = h.castVote(voter, id, 2, "1")
	require.ErrorIs(t, err, governance.ErrInvalidOption)
	_, err = h.castVote(outsider, id, 0, "1")
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	err = h.try(voter, func(tx *ledger.Tx) error {
		b, err := tx.Withdraw(ledger.AccountVault(voter, other), decimal.NewFromInt(10))
		if err != nil {
			return err
		}
		_, err = tx.Call(h.registry, governance.MethodCastVote, ledger.Request{
			Args:    governance.CastVoteArgs{ProposalID: id, Option: 0},
			Buckets: []*ledger.Bucket{b},
		})
		return err
	})
	require.ErrorIs(t, err, governance.ErrCurrencyMismatch)

	h.advanceTo(2)
	_, err = h.castVote(voter, closed, 0, "1")
	require.ErrorIs(t, err, governance.ErrProposalNotOpen)
	h.mustResolve(closed)
	_, err = h.castVote(voter, closed, 0, "1")
	require.ErrorIs(t, err, governance.ErrProposalNotOpen)

	// Nothing moved
	assert.True(t, dec("1000").Equal(h.voterBalance()))
	assert.Equal(t, []string{"0", "0"}, h.tally(id))
	h.verifyEscrow()
}

func TestIdentityGate(t *testing.T) {
	var identity ledger.Address
	h := newHarness(t, "1000", nil)
	// A second registry gated on an identity token held by voter only
	h.exec(voter, func(tx *ledger.Tx) error {
		addr, b, err := tx.CreateResource(
			ledger.ResourceSpec{Kind: ledger.ResourceKindFungible, Name: "Member"},
			decimal.NewFromInt(1),
		)
		if err != nil {
			return err
		}
		identity = addr
		return tx.Deposit(ledger.AccountVault(voter, addr), b)
	})
	var gated ledger.Address
	gov := governance.NewBlueprint(governance.BlueprintConfig{})
	h.exec(voter, func(tx *ledger.Tx) error {
		var err error
		gated, err = gov.Instantiate(tx, governance.InstanceConfig{
			ProposalDuration: 10,
			VoteToken:        h.token,
			IdentityToken:    identity,
		})
		return err
	})
	h.registry = gated
	h.client = governance.NewClient(gated)
	h.transfer(voter, outsider, h.token, "100")

	id := h.advisory(5, "yes", "no")
	_, err := h.castVote(outsider, id, 0, "10")
	require.ErrorIs(t, err, governance.ErrIdentityGateFailed)
	h.vote(id, 0, "10")
	assert.Equal(t, []string{"10", "0"}, h.tally(id))
}

func TestCreateProposalValidation(t *testing.T) {
	h := newHarness(t, "1000", nil)
	h.advanceTo(3)
	self := h.registry
	testDefs := []struct {
		name string
		args governance.CreateProposalArgs
		err  error
	}{
		{
			name: "advisory without options",
			args: governance.CreateProposalArgs{Kind: governance.ProposalKindAdvisory, Deadline: 5},
			err:  governance.ErrInvalidOptions,
		},
		{
			name: "executive with three options",
			args: governance.CreateProposalArgs{
				Kind:     governance.ProposalKindExecutive,
				Options:  []string{"a", "b", "c"},
				Deadline: 5,
			},
			err: governance.ErrInvalidOptions,
		},
		{
			name: "deadline is now",
			args: governance.CreateProposalArgs{
				Kind:     governance.ProposalKindAdvisory,
				Options:  []string{"a"},
				Deadline: 3,
			},
			err: governance.ErrDeadlinePassed,
		},
		{
			name: "deadline beyond duration",
			args: governance.CreateProposalArgs{
				Kind:     governance.ProposalKindAdvisory,
				Options:  []string{"a"},
				Deadline: 14,
			},
			err: governance.ErrDeadlineTooFar,
		},
		{
			name: "advisory with target",
			args: governance.CreateProposalArgs{
				Kind:     governance.ProposalKindAdvisory,
				Options:  []string{"a"},
				Deadline: 5,
				Target:   &governance.Target{Component: self, Method: governance.MethodGetDeadline},
			},
			err: governance.ErrMalformedTarget,
		},
		{
			name: "target without method",
			args: governance.CreateProposalArgs{
				Kind:     governance.ProposalKindExecutive,
				Deadline: 5,
				Target:   &governance.Target{Component: self},
			},
			err: governance.ErrMalformedTarget,
		},
		{
			name: "relay target without relay call",
			args: governance.CreateProposalArgs{
				Kind:     governance.ProposalKindExecutive,
				Deadline: 5,
				Target: &governance.Target{
					Component: self,
					Method:    governance.MethodGetDeadline,
					Mode:      governance.ExecutionRelay,
				},
			},
			err: governance.ErrMalformedTarget,
		},
		{
			name: "non-positive funding",
			args: governance.CreateProposalArgs{
				Kind:     governance.ProposalKindExecutive,
				Deadline: 5,
				Target: &governance.Target{
					Component: self,
					Method:    governance.MethodGetDeadline,
					Funding:   &decimal.Zero,
				},
			},
			err: governance.ErrMalformedTarget,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := h.try(voter, func(tx *ledger.Tx) error {
				_, err := h.client.CreateProposal(tx, testDef.args)
				return err
			})
			require.ErrorIs(t, err, testDef.err)
		})
	}
	// The boundary deadline is accepted, and failed attempts used no ids
	id := h.advisory(13, "a")
	assert.Equal(t, uint64(0), id)
	p := h.proposal(id)
	assert.Equal(t, uint64(3), p.CreatedEpoch)
}

func TestExecutiveDefaultOptions(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.propose(governance.CreateProposalArgs{
		Kind:     governance.ProposalKindExecutive,
		Title:    "Advisory-only executive",
		Deadline: 5,
	})
	p := h.proposal(id)
	assert.Equal(t, governance.DefaultExecutiveOptions, p.Options)
	assert.Nil(t, p.Target)
}

func TestResolveErrors(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.advisory(5, "yes", "no")

	_, err := h.resolve(id)
	require.ErrorIs(t, err, governance.ErrDeadlineNotReached)
	_, err = h.resolve(42)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)

	h.advanceTo(5)
	// No votes at Any quorum falls to the first option
	assert.Equal(t, governance.Decided(0), h.mustResolve(id))
	_, err = h.resolve(id)
	require.ErrorIs(t, err, governance.ErrProposalNotOpen)

	p := h.proposal(id)
	assert.Equal(t, governance.ProposalStatusClosed, p.Status)
	require.NotNil(t, p.ClosedEpoch)
	assert.Equal(t, uint64(5), *p.ClosedEpoch)
	assert.Nil(t, p.ExecutedEpoch)
}

func TestQueries(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.propose(governance.CreateProposalArgs{
		Kind:     governance.ProposalKindAdvisory,
		Options:  []string{"tea", "coffee"},
		Title:    "Break drinks",
		Pitch:    "Pick one for the kitchen",
		Deadline: 4,
	})
	h.advisory(6, "only")
	receipt := h.vote(id, 1, "3")

	h.view(func(tx *ledger.Tx) error {
		p, err := h.client.GetProposal(tx, id)
		require.NoError(t, err)
		assert.Equal(t, "Break drinks", p.Title)
		assert.Equal(t, "Pick one for the kitchen", p.Pitch)
		assert.Equal(t, []string{"tea", "coffee"}, p.Options)
		assert.True(t, dec("3").Equal(p.TotalCast()))

		list, err := h.client.ListProposals(tx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, uint64(1), list[1].ID)

		result, err := h.client.GetResult(tx, id)
		require.NoError(t, err)
		assert.True(t, result.IsOpen())

		duration, err := h.client.GetDeadline(tx)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), duration)

		r, err := h.client.GetReceipt(tx, receipt)
		require.NoError(t, err)
		assert.Equal(t, id, r.ProposalID)
		assert.Equal(t, uint32(1), r.Option)
		assert.True(t, dec("3").Equal(r.Amount))
		assert.Nil(t, r.RedeemedEpoch)

		info, err := h.client.Config(tx)
		require.NoError(t, err)
		assert.Equal(t, h.registry, info.Address)
		assert.Equal(t, h.token, info.VoteToken)
		assert.Equal(t, uint64(2), info.NextProposalID)
		return nil
	})
}

func TestViewRejectsVotes(t *testing.T) {
	h := newHarness(t, "1000", nil)
	id := h.advisory(4, "yes")
	err := h.ledger.View(t.Context(), func(tx *ledger.Tx) error {
		_, err := h.client.CreateProposal(tx, governance.CreateProposalArgs{
			Kind:     governance.ProposalKindAdvisory,
			Options:  []string{"a"},
			Deadline: 4,
		})
		return err
	})
	require.ErrorIs(t, err, ledger.ErrReadOnly)
	assert.Len(t, h.tally(id), 1)
}

func TestVoteEventsOmitVoter(t *testing.T) {
	h := newHarness(t, "1000", nil)
	_, ch := h.bus.Subscribe(governance.VoteCastEventType)
	id := h.advisory(4, "yes", "no")
	h.vote(id, 1, "25")

	evt := <-ch
	data, ok := evt.Data.(governance.VoteCastEvent)
	require.True(t, ok)
	assert.Equal(t, h.registry, data.Registry)
	assert.Equal(t, uint32(1), data.Option)
	assert.True(t, dec("25").Equal(data.Amount))
}
