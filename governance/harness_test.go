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

	"github.com/blinklabs-io/agora/controlled"
	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/event"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/blinklabs-io/agora/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	voter    = ledger.AccountAddress("voter")
	outsider = ledger.AccountAddress("outsider")
)

type harness struct {
	t        *testing.T
	ledger   *ledger.Ledger
	clock    *ledger.ManualClock
	bus      *event.EventBus
	relays   *relay.Blueprint
	counters *controlled.Blueprint
	registry ledger.Address
	client   *governance.Client
	token    ledger.Address
}

// newHarness starts a ledger where voter holds the whole supply of a vote
// token it may mint, and a registry configured by cfg
func newHarness(
	t *testing.T,
	supply string,
	cfg func(*governance.InstanceConfig),
) *harness {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	clock, err := ledger.NewManualClock(ledger.ManualClockConfig{
		Database: db,
		EventBus: bus,
	})
	require.NoError(t, err)
	promRegistry := prometheus.NewRegistry()
	l, err := ledger.New(ledger.Config{
		Database:     db,
		Clock:        clock,
		EventBus:     bus,
		PromRegistry: promRegistry,
	})
	require.NoError(t, err)
	gov := governance.NewBlueprint(governance.BlueprintConfig{PromRegistry: promRegistry})
	gov.Register(l)
	h := &harness{
		t:        t,
		ledger:   l,
		clock:    clock,
		bus:      bus,
		relays:   relay.NewBlueprint(relay.BlueprintConfig{PromRegistry: promRegistry}),
		counters: controlled.NewBlueprint(nil),
	}
	h.relays.Register(l)
	h.counters.Register(l)
	h.exec("", func(tx *ledger.Tx) error {
		for _, name := range []string{"voter", "outsider"} {
			if _, err := tx.CreateAccount(name); err != nil {
				return err
			}
		}
		return nil
	})
	h.exec(voter, func(tx *ledger.Tx) error {
		token, b, err := tx.CreateResource(
			ledger.ResourceSpec{
				Kind:     ledger.ResourceKindFungible,
				Name:     "Vote Token",
				Symbol:   "VOTE",
				Mintable: true,
			},
			decimal.RequireFromString(supply),
		)
		if err != nil {
			return err
		}
		h.token = token
		if err := tx.Deposit(ledger.AccountVault(voter, token), b); err != nil {
			return err
		}
		instCfg := governance.InstanceConfig{
			ProposalDuration: 10,
			Quorum:           governance.AnyQuorum(),
			VoteToken:        token,
		}
		if cfg != nil {
			cfg(&instCfg)
		}
		h.registry, err = gov.Instantiate(tx, instCfg)
		return err
	})
	h.client = governance.NewClient(h.registry)
	return h
}

func (h *harness) exec(signer ledger.Address, fn func(tx *ledger.Tx) error) {
	h.t.Helper()
	require.NoError(h.t, h.ledger.Execute(h.t.Context(), signer, fn))
}

func (h *harness) try(signer ledger.Address, fn func(tx *ledger.Tx) error) error {
	return h.ledger.Execute(h.t.Context(), signer, fn)
}

func (h *harness) view(fn func(tx *ledger.Tx) error) {
	h.t.Helper()
	require.NoError(h.t, h.ledger.View(h.t.Context(), fn))
}

func (h *harness) advanceTo(epoch uint64) {
	h.t.Helper()
	require.NoError(h.t, h.clock.SetEpoch(epoch))
}

func (h *harness) advisory(deadline uint64, options ...string) uint64 {
	h.t.Helper()
	return h.propose(governance.CreateProposalArgs{
		Kind:     governance.ProposalKindAdvisory,
		Options:  options,
		Title:    "Advisory",
		Deadline: deadline,
	})
}

func (h *harness) propose(args governance.CreateProposalArgs) uint64 {
	h.t.Helper()
	var id uint64
	h.exec(voter, func(tx *ledger.Tx) error {
		var err error
		id, err = h.client.CreateProposal(tx, args)
		return err
	})
	return id
}

func (h *harness) castVote(signer ledger.Address, id uint64, option uint32, amount string) (string, error) {
	var receipt string
	err := h.try(signer, func(tx *ledger.Tx) error {
		var err error
		receipt, err = h.client.CastVote(tx, id, option, decimal.RequireFromString(amount))
		return err
	})
	return receipt, err
}

// vote casts a vote as voter and checks escrow afterwards
func (h *harness) vote(id uint64, option uint32, amount string) string {
	h.t.Helper()
	receipt, err := h.castVote(voter, id, option, amount)
	require.NoError(h.t, err)
	h.verifyEscrow()
	return receipt
}

func (h *harness) redeem(receipt string) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := h.try(voter, func(tx *ledger.Tx) error {
		var err error
		amount, err = h.client.Redeem(tx, receipt)
		return err
	})
	return amount, err
}

func (h *harness) mustRedeem(receipt string) decimal.Decimal {
	h.t.Helper()
	amount, err := h.redeem(receipt)
	require.NoError(h.t, err)
	h.verifyEscrow()
	return amount
}

func (h *harness) resolve(id uint64) (governance.Result, error) {
	var result governance.Result
	err := h.try("", func(tx *ledger.Tx) error {
		var err error
		result, err = h.client.Resolve(tx, id)
		return err
	})
	return result, err
}

func (h *harness) mustResolve(id uint64) governance.Result {
	h.t.Helper()
	result, err := h.resolve(id)
	require.NoError(h.t, err)
	h.verifyEscrow()
	return result
}

func (h *harness) proposal(id uint64) *governance.Proposal {
	h.t.Helper()
	var p *governance.Proposal
	h.view(func(tx *ledger.Tx) error {
		var err error
		p, err = h.client.GetProposal(tx, id)
		return err
	})
	return p
}

func (h *harness) config() *governance.InstanceInfo {
	h.t.Helper()
	var info *governance.InstanceInfo
	h.view(func(tx *ledger.Tx) error {
		var err error
		info, err = h.client.Config(tx)
		return err
	})
	return info
}

func (h *harness) balance(key ledger.VaultKey) decimal.Decimal {
	h.t.Helper()
	var ret decimal.Decimal
	h.view(func(tx *ledger.Tx) error {
		var err error
		ret, err = tx.Balance(key)
		return err
	})
	return ret
}

func (h *harness) voterBalance() decimal.Decimal {
	h.t.Helper()
	return h.balance(ledger.AccountVault(voter, h.token))
}

func (h *harness) verifyEscrow() {
	h.t.Helper()
	h.view(func(tx *ledger.Tx) error {
		return governance.VerifyEscrow(tx, h.registry)
	})
}

func (h *harness) tally(id uint64) []string {
	h.t.Helper()
	p := h.proposal(id)
	ret := make([]string, len(p.Tally))
	for i, weight := range p.Tally {
		ret[i] = weight.String()
	}
	return ret
}

func (h *harness) transfer(from, to ledger.Address, resource ledger.Address, amount string) {
	h.t.Helper()
	h.exec(from, func(tx *ledger.Tx) error {
		b, err := tx.Withdraw(ledger.AccountVault(from, resource), decimal.RequireFromString(amount))
		if err != nil {
			return err
		}
		return tx.Deposit(ledger.AccountVault(to, resource), b)
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
