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


package gormstore_test

import (
	"fmt"
	"testing"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/plugin/metadata/internal/gormstore"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *gormstore.Store {
	t.Helper()
	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())),
		&gorm.Config{Logger: gormlogger.Discard, SkipDefaultTransaction: true},
	)
	require.NoError(t, err)
	store := gormstore.New(db, nil)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestVaultBalanceUpsert(t *testing.T) {
	store := newTestStore(t)
	balance, err := store.GetVaultBalance("account_a", "resource_r", "", nil)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	require.NoError(t, store.SetVaultBalance("account_a", "resource_r", "", decimal.RequireFromString("5.1"), nil))
	require.NoError(t, store.SetVaultBalance("account_a", "resource_r", "", decimal.RequireFromString("2.25"), nil))
	require.NoError(t, store.SetVaultBalance("account_a", "resource_r", "escrow", decimal.NewFromInt(7), nil))

	balance, err = store.GetVaultBalance("account_a", "resource_r", "", nil)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2.25").Equal(balance))
	vaults, err := store.GetVaults("account_a", nil)
	require.NoError(t, err)
	require.Len(t, vaults, 2)
}

func TestNonFungibleLifecycle(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddNonFungible(&models.NonFungible{
		Resource: "resource_receipt",
		LocalID:  "r1",
		Owner:    "account_a",
		Data:     []byte{0x80},
	}, nil))
	ids, err := store.GetNonFungibleIDs("account_a", "resource_receipt", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids)

	require.NoError(t, store.SetNonFungibleOwner("resource_receipt", "r1", "account_b", "", nil))
	ids, err = store.GetNonFungibleIDs("account_a", "resource_receipt", "", nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.BurnNonFungible("resource_receipt", "r1", nil))
	require.ErrorIs(t, store.BurnNonFungible("resource_receipt", "r1", nil), models.ErrNonFungibleNotFound)
	nf, err := store.GetNonFungible("resource_receipt", "r1", nil)
	require.NoError(t, err)
	assert.True(t, nf.Burned)
	_, err = store.GetNonFungible("resource_receipt", "missing", nil)
	require.ErrorIs(t, err, models.ErrNonFungibleNotFound)
}

func TestProposalSaveTallies(t *testing.T) {
	store := newTestStore(t)
	proposal := &models.Proposal{
		Registry:   "component_reg",
		ProposalID: 0,
		Deadline:   5,
		Options: []models.ProposalOption{
			{OptionIndex: 0, Label: "a", Tally: decimal.Zero},
			{OptionIndex: 1, Label: "b", Tally: decimal.Zero},
		},
	}
	require.NoError(t, store.AddProposal(proposal, nil))

	got, err := store.GetProposal("component_reg", 0, nil)
	require.NoError(t, err)
	require.Len(t, got.Options, 2)
	got.Options[1].Tally = decimal.RequireFromString("130.1")
	got.Status = 1
	epoch := uint64(6)
	got.ClosedEpoch = &epoch
	require.NoError(t, store.SaveProposal(got, nil))

	got, err = store.GetProposal("component_reg", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), got.Status)
	require.NotNil(t, got.ClosedEpoch)
	assert.Equal(t, uint64(6), *got.ClosedEpoch)
	assert.Equal(t, "b", got.Options[1].Label)
	assert.True(t, decimal.RequireFromString("130.1").Equal(got.Options[1].Tally))
	assert.True(t, got.Options[0].Tally.IsZero())

	_, err = store.GetProposal("component_reg", 1, nil)
	require.ErrorIs(t, err, models.ErrProposalNotFound)
}

func TestVoteReceiptRedeemedOnce(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AddVoteReceipt(&models.VoteReceipt{
		Registry:  "component_reg",
		ReceiptID: "r1",
		Amount:    decimal.NewFromInt(100),
		VoteToken: "resource_vote",
	}, nil))
	live, err := store.GetLiveVoteReceipts("component_reg", nil)
	require.NoError(t, err)
	require.Len(t, live, 1)

	require.NoError(t, store.SetVoteReceiptRedeemed("component_reg", "r1", 3, nil))
	require.ErrorIs(t, store.SetVoteReceiptRedeemed("component_reg", "r1", 4, nil), models.ErrVoteReceiptNotFound)
	live, err = store.GetLiveVoteReceipts("component_reg", nil)
	require.NoError(t, err)
	assert.Empty(t, live)
	receipt, err := store.GetVoteReceipt("component_reg", "r1", nil)
	require.NoError(t, err)
	require.NotNil(t, receipt.RedeemedEpoch)
	assert.Equal(t, uint64(3), *receipt.RedeemedEpoch)
}

func TestCredentialSlotAndCounter(t *testing.T) {
	store := newTestStore(t)
	slot, err := store.GetCredentialSlot("component_relay", "admin", nil)
	require.NoError(t, err)
	assert.Nil(t, slot)
	require.NoError(t, store.AddCredentialSlot(&models.CredentialSlot{
		Relay:     "component_relay",
		Name:      "admin",
		Resource:  "resource_badge",
		Amount:    decimal.NewFromInt(1),
		Depositor: "component_reg",
	}, nil))
	// A slot holds one credential at a time
	require.Error(t, store.AddCredentialSlot(&models.CredentialSlot{
		Relay:     "component_relay",
		Name:      "admin",
		Resource:  "resource_badge",
		Amount:    decimal.NewFromInt(1),
		Depositor: "component_reg",
	}, nil))
	require.NoError(t, store.DeleteCredentialSlot("component_relay", "admin", nil))
	slot, err = store.GetCredentialSlot("component_relay", "admin", nil)
	require.NoError(t, err)
	assert.Nil(t, slot)

	require.NoError(t, store.AddCounter(&models.Counter{Component: "component_ctr", AdminBadge: "resource_badge"}, nil))
	require.NoError(t, store.SetCounterCount("component_ctr", 1, nil))
	counter, err := store.GetCounter("component_ctr", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), counter.Count)
	require.ErrorIs(t, store.SetCounterCount("component_missing", 1, nil), models.ErrCounterNotFound)
}

func TestTransactionRollback(t *testing.T) {
	store := newTestStore(t)
	txn := store.Transaction()
	require.NoError(t, store.SetLedgerEpoch(4, txn))
	require.NoError(t, txn.Rollback())
	state, err := store.GetLedgerState(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.Epoch)

	txn = store.Transaction()
	require.NoError(t, store.SetLedgerEpoch(4, txn))
	require.NoError(t, txn.Commit())
	state, err = store.GetLedgerState(nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), state.Epoch)
}
