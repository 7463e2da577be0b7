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

package relay_test

import (
	"testing"

	"github.com/blinklabs-io/agora/controlled"
	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/blinklabs-io/agora/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keeper   = ledger.AccountAddress("keeper")
	stranger = ledger.AccountAddress("stranger")
)

type fixture struct {
	t            *testing.T
	ledger       *ledger.Ledger
	promRegistry *prometheus.Registry
	relay        ledger.Address
	counter      ledger.Address
	badge        ledger.Address
}

// newFixture sets up a relay whose depositor is keeper, and a counter whose
// admin badge keeper holds
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	f := &fixture{t: t, promRegistry: prometheus.NewRegistry()}
	f.ledger, err = ledger.New(ledger.Config{Database: db})
	require.NoError(t, err)
	relays := relay.NewBlueprint(relay.BlueprintConfig{PromRegistry: f.promRegistry})
	relays.Register(f.ledger)
	counters := controlled.NewBlueprint(nil)
	counters.Register(f.ledger)
	f.exec("", func(tx *ledger.Tx) error {
		for _, name := range []string{"keeper", "stranger"} {
			if _, err := tx.CreateAccount(name); err != nil {
				return err
			}
		}
		addr, b, err := counters.Instantiate(tx)
		if err != nil {
			return err
		}
		f.counter = addr
		f.badge = b.Resource()
		if err := tx.Deposit(ledger.AccountVault(keeper, f.badge), b); err != nil {
			return err
		}
		f.relay, err = relays.Instantiate(tx, keeper)
		return err
	})
	return f
}

func (f *fixture) exec(signer ledger.Address, fn func(tx *ledger.Tx) error) {
	f.t.Helper()
	require.NoError(f.t, f.ledger.Execute(f.t.Context(), signer, fn))
}

func (f *fixture) try(signer ledger.Address, fn func(tx *ledger.Tx) error) error {
	return f.ledger.Execute(f.t.Context(), signer, fn)
}

func (f *fixture) store(signer ledger.Address, slot string) error {
	return f.try(signer, func(tx *ledger.Tx) error {
		b, err := tx.Withdraw(ledger.AccountVault(signer, f.badge), decimal.NewFromInt(1))
		if err != nil {
			return err
		}
		_, err = tx.Call(f.relay, relay.MethodStoreCredential, ledger.Request{
			Args:    relay.StoreCredentialArgs{Slot: slot},
			Buckets: []*ledger.Bucket{b},
		})
		return err
	})
}

// forward asks the relay to increment the counter with the credential in
// slot, keeping any returned buckets in the signer's account
func (f *fixture) forward(signer ledger.Address, slot string) (uint64, error) {
	var count uint64
	err := f.try(signer, func(tx *ledger.Tx) error {
		res, err := tx.Call(f.relay, relay.MethodForward, ledger.Request{
			Args: relay.ForwardArgs{
				Slot:      slot,
				Component: f.counter,
				Method:    controlled.MethodIncrement,
			},
		})
		if err != nil {
			return err
		}
		for _, b := range res.Buckets {
			if err := tx.Deposit(ledger.AccountVault(signer, b.Resource()), b); err != nil {
				return err
			}
		}
		return res.Decode(&count)
	})
	return count, err
}

func (f *fixture) badgeBalance(owner ledger.Address) decimal.Decimal {
	f.t.Helper()
	var ret decimal.Decimal
	require.NoError(f.t, f.ledger.View(f.t.Context(), func(tx *ledger.Tx) error {
		var err error
		ret, err = tx.Balance(ledger.AccountVault(owner, f.badge))
		return err
	}))
	return ret
}

func TestForwardUsesCredentialOnce(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store(keeper, "counter"))
	assert.True(t, f.badgeBalance(keeper).IsZero())

	f.exec(keeper, func(tx *ledger.Tx) error {
		slot, err := relay.NewClient(f.relay).Slot(tx, "counter")
		if err != nil {
			return err
		}
		assert.Equal(t, f.badge, slot.Resource)
		assert.Equal(t, keeper, slot.Depositor)
		assert.Equal(t, "1", slot.Amount)
		return nil
	})

	count, err := f.forward(keeper, "counter")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	// The credential came back with the result
	assert.True(t, decimal.NewFromInt(1).Equal(f.badgeBalance(keeper)))

	_, err = f.forward(keeper, "counter")
	require.ErrorIs(t, err, relay.ErrCredentialSlotEmpty)
	series, err := testutil.GatherAndCount(f.promRegistry, "agora_relay_forwards_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestStoreCredentialErrors(t *testing.T) {
	f := newFixture(t)
	f.exec(keeper, func(tx *ledger.Tx) error {
		b, err := tx.Withdraw(ledger.AccountVault(keeper, f.badge), decimal.NewFromInt(1))
		if err != nil {
			return err
		}
		return tx.Deposit(ledger.AccountVault(stranger, f.badge), b)
	})
	require.ErrorIs(t, f.store(stranger, "counter"), relay.ErrUnauthorizedDepositor)
	require.ErrorIs(t, f.store(keeper, ""), ledger.ErrInsufficientBalance)

	// Give the badge back so keeper can fill the slot
	f.exec(stranger, func(tx *ledger.Tx) error {
		b, err := tx.Withdraw(ledger.AccountVault(stranger, f.badge), decimal.NewFromInt(1))
		if err != nil {
			return err
		}
		return tx.Deposit(ledger.AccountVault(keeper, f.badge), b)
	})
	require.ErrorIs(t, f.store(keeper, ""), relay.ErrInvalidSlot)
	require.NoError(t, f.store(keeper, "counter"))
	assert.True(t, f.badgeBalance(keeper).IsZero())
}

func TestStoreCredentialSlotOccupied(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store(keeper, "counter"))
	var second ledger.Address
	f.exec(keeper, func(tx *ledger.Tx) error {
		addr, b, err := tx.CreateResource(
			ledger.ResourceSpec{Kind: ledger.ResourceKindFungible, Name: "Spare"},
			decimal.NewFromInt(1),
		)
		if err != nil {
			return err
		}
		second = addr
		return tx.Deposit(ledger.AccountVault(keeper, addr), b)
	})
	err := f.try(keeper, func(tx *ledger.Tx) error {
		b, err := tx.Withdraw(ledger.AccountVault(keeper, second), decimal.NewFromInt(1))
		if err != nil {
			return err
		}
		_, err = tx.Call(f.relay, relay.MethodStoreCredential, ledger.Request{
			Args:    relay.StoreCredentialArgs{Slot: "counter"},
			Buckets: []*ledger.Bucket{b},
		})
		return err
	})
	require.ErrorIs(t, err, relay.ErrCredentialSlotOccupied)
}

func TestForwardRejectsOtherCallers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store(keeper, "counter"))
	_, err := f.forward(stranger, "counter")
	require.ErrorIs(t, err, relay.ErrUnauthorizedCaller)

	// The slot is untouched by the failed forward
	count, err := f.forward(keeper, "counter")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestForwardTargetFailureKeepsCredential(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store(keeper, "counter"))
	err := f.try(keeper, func(tx *ledger.Tx) error {
		_, err := tx.Call(f.relay, relay.MethodForward, ledger.Request{
			Args: relay.ForwardArgs{
				Slot:      "counter",
				Component: f.counter,
				Method:    "decrement",
			},
		})
		return err
	})
	require.ErrorIs(t, err, ledger.ErrMethodNotFound)
	assert.True(t, f.badgeBalance(keeper).IsZero())

	_, err = f.forward(keeper, "counter")
	require.NoError(t, err)
}

func TestForwardAcceptsGovernanceRelayCall(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store(keeper, "counter"))
	f.exec(keeper, func(tx *ledger.Tx) error {
		res, err := tx.Call(f.relay, relay.MethodForward, ledger.Request{
			Args: &governance.RelayCall{
				Slot:      "counter",
				Component: f.counter,
				Method:    controlled.MethodIncrement,
			},
		})
		if err != nil {
			return err
		}
		require.Len(t, res.Buckets, 1)
		return tx.Deposit(ledger.AccountVault(keeper, f.badge), res.Buckets[0])
	})
	var count uint64
	require.NoError(t, f.ledger.View(t.Context(), func(tx *ledger.Tx) error {
		var err error
		count, err = controlled.Count(tx, f.counter)
		return err
	}))
	assert.Equal(t, uint64(1), count)
}

func TestPresent(t *testing.T) {
	f := newFixture(t)
	// Anyone holding the badge may present it; nothing is stored
	f.exec(keeper, func(tx *ledger.Tx) error {
		value, err := relay.NewClient(f.relay).Present(
			tx,
			f.counter,
			controlled.MethodIncrement,
			nil,
			f.badge,
			decimal.NewFromInt(1),
		)
		if err != nil {
			return err
		}
		assert.NotEmpty(t, value)
		return nil
	})
	assert.True(t, decimal.NewFromInt(1).Equal(f.badgeBalance(keeper)))

	err := f.try(stranger, func(tx *ledger.Tx) error {
		_, err := relay.NewClient(f.relay).Present(
			tx,
			f.counter,
			controlled.MethodIncrement,
			nil,
			f.badge,
			decimal.NewFromInt(1),
		)
		return err
	})
	require.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}
