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

package ledger_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVaultBlueprint = "test_vault"

// testVault holds one resource and releases it only against a proof of its
// guard resource
type testVault struct {
	*ledger.Router
	address  ledger.Address
	resource ledger.Address
	guard    ledger.Address
}

type withdrawArgs struct {
	Amount decimal.Decimal `cbor:"1,keyasint"`
}

func newTestVault(address, resource, guard ledger.Address) *testVault {
	v := &testVault{
		Router:   ledger.NewRouter(),
		address:  address,
		resource: resource,
		guard:    guard,
	}
	v.Handle("deposit", v.deposit)
	v.Handle("withdraw", v.withdraw)
	v.Handle("balance", v.balance)
	return v
}

func (v *testVault) key() ledger.VaultKey {
	return ledger.VaultKey{Owner: v.address, Resource: v.resource, Label: "main"}
}

func (v *testVault) deposit(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	b, err := call.Bucket(0)
	if err != nil {
		return nil, err
	}
	return nil, tx.Deposit(v.key(), b)
}

func (v *testVault) withdraw(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if !call.HasProof(v.guard, decimal.NewFromInt(1)) {
		return nil, errors.New("guard proof required")
	}
	var args withdrawArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	b, err := tx.Withdraw(v.key(), args.Amount)
	if err != nil {
		return nil, err
	}
	return ledger.NewResult(nil, b)
}

func (v *testVault) balance(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	bal, err := tx.Balance(v.key())
	if err != nil {
		return nil, err
	}
	return ledger.NewResult(bal.String())
}

func setupVault(t *testing.T, l *ledger.Ledger) (vault, token, guard ledger.Address) {
	t.Helper()
	createAccounts(t, l, "alice", "bob")
	token = createToken(t, l, alice, 1000, false)
	guard = createToken(t, l, alice, 1, false)
	err := l.Execute(t.Context(), alice, func(tx *ledger.Tx) error {
		var err error
		vault, err = tx.NewComponent(testVaultBlueprint, func(addr ledger.Address) (ledger.Component, error) {
			return newTestVault(addr, token, guard), nil
		})
		if err != nil {
			return err
		}
		b, err := tx.Withdraw(ledger.AccountVault(alice, token), decimal.NewFromInt(300))
		if err != nil {
			return err
		}
		_, err = tx.Call(vault, "deposit", ledger.Request{Buckets: []*ledger.Bucket{b}})
		return err
	})
	require.NoError(t, err)
	return vault, token, guard
}

func TestComponentCallWithProof(t *testing.T) {
	l := newTestLedger(t, newTestDatabase(t), nil)
	vault, token, guard := setupVault(t, l)

	err := l.Execute(t.Context(), alice, func(tx *ledger.Tx) error {
		proof, err := tx.CreateProof(ledger.AccountVault(alice, guard), decimal.NewFromInt(1))
		if err != nil {
			return err
		}
		res, err := tx.Call(vault, "withdraw", ledger.Request{
			Args:   withdrawArgs{Amount: decimal.NewFromInt(50)},
			Proofs: []*ledger.Proof{proof},
		})
		if err != nil {
			return err
		}
		require.Len(t, res.Buckets, 1)
		return tx.Deposit(ledger.AccountVault(bob, token), res.Buckets[0])
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(balanceOf(t, l, ledger.AccountVault(bob, token))))

	var bal string
	err = l.Execute(t.Context(), bob, func(tx *ledger.Tx) error {
		res, err := tx.Call(vault, "balance", ledger.Request{})
		if err != nil {
			return err
		}
		return res.Decode(&bal)
	})
	require.NoError(t, err)
	assert.Equal(t, "250", bal)
}

func TestComponentCallWithoutProof(t *testing.T) {
	l := newTestLedger(t, newTestDatabase(t), nil)
	vault, token, _ := setupVault(t, l)

	// bob holds no guard, and a proof of another resource does not count
	err := l.Execute(t.Context(), alice, func(tx *ledger.Tx) error {
		proof, err := tx.CreateProof(ledger.AccountVault(alice, token), decimal.NewFromInt(1))
		if err != nil {
			return err
		}
		_, err = tx.Call(vault, "withdraw", ledger.Request{
			Args:   withdrawArgs{Amount: decimal.NewFromInt(50)},
			Proofs: []*ledger.Proof{proof},
		})
		return err
	})
	require.ErrorContains(t, err, "guard proof required")

	err = l.Execute(t.Context(), bob, func(tx *ledger.Tx) error {
		_, err := tx.CreateProof(ledger.AccountVault(alice, token), decimal.NewFromInt(1))
		return err
	})
	require.ErrorIs(t, err, ledger.ErrUnauthorizedWithdraw)
}

func TestComponentVaultIsPrivate(t *testing.T) {
	l := newTestLedger(t, newTestDatabase(t), nil)
	vault, token, _ := setupVault(t, l)
	key := ledger.VaultKey{Owner: vault, Resource: token, Label: "main"}

	err := l.Execute(t.Context(), alice, func(tx *ledger.Tx) error {
		b, err := tx.Withdraw(key, decimal.NewFromInt(1))
		if err != nil {
			return err
		}
		return tx.Deposit(ledger.AccountVault(alice, token), b)
	})
	require.ErrorIs(t, err, ledger.ErrUnauthorizedWithdraw)

	err = l.Execute(t.Context(), alice, func(tx *ledger.Tx) error {
		b, err := tx.Withdraw(ledger.AccountVault(alice, token), decimal.NewFromInt(1))
		if err != nil {
			return err
		}
		return tx.Deposit(key, b)
	})
	require.ErrorIs(t, err, ledger.ErrUnauthorizedDeposit)
	assert.True(t, decimal.NewFromInt(300).Equal(balanceOf(t, l, key)))
}

func TestComponentMethodNotFound(t *testing.T) {
	l := newTestLedger(t, newTestDatabase(t), nil)
	vault, _, _ := setupVault(t, l)
	err := l.Execute(t.Context(), alice, func(tx *ledger.Tx) error {
		_, err := tx.Call(vault, "steal", ledger.Request{})
		return err
	})
	require.ErrorIs(t, err, ledger.ErrMethodNotFound)

	err = l.Execute(t.Context(), alice, func(tx *ledger.Tx) error {
		_, err := tx.Call(ledger.Address("component_missing"), "balance", ledger.Request{})
		return err
	})
	require.ErrorIs(t, err, ledger.ErrComponentNotFound)
}

func TestLoadComponents(t *testing.T) {
	db := newTestDatabase(t)
	l := newTestLedger(t, db, nil)
	vault, token, guard := setupVault(t, l)

	reloaded := newTestLedger(t, db, nil)
	require.ErrorIs(t, reloaded.LoadComponents(t.Context()), ledger.ErrBlueprintNotFound)

	reloaded.RegisterBlueprint(testVaultBlueprint, func(addr ledger.Address) (ledger.Component, error) {
		return newTestVault(addr, token, guard), nil
	})
	require.NoError(t, reloaded.LoadComponents(t.Context()))
	_, ok := reloaded.Component(vault)
	require.True(t, ok)

	var bal string
	err := reloaded.Execute(t.Context(), alice, func(tx *ledger.Tx) error {
		res, err := tx.Call(vault, "balance", ledger.Request{})
		if err != nil {
			return err
		}
		return res.Decode(&bal)
	})
	require.NoError(t, err)
	assert.Equal(t, "300", bal)
}
