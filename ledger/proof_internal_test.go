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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasProofRequiresPositiveAmount(t *testing.T) {
	const resource = Address("resource_member")
	tx := &Tx{}
	testDefs := []struct {
		name   string
		amount decimal.Decimal
		min    decimal.Decimal
		want   bool
	}{
		{name: "zero proof, zero minimum", amount: decimal.Zero, min: decimal.Zero, want: false},
		{name: "positive proof, zero minimum", amount: decimal.NewFromInt(1), min: decimal.Zero, want: true},
		{name: "below minimum", amount: decimal.NewFromInt(1), min: decimal.NewFromInt(2), want: false},
		{name: "at minimum", amount: decimal.NewFromInt(2), min: decimal.NewFromInt(2), want: true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			call := &Call{
				tx:     tx,
				Proofs: []*Proof{{tx: tx, resource: resource, amount: testDef.amount}},
			}
			assert.Equal(t, testDef.want, call.HasProof(resource, testDef.min))
		})
	}
	// A proof from another transaction never counts
	call := &Call{
		tx:     tx,
		Proofs: []*Proof{{tx: &Tx{}, resource: resource, amount: decimal.NewFromInt(5)}},
	}
	assert.False(t, call.HasProof(resource, decimal.Zero))
}

func TestProofOfEmptyBucket(t *testing.T) {
	tx := &Tx{}
	b := tx.newBucket("resource_member", ResourceKindFungible, decimal.Zero, nil)
	_, err := tx.ProofOfBucket(b)
	require.ErrorIs(t, err, ErrInvalidAmount)

	b = tx.newBucket("resource_member", ResourceKindFungible, decimal.NewFromInt(3), nil)
	p, err := tx.ProofOfBucket(b)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(p.Amount()))
}
