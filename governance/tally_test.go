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
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weights(values ...string) []decimal.Decimal {
	ret := make([]decimal.Decimal, len(values))
	for i, v := range values {
		ret[i] = decimal.RequireFromString(v)
	}
	return ret
}

func TestTally(t *testing.T) {
	testDefs := []struct {
		name     string
		tally    []decimal.Decimal
		rule     governance.QuorumRule
		supply   string
		expected governance.Result
	}{
		{
			name:     "tie goes to lowest index",
			tally:    weights("10", "10", "5"),
			rule:     governance.AnyQuorum(),
			supply:   "0",
			expected: governance.Decided(0),
		},
		{
			name:     "later tie",
			tally:    weights("5", "10", "10"),
			rule:     governance.AnyQuorum(),
			supply:   "0",
			expected: governance.Decided(1),
		},
		{
			name:     "clear winner",
			tally:    weights("100", "100", "151"),
			rule:     governance.AnyQuorum(),
			supply:   "1000000",
			expected: governance.Decided(2),
		},
		{
			name:     "fixed quorum one short",
			tally:    weights("999"),
			rule:     governance.FixedQuorum(decimal.NewFromInt(1000)),
			supply:   "0",
			expected: governance.Inconclusive(),
		},
		{
			name:     "fixed quorum met exactly",
			tally:    weights("500", "500"),
			rule:     governance.FixedQuorum(decimal.NewFromInt(1000)),
			supply:   "0",
			expected: governance.Decided(0),
		},
		{
			name:     "percent quorum met",
			tally:    weights("0", "1301"),
			rule:     governance.PercentQuorum(decimal.NewFromInt(10)),
			supply:   "10000",
			expected: governance.Decided(1),
		},
		{
			name:     "percent quorum missed",
			tally:    weights("0", "130.1"),
			rule:     governance.PercentQuorum(decimal.NewFromInt(10)),
			supply:   "10000",
			expected: governance.Inconclusive(),
		},
		{
			name:     "percent quorum boundary",
			tally:    weights("1000"),
			rule:     governance.PercentQuorum(decimal.NewFromInt(10)),
			supply:   "10000",
			expected: governance.Decided(0),
		},
		{
			name:     "no options",
			tally:    nil,
			rule:     governance.AnyQuorum(),
			supply:   "0",
			expected: governance.Inconclusive(),
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			result := governance.Tally(
				testDef.tally,
				testDef.rule,
				decimal.RequireFromString(testDef.supply),
			)
			assert.Equal(t, testDef.expected, result)
		})
	}
}

func TestQuorumMet(t *testing.T) {
	fixed := governance.FixedQuorum(decimal.NewFromInt(1000))
	assert.False(t, governance.QuorumMet(fixed, decimal.NewFromInt(999), decimal.Zero))
	assert.True(t, governance.QuorumMet(fixed, decimal.NewFromInt(1000), decimal.Zero))
	assert.True(t, governance.QuorumMet(fixed, decimal.NewFromInt(1301), decimal.Zero))
	assert.False(t, governance.QuorumMet(fixed, decimal.RequireFromString("130.1"), decimal.Zero))
	assert.True(t, governance.QuorumMet(governance.AnyQuorum(), decimal.Zero, decimal.Zero))
}

func TestParseQuorumRule(t *testing.T) {
	rule, err := governance.ParseQuorumRule("percent", "12.5")
	require.NoError(t, err)
	assert.Equal(t, governance.QuorumKindPercent, rule.Kind)
	assert.Equal(t, "percent(12.5)", rule.String())

	rule, err = governance.ParseQuorumRule("", "")
	require.NoError(t, err)
	assert.Equal(t, governance.AnyQuorum(), rule)

	_, err = governance.ParseQuorumRule("fixed", "lots")
	require.ErrorIs(t, err, governance.ErrInvalidConfig)
	_, err = governance.ParseQuorumRule("majority", "1")
	require.ErrorIs(t, err, governance.ErrInvalidConfig)

	supply, err := governance.ParseQuorumSupply("creation")
	require.NoError(t, err)
	assert.Equal(t, governance.QuorumSupplyCreation, supply)
	_, err = governance.ParseQuorumSupply("later")
	require.ErrorIs(t, err, governance.ErrInvalidConfig)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "open", governance.Result{}.String())
	assert.Equal(t, "inconclusive", governance.Inconclusive().String())
	assert.Equal(t, "decided(2)", governance.Decided(2).String())
	assert.True(t, governance.Decided(1).IsDecided(governance.ActionOption))
	assert.False(t, governance.Decided(0).IsDecided(governance.ActionOption))
}
