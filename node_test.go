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

package agora

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenesis() GenesisConfig {
	return GenesisConfig{
		VoteTokenName:   "Vote Token",
		VoteTokenSymbol: "VOTE",
		Accounts: []GenesisAccount{
			{Name: "admin", Balance: decimal.NewFromInt(1000)},
			{Name: "alice", Balance: decimal.NewFromInt(500)},
			{Name: "bob"},
		},
		Counter: true,
		Relay:   true,
	}
}

// startNode runs a node until the test ends
func startNode(t *testing.T, opts ...ConfigOptionFunc) *Node {
	t.Helper()
	n, err := New(NewConfig(opts...))
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(t.Context())
	}()
	select {
	case <-n.Ready():
	case err := <-errCh:
		require.NoError(t, err)
		t.Fatal("node exited before becoming ready")
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for node")
	}
	t.Cleanup(func() {
		require.NoError(t, n.Stop())
		require.NoError(t, <-errCh)
	})
	return n
}

func balance(t *testing.T, n *Node, account string, resource ledger.Address) decimal.Decimal {
	t.Helper()
	var ret decimal.Decimal
	err := n.Ledger().View(t.Context(), func(tx *ledger.Tx) error {
		var err error
		ret, err = tx.Balance(ledger.AccountVault(ledger.AccountAddress(account), resource))
		return err
	})
	require.NoError(t, err)
	return ret
}

func TestConfigValidate(t *testing.T) {
	testDefs := []struct {
		name string
		opts []ConfigOptionFunc
		ok   bool
	}{
		{name: "defaults", ok: true},
		{
			name: "timed clock",
			opts: []ConfigOptionFunc{WithTimedClock(time.Now(), time.Minute)},
			ok:   true,
		},
		{
			name: "timed clock without epoch length",
			opts: []ConfigOptionFunc{WithTimedClock(time.Now(), 0)},
		},
		{
			name: "no genesis accounts",
			opts: []ConfigOptionFunc{WithGenesis(GenesisConfig{})},
		},
		{
			name: "duplicate genesis account",
			opts: []ConfigOptionFunc{WithGenesis(GenesisConfig{
				Accounts: []GenesisAccount{{Name: "a"}, {Name: "a"}},
			})},
		},
		{
			name: "negative genesis balance",
			opts: []ConfigOptionFunc{WithGenesis(GenesisConfig{
				Accounts: []GenesisAccount{{Name: "a", Balance: decimal.NewFromInt(-1)}},
			})},
		},
		{
			name: "zero proposal duration",
			opts: []ConfigOptionFunc{WithGovernance(GovernanceConfig{Quorum: governance.AnyQuorum()})},
		},
		{
			name: "negative rate limit",
			opts: []ConfigOptionFunc{WithAPIRateLimit(-1, 0)},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := New(NewConfig(testDef.opts...))
			if testDef.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestNodeGenesis(t *testing.T) {
	n := startNode(
		t,
		WithGenesis(testGenesis()),
		WithAPIListenAddress("127.0.0.1:0"),
	)
	d := n.Deployment()
	require.NotEmpty(t, d.Registry)
	require.NotEmpty(t, d.Relay)
	require.NotEmpty(t, d.Counter)
	require.NotEmpty(t, d.VoteToken)

	assert.Equal(t, "1000", balance(t, n, "admin", d.VoteToken).String())
	assert.Equal(t, "500", balance(t, n, "alice", d.VoteToken).String())
	assert.True(t, balance(t, n, "bob", d.VoteToken).IsZero())

	var info *governance.InstanceInfo
	err := n.Ledger().View(t.Context(), func(tx *ledger.Tx) error {
		var err error
		info, err = governance.NewClient(d.Registry).Config(tx)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), info.ProposalDuration)
	assert.Equal(t, d.VoteToken, info.VoteToken)

	addr := n.APIAddr()
	require.NotNil(t, addr)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/api/v0/counter", addr))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNodeWithoutAPI(t *testing.T) {
	n := startNode(t, WithGenesis(GenesisConfig{
		Accounts: []GenesisAccount{{Name: "admin", Balance: decimal.NewFromInt(10)}},
	}))
	assert.Nil(t, n.APIAddr())
	d := n.Deployment()
	assert.NotEmpty(t, d.Registry)
	assert.Empty(t, d.Relay)
	assert.Empty(t, d.Counter)
	require.NotNil(t, n.ManualClock())
}

func TestNodeRestartKeepsDeployment(t *testing.T) {
	dataDir := t.TempDir()
	n, err := New(NewConfig(WithDatabasePath(dataDir), WithGenesis(testGenesis())))
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(t.Context())
	}()
	select {
	case <-n.Ready():
	case err := <-errCh:
		t.Fatalf("node exited: %v", err)
	}
	first := n.Deployment()
	_, err = n.ManualClock().Advance(3)
	require.NoError(t, err)
	require.NoError(t, n.Stop())
	require.NoError(t, <-errCh)

	restarted := startNode(t, WithDatabasePath(dataDir), WithGenesis(testGenesis()))
	assert.Equal(t, first, restarted.Deployment())
	assert.Equal(t, uint64(3), restarted.Ledger().CurrentEpoch())
	assert.Equal(t, "500", balance(t, restarted, "alice", first.VoteToken).String())
}
