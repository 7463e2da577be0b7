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
	"context"
	"fmt"

	"github.com/blinklabs-io/agora/controlled"
	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/blinklabs-io/agora/relay"
	"github.com/shopspring/decimal"
)

// Deployment holds the addresses created at genesis
type Deployment struct {
	VoteToken ledger.Address
	Registry  ledger.Address
	Relay     ledger.Address
	Counter   ledger.Address
}

// findDeployment returns the components recorded by an earlier genesis. The
// registry address is empty when the ledger has never been bootstrapped.
func (n *Node) findDeployment(ctx context.Context) (Deployment, error) {
	var ret Deployment
	txn := n.db.Transaction(false)
	rows, err := n.db.Metadata().GetComponents(txn.Metadata())
	txn.Release()
	if err != nil {
		return ret, fmt.Errorf("list components: %w", err)
	}
	for _, row := range rows {
		addr := ledger.Address(row.Address)
		switch row.Blueprint {
		case governance.BlueprintName:
			if ret.Registry == "" {
				ret.Registry = addr
			}
		case relay.BlueprintName:
			if ret.Relay == "" {
				ret.Relay = addr
			}
		case controlled.BlueprintName:
			if ret.Counter == "" {
				ret.Counter = addr
			}
		}
	}
	if ret.Registry == "" {
		return ret, nil
	}
	err = n.ledger.View(ctx, func(tx *ledger.Tx) error {
		info, err := governance.NewClient(ret.Registry).Config(tx)
		if err != nil {
			return err
		}
		ret.VoteToken = info.VoteToken
		return nil
	})
	return ret, err
}

// bootstrap reuses an existing deployment or runs genesis on an empty ledger
func (n *Node) bootstrap(ctx context.Context) (Deployment, error) {
	deployment, err := n.findDeployment(ctx)
	if err != nil {
		return deployment, err
	}
	if deployment.Registry != "" {
		n.config.logger.Info(
			"using existing deployment",
			"registry", deployment.Registry,
			"vote_token", deployment.VoteToken,
		)
		return deployment, nil
	}
	return n.genesis(ctx)
}

func (n *Node) genesis(ctx context.Context) (Deployment, error) {
	var ret Deployment
	cfg := n.config.genesis
	err := n.ledger.Execute(ctx, "", func(tx *ledger.Tx) error {
		for _, acct := range cfg.Accounts {
			if _, err := tx.CreateAccount(acct.Name); err != nil {
				return fmt.Errorf("create account %s: %w", acct.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return ret, err
	}
	creator := ledger.AccountAddress(cfg.Accounts[0].Name)
	err = n.ledger.Execute(ctx, creator, func(tx *ledger.Tx) error {
		supply := decimal.Zero
		for _, acct := range cfg.Accounts {
			supply = supply.Add(acct.Balance)
		}
		token, b, err := tx.CreateResource(
			ledger.ResourceSpec{
				Kind:   ledger.ResourceKindFungible,
				Name:   cfg.VoteTokenName,
				Symbol: cfg.VoteTokenSymbol,
			},
			supply,
		)
		if err != nil {
			return fmt.Errorf("create vote token: %w", err)
		}
		ret.VoteToken = token
		if b != nil {
			if err := tx.Deposit(ledger.AccountVault(creator, token), b); err != nil {
				return err
			}
		}
		for _, acct := range cfg.Accounts[1:] {
			if acct.Balance.Sign() <= 0 {
				continue
			}
			share, err := tx.Withdraw(ledger.AccountVault(creator, token), acct.Balance)
			if err != nil {
				return err
			}
			holder := ledger.AccountAddress(acct.Name)
			if err := tx.Deposit(ledger.AccountVault(holder, token), share); err != nil {
				return err
			}
		}
		ret.Registry, err = n.governanceBlueprint.Instantiate(tx, governance.InstanceConfig{
			ProposalDuration: n.config.governance.ProposalDuration,
			Quorum:           n.config.governance.Quorum,
			QuorumSupply:     n.config.governance.QuorumSupply,
			VoteToken:        token,
		})
		if err != nil {
			return fmt.Errorf("instantiate registry: %w", err)
		}
		if cfg.Relay {
			ret.Relay, err = n.relayBlueprint.Instantiate(tx, ret.Registry)
			if err != nil {
				return fmt.Errorf("instantiate relay: %w", err)
			}
		}
		if cfg.Counter {
			var badge *ledger.Bucket
			ret.Counter, badge, err = n.counterBlueprint.Instantiate(tx)
			if err != nil {
				return fmt.Errorf("instantiate counter: %w", err)
			}
			// The registry custodies the counter badge for executive proposals
			if err := tx.Deposit(ledger.AccountVault(creator, badge.Resource()), badge); err != nil {
				return err
			}
			client := governance.NewClient(ret.Registry)
			if err := client.AddExternalBadges(tx, badge.Resource(), decimal.NewFromInt(1)); err != nil {
				return fmt.Errorf("custody counter badge: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Deployment{}, fmt.Errorf("genesis: %w", err)
	}
	n.config.logger.Info(
		"genesis complete",
		"registry", ret.Registry,
		"vote_token", ret.VoteToken,
		"relay", ret.Relay,
		"counter", ret.Counter,
	)
	return ret, nil
}
