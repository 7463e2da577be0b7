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
	"errors"
	"fmt"

	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
)

// Client wraps the registry methods for use inside a ledger transaction.
// Methods that move the signer's tokens withdraw from and deposit to the
// signer's account vaults.
type Client struct {
	registry ledger.Address
}

func NewClient(registry ledger.Address) *Client {
	return &Client{registry: registry}
}

func (c *Client) Registry() ledger.Address {
	return c.registry
}

func (c *Client) call(
	tx *ledger.Tx,
	method string,
	req ledger.Request,
	v any,
) ([]*ledger.Bucket, error) {
	res, err := tx.Call(c.registry, method, req)
	if err != nil {
		return nil, err
	}
	if v != nil {
		if err := res.Decode(v); err != nil {
			return res.Buckets, fmt.Errorf("%s: %w", method, err)
		}
	}
	return res.Buckets, nil
}

func (c *Client) Config(tx *ledger.Tx) (*InstanceInfo, error) {
	ret := new(InstanceInfo)
	if _, err := c.call(tx, MethodGetConfig, ledger.Request{}, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) CreateProposal(tx *ledger.Tx, args CreateProposalArgs) (uint64, error) {
	var id uint64
	if _, err := c.call(tx, MethodCreateProposal, ledger.Request{Args: args}, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// CastVote votes amount of the signer's vote tokens and keeps the receipt in
// the signer's account. When the registry is identity gated, the signer's
// whole identity token balance is presented as proof.
func (c *Client) CastVote(
	tx *ledger.Tx,
	proposalID uint64,
	option uint32,
	amount decimal.Decimal,
) (string, error) {
	info, err := c.Config(tx)
	if err != nil {
		return "", err
	}
	voter := tx.Signer()
	votes, err := tx.Withdraw(ledger.AccountVault(voter, info.VoteToken), amount)
	if err != nil {
		return "", err
	}
	req := ledger.Request{
		Args:    CastVoteArgs{ProposalID: proposalID, Option: option},
		Buckets: []*ledger.Bucket{votes},
	}
	if info.IdentityToken != "" {
		identity := ledger.AccountVault(voter, info.IdentityToken)
		balance, err := tx.Balance(identity)
		if err != nil {
			return "", err
		}
		if balance.Sign() > 0 {
			proof, err := tx.CreateProof(identity, balance)
			if err != nil {
				return "", err
			}
			req.Proofs = []*ledger.Proof{proof}
		}
	}
	var receiptID string
	buckets, err := c.call(tx, MethodCastVote, req, &receiptID)
	if err != nil {
		return "", err
	}
	for _, b := range buckets {
		if err := tx.Deposit(ledger.AccountVault(voter, b.Resource()), b); err != nil {
			return "", err
		}
	}
	return receiptID, nil
}

// Redeem returns the receipt's vote tokens to the signer and reports the
// amount released
func (c *Client) Redeem(tx *ledger.Tx, receiptID string) (decimal.Decimal, error) {
	receipt, err := c.GetReceipt(tx, receiptID)
	if err != nil {
		return decimal.Zero, err
	}
	if receipt.RedeemedEpoch != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrReceiptAlreadyRedeemed, receiptID)
	}
	info, err := c.Config(tx)
	if err != nil {
		return decimal.Zero, err
	}
	voter := tx.Signer()
	b, err := tx.WithdrawNonFungibles(
		ledger.AccountVault(voter, info.ReceiptResource),
		[]string{receiptID},
	)
	if err != nil {
		return decimal.Zero, err
	}
	var amount decimal.Decimal
	buckets, err := c.call(
		tx,
		MethodRedeemReceipt,
		ledger.Request{Buckets: []*ledger.Bucket{b}},
		&amount,
	)
	if err != nil {
		return decimal.Zero, err
	}
	for _, tokens := range buckets {
		if err := tx.Deposit(ledger.AccountVault(voter, tokens.Resource()), tokens); err != nil {
			return decimal.Zero, err
		}
	}
	return amount, nil
}

func (c *Client) Resolve(tx *ledger.Tx, proposalID uint64) (Result, error) {
	var ret Result
	_, err := c.call(tx, MethodResolve, ledger.Request{Args: ProposalArgs{ProposalID: proposalID}}, &ret)
	return ret, err
}

func (c *Client) ResolveExecutive(
	tx *ledger.Tx,
	proposalID uint64,
	relay ledger.Address,
	followup string,
) (Result, error) {
	var ret Result
	_, err := c.call(
		tx,
		MethodResolveExecutive,
		ledger.Request{
			Args: ResolveExecutiveArgs{
				ProposalID: proposalID,
				Relay:      relay,
				Followup:   followup,
			},
		},
		&ret,
	)
	return ret, err
}

// AddExternalBadges moves amount from the signer's vault into the registry's
// badge custody
func (c *Client) AddExternalBadges(
	tx *ledger.Tx,
	resource ledger.Address,
	amount decimal.Decimal,
) error {
	b, err := tx.Withdraw(ledger.AccountVault(tx.Signer(), resource), amount)
	if err != nil {
		return err
	}
	_, err = c.call(tx, MethodAddExternalBadges, ledger.Request{Buckets: []*ledger.Bucket{b}}, nil)
	return err
}

// Fund moves amount from the signer's vault into the registry treasury
func (c *Client) Fund(tx *ledger.Tx, resource ledger.Address, amount decimal.Decimal) error {
	b, err := tx.Withdraw(ledger.AccountVault(tx.Signer(), resource), amount)
	if err != nil {
		return err
	}
	_, err = c.call(tx, MethodFund, ledger.Request{Buckets: []*ledger.Bucket{b}}, nil)
	return err
}

func (c *Client) GetResult(tx *ledger.Tx, proposalID uint64) (Result, error) {
	var ret Result
	_, err := c.call(tx, MethodGetResult, ledger.Request{Args: ProposalArgs{ProposalID: proposalID}}, &ret)
	return ret, err
}

// GetDeadline returns the maximum number of epochs a proposal may stay open
func (c *Client) GetDeadline(tx *ledger.Tx) (uint64, error) {
	var ret uint64
	_, err := c.call(tx, MethodGetDeadline, ledger.Request{}, &ret)
	return ret, err
}

func (c *Client) GetProposal(tx *ledger.Tx, proposalID uint64) (*Proposal, error) {
	ret := new(Proposal)
	if _, err := c.call(tx, MethodGetProposal, ledger.Request{Args: ProposalArgs{ProposalID: proposalID}}, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) ListProposals(tx *ledger.Tx) ([]*Proposal, error) {
	var ret []*Proposal
	if _, err := c.call(tx, MethodListProposals, ledger.Request{}, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (c *Client) GetReceipt(tx *ledger.Tx, receiptID string) (*Receipt, error) {
	ret := new(Receipt)
	if _, err := c.call(tx, MethodGetReceipt, ledger.Request{Args: ReceiptArgs{ReceiptID: receiptID}}, ret); err != nil {
		if errors.Is(err, ErrReceiptNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get receipt %s: %w", receiptID, err)
	}
	return ret, nil
}
