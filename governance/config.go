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
	"fmt"
	"strings"

	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
)

type QuorumKind uint8

const (
	QuorumKindAny QuorumKind = iota
	QuorumKindPercent
	QuorumKindFixed
)

// QuorumRule is the threshold total cast weight must reach for a decisive result
type QuorumRule struct {
	Kind  QuorumKind      `cbor:"1,keyasint"`
	Value decimal.Decimal `cbor:"2,keyasint"`
}

func AnyQuorum() QuorumRule {
	return QuorumRule{Kind: QuorumKindAny}
}

// PercentQuorum requires p percent of the vote token supply
func PercentQuorum(p decimal.Decimal) QuorumRule {
	return QuorumRule{Kind: QuorumKindPercent, Value: p}
}

// FixedQuorum requires an absolute weight of n
func FixedQuorum(n decimal.Decimal) QuorumRule {
	return QuorumRule{Kind: QuorumKindFixed, Value: n}
}

// ParseQuorumRule parses "any", "percent" or "fixed" with its value
func ParseQuorumRule(kind string, value string) (QuorumRule, error) {
	switch strings.ToLower(kind) {
	case "", "any":
		return AnyQuorum(), nil
	case "percent", "fixed":
		v, err := decimal.NewFromString(value)
		if err != nil {
			return QuorumRule{}, fmt.Errorf("%w: quorum value %q: %w", ErrInvalidConfig, value, err)
		}
		if strings.EqualFold(kind, "percent") {
			return PercentQuorum(v), nil
		}
		return FixedQuorum(v), nil
	default:
		return QuorumRule{}, fmt.Errorf("%w: unknown quorum rule %q", ErrInvalidConfig, kind)
	}
}

func (q QuorumRule) validate() error {
	switch q.Kind {
	case QuorumKindAny:
		return nil
	case QuorumKindPercent:
		if q.Value.Sign() <= 0 || q.Value.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: percent quorum must be in (0, 100]", ErrInvalidConfig)
		}
		return nil
	case QuorumKindFixed:
		if q.Value.Sign() < 0 {
			return fmt.Errorf("%w: fixed quorum must not be negative", ErrInvalidConfig)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown quorum kind %d", ErrInvalidConfig, q.Kind)
	}
}

func (q QuorumRule) String() string {
	switch q.Kind {
	case QuorumKindAny:
		return "any"
	case QuorumKindPercent:
		return "percent(" + q.Value.String() + ")"
	case QuorumKindFixed:
		return "fixed(" + q.Value.String() + ")"
	default:
		return fmt.Sprintf("unknown(%d)", q.Kind)
	}
}

// QuorumSupply selects which vote token supply a percent quorum is measured against
type QuorumSupply uint8

const (
	QuorumSupplyResolution QuorumSupply = iota
	QuorumSupplyCreation
)

func ParseQuorumSupply(s string) (QuorumSupply, error) {
	switch strings.ToLower(s) {
	case "", "resolution":
		return QuorumSupplyResolution, nil
	case "creation":
		return QuorumSupplyCreation, nil
	default:
		return 0, fmt.Errorf("%w: unknown quorum supply %q", ErrInvalidConfig, s)
	}
}

type TallyMode uint8

const (
	TallyModeLinear TallyMode = iota
)

type SubsidyMode uint8

const (
	SubsidyModeNone SubsidyMode = iota
)

// InstanceConfig is fixed when a registry is instantiated, except for the
// proposal duration which an executive proposal may change
type InstanceConfig struct {
	ProposalDuration uint64
	Quorum           QuorumRule
	QuorumSupply     QuorumSupply
	VoteToken        ledger.Address
	// IdentityToken, when set, gates voting on a proof of holding it
	IdentityToken ledger.Address
	TallyMode     TallyMode
	VoteSubsidy   SubsidyMode
}

func (c InstanceConfig) validate(tx *ledger.Tx) error {
	if c.ProposalDuration == 0 {
		return fmt.Errorf("%w: proposal duration must be positive", ErrInvalidConfig)
	}
	if err := c.Quorum.validate(); err != nil {
		return err
	}
	if c.QuorumSupply > QuorumSupplyCreation {
		return fmt.Errorf("%w: unknown quorum supply %d", ErrInvalidConfig, c.QuorumSupply)
	}
	if c.TallyMode != TallyModeLinear {
		return fmt.Errorf("%w: unsupported tally mode %d", ErrInvalidConfig, c.TallyMode)
	}
	if c.VoteSubsidy != SubsidyModeNone {
		return fmt.Errorf("%w: unsupported vote subsidy %d", ErrInvalidConfig, c.VoteSubsidy)
	}
	voteToken, err := tx.Resource(c.VoteToken)
	if err != nil {
		return fmt.Errorf("%w: vote token: %w", ErrInvalidConfig, err)
	}
	if voteToken.Kind != ledger.ResourceKindFungible {
		return fmt.Errorf("%w: vote token must be fungible", ErrInvalidConfig)
	}
	if c.IdentityToken != "" {
		if _, err := tx.Resource(c.IdentityToken); err != nil {
			return fmt.Errorf("%w: identity token: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// InstanceInfo is the current configuration and state of a registry
type InstanceInfo struct {
	Address          ledger.Address `cbor:"1,keyasint"`
	ProposalDuration uint64         `cbor:"2,keyasint"`
	Quorum           QuorumRule     `cbor:"3,keyasint"`
	QuorumSupply     QuorumSupply   `cbor:"4,keyasint"`
	VoteToken        ledger.Address `cbor:"5,keyasint"`
	IdentityToken    ledger.Address `cbor:"6,keyasint,omitempty"`
	TallyMode        TallyMode      `cbor:"7,keyasint"`
	VoteSubsidy      SubsidyMode    `cbor:"8,keyasint"`
	AdminBadge       ledger.Address `cbor:"9,keyasint"`
	ReceiptResource  ledger.Address `cbor:"10,keyasint"`
	NextProposalID   uint64         `cbor:"11,keyasint"`
}
