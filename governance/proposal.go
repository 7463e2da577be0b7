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
	"slices"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
)

type ProposalKind uint8

const (
	ProposalKindAdvisory ProposalKind = iota
	ProposalKindExecutive
)

func (k ProposalKind) String() string {
	switch k {
	case ProposalKindAdvisory:
		return "advisory"
	case ProposalKindExecutive:
		return "executive"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

type ProposalStatus uint8

const (
	ProposalStatusOpen ProposalStatus = iota
	ProposalStatusClosed
)

func (s ProposalStatus) String() string {
	if s == ProposalStatusClosed {
		return "closed"
	}
	return "open"
}

// ActionOption is the executive option whose decision triggers the target
const ActionOption uint32 = 1

// DefaultExecutiveOptions is the ballot of an executive proposal created
// without options
var DefaultExecutiveOptions = []string{"Reject", "Approve"}

// ExecutionMode selects how a decided executive proposal reaches its target
type ExecutionMode uint8

const (
	// ExecutionDirect calls the target from resolve, presenting custodied badges
	ExecutionDirect ExecutionMode = iota
	// ExecutionRelay hands badges to a relay and forwards the call in resolve_executive
	ExecutionRelay
)

func (m ExecutionMode) String() string {
	if m == ExecutionRelay {
		return "relay"
	}
	return "direct"
}

type BadgeKind uint8

const (
	BadgeKindAdmin BadgeKind = iota
	BadgeKindExternal
)

// BadgeSpec names a custodied badge to prove or withdraw on execution
type BadgeSpec struct {
	Kind     BadgeKind       `cbor:"1,keyasint"`
	Resource ledger.Address  `cbor:"2,keyasint,omitempty"`
	Amount   decimal.Decimal `cbor:"3,keyasint"`
}

// AdminBadge refers to the registry's own admin badge
func AdminBadge() BadgeSpec {
	return BadgeSpec{Kind: BadgeKindAdmin, Amount: decimal.NewFromInt(1)}
}

// ExternalBadge refers to a badge deposited with add_external_badges
func ExternalBadge(resource ledger.Address, amount decimal.Decimal) BadgeSpec {
	return BadgeSpec{Kind: BadgeKindExternal, Resource: resource, Amount: amount}
}

func (b BadgeSpec) validate() error {
	switch b.Kind {
	case BadgeKindAdmin:
		return nil
	case BadgeKindExternal:
		if b.Resource == "" {
			return fmt.Errorf("%w: external badge without resource", ErrMalformedTarget)
		}
		if b.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: badge amount must be positive", ErrMalformedTarget)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown badge kind %d", ErrMalformedTarget, b.Kind)
	}
}

// resolve returns the resource and amount a badge spec refers to
func (b BadgeSpec) resolve(inst *models.GovernanceInstance) (ledger.Address, decimal.Decimal) {
	if b.Kind == BadgeKindAdmin {
		return ledger.Address(inst.AdminBadge), decimal.NewFromInt(1)
	}
	return b.Resource, b.Amount
}

// RelayCall is the call a relay forwards with its stored credential
type RelayCall struct {
	Slot      string         `cbor:"1,keyasint"`
	Component ledger.Address `cbor:"2,keyasint"`
	Method    string         `cbor:"3,keyasint"`
	Args      []byte         `cbor:"4,keyasint,omitempty"`
}

// Target is the action of an executive proposal. Args holds CBOR-encoded
// method arguments.
type Target struct {
	Component ledger.Address   `cbor:"1,keyasint"`
	Method    string           `cbor:"2,keyasint"`
	Args      []byte           `cbor:"3,keyasint,omitempty"`
	Proofs    []BadgeSpec      `cbor:"4,keyasint,omitempty"`
	Buckets   []BadgeSpec      `cbor:"5,keyasint,omitempty"`
	Funding   *decimal.Decimal `cbor:"6,keyasint,omitempty"`
	Mode      ExecutionMode    `cbor:"7,keyasint"`
	RelayCall *RelayCall       `cbor:"8,keyasint,omitempty"`
}

func (t *Target) validate() error {
	if !t.Component.IsComponent() {
		return fmt.Errorf("%w: target component %q", ErrMalformedTarget, t.Component)
	}
	if t.Method == "" {
		return fmt.Errorf("%w: missing target method", ErrMalformedTarget)
	}
	for _, spec := range slices.Concat(t.Proofs, t.Buckets) {
		if err := spec.validate(); err != nil {
			return err
		}
	}
	if t.Funding != nil && t.Funding.Sign() <= 0 {
		return fmt.Errorf("%w: funding must be positive", ErrMalformedTarget)
	}
	switch t.Mode {
	case ExecutionDirect:
		if t.RelayCall != nil {
			return fmt.Errorf("%w: relay call on direct target", ErrMalformedTarget)
		}
	case ExecutionRelay:
		rc := t.RelayCall
		if rc == nil {
			return fmt.Errorf("%w: relay target without relay call", ErrMalformedTarget)
		}
		if rc.Slot == "" || !rc.Component.IsComponent() || rc.Method == "" {
			return fmt.Errorf("%w: incomplete relay call", ErrMalformedTarget)
		}
	default:
		return fmt.Errorf("%w: unknown execution mode %d", ErrMalformedTarget, t.Mode)
	}
	return nil
}

func encodeTarget(t *Target) ([]byte, error) {
	if t == nil {
		return nil, nil
	}
	return cbor.Marshal(t)
}

func decodeTarget(data []byte) (*Target, error) {
	if len(data) == 0 {
		return nil, nil
	}
	t := new(Target)
	if err := cbor.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("decode target: %w", err)
	}
	return t, nil
}

// Proposal is the queryable view of a proposal
type Proposal struct {
	ID             uint64            `cbor:"1,keyasint"`
	Kind           ProposalKind      `cbor:"2,keyasint"`
	Title          string            `cbor:"3,keyasint"`
	Pitch          string            `cbor:"4,keyasint"`
	Options        []string          `cbor:"5,keyasint"`
	Tally          []decimal.Decimal `cbor:"6,keyasint"`
	Deadline       uint64            `cbor:"7,keyasint"`
	Status         ProposalStatus    `cbor:"8,keyasint"`
	Result         Result            `cbor:"9,keyasint"`
	Target         *Target           `cbor:"10,keyasint,omitempty"`
	SupplySnapshot decimal.Decimal   `cbor:"11,keyasint"`
	CreatedEpoch   uint64            `cbor:"12,keyasint"`
	ClosedEpoch    *uint64           `cbor:"13,keyasint,omitempty"`
	ExecutedEpoch  *uint64           `cbor:"14,keyasint,omitempty"`
}

// TotalCast returns the sum of all option tallies
func (p *Proposal) TotalCast() decimal.Decimal {
	total := decimal.Zero
	for _, weight := range p.Tally {
		total = total.Add(weight)
	}
	return total
}

func resultOf(row *models.Proposal) Result {
	if ProposalStatus(row.Status) == ProposalStatusOpen {
		return Result{}
	}
	return Result{Outcome: Outcome(row.Outcome), Winner: row.Winner}
}

func tallyOf(row *models.Proposal) []decimal.Decimal {
	ret := make([]decimal.Decimal, len(row.Options))
	for i, opt := range row.Options {
		ret[i] = opt.Tally
	}
	return ret
}

func proposalFromModel(row *models.Proposal) (*Proposal, error) {
	target, err := decodeTarget(row.Target)
	if err != nil {
		return nil, err
	}
	p := &Proposal{
		ID:             row.ProposalID,
		Kind:           ProposalKind(row.Kind),
		Options:        make([]string, len(row.Options)),
		Tally:          tallyOf(row),
		Deadline:       row.Deadline,
		Status:         ProposalStatus(row.Status),
		Result:         resultOf(row),
		Target:         target,
		SupplySnapshot: row.SupplySnapshot,
		CreatedEpoch:   row.CreatedEpoch,
		ClosedEpoch:    row.ClosedEpoch,
		ExecutedEpoch:  row.ExecutedEpoch,
	}
	for i, opt := range row.Options {
		p.Options[i] = opt.Label
	}
	return p, nil
}

// Receipt is the queryable view of a vote receipt
type Receipt struct {
	ID            string          `cbor:"1,keyasint"`
	ProposalID    uint64          `cbor:"2,keyasint"`
	Option        uint32          `cbor:"3,keyasint"`
	Amount        decimal.Decimal `cbor:"4,keyasint"`
	VoteToken     ledger.Address  `cbor:"5,keyasint"`
	CastEpoch     uint64          `cbor:"6,keyasint"`
	RedeemedEpoch *uint64         `cbor:"7,keyasint,omitempty"`
}

// receiptData is stored on the receipt non-fungible itself
type receiptData struct {
	_          struct{} `cbor:",toarray"`
	ProposalID uint64
	Option     uint32
	Amount     decimal.Decimal
	VoteToken  ledger.Address
}

func receiptFromModel(row *models.VoteReceipt) *Receipt {
	return &Receipt{
		ID:            row.ReceiptID,
		ProposalID:    row.ProposalID,
		Option:        row.OptionIndex,
		Amount:        row.Amount,
		VoteToken:     ledger.Address(row.VoteToken),
		CastEpoch:     row.CastEpoch,
		RedeemedEpoch: row.RedeemedEpoch,
	}
}
