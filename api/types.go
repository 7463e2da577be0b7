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

package api

import (
	"fmt"
	"strings"

	"github.com/blinklabs-io/agora/governance"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/shopspring/decimal"
)

// Config holds configuration for the API server.
type Config struct {
	ListenAddress string
	// RateLimit is the sustained requests per second allowed per
	// client. Zero disables rate limiting.
	RateLimit float64
	RateBurst int
}

type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the error body returned for failed requests.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type EpochResponse struct {
	Epoch uint64 `json:"epoch"`
}

type AdvanceEpochRequest struct {
	Epochs uint64 `json:"epochs"`
}

type RegistryResponse struct {
	Address          string `json:"address"`
	ProposalDuration uint64 `json:"proposal_duration"`
	Quorum           string `json:"quorum"`
	QuorumSupply     string `json:"quorum_supply"`
	VoteToken        string `json:"vote_token"`
	IdentityToken    string `json:"identity_token,omitempty"`
	AdminBadge       string `json:"admin_badge"`
	ReceiptResource  string `json:"receipt_resource"`
	NextProposalID   uint64 `json:"next_proposal_id"`
}

type ResultResponse struct {
	Outcome string  `json:"outcome"`
	Winner  *uint32 `json:"winner,omitempty"`
}

type OptionResponse struct {
	Index uint32 `json:"index"`
	Label string `json:"label"`
	Tally string `json:"tally"`
}

type ProposalResponse struct {
	ID             uint64           `json:"id"`
	Kind           string           `json:"kind"`
	Title          string           `json:"title"`
	Pitch          string           `json:"pitch"`
	Options        []OptionResponse `json:"options"`
	TotalCast      string           `json:"total_cast"`
	Deadline       uint64           `json:"deadline"`
	Status         string           `json:"status"`
	Result         ResultResponse   `json:"result"`
	Target         *TargetBody      `json:"target,omitempty"`
	SupplySnapshot string           `json:"supply_snapshot"`
	CreatedEpoch   uint64           `json:"created_epoch"`
	ClosedEpoch    *uint64          `json:"closed_epoch,omitempty"`
	ExecutedEpoch  *uint64          `json:"executed_epoch,omitempty"`
}

// BadgeBody names a custodied badge. Kind is "admin" or "external".
type BadgeBody struct {
	Kind     string `json:"kind"`
	Resource string `json:"resource,omitempty"`
	Amount   string `json:"amount,omitempty"`
}

type RelayCallBody struct {
	Slot      string `json:"slot"`
	Component string `json:"component"`
	Method    string `json:"method"`
	Args      []byte `json:"args,omitempty"`
}

// TargetBody is the executive action of a proposal. Args are
// CBOR-encoded method arguments, base64 in JSON.
type TargetBody struct {
	Component string         `json:"component"`
	Method    string         `json:"method"`
	Args      []byte         `json:"args,omitempty"`
	Mode      string         `json:"mode"`
	Proofs    []BadgeBody    `json:"proofs,omitempty"`
	Buckets   []BadgeBody    `json:"buckets,omitempty"`
	Funding   string         `json:"funding,omitempty"`
	RelayCall *RelayCallBody `json:"relay_call,omitempty"`
}

type CreateProposalRequest struct {
	Kind     string      `json:"kind"`
	Options  []string    `json:"options"`
	Title    string      `json:"title"`
	Pitch    string      `json:"pitch"`
	Deadline uint64      `json:"deadline"`
	Target   *TargetBody `json:"target,omitempty"`
}

type CreateProposalResponse struct {
	ID uint64 `json:"id"`
}

type CastVoteRequest struct {
	Option uint32 `json:"option"`
	Amount string `json:"amount"`
}

type CastVoteResponse struct {
	ReceiptID string `json:"receipt_id"`
}

type ExecuteRequest struct {
	Relay    string `json:"relay"`
	Followup string `json:"followup"`
}

type RedeemResponse struct {
	ReceiptID string `json:"receipt_id"`
	Amount    string `json:"amount"`
}

type BalanceResponse struct {
	Account  string `json:"account"`
	Resource string `json:"resource"`
	Amount   string `json:"amount"`
}

type CounterResponse struct {
	Count uint64 `json:"count"`
}

func registryResponse(info *governance.InstanceInfo) RegistryResponse {
	supply := "resolution"
	if info.QuorumSupply == governance.QuorumSupplyCreation {
		supply = "creation"
	}
	return RegistryResponse{
		Address:          info.Address.String(),
		ProposalDuration: info.ProposalDuration,
		Quorum:           info.Quorum.String(),
		QuorumSupply:     supply,
		VoteToken:        info.VoteToken.String(),
		IdentityToken:    info.IdentityToken.String(),
		AdminBadge:       info.AdminBadge.String(),
		ReceiptResource:  info.ReceiptResource.String(),
		NextProposalID:   info.NextProposalID,
	}
}

func resultResponse(r governance.Result) ResultResponse {
	ret := ResultResponse{Outcome: r.String()}
	if r.Outcome == governance.OutcomeDecided {
		winner := r.Winner
		ret.Outcome = "decided"
		ret.Winner = &winner
	}
	return ret
}

func badgeBody(b governance.BadgeSpec) BadgeBody {
	if b.Kind == governance.BadgeKindAdmin {
		return BadgeBody{Kind: "admin"}
	}
	return BadgeBody{
		Kind:     "external",
		Resource: b.Resource.String(),
		Amount:   b.Amount.String(),
	}
}

func targetBody(t *governance.Target) *TargetBody {
	if t == nil {
		return nil
	}
	ret := &TargetBody{
		Component: t.Component.String(),
		Method:    t.Method,
		Args:      t.Args,
		Mode:      t.Mode.String(),
	}
	for _, b := range t.Proofs {
		ret.Proofs = append(ret.Proofs, badgeBody(b))
	}
	for _, b := range t.Buckets {
		ret.Buckets = append(ret.Buckets, badgeBody(b))
	}
	if t.Funding != nil {
		ret.Funding = t.Funding.String()
	}
	if rc := t.RelayCall; rc != nil {
		ret.RelayCall = &RelayCallBody{
			Slot:      rc.Slot,
			Component: rc.Component.String(),
			Method:    rc.Method,
			Args:      rc.Args,
		}
	}
	return ret
}

func proposalResponse(p *governance.Proposal) ProposalResponse {
	ret := ProposalResponse{
		ID:             p.ID,
		Kind:           p.Kind.String(),
		Title:          p.Title,
		Pitch:          p.Pitch,
		Options:        make([]OptionResponse, len(p.Options)),
		TotalCast:      p.TotalCast().String(),
		Deadline:       p.Deadline,
		Status:         p.Status.String(),
		Result:         resultResponse(p.Result),
		Target:         targetBody(p.Target),
		SupplySnapshot: p.SupplySnapshot.String(),
		CreatedEpoch:   p.CreatedEpoch,
		ClosedEpoch:    p.ClosedEpoch,
		ExecutedEpoch:  p.ExecutedEpoch,
	}
	for i, label := range p.Options {
		tally := decimal.Zero
		if i < len(p.Tally) {
			tally = p.Tally[i]
		}
		ret.Options[i] = OptionResponse{
			Index: uint32(i), // #nosec G115
			Label: label,
			Tally: tally.String(),
		}
	}
	return ret
}

func parseAddress(s string, what string) (ledger.Address, error) {
	addr, err := ledger.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidRequest, what, err)
	}
	return addr, nil
}

func parseAmount(s string, what string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q", ErrInvalidRequest, what, s)
	}
	return d, nil
}

func (b BadgeBody) spec() (governance.BadgeSpec, error) {
	switch strings.ToLower(b.Kind) {
	case "admin":
		return governance.AdminBadge(), nil
	case "external":
		resource, err := parseAddress(b.Resource, "badge resource")
		if err != nil {
			return governance.BadgeSpec{}, err
		}
		amount, err := parseAmount(b.Amount, "badge amount")
		if err != nil {
			return governance.BadgeSpec{}, err
		}
		return governance.ExternalBadge(resource, amount), nil
	default:
		return governance.BadgeSpec{}, fmt.Errorf("%w: badge kind %q", ErrInvalidRequest, b.Kind)
	}
}

func badgeSpecs(bodies []BadgeBody) ([]governance.BadgeSpec, error) {
	var ret []governance.BadgeSpec
	for _, b := range bodies {
		spec, err := b.spec()
		if err != nil {
			return nil, err
		}
		ret = append(ret, spec)
	}
	return ret, nil
}

func (t *TargetBody) target() (*governance.Target, error) {
	component, err := parseAddress(t.Component, "target component")
	if err != nil {
		return nil, err
	}
	ret := &governance.Target{
		Component: component,
		Method:    t.Method,
		Args:      t.Args,
	}
	switch strings.ToLower(t.Mode) {
	case "", "direct":
		ret.Mode = governance.ExecutionDirect
	case "relay":
		ret.Mode = governance.ExecutionRelay
	default:
		return nil, fmt.Errorf("%w: execution mode %q", ErrInvalidRequest, t.Mode)
	}
	if ret.Proofs, err = badgeSpecs(t.Proofs); err != nil {
		return nil, err
	}
	if ret.Buckets, err = badgeSpecs(t.Buckets); err != nil {
		return nil, err
	}
	if t.Funding != "" {
		funding, err := parseAmount(t.Funding, "funding")
		if err != nil {
			return nil, err
		}
		ret.Funding = &funding
	}
	if rc := t.RelayCall; rc != nil {
		relayComponent, err := parseAddress(rc.Component, "relay call component")
		if err != nil {
			return nil, err
		}
		ret.RelayCall = &governance.RelayCall{
			Slot:      rc.Slot,
			Component: relayComponent,
			Method:    rc.Method,
			Args:      rc.Args,
		}
	}
	return ret, nil
}

func (r CreateProposalRequest) args() (governance.CreateProposalArgs, error) {
	ret := governance.CreateProposalArgs{
		Options:  r.Options,
		Title:    r.Title,
		Pitch:    r.Pitch,
		Deadline: r.Deadline,
	}
	switch strings.ToLower(r.Kind) {
	case "", "advisory":
		ret.Kind = governance.ProposalKindAdvisory
	case "executive":
		ret.Kind = governance.ProposalKindExecutive
	default:
		return ret, fmt.Errorf("%w: proposal kind %q", ErrInvalidRequest, r.Kind)
	}
	if r.Target != nil {
		target, err := r.Target.target()
		if err != nil {
			return ret, err
		}
		ret.Target = target
	}
	return ret, nil
}
