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
	"io"
	"log/slog"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/blinklabs-io/agora/relay"
	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const BlueprintName = "governance"

const (
	MethodCreateProposal      = "create_proposal"
	MethodCastVote            = "cast_vote"
	MethodRedeemReceipt       = "redeem_receipt"
	MethodResolve             = "resolve"
	MethodResolveExecutive    = "resolve_executive"
	MethodAddExternalBadges   = "add_external_badges"
	MethodFund                = "fund"
	MethodSetProposalDuration = "set_proposal_duration"
	MethodGetResult           = "get_result"
	MethodGetDeadline         = "get_deadline"
	MethodGetProposal         = "get_proposal"
	MethodListProposals       = "list_proposals"
	MethodGetReceipt          = "get_receipt"
	MethodGetConfig           = "get_config"
)

// Registry vault labels. Escrow only ever holds vote tokens backing live receipts.
const (
	VaultEscrow   = "escrow"
	VaultTreasury = "treasury"
	VaultBadges   = "badges"
)

type CreateProposalArgs struct {
	Kind     ProposalKind `cbor:"1,keyasint"`
	Options  []string     `cbor:"2,keyasint"`
	Title    string       `cbor:"3,keyasint"`
	Pitch    string       `cbor:"4,keyasint"`
	Deadline uint64       `cbor:"5,keyasint"`
	Target   *Target      `cbor:"6,keyasint,omitempty"`
}

type CastVoteArgs struct {
	ProposalID uint64 `cbor:"1,keyasint"`
	Option     uint32 `cbor:"2,keyasint"`
}

type ProposalArgs struct {
	ProposalID uint64 `cbor:"1,keyasint"`
}

type ResolveExecutiveArgs struct {
	ProposalID uint64         `cbor:"1,keyasint"`
	Relay      ledger.Address `cbor:"2,keyasint"`
	Followup   string         `cbor:"3,keyasint"`
}

type SetProposalDurationArgs struct {
	Duration uint64 `cbor:"1,keyasint"`
}

type ReceiptArgs struct {
	ReceiptID string `cbor:"1,keyasint"`
}

type BlueprintConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Blueprint instantiates and loads registries. Metrics are shared by every
// registry of a blueprint.
type Blueprint struct {
	logger  *slog.Logger
	metrics *registryMetrics
}

func NewBlueprint(cfg BlueprintConfig) *Blueprint {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	b := &Blueprint{
		logger: cfg.Logger.With("component", "governance"),
	}
	if cfg.PromRegistry != nil {
		b.metrics = &registryMetrics{}
		b.metrics.init(cfg.PromRegistry)
	}
	return b
}

// Register makes the blueprint loadable by the ledger
func (b *Blueprint) Register(l *ledger.Ledger) {
	l.RegisterBlueprint(BlueprintName, b.Load)
}

func (b *Blueprint) Load(address ledger.Address) (ledger.Component, error) {
	return b.newRegistry(address), nil
}

// Instantiate creates a registry with its admin badge and receipt resource.
// The admin badge is kept in the registry's badges vault.
func (b *Blueprint) Instantiate(tx *ledger.Tx, cfg InstanceConfig) (ledger.Address, error) {
	if err := cfg.validate(tx); err != nil {
		return "", err
	}
	return tx.NewComponent(BlueprintName, func(addr ledger.Address) (ledger.Component, error) {
		adminBadge, badge, err := tx.CreateResource(
			ledger.ResourceSpec{
				Kind:   ledger.ResourceKindFungible,
				Name:   "Governance Admin Badge",
				Symbol: "GADM",
			},
			decimal.NewFromInt(1),
		)
		if err != nil {
			return nil, err
		}
		receipts, _, err := tx.CreateResource(
			ledger.ResourceSpec{
				Kind:     ledger.ResourceKindNonFungible,
				Name:     "Vote Receipt",
				Mintable: true,
			},
			decimal.Zero,
		)
		if err != nil {
			return nil, err
		}
		if err := tx.Deposit(
			ledger.VaultKey{Owner: addr, Resource: adminBadge, Label: VaultBadges},
			badge,
		); err != nil {
			return nil, err
		}
		inst := &models.GovernanceInstance{
			Component:        string(addr),
			ProposalDuration: cfg.ProposalDuration,
			QuorumKind:       uint8(cfg.Quorum.Kind),
			QuorumValue:      cfg.Quorum.Value,
			QuorumSupply:     uint8(cfg.QuorumSupply),
			VoteToken:        string(cfg.VoteToken),
			IdentityToken:    string(cfg.IdentityToken),
			TallyMode:        uint8(cfg.TallyMode),
			VoteSubsidy:      uint8(cfg.VoteSubsidy),
			AdminBadge:       string(adminBadge),
			ReceiptResource:  string(receipts),
		}
		if err := tx.DB().Metadata().AddGovernanceInstance(inst, tx.Txn().Metadata()); err != nil {
			return nil, fmt.Errorf("add governance instance: %w", err)
		}
		b.logger.Info(
			"instantiated registry",
			"address", addr,
			"vote_token", cfg.VoteToken,
			"quorum", cfg.Quorum.String(),
		)
		return b.newRegistry(addr), nil
	})
}

// Registry is the proposal registry component. All of its state lives in
// the ledger, so one instance serves every transaction.
type Registry struct {
	*ledger.Router
	address ledger.Address
	logger  *slog.Logger
	metrics *registryMetrics
}

func (b *Blueprint) newRegistry(address ledger.Address) *Registry {
	r := &Registry{
		Router:  ledger.NewRouter(),
		address: address,
		logger:  b.logger.With("registry", address),
		metrics: b.metrics,
	}
	r.Handle(MethodCreateProposal, r.createProposal)
	r.Handle(MethodCastVote, r.castVote)
	r.Handle(MethodRedeemReceipt, r.redeemReceipt)
	r.Handle(MethodResolve, r.resolve)
	r.Handle(MethodResolveExecutive, r.resolveExecutive)
	r.Handle(MethodAddExternalBadges, r.addExternalBadges)
	r.Handle(MethodFund, r.fund)
	r.Handle(MethodSetProposalDuration, r.setProposalDuration)
	r.Handle(MethodGetResult, r.getResult)
	r.Handle(MethodGetDeadline, r.getDeadline)
	r.Handle(MethodGetProposal, r.getProposal)
	r.Handle(MethodListProposals, r.listProposals)
	r.Handle(MethodGetReceipt, r.getReceipt)
	r.Handle(MethodGetConfig, r.getConfig)
	return r
}

func (r *Registry) Address() ledger.Address {
	return r.address
}

func (r *Registry) vault(resource ledger.Address, label string) ledger.VaultKey {
	return ledger.VaultKey{Owner: r.address, Resource: resource, Label: label}
}

func (r *Registry) instance(tx *ledger.Tx) (*models.GovernanceInstance, error) {
	return tx.DB().Metadata().GetGovernanceInstance(string(r.address), tx.Txn().Metadata())
}

func (r *Registry) proposal(tx *ledger.Tx, id uint64) (*models.Proposal, error) {
	p, err := tx.DB().Metadata().GetProposal(string(r.address), id, tx.Txn().Metadata())
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

func (r *Registry) saveProposal(tx *ledger.Tx, p *models.Proposal) error {
	return tx.DB().Metadata().SaveProposal(p, tx.Txn().Metadata())
}

func quorumOf(inst *models.GovernanceInstance) QuorumRule {
	return QuorumRule{Kind: QuorumKind(inst.QuorumKind), Value: inst.QuorumValue}
}

func proposalOptions(kind ProposalKind, options []string) ([]string, error) {
	switch kind {
	case ProposalKindAdvisory:
		if len(options) == 0 {
			return nil, fmt.Errorf("%w: advisory proposal needs at least one option", ErrInvalidOptions)
		}
		return options, nil
	case ProposalKindExecutive:
		switch len(options) {
		case 0:
			return DefaultExecutiveOptions, nil
		case 2:
			return options, nil
		default:
			return nil, fmt.Errorf("%w: executive proposal takes exactly two options", ErrInvalidOptions)
		}
	default:
		return nil, fmt.Errorf("%w: unknown proposal kind %d", ErrInvalidOptions, kind)
	}
}

func (r *Registry) createProposal(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	var args CreateProposalArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	options, err := proposalOptions(args.Kind, args.Options)
	if err != nil {
		return nil, err
	}
	if args.Target != nil {
		if args.Kind != ProposalKindExecutive {
			return nil, fmt.Errorf("%w: advisory proposals carry no target", ErrMalformedTarget)
		}
		if err := args.Target.validate(); err != nil {
			return nil, err
		}
	}
	inst, err := r.instance(tx)
	if err != nil {
		return nil, err
	}
	epoch := tx.Epoch()
	if args.Deadline <= epoch {
		return nil, fmt.Errorf("%w: deadline %d, epoch %d", ErrDeadlinePassed, args.Deadline, epoch)
	}
	if args.Deadline-epoch > inst.ProposalDuration {
		return nil, fmt.Errorf(
			"%w: deadline %d is more than %d epochs after %d",
			ErrDeadlineTooFar,
			args.Deadline,
			inst.ProposalDuration,
			epoch,
		)
	}
	supply, err := tx.TotalSupply(ledger.Address(inst.VoteToken))
	if err != nil {
		return nil, err
	}
	target, err := encodeTarget(args.Target)
	if err != nil {
		return nil, err
	}
	id := inst.NextProposalID
	inst.NextProposalID++
	if err := tx.DB().Metadata().SetGovernanceInstance(inst, tx.Txn().Metadata()); err != nil {
		return nil, err
	}
	row := &models.Proposal{
		Registry:       string(r.address),
		ProposalID:     id,
		Kind:           uint8(args.Kind),
		Deadline:       args.Deadline,
		Status:         uint8(ProposalStatusOpen),
		SupplySnapshot: supply,
		CreatedEpoch:   epoch,
		Target:         target,
		Options:        make([]models.ProposalOption, len(options)),
	}
	for i, label := range options {
		row.Options[i] = models.ProposalOption{
			OptionIndex: uint32(i), // #nosec G115
			Label:       label,
			Tally:       decimal.Zero,
		}
	}
	if err := tx.DB().Metadata().AddProposal(row, tx.Txn().Metadata()); err != nil {
		return nil, fmt.Errorf("add proposal: %w", err)
	}
	if err := tx.DB().SetProposalDocument(
		string(r.address),
		id,
		&database.ProposalDocument{Title: args.Title, Pitch: args.Pitch},
		tx.Txn(),
	); err != nil {
		return nil, fmt.Errorf("store proposal document: %w", err)
	}
	tx.Emit(ProposalCreatedEventType, ProposalCreatedEvent{
		Registry:   r.address,
		ProposalID: id,
		Kind:       args.Kind,
		Deadline:   args.Deadline,
	})
	tx.OnCommit(func() {
		r.logger.Info(
			fmt.Sprintf("created %s proposal %d", args.Kind, id),
			"deadline", args.Deadline,
		)
		if r.metrics != nil {
			r.metrics.proposalsTotal.WithLabelValues(args.Kind.String()).Inc()
		}
	})
	return ledger.NewResult(id)
}

func (r *Registry) castVote(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	var args CastVoteArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	votes, err := call.Bucket(0)
	if err != nil {
		return nil, err
	}
	inst, err := r.instance(tx)
	if err != nil {
		return nil, err
	}
	p, err := r.proposal(tx, args.ProposalID)
	if err != nil {
		return nil, err
	}
	if ProposalStatus(p.Status) != ProposalStatusOpen {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotOpen, p.ProposalID)
	}
	if tx.Epoch() >= p.Deadline {
		return nil, fmt.Errorf(
			"%w: voting on %d closed at epoch %d",
			ErrProposalNotOpen,
			p.ProposalID,
			p.Deadline,
		)
	}
	if int(args.Option) >= len(p.Options) {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidOption, args.Option, len(p.Options))
	}
	if votes.Resource() != ledger.Address(inst.VoteToken) {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrCurrencyMismatch, votes.Resource(), inst.VoteToken)
	}
	if votes.IsEmpty() {
		return nil, ErrEmptyVote
	}
	if inst.IdentityToken != "" &&
		!call.HasProof(ledger.Address(inst.IdentityToken), decimal.Zero) {
		return nil, ErrIdentityGateFailed
	}
	amount := votes.Amount()
	escrow := r.vault(ledger.Address(inst.VoteToken), VaultEscrow)
	if err := tx.Deposit(escrow, votes); err != nil {
		return nil, err
	}
	opt := &p.Options[args.Option]
	opt.Tally = opt.Tally.Add(amount)
	if err := r.saveProposal(tx, p); err != nil {
		return nil, err
	}
	receipt, err := tx.MintNonFungible(
		ledger.Address(inst.ReceiptResource),
		"",
		receiptData{
			ProposalID: p.ProposalID,
			Option:     args.Option,
			Amount:     amount,
			VoteToken:  ledger.Address(inst.VoteToken),
		},
	)
	if err != nil {
		return nil, err
	}
	receiptID := receipt.IDs()[0]
	if err := tx.DB().Metadata().AddVoteReceipt(
		&models.VoteReceipt{
			Registry:    string(r.address),
			ReceiptID:   receiptID,
			ProposalID:  p.ProposalID,
			OptionIndex: args.Option,
			Amount:      amount,
			VoteToken:   inst.VoteToken,
			CastEpoch:   tx.Epoch(),
		},
		tx.Txn().Metadata(),
	); err != nil {
		return nil, fmt.Errorf("add vote receipt: %w", err)
	}
	tx.Emit(VoteCastEventType, VoteCastEvent{
		Registry:   r.address,
		ProposalID: p.ProposalID,
		Option:     args.Option,
		Amount:     amount,
	})
	if err := r.trackEscrow(tx, escrow); err != nil {
		return nil, err
	}
	tx.OnCommit(func() {
		if r.metrics != nil {
			r.metrics.votesTotal.Inc()
		}
	})
	return ledger.NewResult(receiptID, receipt)
}

// trackEscrow updates the escrow gauge once the transaction commits
func (r *Registry) trackEscrow(tx *ledger.Tx, escrow ledger.VaultKey) error {
	if r.metrics == nil {
		return nil
	}
	balance, err := tx.Balance(escrow)
	if err != nil {
		return err
	}
	tx.OnCommit(func() {
		r.metrics.escrow.WithLabelValues(string(r.address)).Set(balance.InexactFloat64())
	})
	return nil
}

func (r *Registry) redeemReceipt(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	receipt, err := call.Bucket(0)
	if err != nil {
		return nil, err
	}
	inst, err := r.instance(tx)
	if err != nil {
		return nil, err
	}
	if receipt.Resource() != ledger.Address(inst.ReceiptResource) {
		return nil, fmt.Errorf("%w: %s is not a receipt of this registry", ErrReceiptNotFound, receipt.Resource())
	}
	ids := receipt.IDs()
	if len(ids) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one receipt, got %d", ErrReceiptNotFound, len(ids))
	}
	row, err := tx.DB().Metadata().GetVoteReceipt(string(r.address), ids[0], tx.Txn().Metadata())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ids[0], err)
	}
	if row.RedeemedEpoch != nil {
		return nil, fmt.Errorf("%w: %s", ErrReceiptAlreadyRedeemed, row.ReceiptID)
	}
	p, err := r.proposal(tx, row.ProposalID)
	if err != nil {
		return nil, err
	}
	// A closed proposal keeps its frozen tally
	retracted := ProposalStatus(p.Status) == ProposalStatusOpen
	if retracted {
		opt := &p.Options[row.OptionIndex]
		opt.Tally = opt.Tally.Sub(row.Amount)
		if err := r.saveProposal(tx, p); err != nil {
			return nil, err
		}
	}
	escrow := r.vault(ledger.Address(row.VoteToken), VaultEscrow)
	tokens, err := tx.Withdraw(escrow, row.Amount)
	if err != nil {
		return nil, fmt.Errorf("release escrow for %s: %w", row.ReceiptID, err)
	}
	if err := tx.Burn(receipt); err != nil {
		return nil, err
	}
	if err := tx.DB().Metadata().SetVoteReceiptRedeemed(
		string(r.address),
		row.ReceiptID,
		tx.Epoch(),
		tx.Txn().Metadata(),
	); err != nil {
		return nil, err
	}
	tx.Emit(ReceiptRedeemedEventType, ReceiptRedeemedEvent{
		Registry:   r.address,
		ProposalID: row.ProposalID,
		Option:     row.OptionIndex,
		Amount:     row.Amount,
		Retracted:  retracted,
	})
	if err := r.trackEscrow(tx, escrow); err != nil {
		return nil, err
	}
	tx.OnCommit(func() {
		if r.metrics != nil {
			r.metrics.redemptionsTotal.Inc()
		}
	})
	return ledger.NewResult(row.Amount, tokens)
}

// close freezes the result of an open proposal whose deadline has been reached
func (r *Registry) close(
	tx *ledger.Tx,
	inst *models.GovernanceInstance,
	p *models.Proposal,
) (Result, error) {
	if ProposalStatus(p.Status) != ProposalStatusOpen {
		return Result{}, fmt.Errorf("%w: %d", ErrProposalNotOpen, p.ProposalID)
	}
	epoch := tx.Epoch()
	if epoch < p.Deadline {
		return Result{}, fmt.Errorf(
			"%w: deadline %d, epoch %d",
			ErrDeadlineNotReached,
			p.Deadline,
			epoch,
		)
	}
	supply := p.SupplySnapshot
	if QuorumSupply(inst.QuorumSupply) == QuorumSupplyResolution {
		var err error
		supply, err = tx.TotalSupply(ledger.Address(inst.VoteToken))
		if err != nil {
			return Result{}, err
		}
	}
	tally := tallyOf(p)
	result := Tally(tally, quorumOf(inst), supply)
	p.Status = uint8(ProposalStatusClosed)
	p.Outcome = uint8(result.Outcome)
	p.Winner = result.Winner
	p.ClosedEpoch = &epoch
	if err := r.saveProposal(tx, p); err != nil {
		return Result{}, err
	}
	total := decimal.Zero
	for _, weight := range tally {
		total = total.Add(weight)
	}
	tx.Emit(ProposalResolvedEventType, ProposalResolvedEvent{
		Registry:   r.address,
		ProposalID: p.ProposalID,
		Result:     result,
		TotalCast:  total,
	})
	tx.OnCommit(func() {
		r.logger.Info(
			fmt.Sprintf("resolved proposal %d: %s", p.ProposalID, result),
			"total_cast", total.String(),
			"supply", supply.String(),
		)
		if r.metrics != nil {
			label := "inconclusive"
			if result.Outcome == OutcomeDecided {
				label = "decided"
			}
			r.metrics.resolutionsTotal.WithLabelValues(label).Inc()
		}
	})
	return result, nil
}

func (r *Registry) resolve(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	var args ProposalArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	inst, err := r.instance(tx)
	if err != nil {
		return nil, err
	}
	p, err := r.proposal(tx, args.ProposalID)
	if err != nil {
		return nil, err
	}
	result, err := r.close(tx, inst, p)
	if err != nil {
		return nil, err
	}
	if ProposalKind(p.Kind) == ProposalKindExecutive && result.IsDecided(ActionOption) {
		target, err := decodeTarget(p.Target)
		if err != nil {
			return nil, err
		}
		if target != nil && target.Mode == ExecutionDirect {
			if err := r.invokeTarget(tx, inst, target); err != nil {
				return nil, fmt.Errorf("execute proposal %d: %w", p.ProposalID, err)
			}
			if err := r.markExecuted(tx, p, target); err != nil {
				return nil, err
			}
		}
	}
	return ledger.NewResult(result)
}

func (r *Registry) resolveExecutive(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	var args ResolveExecutiveArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	inst, err := r.instance(tx)
	if err != nil {
		return nil, err
	}
	p, err := r.proposal(tx, args.ProposalID)
	if err != nil {
		return nil, err
	}
	if ProposalKind(p.Kind) != ProposalKindExecutive {
		return nil, fmt.Errorf("%w: proposal %d is advisory", ErrMalformedTarget, p.ProposalID)
	}
	target, err := decodeTarget(p.Target)
	if err != nil {
		return nil, err
	}
	if target == nil || target.Mode != ExecutionRelay {
		return nil, fmt.Errorf("%w: proposal %d has no relay target", ErrMalformedTarget, p.ProposalID)
	}
	if p.ExecutedEpoch != nil {
		return nil, fmt.Errorf("%w: %d", ErrAlreadyExecuted, p.ProposalID)
	}
	result := resultOf(p)
	if ProposalStatus(p.Status) == ProposalStatusOpen {
		if tx.Epoch() < p.Deadline {
			return nil, fmt.Errorf(
				"%w: %d is open until epoch %d",
				ErrProposalNotClosed,
				p.ProposalID,
				p.Deadline,
			)
		}
		result, err = r.close(tx, inst, p)
		if err != nil {
			return nil, err
		}
	}
	if !result.IsDecided(ActionOption) {
		return ledger.NewResult(result)
	}
	// The credential may only travel to the proposal's relay and back through forward
	if args.Relay != target.Component || args.Followup != relay.MethodForward {
		return nil, fmt.Errorf(
			"%w: followup must be %s on %s",
			ErrMalformedTarget,
			relay.MethodForward,
			target.Component,
		)
	}
	before, err := r.badgeBalances(tx, inst, target)
	if err != nil {
		return nil, err
	}
	// Hand the credential to the relay, then have it call back with it
	if err := r.invokeTarget(tx, inst, target); err != nil {
		return nil, fmt.Errorf("store credential for %d: %w", p.ProposalID, err)
	}
	res, err := tx.Call(args.Relay, args.Followup, ledger.Request{Args: target.RelayCall})
	if err != nil {
		return nil, fmt.Errorf("forward for %d: %w", p.ProposalID, err)
	}
	if err := r.keepBuckets(tx, inst, res.Buckets); err != nil {
		return nil, err
	}
	after, err := r.badgeBalances(tx, inst, target)
	if err != nil {
		return nil, err
	}
	for resource, amount := range before {
		if after[resource].LessThan(amount) {
			return nil, fmt.Errorf(
				"%w: %s for proposal %d",
				ErrCredentialNotReturned,
				resource,
				p.ProposalID,
			)
		}
	}
	if err := r.markExecuted(tx, p, target); err != nil {
		return nil, err
	}
	return ledger.NewResult(result)
}

// badgeBalances reads the badges vault for every resource the target withdraws
func (r *Registry) badgeBalances(
	tx *ledger.Tx,
	inst *models.GovernanceInstance,
	target *Target,
) (map[ledger.Address]decimal.Decimal, error) {
	ret := make(map[ledger.Address]decimal.Decimal, len(target.Buckets))
	for _, spec := range target.Buckets {
		resource, _ := spec.resolve(inst)
		balance, err := tx.Balance(r.vault(resource, VaultBadges))
		if err != nil {
			return nil, err
		}
		ret[resource] = balance
	}
	return ret, nil
}

// invokeTarget calls the target, proving or withdrawing custodied badges as
// the target specifies
func (r *Registry) invokeTarget(
	tx *ledger.Tx,
	inst *models.GovernanceInstance,
	target *Target,
) error {
	req := ledger.Request{}
	if len(target.Args) > 0 {
		req.Args = cbor.RawMessage(target.Args)
	}
	for _, spec := range target.Proofs {
		resource, amount := spec.resolve(inst)
		proof, err := tx.CreateProof(r.vault(resource, VaultBadges), amount)
		if err != nil {
			return err
		}
		req.Proofs = append(req.Proofs, proof)
	}
	for _, spec := range target.Buckets {
		resource, amount := spec.resolve(inst)
		b, err := tx.Withdraw(r.vault(resource, VaultBadges), amount)
		if err != nil {
			return err
		}
		req.Buckets = append(req.Buckets, b)
	}
	if target.Funding != nil {
		b, err := tx.Withdraw(
			r.vault(ledger.Address(inst.VoteToken), VaultTreasury),
			*target.Funding,
		)
		if err != nil {
			return fmt.Errorf("funding: %w", err)
		}
		req.Buckets = append(req.Buckets, b)
	}
	res, err := tx.Call(target.Component, target.Method, req)
	if err != nil {
		return err
	}
	return r.keepBuckets(tx, inst, res.Buckets)
}

// keepBuckets deposits buckets returned to the registry: vote tokens to the
// treasury and everything else to the badges vault
func (r *Registry) keepBuckets(
	tx *ledger.Tx,
	inst *models.GovernanceInstance,
	buckets []*ledger.Bucket,
) error {
	for _, b := range buckets {
		label := VaultBadges
		if b.Resource() == ledger.Address(inst.VoteToken) {
			label = VaultTreasury
		}
		if err := tx.Deposit(r.vault(b.Resource(), label), b); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) markExecuted(tx *ledger.Tx, p *models.Proposal, target *Target) error {
	epoch := tx.Epoch()
	p.ExecutedEpoch = &epoch
	if err := r.saveProposal(tx, p); err != nil {
		return err
	}
	tx.Emit(ProposalExecutedEventType, ProposalExecutedEvent{
		Registry:   r.address,
		ProposalID: p.ProposalID,
		Mode:       target.Mode,
		Component:  target.Component,
		Method:     target.Method,
	})
	tx.OnCommit(func() {
		r.logger.Info(
			fmt.Sprintf("executed proposal %d", p.ProposalID),
			"mode", target.Mode.String(),
			"target", target.Component,
			"method", target.Method,
		)
		if r.metrics != nil {
			r.metrics.executionsTotal.WithLabelValues(target.Mode.String()).Inc()
		}
	})
	return nil
}

func (r *Registry) addExternalBadges(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	b, err := call.Bucket(0)
	if err != nil {
		return nil, err
	}
	if err := tx.Deposit(r.vault(b.Resource(), VaultBadges), b); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *Registry) fund(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	b, err := call.Bucket(0)
	if err != nil {
		return nil, err
	}
	if b.Kind() != ledger.ResourceKindFungible {
		return nil, fmt.Errorf("%w: treasury accepts fungible resources only", ledger.ErrResourceKind)
	}
	if err := tx.Deposit(r.vault(b.Resource(), VaultTreasury), b); err != nil {
		return nil, err
	}
	return nil, nil
}

func (r *Registry) setProposalDuration(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	var args SetProposalDurationArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	inst, err := r.instance(tx)
	if err != nil {
		return nil, err
	}
	if !call.HasProof(ledger.Address(inst.AdminBadge), decimal.NewFromInt(1)) {
		return nil, ErrUnauthorized
	}
	if args.Duration == 0 {
		return nil, fmt.Errorf("%w: proposal duration must be positive", ErrInvalidConfig)
	}
	prev := inst.ProposalDuration
	inst.ProposalDuration = args.Duration
	if err := tx.DB().Metadata().SetGovernanceInstance(inst, tx.Txn().Metadata()); err != nil {
		return nil, err
	}
	tx.OnCommit(func() {
		r.logger.Info(
			fmt.Sprintf("proposal duration changed from %d to %d", prev, args.Duration),
			"caller", call.Caller,
		)
	})
	return nil, nil
}

func (r *Registry) getResult(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	var args ProposalArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	p, err := r.proposal(tx, args.ProposalID)
	if err != nil {
		return nil, err
	}
	return ledger.NewResult(resultOf(p))
}

// getDeadline returns the proposal duration, the furthest a new deadline may
// lie beyond the current epoch
func (r *Registry) getDeadline(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	inst, err := r.instance(tx)
	if err != nil {
		return nil, err
	}
	return ledger.NewResult(inst.ProposalDuration)
}

func (r *Registry) proposalView(tx *ledger.Tx, row *models.Proposal) (*Proposal, error) {
	p, err := proposalFromModel(row)
	if err != nil {
		return nil, err
	}
	doc, err := tx.DB().GetProposalDocument(string(r.address), row.ProposalID, tx.Txn())
	if err != nil {
		if !errors.Is(err, database.ErrProposalDocumentNotFound) {
			return nil, err
		}
		return p, nil
	}
	p.Title = doc.Title
	p.Pitch = doc.Pitch
	return p, nil
}

func (r *Registry) getProposal(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	var args ProposalArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	row, err := r.proposal(tx, args.ProposalID)
	if err != nil {
		return nil, err
	}
	p, err := r.proposalView(tx, row)
	if err != nil {
		return nil, err
	}
	return ledger.NewResult(p)
}

func (r *Registry) listProposals(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	rows, err := tx.DB().Metadata().GetProposals(string(r.address), tx.Txn().Metadata())
	if err != nil {
		return nil, err
	}
	ret := make([]*Proposal, 0, len(rows))
	for i := range rows {
		p, err := r.proposalView(tx, &rows[i])
		if err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ledger.NewResult(ret)
}

func (r *Registry) getReceipt(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	var args ReceiptArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	row, err := tx.DB().Metadata().GetVoteReceipt(string(r.address), args.ReceiptID, tx.Txn().Metadata())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", args.ReceiptID, err)
	}
	return ledger.NewResult(receiptFromModel(row))
}

func (r *Registry) getConfig(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	inst, err := r.instance(tx)
	if err != nil {
		return nil, err
	}
	return ledger.NewResult(&InstanceInfo{
		Address:          r.address,
		ProposalDuration: inst.ProposalDuration,
		Quorum:           quorumOf(inst),
		QuorumSupply:     QuorumSupply(inst.QuorumSupply),
		VoteToken:        ledger.Address(inst.VoteToken),
		IdentityToken:    ledger.Address(inst.IdentityToken),
		TallyMode:        TallyMode(inst.TallyMode),
		VoteSubsidy:      SubsidyMode(inst.VoteSubsidy),
		AdminBadge:       ledger.Address(inst.AdminBadge),
		ReceiptResource:  ledger.Address(inst.ReceiptResource),
		NextProposalID:   inst.NextProposalID,
	})
}
