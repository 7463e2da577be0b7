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

package relay

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/ledger"
	"github.com/fxamacker/cbor/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const BlueprintName = "relay"

const (
	MethodStoreCredential = "store_credential"
	MethodForward         = "forward"
	MethodPresent         = "present"
	MethodSlot            = "slot"
)

const slotLabelPrefix = "slot:"

type StoreCredentialArgs struct {
	Slot string `cbor:"1,keyasint"`
}

// ForwardArgs names the slot whose credential is proved to the target. Args
// holds the target's CBOR-encoded arguments.
type ForwardArgs struct {
	Slot      string         `cbor:"1,keyasint"`
	Component ledger.Address `cbor:"2,keyasint"`
	Method    string         `cbor:"3,keyasint"`
	Args      []byte         `cbor:"4,keyasint,omitempty"`
}

type PresentArgs struct {
	Component ledger.Address `cbor:"1,keyasint"`
	Method    string         `cbor:"2,keyasint"`
	Args      []byte         `cbor:"3,keyasint,omitempty"`
}

type SlotArgs struct {
	Slot string `cbor:"1,keyasint"`
}

// Slot describes an occupied credential slot
type Slot struct {
	Name        string         `cbor:"1,keyasint"`
	Resource    ledger.Address `cbor:"2,keyasint"`
	Amount      string         `cbor:"3,keyasint"`
	Depositor   ledger.Address `cbor:"4,keyasint"`
	StoredEpoch uint64         `cbor:"5,keyasint"`
}

type BlueprintConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

type Blueprint struct {
	logger  *slog.Logger
	metrics *relayMetrics
}

func NewBlueprint(cfg BlueprintConfig) *Blueprint {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	b := &Blueprint{
		logger: cfg.Logger.With("component", "relay"),
	}
	if cfg.PromRegistry != nil {
		b.metrics = &relayMetrics{}
		b.metrics.init(cfg.PromRegistry)
	}
	return b
}

func (b *Blueprint) Register(l *ledger.Ledger) {
	l.RegisterBlueprint(BlueprintName, b.Load)
}

func (b *Blueprint) Load(address ledger.Address) (ledger.Component, error) {
	return b.newRelay(address), nil
}

// Instantiate creates a relay that accepts credentials only from depositor
func (b *Blueprint) Instantiate(tx *ledger.Tx, depositor ledger.Address) (ledger.Address, error) {
	if depositor == "" {
		return "", fmt.Errorf("%w: empty depositor", ErrUnauthorizedDepositor)
	}
	return tx.NewComponent(BlueprintName, func(addr ledger.Address) (ledger.Component, error) {
		if err := tx.DB().Metadata().AddRelayInstance(
			&models.RelayInstance{
				Component: string(addr),
				Depositor: string(depositor),
			},
			tx.Txn().Metadata(),
		); err != nil {
			return nil, fmt.Errorf("add relay instance: %w", err)
		}
		return b.newRelay(addr), nil
	})
}

// Relay holds credentials on behalf of its depositor and presents them to
// targets. A stored credential is used exactly once.
type Relay struct {
	*ledger.Router
	address ledger.Address
	logger  *slog.Logger
	metrics *relayMetrics
}

func (b *Blueprint) newRelay(address ledger.Address) *Relay {
	r := &Relay{
		Router:  ledger.NewRouter(),
		address: address,
		logger:  b.logger.With("relay", address),
		metrics: b.metrics,
	}
	r.Handle(MethodStoreCredential, r.storeCredential)
	r.Handle(MethodForward, r.forward)
	r.Handle(MethodPresent, r.present)
	r.Handle(MethodSlot, r.slot)
	return r
}

func (r *Relay) Address() ledger.Address {
	return r.address
}

func (r *Relay) slotVault(slot *models.CredentialSlot) ledger.VaultKey {
	return ledger.VaultKey{
		Owner:    r.address,
		Resource: ledger.Address(slot.Resource),
		Label:    slotLabelPrefix + slot.Name,
	}
}

func (r *Relay) depositor(tx *ledger.Tx) (ledger.Address, error) {
	inst, err := tx.DB().Metadata().GetRelayInstance(string(r.address), tx.Txn().Metadata())
	if err != nil {
		return "", err
	}
	return ledger.Address(inst.Depositor), nil
}

func (r *Relay) storeCredential(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	var args StoreCredentialArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	if args.Slot == "" {
		return nil, ErrInvalidSlot
	}
	credential, err := call.Bucket(0)
	if err != nil {
		return nil, err
	}
	depositor, err := r.depositor(tx)
	if err != nil {
		return nil, err
	}
	if call.Caller != depositor {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedDepositor, call.Caller)
	}
	store := tx.DB().Metadata()
	existing, err := store.GetCredentialSlot(string(r.address), args.Slot, tx.Txn().Metadata())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialSlotOccupied, args.Slot)
	}
	slot := &models.CredentialSlot{
		Relay:       string(r.address),
		Name:        args.Slot,
		Resource:    string(credential.Resource()),
		Amount:      credential.Amount(),
		Depositor:   string(call.Caller),
		StoredEpoch: tx.Epoch(),
	}
	if err := tx.Deposit(r.slotVault(slot), credential); err != nil {
		return nil, err
	}
	if err := store.AddCredentialSlot(slot, tx.Txn().Metadata()); err != nil {
		return nil, fmt.Errorf("add credential slot: %w", err)
	}
	tx.OnCommit(func() {
		r.logger.Debug(
			"stored credential",
			"slot", slot.Name,
			"resource", slot.Resource,
		)
		if r.metrics != nil {
			r.metrics.storedTotal.Inc()
		}
	})
	return nil, nil
}

// takeCredential empties a slot and returns its credential
func (r *Relay) takeCredential(tx *ledger.Tx, slot *models.CredentialSlot) (*ledger.Bucket, error) {
	key := r.slotVault(slot)
	res, err := tx.Resource(key.Resource)
	if err != nil {
		return nil, err
	}
	var credential *ledger.Bucket
	if res.Kind == ledger.ResourceKindNonFungible {
		ids, err := tx.NonFungibleIDs(key)
		if err != nil {
			return nil, err
		}
		credential, err = tx.WithdrawNonFungibles(key, ids)
		if err != nil {
			return nil, err
		}
	} else {
		credential, err = tx.Withdraw(key, slot.Amount)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.DB().Metadata().DeleteCredentialSlot(
		string(r.address),
		slot.Name,
		tx.Txn().Metadata(),
	); err != nil {
		return nil, err
	}
	return credential, nil
}

func targetArgs(args []byte) any {
	if len(args) == 0 {
		return nil
	}
	return cbor.RawMessage(args)
}

func (r *Relay) forward(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	var args ForwardArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	slot, err := tx.DB().Metadata().GetCredentialSlot(string(r.address), args.Slot, tx.Txn().Metadata())
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialSlotEmpty, args.Slot)
	}
	if call.Caller != ledger.Address(slot.Depositor) {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedCaller, call.Caller)
	}
	credential, err := r.takeCredential(tx, slot)
	if err != nil {
		return nil, err
	}
	proof, err := tx.ProofOfBucket(credential)
	if err != nil {
		return nil, err
	}
	res, err := tx.Call(args.Component, args.Method, ledger.Request{
		Args:   targetArgs(args.Args),
		Proofs: []*ledger.Proof{proof},
	})
	if err != nil {
		return nil, fmt.Errorf("forward %s.%s: %w", args.Component, args.Method, err)
	}
	tx.OnCommit(func() {
		r.logger.Info(
			fmt.Sprintf("forwarded %s with credential from slot %s", args.Method, args.Slot),
			"target", args.Component,
		)
		if r.metrics != nil {
			r.metrics.forwardsTotal.WithLabelValues(args.Method).Inc()
		}
	})
	return &ledger.Result{
		Value:   res.Value,
		Buckets: append(res.Buckets, credential),
	}, nil
}

// present proves the passed bucket to the target and hands it back without
// storing it
func (r *Relay) present(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	var args PresentArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	credential, err := call.Bucket(0)
	if err != nil {
		return nil, err
	}
	proof, err := tx.ProofOfBucket(credential)
	if err != nil {
		return nil, err
	}
	res, err := tx.Call(args.Component, args.Method, ledger.Request{
		Args:   targetArgs(args.Args),
		Proofs: []*ledger.Proof{proof},
	})
	if err != nil {
		return nil, fmt.Errorf("present to %s.%s: %w", args.Component, args.Method, err)
	}
	tx.OnCommit(func() {
		if r.metrics != nil {
			r.metrics.presentsTotal.Inc()
		}
	})
	return &ledger.Result{
		Value:   res.Value,
		Buckets: append(res.Buckets, credential),
	}, nil
}

func (r *Relay) slot(tx *ledger.Tx, call *ledger.Call) (*ledger.Result, error) {
	var args SlotArgs
	if err := call.DecodeArgs(&args); err != nil {
		return nil, err
	}
	slot, err := tx.DB().Metadata().GetCredentialSlot(string(r.address), args.Slot, tx.Txn().Metadata())
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialSlotEmpty, args.Slot)
	}
	return ledger.NewResult(&Slot{
		Name:        slot.Name,
		Resource:    ledger.Address(slot.Resource),
		Amount:      slot.Amount.String(),
		Depositor:   ledger.Address(slot.Depositor),
		StoredEpoch: slot.StoredEpoch,
	})
}
