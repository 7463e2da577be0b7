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
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/agora/database"
	"github.com/blinklabs-io/agora/database/models"
	"github.com/blinklabs-io/agora/database/plugin/metadata"
	"github.com/blinklabs-io/agora/event"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tx is a single ledger transaction. Every operation reads and writes through
// the same database transaction and sees the same epoch.
type Tx struct {
	ctx           context.Context
	ledger        *Ledger
	txn           *database.Txn
	id            string
	epoch         uint64
	signer        Address
	readOnly      bool
	frames        []Address
	buckets       []*Bucket
	events        []event.Event
	commitHooks   []func()
	newComponents map[Address]Component
}

func (l *Ledger) newTx(
	ctx context.Context,
	signer Address,
	epoch uint64,
	readWrite bool,
) *Tx {
	return &Tx{
		ctx:           ctx,
		ledger:        l,
		txn:           l.db.Transaction(readWrite),
		id:            uuid.NewString(),
		epoch:         epoch,
		signer:        signer,
		readOnly:      !readWrite,
		newComponents: make(map[Address]Component),
	}
}

func (tx *Tx) Context() context.Context {
	return tx.ctx
}

func (tx *Tx) ID() string {
	return tx.id
}

// Epoch returns the epoch read when the transaction started
func (tx *Tx) Epoch() uint64 {
	return tx.epoch
}

// Signer returns the account that signed the transaction, or empty for
// system transactions
func (tx *Tx) Signer() Address {
	return tx.signer
}

// Actor returns the component currently executing, or the signer when no
// component call is active
func (tx *Tx) Actor() Address {
	if len(tx.frames) > 0 {
		return tx.frames[len(tx.frames)-1]
	}
	return tx.signer
}

// Txn returns the database transaction backing this ledger transaction
func (tx *Tx) Txn() *database.Txn {
	return tx.txn
}

func (tx *Tx) DB() *database.Database {
	return tx.txn.DB()
}

func (tx *Tx) Logger() *slog.Logger {
	return tx.ledger.logger
}

func (tx *Tx) store() metadata.MetadataStore {
	return tx.txn.DB().Metadata()
}

// Writable returns ErrReadOnly for a transaction started by View
func (tx *Tx) Writable() error {
	if tx.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Emit queues an event for publishing after the transaction commits
func (tx *Tx) Emit(eventType event.EventType, data any) {
	tx.events = append(tx.events, event.NewEvent(eventType, data))
}

// OnCommit registers fn to run after the transaction commits. It is never
// run for a failed transaction.
func (tx *Tx) OnCommit(fn func()) {
	tx.commitHooks = append(tx.commitHooks, fn)
}

func (tx *Tx) CreateAccount(name string) (Address, error) {
	if err := tx.Writable(); err != nil {
		return "", err
	}
	addr := AccountAddress(name)
	if _, err := tx.store().GetAccount(string(addr), tx.txn.Metadata()); err == nil {
		return "", fmt.Errorf("%w: %s", ErrAccountExists, addr)
	} else if !errors.Is(err, models.ErrAccountNotFound) {
		return "", err
	}
	account := &models.Account{
		Address:    string(addr),
		AddedEpoch: tx.epoch,
	}
	if err := tx.store().AddAccount(account, tx.txn.Metadata()); err != nil {
		return "", fmt.Errorf("add account: %w", err)
	}
	return addr, nil
}

func (tx *Tx) AccountExists(addr Address) (bool, error) {
	_, err := tx.store().GetAccount(string(addr), tx.txn.Metadata())
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewComponent allocates a component address and runs build in that
// component's frame, so resources created by build are minted by the
// component.
func (tx *Tx) NewComponent(
	blueprint string,
	build func(address Address) (Component, error),
) (Address, error) {
	if err := tx.Writable(); err != nil {
		return "", err
	}
	addr := newAddress(ComponentPrefix)
	tx.frames = append(tx.frames, addr)
	comp, err := build(addr)
	tx.frames = tx.frames[:len(tx.frames)-1]
	if err != nil {
		return "", err
	}
	row := &models.Component{
		Address:    string(addr),
		Blueprint:  blueprint,
		AddedEpoch: tx.epoch,
	}
	if err := tx.store().AddComponent(row, tx.txn.Metadata()); err != nil {
		return "", fmt.Errorf("add component: %w", err)
	}
	tx.newComponents[addr] = comp
	tx.ledger.logger.Debug(
		"instantiated component",
		"blueprint", blueprint,
		"address", addr,
		"tx", tx.id,
	)
	return addr, nil
}

func (tx *Tx) resource(addr Address) (*models.Resource, error) {
	res, err := tx.store().GetResource(string(addr), tx.txn.Metadata())
	if err != nil {
		if errors.Is(err, models.ErrResourceNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, addr)
		}
		return nil, err
	}
	return res, nil
}

// Resource returns the definition and supply of a resource
func (tx *Tx) Resource(addr Address) (*Resource, error) {
	res, err := tx.resource(addr)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Address:     Address(res.Address),
		Kind:        ResourceKind(res.Kind),
		Name:        res.Name,
		Symbol:      res.Symbol,
		Minter:      Address(res.Minter),
		TotalSupply: res.TotalSupply,
	}, nil
}

func (tx *Tx) TotalSupply(addr Address) (decimal.Decimal, error) {
	res, err := tx.resource(addr)
	if err != nil {
		return decimal.Zero, err
	}
	return res.TotalSupply, nil
}

// CreateResource creates a resource and returns a bucket holding the initial
// supply, or nil when the initial supply is zero
func (tx *Tx) CreateResource(
	spec ResourceSpec,
	initialSupply decimal.Decimal,
) (Address, *Bucket, error) {
	if err := tx.Writable(); err != nil {
		return "", nil, err
	}
	if initialSupply.Sign() < 0 {
		return "", nil, ErrInvalidAmount
	}
	switch spec.Kind {
	case ResourceKindFungible:
	case ResourceKindNonFungible:
		if !initialSupply.IsZero() {
			return "", nil, fmt.Errorf(
				"%w: non-fungible resources start empty",
				ErrResourceKind,
			)
		}
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrResourceKind, spec.Kind)
	}
	addr := newAddress(ResourcePrefix)
	res := &models.Resource{
		Address:     string(addr),
		Kind:        uint8(spec.Kind),
		Name:        spec.Name,
		Symbol:      spec.Symbol,
		TotalSupply: initialSupply,
		AddedEpoch:  tx.epoch,
	}
	if spec.Mintable {
		res.Minter = string(tx.Actor())
	}
	if err := tx.store().AddResource(res, tx.txn.Metadata()); err != nil {
		return "", nil, fmt.Errorf("add resource: %w", err)
	}
	if initialSupply.IsZero() {
		return addr, nil, nil
	}
	return addr, tx.newBucket(addr, spec.Kind, initialSupply, nil), nil
}

func (tx *Tx) checkMinter(res *models.Resource) error {
	if res.Minter == "" || Address(res.Minter) != tx.Actor() {
		return fmt.Errorf(
			"%w: %s by %s",
			ErrUnauthorizedMint,
			res.Address,
			tx.Actor(),
		)
	}
	return nil
}

func (tx *Tx) Mint(resource Address, amount decimal.Decimal) (*Bucket, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	res, err := tx.resource(resource)
	if err != nil {
		return nil, err
	}
	if ResourceKind(res.Kind) != ResourceKindFungible {
		return nil, fmt.Errorf("%w: mint amount of %s", ErrResourceKind, resource)
	}
	if err := tx.checkMinter(res); err != nil {
		return nil, err
	}
	if err := tx.store().SetResourceSupply(
		res.Address,
		res.TotalSupply.Add(amount),
		tx.txn.Metadata(),
	); err != nil {
		return nil, err
	}
	return tx.newBucket(resource, ResourceKindFungible, amount, nil), nil
}

// MintNonFungible mints one unit with the given local id, or a generated one
// when localID is empty. Data is stored CBOR-encoded.
func (tx *Tx) MintNonFungible(
	resource Address,
	localID string,
	data any,
) (*Bucket, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	res, err := tx.resource(resource)
	if err != nil {
		return nil, err
	}
	if ResourceKind(res.Kind) != ResourceKindNonFungible {
		return nil, fmt.Errorf("%w: mint unit of %s", ErrResourceKind, resource)
	}
	if err := tx.checkMinter(res); err != nil {
		return nil, err
	}
	if localID == "" {
		localID = uuid.NewString()
	}
	var encoded []byte
	if data != nil {
		encoded, err = cbor.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode non-fungible data: %w", err)
		}
	}
	nf := &models.NonFungible{
		Resource:    res.Address,
		LocalID:     localID,
		Data:        encoded,
		MintedEpoch: tx.epoch,
	}
	if err := tx.store().AddNonFungible(nf, tx.txn.Metadata()); err != nil {
		return nil, fmt.Errorf("add non-fungible: %w", err)
	}
	if err := tx.store().SetResourceSupply(
		res.Address,
		res.TotalSupply.Add(decimal.NewFromInt(1)),
		tx.txn.Metadata(),
	); err != nil {
		return nil, err
	}
	return tx.newBucket(resource, ResourceKindNonFungible, decimal.Zero, []string{localID}), nil
}

// Burn destroys the contents of a bucket and reduces the total supply
func (tx *Tx) Burn(b *Bucket) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if err := tx.checkBucket(b); err != nil {
		return err
	}
	res, err := tx.resource(b.resource)
	if err != nil {
		return err
	}
	if err := tx.checkMinter(res); err != nil {
		return err
	}
	for _, id := range b.ids {
		if err := tx.store().BurnNonFungible(res.Address, id, tx.txn.Metadata()); err != nil {
			return fmt.Errorf("burn %s: %w", id, err)
		}
	}
	if err := tx.store().SetResourceSupply(
		res.Address,
		res.TotalSupply.Sub(b.Amount()),
		tx.txn.Metadata(),
	); err != nil {
		return err
	}
	b.consumed = true
	return nil
}

// checkControl enforces who may withdraw from or prove a vault: an account
// only as the signer outside any component call, a component only from its
// own frame
func (tx *Tx) checkControl(owner Address) error {
	if owner.IsAccount() {
		if len(tx.frames) == 0 && owner == tx.signer {
			return nil
		}
	} else if len(tx.frames) > 0 && owner == tx.Actor() {
		return nil
	}
	return fmt.Errorf("%w: %s by %s", ErrUnauthorizedWithdraw, owner, tx.Actor())
}

func (tx *Tx) Balance(key VaultKey) (decimal.Decimal, error) {
	res, err := tx.resource(key.Resource)
	if err != nil {
		return decimal.Zero, err
	}
	if ResourceKind(res.Kind) == ResourceKindNonFungible {
		ids, err := tx.NonFungibleIDs(key)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(int64(len(ids))), nil
	}
	return tx.store().GetVaultBalance(
		string(key.Owner),
		string(key.Resource),
		key.Label,
		tx.txn.Metadata(),
	)
}

func (tx *Tx) NonFungibleIDs(key VaultKey) ([]string, error) {
	return tx.store().GetNonFungibleIDs(
		string(key.Owner),
		string(key.Resource),
		key.Label,
		tx.txn.Metadata(),
	)
}

func (tx *Tx) nonFungible(resource Address, localID string) (*models.NonFungible, error) {
	nf, err := tx.store().GetNonFungible(string(resource), localID, tx.txn.Metadata())
	if err != nil {
		if errors.Is(err, models.ErrNonFungibleNotFound) {
			return nil, fmt.Errorf("%w: %s#%s", ErrNonFungibleNotFound, resource, localID)
		}
		return nil, err
	}
	if nf.Burned {
		return nil, fmt.Errorf("%w: %s#%s", ErrNonFungibleBurned, resource, localID)
	}
	return nf, nil
}

// NonFungibleData decodes the data of a live non-fungible unit into v
func (tx *Tx) NonFungibleData(resource Address, localID string, v any) error {
	nf, err := tx.nonFungible(resource, localID)
	if err != nil {
		return err
	}
	if len(nf.Data) == 0 {
		return fmt.Errorf("non-fungible %s#%s has no data", resource, localID)
	}
	return cbor.Unmarshal(nf.Data, v)
}

// NonFungibleOwner returns the vault holding a live non-fungible unit. The
// owner is empty while the unit is held in a bucket.
func (tx *Tx) NonFungibleOwner(resource Address, localID string) (VaultKey, error) {
	nf, err := tx.nonFungible(resource, localID)
	if err != nil {
		return VaultKey{}, err
	}
	return VaultKey{
		Owner:    Address(nf.Owner),
		Resource: resource,
		Label:    nf.Label,
	}, nil
}

// Withdraw takes a fungible amount out of a vault
func (tx *Tx) Withdraw(key VaultKey, amount decimal.Decimal) (*Bucket, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := tx.checkControl(key.Owner); err != nil {
		return nil, err
	}
	res, err := tx.resource(key.Resource)
	if err != nil {
		return nil, err
	}
	if ResourceKind(res.Kind) != ResourceKindFungible {
		return nil, fmt.Errorf("%w: withdraw amount of %s", ErrResourceKind, key.Resource)
	}
	balance, err := tx.Balance(key)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, fmt.Errorf(
			"%w: %s has %s, need %s",
			ErrInsufficientBalance,
			key,
			balance.String(),
			amount.String(),
		)
	}
	if err := tx.store().SetVaultBalance(
		string(key.Owner),
		string(key.Resource),
		key.Label,
		balance.Sub(amount),
		tx.txn.Metadata(),
	); err != nil {
		return nil, err
	}
	return tx.newBucket(key.Resource, ResourceKindFungible, amount, nil), nil
}

// WithdrawNonFungibles takes specific non-fungible units out of a vault
func (tx *Tx) WithdrawNonFungibles(key VaultKey, ids []string) (*Bucket, error) {
	if err := tx.Writable(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrInvalidAmount
	}
	if err := tx.checkControl(key.Owner); err != nil {
		return nil, err
	}
	for _, id := range ids {
		nf, err := tx.nonFungible(key.Resource, id)
		if err != nil {
			return nil, err
		}
		if nf.Owner != string(key.Owner) || nf.Label != key.Label {
			return nil, fmt.Errorf(
				"%w: %s#%s not in %s",
				ErrInsufficientBalance,
				key.Resource,
				id,
				key,
			)
		}
		if err := tx.store().SetNonFungibleOwner(
			string(key.Resource),
			id,
			"",
			"",
			tx.txn.Metadata(),
		); err != nil {
			return nil, err
		}
	}
	return tx.newBucket(key.Resource, ResourceKindNonFungible, decimal.Zero, ids), nil
}

// Deposit moves the contents of a bucket into a vault and consumes the
// bucket. Any actor may deposit to an existing account, but only a component
// may deposit to its own vaults.
func (tx *Tx) Deposit(key VaultKey, b *Bucket) error {
	if err := tx.Writable(); err != nil {
		return err
	}
	if err := tx.checkBucket(b); err != nil {
		return err
	}
	if b.resource != key.Resource {
		return fmt.Errorf("%w: %s into %s", ErrResourceMismatch, b, key)
	}
	if key.Owner.IsAccount() {
		ok, err := tx.AccountExists(key.Owner)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, key.Owner)
		}
	} else if key.Owner != tx.Actor() {
		return fmt.Errorf("%w: %s by %s", ErrUnauthorizedDeposit, key, tx.Actor())
	}
	if b.kind == ResourceKindNonFungible {
		for _, id := range b.ids {
			if err := tx.store().SetNonFungibleOwner(
				string(b.resource),
				id,
				string(key.Owner),
				key.Label,
				tx.txn.Metadata(),
			); err != nil {
				return err
			}
		}
	} else {
		balance, err := tx.Balance(key)
		if err != nil {
			return err
		}
		if err := tx.store().SetVaultBalance(
			string(key.Owner),
			string(key.Resource),
			key.Label,
			balance.Add(b.amount),
			tx.txn.Metadata(),
		); err != nil {
			return err
		}
	}
	b.consumed = true
	return nil
}

// CreateProof proves control of at least amount of the vault's resource
func (tx *Tx) CreateProof(key VaultKey, amount decimal.Decimal) (*Proof, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := tx.checkControl(key.Owner); err != nil {
		return nil, err
	}
	balance, err := tx.Balance(key)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		return nil, fmt.Errorf(
			"%w: %s has %s, need %s",
			ErrInsufficientBalance,
			key,
			balance.String(),
			amount.String(),
		)
	}
	return &Proof{tx: tx, resource: key.Resource, amount: amount}, nil
}

// ProofOfBucket proves the full contents of a live bucket
func (tx *Tx) ProofOfBucket(b *Bucket) (*Proof, error) {
	if err := tx.checkBucket(b); err != nil {
		return nil, err
	}
	if b.IsEmpty() {
		return nil, ErrInvalidAmount
	}
	return &Proof{
		tx:       tx,
		resource: b.resource,
		amount:   b.Amount(),
		ids:      b.IDs(),
	}, nil
}

func (tx *Tx) component(addr Address) (Component, error) {
	if comp, ok := tx.newComponents[addr]; ok {
		return comp, nil
	}
	if comp, ok := tx.ledger.Component(addr); ok {
		return comp, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, addr)
}

// Call invokes a method on a component. Buckets in the request pass to the
// callee, and buckets in the result pass back to the caller.
func (tx *Tx) Call(target Address, method string, req Request) (*Result, error) {
	if err := tx.ctx.Err(); err != nil {
		return nil, err
	}
	comp, err := tx.component(target)
	if err != nil {
		return nil, err
	}
	for _, b := range req.Buckets {
		if err := tx.checkBucket(b); err != nil {
			return nil, err
		}
	}
	for _, p := range req.Proofs {
		if err := tx.checkProof(p); err != nil {
			return nil, err
		}
	}
	call := &Call{
		tx:      tx,
		Caller:  tx.Actor(),
		Method:  method,
		Buckets: req.Buckets,
		Proofs:  req.Proofs,
	}
	if req.Args != nil {
		args, err := cbor.Marshal(req.Args)
		if err != nil {
			return nil, fmt.Errorf("encode %s arguments: %w", method, err)
		}
		call.Args = args
	}
	tx.frames = append(tx.frames, target)
	res, err := comp.Call(tx, call)
	tx.frames = tx.frames[:len(tx.frames)-1]
	if tx.ledger.metrics != nil {
		tx.ledger.metrics.callsTotal.WithLabelValues(method).Inc()
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}
	for _, b := range res.Buckets {
		if err := tx.checkBucket(b); err != nil {
			return nil, fmt.Errorf("%s returned invalid bucket: %w", method, err)
		}
	}
	return res, nil
}
