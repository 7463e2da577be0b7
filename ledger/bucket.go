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
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Bucket is a transient container of a single resource. It exists only for
// the duration of the transaction that created it and must be consumed
// exactly once before commit.
type Bucket struct {
	tx       *Tx
	resource Address
	kind     ResourceKind
	amount   decimal.Decimal
	ids      []string
	consumed bool
}

func (b *Bucket) Resource() Address {
	return b.resource
}

func (b *Bucket) Kind() ResourceKind {
	return b.kind
}

// Amount returns the fungible amount, or the number of non-fungible units
func (b *Bucket) Amount() decimal.Decimal {
	if b.kind == ResourceKindNonFungible {
		return decimal.NewFromInt(int64(len(b.ids)))
	}
	return b.amount
}

// IDs returns the local ids of the non-fungible units in the bucket
func (b *Bucket) IDs() []string {
	return slices.Clone(b.ids)
}

func (b *Bucket) IsEmpty() bool {
	return b.Amount().Sign() == 0
}

func (b *Bucket) String() string {
	return fmt.Sprintf("bucket(%s %s)", b.Amount().String(), b.resource)
}

// Proof attests that the presenter controls at least Amount of a resource.
// Creating or passing a proof never moves the underlying tokens.
type Proof struct {
	tx       *Tx
	resource Address
	amount   decimal.Decimal
	ids      []string
}

func (p *Proof) Resource() Address {
	return p.resource
}

func (p *Proof) Amount() decimal.Decimal {
	return p.amount
}

func (p *Proof) IDs() []string {
	return slices.Clone(p.ids)
}

func (tx *Tx) newBucket(
	resource Address,
	kind ResourceKind,
	amount decimal.Decimal,
	ids []string,
) *Bucket {
	b := &Bucket{
		tx:       tx,
		resource: resource,
		kind:     kind,
		amount:   amount,
		ids:      ids,
	}
	tx.buckets = append(tx.buckets, b)
	return b
}

func (tx *Tx) checkBucket(b *Bucket) error {
	if b == nil || b.tx != tx {
		return ErrForeignBucket
	}
	if b.consumed {
		return fmt.Errorf("%w: %s", ErrBucketConsumed, b)
	}
	return nil
}

func (tx *Tx) checkProof(p *Proof) error {
	if p == nil || p.tx != tx {
		return ErrInvalidProof
	}
	return nil
}

// danglingBuckets returns the buckets that were never consumed
func (tx *Tx) danglingBuckets() []*Bucket {
	var ret []*Bucket
	for _, b := range tx.buckets {
		if !b.consumed && !b.IsEmpty() {
			ret = append(ret, b)
		}
	}
	return ret
}
