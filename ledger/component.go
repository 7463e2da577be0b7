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
	"maps"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
)

// Component is an instantiated blueprint that can be called within a transaction
type Component interface {
	Call(tx *Tx, call *Call) (*Result, error)
}

// BlueprintLoader rebuilds a component from its address when the ledger starts
type BlueprintLoader func(address Address) (Component, error)

// Request is what a caller passes to Tx.Call. Args is encoded with CBOR
// before it reaches the callee.
type Request struct {
	Args    any
	Buckets []*Bucket
	Proofs  []*Proof
}

// Call is a single method invocation as seen by the callee
type Call struct {
	tx      *Tx
	Caller  Address
	Method  string
	Args    []byte
	Buckets []*Bucket
	Proofs  []*Proof
}

// DecodeArgs decodes the CBOR arguments into v
func (c *Call) DecodeArgs(v any) error {
	if len(c.Args) == 0 {
		return fmt.Errorf("%s: missing arguments", c.Method)
	}
	if err := cbor.Unmarshal(c.Args, v); err != nil {
		return fmt.Errorf("%s: decode arguments: %w", c.Method, err)
	}
	return nil
}

// Bucket returns the bucket at position i
func (c *Call) Bucket(i int) (*Bucket, error) {
	if i < 0 || i >= len(c.Buckets) {
		return nil, fmt.Errorf("%s: %w at position %d", c.Method, ErrMissingBucket, i)
	}
	return c.Buckets[i], nil
}

// HasProof reports whether the call carries a valid, non-empty proof of at
// least amount of the resource
func (c *Call) HasProof(resource Address, amount decimal.Decimal) bool {
	for _, p := range c.Proofs {
		if c.tx.checkProof(p) != nil {
			continue
		}
		if p.amount.Sign() <= 0 {
			continue
		}
		if p.resource == resource && p.amount.GreaterThanOrEqual(amount) {
			return true
		}
	}
	return false
}

// Result is returned from a component call. Returned buckets pass to the caller.
type Result struct {
	Value   []byte
	Buckets []*Bucket
}

// NewResult encodes value with CBOR. A nil value produces an empty result.
func NewResult(value any, buckets ...*Bucket) (*Result, error) {
	ret := &Result{Buckets: buckets}
	if value != nil {
		data, err := cbor.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		ret.Value = data
	}
	return ret, nil
}

// Decode decodes the CBOR result value into v
func (r *Result) Decode(v any) error {
	if len(r.Value) == 0 {
		return fmt.Errorf("decode result: empty value")
	}
	return cbor.Unmarshal(r.Value, v)
}

type Handler func(tx *Tx, call *Call) (*Result, error)

// Router dispatches calls by method name
type Router struct {
	handlers map[string]Handler
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]Handler),
	}
}

func (r *Router) Handle(method string, handler Handler) {
	r.handlers[method] = handler
}

func (r *Router) Call(tx *Tx, call *Call) (*Result, error) {
	handler, ok := r.handlers[call.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, call.Method)
	}
	return handler(tx, call)
}

// Methods returns the sorted method names
func (r *Router) Methods() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}
