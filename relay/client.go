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
	"github.com/blinklabs-io/agora/ledger"
	"github.com/fxamacker/cbor/v2"
	"github.com/shopspring/decimal"
)

type Client struct {
	relay ledger.Address
}

func NewClient(relay ledger.Address) *Client {
	return &Client{relay: relay}
}

// Slot returns the occupied slot, or ErrCredentialSlotEmpty
func (c *Client) Slot(tx *ledger.Tx, name string) (*Slot, error) {
	res, err := tx.Call(c.relay, MethodSlot, ledger.Request{Args: SlotArgs{Slot: name}})
	if err != nil {
		return nil, err
	}
	ret := new(Slot)
	if err := res.Decode(ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Present proves amount of the signer's resource to component.method through
// the relay and returns the raw result value
func (c *Client) Present(
	tx *ledger.Tx,
	component ledger.Address,
	method string,
	args any,
	resource ledger.Address,
	amount decimal.Decimal,
) ([]byte, error) {
	present := PresentArgs{Component: component, Method: method}
	if args != nil {
		encoded, err := cbor.Marshal(args)
		if err != nil {
			return nil, err
		}
		present.Args = encoded
	}
	vault := ledger.AccountVault(tx.Signer(), resource)
	credential, err := tx.Withdraw(vault, amount)
	if err != nil {
		return nil, err
	}
	res, err := tx.Call(c.relay, MethodPresent, ledger.Request{
		Args:    present,
		Buckets: []*ledger.Bucket{credential},
	})
	if err != nil {
		return nil, err
	}
	for _, b := range res.Buckets {
		if err := tx.Deposit(ledger.AccountVault(tx.Signer(), b.Resource()), b); err != nil {
			return nil, err
		}
	}
	return res.Value, nil
}
