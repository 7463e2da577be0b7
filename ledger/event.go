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
	"github.com/blinklabs-io/agora/event"
)

const (
	EpochChangeEventType event.EventType = "epoch.change"
	TransactionEventType event.EventType = "ledger.transaction"
)

type EpochChangeEvent struct {
	PreviousEpoch uint64
	Epoch         uint64
}

// TransactionEvent is published after every committed transaction
type TransactionEvent struct {
	ID     string
	Signer Address
	Epoch  uint64
	Events int
}
