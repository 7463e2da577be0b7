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

	"github.com/shopspring/decimal"
)

type Outcome uint8

const (
	OutcomeOpen Outcome = iota
	OutcomeInconclusive
	OutcomeDecided
)

// Result is the outcome of a proposal. Winner is meaningful only when the
// outcome is decided.
type Result struct {
	Outcome Outcome `cbor:"1,keyasint"`
	Winner  uint32  `cbor:"2,keyasint"`
}

func Inconclusive() Result {
	return Result{Outcome: OutcomeInconclusive}
}

func Decided(winner uint32) Result {
	return Result{Outcome: OutcomeDecided, Winner: winner}
}

func (r Result) IsOpen() bool {
	return r.Outcome == OutcomeOpen
}

func (r Result) IsDecided(option uint32) bool {
	return r.Outcome == OutcomeDecided && r.Winner == option
}

func (r Result) String() string {
	switch r.Outcome {
	case OutcomeOpen:
		return "open"
	case OutcomeInconclusive:
		return "inconclusive"
	case OutcomeDecided:
		return fmt.Sprintf("decided(%d)", r.Winner)
	default:
		return fmt.Sprintf("unknown(%d)", r.Outcome)
	}
}

// QuorumMet reports whether the total cast weight satisfies the rule. Supply
// is only consulted for percent quorums.
func QuorumMet(rule QuorumRule, total decimal.Decimal, supply decimal.Decimal) bool {
	switch rule.Kind {
	case QuorumKindAny:
		return true
	case QuorumKindPercent:
		required := supply.Mul(rule.Value).Div(decimal.NewFromInt(100))
		return total.GreaterThanOrEqual(required)
	case QuorumKindFixed:
		return total.GreaterThanOrEqual(rule.Value)
	default:
		return false
	}
}

// Tally resolves a ballot. The winner is the option with the highest weight,
// and a tie goes to the lowest index.
func Tally(tally []decimal.Decimal, rule QuorumRule, supply decimal.Decimal) Result {
	total := decimal.Zero
	for _, weight := range tally {
		total = total.Add(weight)
	}
	if len(tally) == 0 || !QuorumMet(rule, total, supply) {
		return Inconclusive()
	}
	var winner int
	for i, weight := range tally {
		if weight.GreaterThan(tally[winner]) {
			winner = i
		}
	}
	return Decided(uint32(winner)) // #nosec G115
}
