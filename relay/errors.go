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

import "errors"

var (
	ErrCredentialSlotEmpty    = errors.New("credential slot empty")
	ErrCredentialSlotOccupied = errors.New("credential slot occupied")
	ErrUnauthorizedDepositor  = errors.New("caller is not the relay depositor")
	ErrUnauthorizedCaller     = errors.New("caller may not forward from this relay")
	ErrInvalidSlot            = errors.New("invalid credential slot name")
)
