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


package types_test

import (
	"testing"

	"github.com/blinklabs-io/agora/database/types"
	"github.com/stretchr/testify/assert"
)

func TestProposalDocumentKey(t *testing.T) {
	key := types.ProposalDocumentKey("component_abc", 42)
	assert.Equal(t, "pdcomponent_abc:42", string(key))
	assert.NotEqual(
		t,
		types.ProposalDocumentKey("component_abc", 4),
		types.ProposalDocumentKey("component_ab", 4),
	)
}
