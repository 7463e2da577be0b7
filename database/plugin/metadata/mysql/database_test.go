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

package mysql_test

import (
	"testing"

	"github.com/blinklabs-io/agora/database/plugin"
	"github.com/blinklabs-io/agora/database/plugin/metadata/mysql"
	"github.com/stretchr/testify/require"
)

func TestStartRequiresDsn(t *testing.T) {
	store := mysql.NewWithOptions(mysql.WithMaxOpenConns(2))
	require.ErrorIs(t, store.Start(), mysql.ErrMissingDsn)
	// Closing a store that never connected is a no-op
	require.NoError(t, store.Stop())
}

func TestPluginRegistered(t *testing.T) {
	found := false
	for _, p := range plugin.GetPlugins(plugin.PluginTypeMetadata) {
		if p.Name == "mysql" {
			found = true
		}
	}
	require.True(t, found)
}
