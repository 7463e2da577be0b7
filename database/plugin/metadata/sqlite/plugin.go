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

package sqlite

import (
	"sync"

	"github.com/blinklabs-io/agora/database/plugin"
)

const (
	DefaultBusyTimeoutMs = 5000
	DefaultCacheSizeKib  = 50000
)

var (
	cmdlineOptions struct {
		dataDir       string
		busyTimeoutMs uint64
		cacheSizeKib  uint64
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	cmdlineOptions.dataDir = ".agora"
	cmdlineOptions.busyTimeoutMs = DefaultBusyTimeoutMs
	cmdlineOptions.cacheSizeKib = DefaultCacheSizeKib
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "sqlite",
			Description:        "SQLite database for ledger, proposal and relay state",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Data directory, empty for in-memory",
					DefaultValue: ".agora",
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "busy-timeout",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Milliseconds to wait on a locked database",
					DefaultValue: uint64(DefaultBusyTimeoutMs),
					Dest:         &(cmdlineOptions.busyTimeoutMs),
				},
				{
					Name:         "cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Page cache size in KiB",
					DefaultValue: uint64(DefaultCacheSizeKib),
					Dest:         &(cmdlineOptions.cacheSizeKib),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []SqliteOptionFunc{
		WithDataDir(cmdlineOptions.dataDir),
		WithBusyTimeout(cmdlineOptions.busyTimeoutMs),
		WithCacheSize(cmdlineOptions.cacheSizeKib),
	}
	cmdlineOptionsMutex.RUnlock()
	p, err := NewWithOptions(opts...)
	if err != nil {
		// Return a plugin that defers the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
