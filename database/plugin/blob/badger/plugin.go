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

package badger

import (
	"sync"
	"time"

	"github.com/blinklabs-io/agora/database/plugin"
)

// Proposal documents are small and read through an LRU above the store, so
// the badger caches stay modest
const (
	DefaultBlockCacheSize  = 16 << 20
	DefaultIndexCacheSize  = 8 << 20
	DefaultGcInterval      = 10 * time.Minute
	DefaultGcDiscardRatio  = 0.5
	defaultGcIntervalInSec = uint64(DefaultGcInterval / time.Second)
)

var (
	cmdlineOptions struct {
		dataDir        string
		blockCacheSize uint64
		indexCacheSize uint64
		gcIntervalSec  uint64
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	cmdlineOptions.dataDir = ".agora"
	cmdlineOptions.blockCacheSize = DefaultBlockCacheSize
	cmdlineOptions.indexCacheSize = DefaultIndexCacheSize
	cmdlineOptions.gcIntervalSec = defaultGcIntervalInSec
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB key-value store for proposal documents",
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
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger block cache size in bytes",
					DefaultValue: uint64(DefaultBlockCacheSize),
					Dest:         &(cmdlineOptions.blockCacheSize),
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger index cache size in bytes",
					DefaultValue: uint64(DefaultIndexCacheSize),
					Dest:         &(cmdlineOptions.indexCacheSize),
				},
				{
					Name:         "gc-interval",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Seconds between value log GC runs, 0 to disable",
					DefaultValue: defaultGcIntervalInSec,
					Dest:         &(cmdlineOptions.gcIntervalSec),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := []BlobStoreBadgerOptionFunc{
		WithDataDir(cmdlineOptions.dataDir),
		WithCacheSizes(cmdlineOptions.blockCacheSize, cmdlineOptions.indexCacheSize),
		// #nosec G115
		WithGc(time.Duration(cmdlineOptions.gcIntervalSec) * time.Second),
	}
	cmdlineOptionsMutex.RUnlock()
	p, err := New(opts...)
	if err != nil {
		// Return a plugin that defers the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
