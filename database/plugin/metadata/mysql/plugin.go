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


package mysql

import (
	"sync"

	"github.com/blinklabs-io/agora/database/plugin"
)

// DefaultMaxOpenConns bounds the pool. The ledger serializes writers, so
// extra connections only serve readers.
const DefaultMaxOpenConns = 8

var (
	cmdlineOptions struct {
		dsn          string
		maxOpenConns uint64
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	cmdlineOptions.maxOpenConns = DefaultMaxOpenConns
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "mysql",
			Description:        "MySQL database for ledger, proposal and relay state",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:        "dsn",
					Type:        plugin.PluginOptionTypeString,
					Description: "Mysql connection string",
					Dest:        &(cmdlineOptions.dsn),
				},
				{
					Name:         "max-open-conns",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Maximum open connections, 0 for unlimited",
					DefaultValue: uint64(DefaultMaxOpenConns),
					Dest:         &(cmdlineOptions.maxOpenConns),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	defer cmdlineOptionsMutex.RUnlock()
	return NewWithOptions(
		WithDsn(cmdlineOptions.dsn),
		WithMaxOpenConns(cmdlineOptions.maxOpenConns),
	)
}
