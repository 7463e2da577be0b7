// Copyright 2025 Blink Labs Software
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


package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/agora/database/plugin"
	"github.com/blinklabs-io/agora/database/plugin/blob"
	"github.com/blinklabs-io/agora/database/plugin/metadata"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlobPlugin       = "badger"
	DefaultMetadataPlugin   = "sqlite"
	DefaultDocumentCacheLen = 256
)

// Config holds the settings used to open a Database
type Config struct {
	PromRegistry     prometheus.Registerer
	Logger           *slog.Logger
	DataDir          string
	BlobPlugin       string
	MetadataPlugin   string
	MetadataDsn      string
	DocumentCacheLen int
}

type Database struct {
	logger        *slog.Logger
	blob          blob.BlobStore
	metadata      metadata.MetadataStore
	documentCache *lru.Cache[string, *ProposalDocument]
	config        Config
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.config.DataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	d.logger = d.logger.With("component", "database")
	cacheLen := d.config.DocumentCacheLen
	if cacheLen <= 0 {
		cacheLen = DefaultDocumentCacheLen
	}
	cache, err := lru.New[string, *ProposalDocument](cacheLen)
	if err != nil {
		return err
	}
	d.documentCache = cache
	return d.checkCommitTimestamp()
}

// New creates a new database instance with optional persistence using the
// provided data directory. An empty data directory keeps everything in memory.
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	blobPlugin := cfg.BlobPlugin
	if blobPlugin == "" {
		blobPlugin = DefaultBlobPlugin
	}
	metadataPlugin := cfg.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = DefaultMetadataPlugin
	}
	if err := plugin.SetPluginOption(plugin.PluginTypeBlob, blobPlugin, "data-dir", cfg.DataDir); err != nil {
		return nil, fmt.Errorf("blob plugin: %w", err)
	}
	if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, metadataPlugin, "data-dir", cfg.DataDir); err != nil {
		return nil, fmt.Errorf("metadata plugin: %w", err)
	}
	if cfg.MetadataDsn != "" {
		if err := plugin.SetPluginOption(plugin.PluginTypeMetadata, metadataPlugin, "dsn", cfg.MetadataDsn); err != nil {
			return nil, fmt.Errorf("metadata plugin: %w", err)
		}
	}
	metadataDb, err := metadata.New(metadataPlugin)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(blobPlugin)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db := &Database{
		logger:   cfg.Logger,
		blob:     blobDb,
		metadata: metadataDb,
		config:   *cfg,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
