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


package postgres

import (
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/agora/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

var ErrMissingDsn = errors.New("postgres metadata plugin requires a dsn")

// MetadataStorePostgres stores metadata in Postgres. The connection is opened by Start().
type MetadataStorePostgres struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	dsn          string
	maxOpenConns uint64
}

// NewWithOptions creates a new store. No connection is made until Start() is called.
func NewWithOptions(opts ...PostgresOptionFunc) *MetadataStorePostgres {
	d := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return d
}

// Start implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Start() error {
	if d.dsn == "" {
		return ErrMissingDsn
	}
	metadataDb, err := gorm.Open(
		postgres.Open(d.dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return err
	}
	if err := metadataDb.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	sqlDb, err := metadataDb.DB()
	if err != nil {
		return err
	}
	if d.maxOpenConns > 0 {
		// #nosec G115
		sqlDb.SetMaxOpenConns(int(d.maxOpenConns))
	}
	if d.promRegistry != nil {
		if err := d.promRegistry.Register(
			collectors.NewDBStatsCollector(sqlDb, "metadata_postgres"),
		); err != nil {
			return err
		}
	}
	d.Store = gormstore.New(metadataDb, d.logger)
	return d.Migrate()
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Stop() error {
	return d.Close()
}

// Close closes the connection pool if it was opened
func (d *MetadataStorePostgres) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}
