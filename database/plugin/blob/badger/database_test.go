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


package badger_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/blinklabs-io/agora/database/plugin/blob/badger"
	"github.com/blinklabs-io/agora/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...badger.BlobStoreBadgerOptionFunc) *badger.BlobStoreBadger {
	t.Helper()
	opts = append(
		opts,
		badger.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
	)
	store, err := badger.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestBlobStoreInMemory(t *testing.T) {
	store := newTestStore(t, badger.WithPromRegistry(prometheus.NewRegistry()))
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, txn.Commit())

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	val, err := store.Get(readTxn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	_, err = store.Get(readTxn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestBlobStoreRollback(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, txn.Rollback())
	// Using a finished transaction is an error
	require.Error(t, store.Set(txn, []byte("k2"), []byte("v2")))

	readTxn := store.NewTransaction(false)
	defer readTxn.Rollback() //nolint:errcheck
	_, err := store.Get(readTxn, []byte("k1"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestBlobStoreTxnValidation(t *testing.T) {
	store := newTestStore(t)
	other := newTestStore(t)
	_, err := store.Get(nil, []byte("k"))
	require.ErrorIs(t, err, types.ErrNilTxn)
	otherTxn := other.NewTransaction(false)
	defer otherTxn.Rollback() //nolint:errcheck
	_, err = store.Get(otherTxn, []byte("k"))
	require.Error(t, err)
}

func TestBlobStoreCommitTimestamp(t *testing.T) {
	store := newTestStore(t, badger.WithDataDir(t.TempDir()), badger.WithGc(0))
	_, err := store.GetCommitTimestamp()
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1234567, txn))
	require.NoError(t, txn.Commit())
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), ts)
	require.ErrorIs(t, store.SetCommitTimestamp(1, nil), types.ErrNilTxn)
}
