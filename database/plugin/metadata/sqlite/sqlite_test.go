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

package sqlite_test

import (
	"testing"

	"github.com/blinklabs-io/microchain/database/models"
	"github.com/blinklabs-io/microchain/database/plugin/metadata/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...sqlite.SqliteOptionFunc) *sqlite.MetadataStoreSqlite {
	t.Helper()
	store, err := sqlite.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func header(num uint32) *models.BlockHeader {
	return &models.BlockHeader{
		Num:       num,
		Hash:      []byte{byte(num)},
		SourceNum: num + 100,
	}
}

func TestSetBlockReplacesForkedHeaders(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := newTestStore(t, sqlite.WithPromRegistry(reg))
	for num := uint32(1); num <= 4; num++ {
		var faults []models.ReplayFault
		if num == 3 {
			faults = []models.ReplayFault{
				{BlockNum: 3, SourceBlockNum: 103, ActionIndex: 1, Action: "inductprofil", Error: "missing record"},
			}
		}
		require.NoError(t, store.SetBlock(header(num), faults))
	}
	headers, err := store.GetBlockHeaders(0, 10)
	require.NoError(t, err)
	assert.Len(t, headers, 4)
	faults, err := store.GetReplayFaults(0, 10)
	require.NoError(t, err)
	require.Len(t, faults, 1)
	assert.Equal(t, "inductprofil", faults[0].Action)

	// A fork at block 3 drops headers 3 and 4 along with their faults
	replacement := header(3)
	replacement.SourceNum = 500
	require.NoError(t, store.SetBlock(replacement, nil))
	headers, err = store.GetBlockHeaders(2, 10)
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, uint32(500), headers[1].SourceNum)
	faults, err = store.GetReplayFaults(0, 10)
	require.NoError(t, err)
	assert.Empty(t, faults)

	got, err := store.GetBlockHeader(3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint32(500), got.SourceNum)
	got, err = store.GetBlockHeader(4)
	require.NoError(t, err)
	assert.Nil(t, got)

	count, err := testutil.GatherAndCount(reg, "microchain_metadata_replay_faults_stored_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteBlocksFromAndReset(t *testing.T) {
	store := newTestStore(t)
	for num := uint32(1); num <= 3; num++ {
		require.NoError(t, store.SetBlock(header(num), nil))
	}
	require.NoError(t, store.DeleteBlocksFrom(2))
	headers, err := store.GetBlockHeaders(0, 10)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, uint32(1), headers[0].Num)

	require.NoError(t, store.SetSyncState("irreversible", "1"))
	require.NoError(t, store.Reset())
	headers, err = store.GetBlockHeaders(0, 10)
	require.NoError(t, err)
	assert.Empty(t, headers)
	value, err := store.GetSyncState("irreversible")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSyncState(t *testing.T) {
	store := newTestStore(t)
	value, err := store.GetSyncState("missing")
	require.NoError(t, err)
	assert.Empty(t, value)
	require.NoError(t, store.SetSyncState("head", "1"))
	require.NoError(t, store.SetSyncState("head", "2"))
	value, err = store.GetSyncState("head")
	require.NoError(t, err)
	assert.Equal(t, "2", value)
}

func TestOnDiskStore(t *testing.T) {
	dir := t.TempDir()
	store, err := sqlite.New(sqlite.WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, store.SetBlock(header(1), nil))
	require.NoError(t, store.Close())

	store = newTestStore(t, sqlite.WithDataDir(dir))
	got, err := store.GetBlockHeader(1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint32(101), got.SourceNum)
}
