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

package node

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/microchain/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genesisBlock = `{
	"num": 100,
	"transactions": [{
		"actions": [{
			"firstReceiver": "genesis.eden",
			"name": "genesis",
			"json": {
				"community": "Eden",
				"community_symbol": "4,EOS",
				"minimum_donation": "10.0000 EOS",
				"initial_members": ["alice", "bob", "carol"],
				"genesis_video": "QmGenesis",
				"auction_starting_bid": "1.0000 EOS",
				"auction_duration": 604800,
				"memo": "welcome"
			}
		}]
	}]
}
`

const donateBlock = `{"num": 101, "transactions": [{"actions": [{"firstReceiver": "genesis.eden", "name": "inductdonate", "json": {"payer": "alice", "id": 1, "quantity": "10.0000 EOS"}}]}]}
`

const testBlocks = genesisBlock + donateBlock

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeBlockFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blocks.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(dataDir string, persist bool) *config.Config {
	return &config.Config{
		DataDir:         dataDir,
		Contract:        config.DefaultContract,
		Persistence:     persist,
		ShutdownTimeout: config.DefaultShutdownTimeout,
	}
}

func TestLoadImportsBlockFile(t *testing.T) {
	// The second copy of block 101 is a duplicate
	blockFile := writeBlockFile(t, testBlocks+donateBlock)
	res, err := Load(
		t.Context(),
		testConfig("", false),
		testLogger(),
		blockFile,
		0,
	)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Archived)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, uint32(2), res.Head)
}

func TestLoadRejectsBadInput(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
	}{
		{name: "malformed", content: `{"num": `},
		{name: "unknown field", content: `{"num": 1, "bogus": true}`},
		{name: "bad hex data", content: `{"num": 1, "transactions": [{"actions": [{"name": "transfer", "hexData": "zz"}]}]}`},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := Load(
				t.Context(),
				testConfig("", false),
				testLogger(),
				writeBlockFile(t, testDef.content),
				0,
			)
			require.Error(t, err)
		})
	}
	_, err := Load(
		t.Context(),
		testConfig("", false),
		testLogger(),
		filepath.Join(t.TempDir(), "missing.json"),
		0,
	)
	require.Error(t, err)
}

func TestLoadResumesFromArchive(t *testing.T) {
	cfg := testConfig(t.TempDir(), true)
	res, err := Load(t.Context(), cfg, testLogger(), writeBlockFile(t, testBlocks), 101)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, uint32(2), res.Irreversible)

	// A second run replays the archive without a block file
	res, err = Load(t.Context(), cfg, testLogger(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Archived)
	assert.Equal(t, 0, res.Imported)
	assert.Equal(t, uint32(2), res.Head)

	require.NoError(t, Reset(cfg, testLogger()))
	res, err = Load(t.Context(), cfg, testLogger(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Archived)
	assert.Equal(t, uint32(0), res.Head)
}

func TestNewIndexerRejectsBadConfig(t *testing.T) {
	cfg := testConfig("", false)
	cfg.Contract = "NOT A NAME"
	_, err := NewIndexer(cfg, testLogger(), nil)
	require.Error(t, err)

	cfg = testConfig("", false)
	cfg.ShutdownTimeout = "never"
	_, err = NewIndexer(cfg, testLogger(), nil)
	require.Error(t, err)
}
