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

package metadata

import (
	"log/slog"

	"github.com/blinklabs-io/microchain/database/models"
	"github.com/blinklabs-io/microchain/database/plugin/metadata/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Start() error
	Stop() error
	Close() error
	DB() *gorm.DB

	// Blocks
	SetBlock(*models.BlockHeader, []models.ReplayFault) error
	DeleteBlocksFrom(uint32) error
	GetBlockHeader(uint32) (*models.BlockHeader, error)
	GetBlockHeaders(uint32, int) ([]models.BlockHeader, error)
	GetReplayFaults(uint32, int) ([]models.ReplayFault, error)

	// Sync state
	GetSyncState(string) (string, error)
	SetSyncState(string, string) error

	Reset() error
}

// For now, this always returns a sqlite store
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	return sqlite.New(
		sqlite.WithDataDir(dataDir),
		sqlite.WithLogger(logger),
		sqlite.WithPromRegistry(promRegistry),
	)
}
