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

package api

import (
	"context"

	"github.com/blinklabs-io/microchain"
	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/database/models"
	"github.com/blinklabs-io/microchain/query"
)

// Indexer is the interface that the API server uses to read and feed the
// replica. This decouples the HTTP server from the concrete
// microchain.Indexer and enables testing with other implementations.
type Indexer interface {
	// View runs fn with a consistent view of the contract state
	View(fn func(*query.Query) error) error

	// Status summarizes the block log and undo stack
	Status() microchain.Status

	AddSourceBlock(
		ctx context.Context,
		src chain.SourceBlock,
		sourceIrreversible uint32,
	) (microchain.AddResult, error)
	SetIrreversible(sourceNum uint32) (uint32, error)
	SetIrreversibleNum(num uint32) (uint32, error)
	GetBlock(num uint32) (*chain.Block, error)

	// Stored metadata
	BlockHeaders(from uint32, limit int) ([]models.BlockHeader, error)
	Faults(from uint32, limit int) ([]models.ReplayFault, error)

	// Administration
	TrimBlocks() int
	UndoBlockNum(num uint32) (int, error)
	UndoSourceNum(sourceNum uint32) (int, error)
	Reset() error
}
