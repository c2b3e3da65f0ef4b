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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blinklabs-io/microchain"
	"github.com/blinklabs-io/microchain/api"
	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/internal/config"
)

// ImportResult summarizes a block import
type ImportResult struct {
	Archived     int
	Imported     int
	Duplicates   int
	Faults       int
	Head         uint32
	Irreversible uint32
}

// Load rebuilds the contract state from the block archive and then imports
// the source blocks in blockFile, if one is given. The file holds a stream of
// JSON source blocks as accepted by the API. Blocks up to sourceIrreversible
// are treated as irreversible by the source chain.
func Load(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	blockFile string,
	sourceIrreversible uint32,
) (ImportResult, error) {
	var ret ImportResult
	idx, err := NewIndexer(cfg, logger, nil)
	if err != nil {
		return ret, err
	}
	logEvents(idx.EventBus(), logger)
	ret, err = load(ctx, idx, logger, blockFile, sourceIrreversible)
	return ret, errors.Join(err, idx.Stop())
}

// Indexer is the part of the indexer used by an import
type Indexer interface {
	Load(context.Context) (int, error)
	AddSourceBlock(
		context.Context,
		chain.SourceBlock,
		uint32,
	) (microchain.AddResult, error)
	Status() microchain.Status
}

func load(
	ctx context.Context,
	idx Indexer,
	logger *slog.Logger,
	blockFile string,
	sourceIrreversible uint32,
) (ImportResult, error) {
	var ret ImportResult
	archived, err := idx.Load(ctx)
	if err != nil {
		return ret, err
	}
	ret.Archived = archived
	if blockFile != "" {
		f, err := os.Open(blockFile)
		if err != nil {
			return ret, fmt.Errorf("failed to open block file: %w", err)
		}
		defer f.Close()
		logger.Info("importing source blocks from "+blockFile, "component", "node")
		if err := importBlocks(ctx, idx, f, sourceIrreversible, &ret); err != nil {
			return ret, err
		}
	}
	status := idx.Status()
	ret.Head = status.Head
	ret.Irreversible = status.Irreversible
	logger.Info(
		fmt.Sprintf(
			"finished loading %d archived and %d imported blocks",
			ret.Archived,
			ret.Imported,
		),
		"component", "node",
		"head", ret.Head,
		"irreversible", ret.Irreversible,
		"faults", ret.Faults,
	)
	return ret, nil
}

func importBlocks(
	ctx context.Context,
	idx Indexer,
	r io.Reader,
	sourceIrreversible uint32,
	ret *ImportResult,
) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var req api.SourceBlockRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode source block: %w", err)
		}
		src, err := req.ToSourceBlock()
		if err != nil {
			return fmt.Errorf("source block %d: %w", req.Num, err)
		}
		res, err := idx.AddSourceBlock(ctx, src, sourceIrreversible)
		if err != nil {
			return fmt.Errorf("source block %d: %w", req.Num, err)
		}
		if !res.Status.Accepted() {
			ret.Duplicates++
			continue
		}
		ret.Imported++
		ret.Faults += len(res.Faults)
	}
}

// Reset empties the contract state, block log and persisted stores
func Reset(cfg *config.Config, logger *slog.Logger) error {
	idx, err := NewIndexer(cfg, logger, nil)
	if err != nil {
		return err
	}
	err = idx.Reset()
	if err == nil {
		logger.Info("reset complete", "component", "node", "data_dir", cfg.DataDir)
	}
	return errors.Join(err, idx.Stop())
}
