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

// Package microchain replays the actions of one contract from an external
// source chain into a fork-aware, versioned in-memory state and serves reads
// over it.
package microchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/database"
	"github.com/blinklabs-io/microchain/database/models"
	"github.com/blinklabs-io/microchain/database/plugin"
	"github.com/blinklabs-io/microchain/database/plugin/blob/badger"
	"github.com/blinklabs-io/microchain/database/plugin/metadata"
	"github.com/blinklabs-io/microchain/event"
	"github.com/blinklabs-io/microchain/ledger"
	"github.com/blinklabs-io/microchain/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	syncStateHead         = "head"
	syncStateIrreversible = "irreversible"
)

var ErrNoMetadataStore = errors.New("metadata store is disabled")

// AddResult describes what happened to a submitted block
type AddResult struct {
	Status chain.AddStatus
	Block  *chain.Block
	// Forked is the number of blocks undone to make room for the block
	Forked       int
	Faults       []ledger.ReplayFault
	Irreversible uint32
}

// Status is a summary of the block log and undo stack
type Status struct {
	Head         uint32         `json:"head"`
	HeadID       string         `json:"headId"`
	Irreversible uint32         `json:"irreversible"`
	LogBlocks    int            `json:"logBlocks"`
	UndoCount    int            `json:"undoCount"`
	Revision     int64          `json:"revision"`
	Tables       map[string]int `json:"tables"`
}

// Indexer owns the block log, the contract state and the persistent stores.
// Every mutating method serializes on one lock, and readers go through View so
// they only ever see state between blocks.
type Indexer struct {
	config        Config
	mu            sync.RWMutex
	log           *chain.BlockLog
	db            *database.Database
	state         *ledger.State
	query         *query.Query
	blockStore    *badger.BlockStore
	metadata      metadata.MetadataStore
	plugins       []plugin.Plugin
	eventBus      *event.EventBus
	tracer        trace.Tracer
	metrics       indexerMetrics
	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Indexer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	i := &Indexer{
		config:   cfg,
		log:      chain.NewBlockLog(),
		db:       database.New(cfg.logger),
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
	}
	i.metrics.init(cfg.promRegistry)
	if cfg.tracing {
		if err := i.setupTracing(); err != nil {
			return nil, err
		}
	}
	i.tracer = otel.Tracer(tracerName)
	state, err := ledger.NewState(
		i.db,
		ledger.StateConfig{
			Logger:       cfg.logger,
			PromRegistry: cfg.promRegistry,
			Contract:     cfg.contract,
		},
	)
	if err != nil {
		return nil, err
	}
	i.state = state
	i.query = query.New(state.Tables(), i.log)
	if cfg.persist {
		if err := i.openStores(); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *Indexer) openStores() error {
	blockStore, err := badger.New(
		badger.WithDataDir(i.config.dataDir),
		badger.WithLogger(i.config.logger),
		badger.WithPromRegistry(i.config.promRegistry),
	)
	if err != nil {
		return fmt.Errorf("failed to open block store: %w", err)
	}
	metadataStore, err := metadata.New(
		i.config.dataDir,
		i.config.logger,
		i.config.promRegistry,
	)
	if err != nil {
		return errors.Join(
			fmt.Errorf("failed to open metadata store: %w", err),
			blockStore.Close(),
		)
	}
	plugins := []plugin.Plugin{blockStore, metadataStore}
	if err := plugin.StartAll(plugins...); err != nil {
		return err
	}
	i.blockStore = blockStore
	i.metadata = metadataStore
	i.plugins = plugins
	return nil
}

// State returns the contract state. It is not synchronized with block
// ingestion.
func (i *Indexer) State() *ledger.State {
	return i.state
}

// EventBus returns the bus chain and ledger events are published on
func (i *Indexer) EventBus() *event.EventBus {
	return i.eventBus
}

// Query returns the read root without taking the lock. Use View unless the
// caller already serializes with block ingestion.
func (i *Indexer) Query() *query.Query {
	return i.query
}

// View runs fn with the read lock held
func (i *Indexer) View(fn func(*query.Query) error) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return fn(i.query)
}

func (i *Indexer) Status() Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	ret := Status{
		Irreversible: i.log.Irreversible(),
		LogBlocks:    i.log.Len(),
		UndoCount:    i.db.UndoCount(),
		Revision:     i.db.Revision(),
		Tables:       i.db.TableStats(),
	}
	if head := i.log.Head(); head != nil {
		ret.Head = head.Num
		ret.HeadID = head.ID.String()
	}
	return ret
}

// AddBlock verifies the block id, links the block into the log, undoes any
// blocks it replaces and replays its actions. An unlinkable block is returned
// with an error wrapping chain.ErrUnlinkableBlock, and a duplicate is a no-op.
func (i *Indexer) AddBlock(
	ctx context.Context,
	b *chain.Block,
	sourceIrreversible uint32,
) (AddResult, error) {
	ctx, span := i.tracer.Start(
		ctx,
		"AddBlock",
		trace.WithAttributes(
			attribute.Int64("block.num", int64(b.Num)),
			attribute.Int64("block.source_num", int64(b.Source.Num)),
		),
	)
	defer span.End()
	computed, err := b.ComputeID(i.config.hashFunc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return AddResult{}, err
	}
	if computed != b.ID {
		err := chain.NewBlockIDMismatchError(
			b.Num,
			b.ID.String(),
			computed.String(),
		)
		span.SetStatus(codes.Error, err.Error())
		return AddResult{}, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	ret, err := i.addBlock(ctx, b, sourceIrreversible)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("block.status", ret.Status.String()))
	return ret, err
}

// AddSourceBlock wraps a source chain block in a new block that follows the
// logged block built from the newest earlier source block
func (i *Indexer) AddSourceBlock(
	ctx context.Context,
	src chain.SourceBlock,
	sourceIrreversible uint32,
) (AddResult, error) {
	ctx, span := i.tracer.Start(
		ctx,
		"AddSourceBlock",
		trace.WithAttributes(
			attribute.Int64("block.source_num", int64(src.Num)),
		),
	)
	defer span.End()
	i.mu.Lock()
	defer i.mu.Unlock()
	b := &chain.Block{
		Num:    1,
		Source: src,
	}
	if prev := i.log.BlockBeforeSourceNum(src.Num); prev != nil {
		b.Num = prev.Num + 1
		b.Previous = prev.ID
	}
	id, err := b.ComputeID(i.config.hashFunc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return AddResult{}, err
	}
	b.ID = id
	ret, err := i.addBlock(ctx, b, sourceIrreversible)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("block.status", ret.Status.String()))
	return ret, err
}

func (i *Indexer) addBlock(
	ctx context.Context,
	b *chain.Block,
	sourceIrreversible uint32,
) (AddResult, error) {
	ret := AddResult{Block: b}
	status, forked := i.log.AddBlock(b)
	ret.Status = status
	i.metrics.blocksTotal.WithLabelValues(status.String()).Inc()
	switch status {
	case chain.StatusDuplicate:
		ret.Irreversible = i.log.Irreversible()
		return ret, nil
	case chain.StatusUnlinkable:
		ret.Irreversible = i.log.Irreversible()
		var parentHash string
		if parent := i.log.BlockByNum(b.Num - 1); parent != nil {
			parentHash = parent.ID.String()
		}
		return ret, chain.NewBlockNotFitChainError(
			b.Num,
			b.Previous.String(),
			parentHash,
		)
	}
	ret.Forked = forked
	i.undoBlocks(forked)
	prevIrreversible := i.log.Irreversible()
	ret.Irreversible = i.log.SetIrreversible(sourceIrreversible)
	faults, err := i.applyBlock(b)
	if err != nil {
		return ret, err
	}
	ret.Faults = faults
	if err := i.persistBlock(ctx, b, faults); err != nil {
		return ret, err
	}
	if ret.Irreversible > prevIrreversible {
		if err := i.irreversibleAdvanced(ret.Irreversible); err != nil {
			return ret, err
		}
	}
	i.config.logger.Debug(
		"added block",
		"component", "indexer",
		"num", b.Num,
		"id", b.ID.String(),
		"source_num", b.Source.Num,
		"status", status.String(),
		"forked", forked,
		"faults", len(faults),
		"irreversible", ret.Irreversible,
	)
	if forked > 0 {
		i.config.logger.Info(
			"fork resolved",
			"component", "indexer",
			"fork_point", b.Num-1,
			"depth", forked,
			"new_head", b.ID.String(),
		)
		i.eventBus.Publish(
			chain.ForkEventType,
			event.NewEvent(
				chain.ForkEventType,
				chain.ForkEvent{
					ForkPoint: b.Num - 1,
					ForkDepth: forked,
					NewHead:   b.ID,
				},
			),
		)
	}
	for _, fault := range faults {
		i.eventBus.Publish(
			ledger.ReplayFaultEventType,
			event.NewEvent(
				ledger.ReplayFaultEventType,
				ledger.ReplayFaultEvent{Fault: fault},
			),
		)
	}
	i.eventBus.Publish(
		chain.BlockAppliedEventType,
		event.NewEvent(
			chain.BlockAppliedEventType,
			chain.BlockAppliedEvent{
				Num:       b.Num,
				ID:        b.ID,
				SourceNum: b.Source.Num,
				Actions:   b.ActionCount(),
				Faults:    len(faults),
			},
		),
	)
	i.updateMetrics()
	return ret, nil
}

// applyBlock commits every state the log can no longer undo, then replays the
// block in a new state. The state stays on the undo stack when the block is
// above the irreversible block, otherwise it becomes permanent at once.
func (i *Indexer) applyBlock(b *chain.Block) ([]ledger.ReplayFault, error) {
	start := time.Now()
	irreversible := i.log.Irreversible()
	i.db.Commit(int64(irreversible))
	revocable := b.Num > irreversible
	session := i.db.StartUndoSession(revocable)
	defer session.Close()
	faults := i.state.ApplyBlock(b)
	session.Push()
	if !revocable {
		if err := i.db.SetRevision(int64(b.Num)); err != nil {
			return faults, fmt.Errorf("set revision for block %d: %w", b.Num, err)
		}
	}
	i.metrics.applySeconds.Observe(time.Since(start).Seconds())
	return faults, nil
}

// undoBlocks reverts the states of the newest count blocks
func (i *Indexer) undoBlocks(count int) {
	if count == 0 {
		return
	}
	for range count {
		i.db.Undo()
	}
	i.metrics.forkedBlocks.Add(float64(count))
	i.config.logger.Debug(
		"undid blocks",
		"component", "indexer",
		"count", count,
		"remaining", i.log.Len(),
	)
}

func (i *Indexer) persistBlock(
	ctx context.Context,
	b *chain.Block,
	faults []ledger.ReplayFault,
) error {
	if i.blockStore == nil {
		return nil
	}
	_, span := i.tracer.Start(ctx, "persistBlock")
	defer span.End()
	if err := i.blockStore.PutBlock(b); err != nil {
		return fmt.Errorf("failed to archive block %d: %w", b.Num, err)
	}
	header := models.NewBlockHeader(b, len(faults))
	faultModels := make([]models.ReplayFault, 0, len(faults))
	for _, fault := range faults {
		faultModels = append(faultModels, models.NewReplayFault(fault))
	}
	if err := i.metadata.SetBlock(&header, faultModels); err != nil {
		return fmt.Errorf("failed to store block %d metadata: %w", b.Num, err)
	}
	if err := i.metadata.SetSyncState(
		syncStateHead,
		strconv.FormatUint(uint64(b.Num), 10),
	); err != nil {
		return err
	}
	return nil
}

// irreversibleAdvanced commits the states below the new irreversible block
// and records it
func (i *Indexer) irreversibleAdvanced(irreversible uint32) error {
	i.db.Commit(int64(irreversible))
	if i.blockStore != nil {
		if err := i.blockStore.SetIrreversible(irreversible); err != nil {
			return fmt.Errorf("failed to store irreversible block: %w", err)
		}
		if err := i.metadata.SetSyncState(
			syncStateIrreversible,
			strconv.FormatUint(uint64(irreversible), 10),
		); err != nil {
			return err
		}
	}
	if i.config.autoTrim {
		i.log.Trim()
	}
	i.eventBus.Publish(
		chain.IrreversibleEventType,
		event.NewEvent(
			chain.IrreversibleEventType,
			chain.IrreversibleEvent{Num: irreversible},
		),
	)
	return nil
}

// SetIrreversible raises the irreversible block to the newest logged block
// built from a source block at or below sourceNum
func (i *Indexer) SetIrreversible(sourceNum uint32) (uint32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	prev := i.log.Irreversible()
	ret := i.log.SetIrreversible(sourceNum)
	return ret, i.afterSetIrreversible(prev, ret)
}

// SetIrreversibleNum raises the irreversible block to num, clamped to the
// head of the log
func (i *Indexer) SetIrreversibleNum(num uint32) (uint32, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	prev := i.log.Irreversible()
	ret := i.log.SetIrreversibleNum(num)
	return ret, i.afterSetIrreversible(prev, ret)
}

func (i *Indexer) afterSetIrreversible(prev, irreversible uint32) error {
	if irreversible <= prev {
		return nil
	}
	err := i.irreversibleAdvanced(irreversible)
	i.updateMetrics()
	return err
}

// TrimBlocks drops irreversible blocks from the in-memory log and returns
// how many were dropped
func (i *Indexer) TrimBlocks() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	ret := i.log.Trim()
	i.updateMetrics()
	return ret
}

// UndoBlockNum drops and undoes every block after num
func (i *Indexer) UndoBlockNum(num uint32) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.undoTo(num)
}

// UndoSourceNum drops and undoes the block built from the source block with
// this num and every block after it. It does nothing if no logged block was
// built from that source block.
func (i *Indexer) UndoSourceNum(sourceNum uint32) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	b := i.log.BlockBySourceNum(sourceNum)
	if b == nil {
		return 0, nil
	}
	return i.undoTo(b.Num - 1)
}

func (i *Indexer) undoTo(target uint32) (int, error) {
	count, err := i.log.Undo(target)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	i.undoBlocks(count)
	if i.blockStore != nil {
		if _, err := i.blockStore.DeleteFrom(target + 1); err != nil {
			return count, fmt.Errorf("failed to remove archived blocks: %w", err)
		}
		if err := i.metadata.DeleteBlocksFrom(target + 1); err != nil {
			return count, err
		}
		if err := i.metadata.SetSyncState(
			syncStateHead,
			strconv.FormatUint(uint64(target), 10),
		); err != nil {
			return count, err
		}
	}
	i.eventBus.Publish(
		chain.RollbackEventType,
		event.NewEvent(
			chain.RollbackEventType,
			chain.RollbackEvent{Num: target, Count: count},
		),
	)
	i.updateMetrics()
	return count, nil
}

// GetBlock returns a block from the log, or from the block archive once it
// has been trimmed from the log
func (i *Indexer) GetBlock(num uint32) (*chain.Block, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	// The oldest block of a trimmed log has lost its transactions
	if first := i.log.First(); first != nil && (num > first.Num || num == 1) {
		if b := i.log.BlockByNum(num); b != nil {
			return b, nil
		}
	}
	if i.blockStore != nil {
		return i.blockStore.Block(num)
	}
	if b := i.log.BlockByNum(num); b != nil {
		return b, nil
	}
	return nil, chain.ErrBlockNotFound
}

// BlockHeaders returns up to limit stored block headers from block num from
func (i *Indexer) BlockHeaders(from uint32, limit int) ([]models.BlockHeader, error) {
	if i.metadata == nil {
		return nil, ErrNoMetadataStore
	}
	return i.metadata.GetBlockHeaders(from, limit)
}

// Faults returns up to limit stored replay faults from block num from
func (i *Indexer) Faults(from uint32, limit int) ([]models.ReplayFault, error) {
	if i.metadata == nil {
		return nil, ErrNoMetadataStore
	}
	return i.metadata.GetReplayFaults(from, limit)
}

// Reset empties the contract tables, the block log and the persistent
// stores. It cannot be undone.
func (i *Indexer) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.db.Reset()
	i.log.Reset()
	var err error
	if i.blockStore != nil {
		err = errors.Join(
			i.blockStore.Reset(),
			i.metadata.Reset(),
		)
	}
	i.config.logger.Info(
		"reset all state",
		"component", "indexer",
	)
	i.eventBus.Publish(
		chain.ResetEventType,
		event.NewEvent(chain.ResetEventType, chain.ResetEvent{}),
	)
	i.state.UpdateMetrics()
	i.updateMetrics()
	return err
}

// Load rebuilds the block log and contract state from the block archive and
// returns the number of blocks replayed. Blocks at or below the archived
// irreversible block are applied without undo states.
func (i *Indexer) Load(ctx context.Context) (int, error) {
	if i.blockStore == nil {
		return 0, nil
	}
	_, span := i.tracer.Start(ctx, "Load")
	defer span.End()
	i.mu.Lock()
	defer i.mu.Unlock()
	irreversible, err := i.blockStore.Irreversible()
	if err != nil {
		return 0, err
	}
	i.db.Reset()
	i.log.Reset()
	count := 0
	err = i.blockStore.IterateBlocks(func(b *chain.Block) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		status, forked := i.log.AddBlock(b)
		if !status.Accepted() || forked > 0 {
			return fmt.Errorf(
				"archived block %d does not extend the block log: %s",
				b.Num,
				status,
			)
		}
		i.log.SetIrreversibleNum(min(irreversible, b.Num))
		if _, err := i.applyBlock(b); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return count, fmt.Errorf("failed to load block archive: %w", err)
	}
	i.db.Commit(int64(i.log.Irreversible()))
	if i.config.autoTrim {
		i.log.Trim()
	}
	i.updateMetrics()
	i.config.logger.Info(
		"loaded block archive",
		"component", "indexer",
		"blocks", count,
		"irreversible", i.log.Irreversible(),
	)
	return count, nil
}

func (i *Indexer) updateMetrics() {
	if head := i.log.Head(); head != nil {
		i.metrics.head.Set(float64(head.Num))
	} else {
		i.metrics.head.Set(0)
	}
	i.metrics.irreversible.Set(float64(i.log.Irreversible()))
	i.metrics.logBlocks.Set(float64(i.log.Len()))
	i.metrics.undoDepth.Set(float64(i.db.UndoCount()))
}

// Stop closes the event bus and the persistent stores and flushes traces
func (i *Indexer) Stop() error {
	var err error
	i.shutdownOnce.Do(func() {
		err = i.shutdown()
	})
	return err
}

func (i *Indexer) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if i.config.shutdownTimeout > 0 {
		shutdownTimeout = i.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	i.config.logger.Debug("starting graceful shutdown", "component", "indexer")

	i.eventBus.Stop()

	// Wait for any in-flight block so the stores close between blocks
	i.mu.Lock()
	err := plugin.StopAll(i.plugins...)
	i.plugins = nil
	i.mu.Unlock()

	// Call registered shutdown functions
	for _, fn := range i.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	i.shutdownFuncs = nil

	i.config.logger.Debug("graceful shutdown complete", "component", "indexer")
	return err
}
