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

package ledger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/database"
	"github.com/blinklabs-io/microchain/types"
	"github.com/prometheus/client_golang/prometheus"
)

type StateConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// Contract is the account whose actions are replayed
	Contract types.Name
}

// State applies contract actions to the contract tables
type State struct {
	config   StateConfig
	db       *database.Database
	tables   *Tables
	contract types.Name
	metrics  stateMetrics
}

// NewState registers the contract tables with db
func NewState(db *database.Database, cfg StateConfig) (*State, error) {
	if cfg.Contract.IsEmpty() {
		return nil, errors.New("contract account must be set")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &State{
		config:   cfg,
		db:       db,
		tables:   NewTables(db),
		contract: cfg.Contract,
	}
	s.metrics.init(cfg.PromRegistry)
	return s, nil
}

func (s *State) Contract() types.Name {
	return s.contract
}

func (s *State) Database() *database.Database {
	return s.db
}

func (s *State) Tables() *Tables {
	return s.tables
}

// ApplyBlock replays every contract action in the block, in order. Each
// action runs in its own nested undo session: an action that fails has its
// changes undone and is reported as a fault, and the block carries on.
func (s *State) ApplyBlock(b *chain.Block) []ReplayFault {
	var faults []ReplayFault
	for _, tx := range b.Source.Transactions {
		for idx, action := range tx.Actions {
			if action.FirstReceiver != s.contract {
				continue
			}
			def, ok := actionDefs[action.Name]
			if !ok {
				continue
			}
			s.metrics.actionsTotal.WithLabelValues(action.Name.String()).Inc()
			if err := s.applyAction(def, action); err != nil {
				fault := ReplayFault{
					BlockNum:       b.Num,
					SourceBlockNum: b.Source.Num,
					TransactionID:  tx.ID,
					ActionIndex:    idx,
					Action:         action.Name,
					Err:            err,
				}
				s.config.Logger.Warn(
					"action replay failed",
					"component", "ledger",
					"block", b.Num,
					"source_block", b.Source.Num,
					"transaction", tx.ID.String(),
					"action_index", idx,
					"action", action.Name.String(),
					"error", err,
				)
				s.metrics.faultsTotal.WithLabelValues(action.Name.String()).Inc()
				faults = append(faults, fault)
			}
		}
	}
	s.metrics.blockNum.Set(float64(b.Num))
	s.UpdateMetrics()
	return faults
}

func (s *State) applyAction(def actionDef, action chain.Action) (err error) {
	params, err := def.fromCBOR(action.Data)
	if err != nil {
		return fmt.Errorf("decode %s parameters: %w", action.Name, err)
	}
	session := s.db.StartUndoSession(true)
	defer session.Close()
	defer func() {
		if r := recover(); r != nil {
			if rErr, ok := r.(error); ok {
				err = fmt.Errorf("%s: %w", action.Name, rErr)
				return
			}
			err = fmt.Errorf("%s: %v", action.Name, r)
		}
	}()
	if err := def.apply(s, params); err != nil {
		return err
	}
	session.Squash()
	return nil
}

// UpdateMetrics refreshes the table size gauges
func (s *State) UpdateMetrics() {
	s.metrics.members.Set(float64(s.tables.Members.Len()))
	s.metrics.inductions.Set(float64(s.tables.Inductions.Len()))
}
