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

package chain

import (
	"github.com/blinklabs-io/microchain/event"
	"github.com/blinklabs-io/microchain/types"
)

const (
	BlockAppliedEventType event.EventType = "chain.block-applied"
	RollbackEventType     event.EventType = "chain.rollback"
	ForkEventType         event.EventType = "chain.fork-detected"
	IrreversibleEventType event.EventType = "chain.irreversible"
	ResetEventType        event.EventType = "chain.reset"
)

type BlockAppliedEvent struct {
	Num       uint32
	ID        types.Checksum256
	SourceNum uint32
	Actions   int
	Faults    int
}

// RollbackEvent is emitted when blocks are removed from the log and their
// state changes undone
type RollbackEvent struct {
	// Num is the new head block number
	Num   uint32
	Count int
}

// ForkEvent is emitted when a new block replaces blocks already in the log
type ForkEvent struct {
	// ForkPoint is the last block shared by both branches
	ForkPoint uint32
	// ForkDepth is the number of blocks dropped from the old branch
	ForkDepth int
	NewHead   types.Checksum256
}

type IrreversibleEvent struct {
	Num uint32
}

type ResetEvent struct{}
