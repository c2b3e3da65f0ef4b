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

package models

import (
	"time"

	"github.com/blinklabs-io/microchain/chain"
	"github.com/blinklabs-io/microchain/ledger"
)

// BlockHeader is the summary of an accepted block
type BlockHeader struct {
	ID               uint   `gorm:"primarykey"`
	Num              uint32 `gorm:"uniqueIndex;not null"`
	Hash             []byte `gorm:"size:32;not null"`
	PrevHash         []byte `gorm:"size:32"`
	SourceNum        uint32 `gorm:"index;not null"`
	SourceID         []byte `gorm:"size:32"`
	SourceTimestamp  uint32
	TransactionCount int
	ActionCount      int
	FaultCount       int
	AddedAt          time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for BlockHeader.
func (BlockHeader) TableName() string {
	return "block_header"
}

// NewBlockHeader summarizes b
func NewBlockHeader(b *chain.Block, faultCount int) BlockHeader {
	return BlockHeader{
		Num:              b.Num,
		Hash:             b.ID.Bytes(),
		PrevHash:         b.Previous.Bytes(),
		SourceNum:        b.Source.Num,
		SourceID:         b.Source.ID.Bytes(),
		SourceTimestamp:  uint32(b.Source.Timestamp),
		TransactionCount: len(b.Source.Transactions),
		ActionCount:      b.ActionCount(),
		FaultCount:       faultCount,
	}
}

// ReplayFault records one contract action that failed during replay
type ReplayFault struct {
	ID             uint   `gorm:"primarykey"`
	BlockNum       uint32 `gorm:"index;not null"`
	SourceBlockNum uint32 `gorm:"not null"`
	TransactionID  []byte `gorm:"size:32"`
	ActionIndex    int
	Action         string `gorm:"size:13;index"`
	Error          string `gorm:"type:text"`
	CreatedAt      time.Time
}

// TableName returns the table name for ReplayFault.
func (ReplayFault) TableName() string {
	return "replay_fault"
}

func NewReplayFault(f ledger.ReplayFault) ReplayFault {
	return ReplayFault{
		BlockNum:       f.BlockNum,
		SourceBlockNum: f.SourceBlockNum,
		TransactionID:  f.TransactionID.Bytes(),
		ActionIndex:    f.ActionIndex,
		Action:         f.Action.String(),
		Error:          f.Err.Error(),
	}
}
