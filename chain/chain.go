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
	"sort"
)

const initialBlockNum uint32 = 1

type AddStatus int

const (
	StatusAppended AddStatus = iota
	StatusForked
	StatusDuplicate
	StatusUnlinkable
)

func (s AddStatus) String() string {
	switch s {
	case StatusAppended:
		return "appended"
	case StatusForked:
		return "forked"
	case StatusDuplicate:
		return "duplicate"
	case StatusUnlinkable:
		return "unlinkable"
	}
	return "unknown"
}

// Accepted reports whether the block was added to the log
func (s AddStatus) Accepted() bool {
	return s == StatusAppended || s == StatusForked
}

// BlockLog is the chain of accepted blocks, ordered and contiguous by num.
// It is not safe for concurrent use.
type BlockLog struct {
	blocks       []*Block
	irreversible uint32
}

func NewBlockLog() *BlockLog {
	return &BlockLog{}
}

// Irreversible returns the number of the newest block that can never be
// undone
func (l *BlockLog) Irreversible() uint32 {
	return l.irreversible
}

func (l *BlockLog) Len() int {
	return len(l.blocks)
}

// Blocks returns the logged blocks, oldest first
func (l *BlockLog) Blocks() []*Block {
	return append([]*Block(nil), l.blocks...)
}

// Head returns the newest block, or nil for an empty log
func (l *BlockLog) Head() *Block {
	if len(l.blocks) == 0 {
		return nil
	}
	return l.blocks[len(l.blocks)-1]
}

// First returns the oldest logged block, or nil for an empty log
func (l *BlockLog) First() *Block {
	if len(l.blocks) == 0 {
		return nil
	}
	return l.blocks[0]
}

func (l *BlockLog) first() uint32 {
	return l.blocks[0].Num
}

// AddBlock links a block into the log. A block whose parent is the head is
// appended. A block whose parent is an older logged block replaces everything
// after that parent, and the number of replaced blocks is returned so the
// caller can undo their state changes.
func (l *BlockLog) AddBlock(b *Block) (AddStatus, int) {
	if len(l.blocks) == 0 {
		if b.Num != initialBlockNum {
			return StatusUnlinkable, 0
		}
		l.blocks = append(l.blocks, b)
		return StatusAppended, 0
	}
	head := l.Head()
	// Duplicates are reported even for irreversible blocks so resubmission
	// stays idempotent
	if existing := l.BlockByNum(b.Num); existing != nil &&
		existing.ID == b.ID {
		return StatusDuplicate, 0
	}
	if b.Num <= l.irreversible || b.Num > head.Num+1 {
		return StatusUnlinkable, 0
	}
	if b.Num == initialBlockNum {
		// A new first block replaces the whole log
		forked := len(l.blocks)
		clear(l.blocks)
		l.blocks = append(l.blocks[:0], b)
		return StatusForked, forked
	}
	if b.Num <= l.first() {
		return StatusUnlinkable, 0
	}
	parent := l.blocks[b.Num-1-l.first()]
	if parent.ID != b.Previous {
		return StatusUnlinkable, 0
	}
	if b.Num == head.Num+1 {
		l.blocks = append(l.blocks, b)
		return StatusAppended, 0
	}
	forked := int(head.Num - b.Num + 1)
	l.blocks = append(l.blocks[:b.Num-l.first()], b)
	return StatusForked, forked
}

// Undo drops every block after target and returns how many were dropped
func (l *BlockLog) Undo(target uint32) (int, error) {
	head := l.Head()
	if head == nil || target >= head.Num {
		return 0, nil
	}
	if target < l.irreversible {
		return 0, ErrForkBelowIrreversible
	}
	var keep int
	if target >= l.first() {
		keep = int(target-l.first()) + 1
	}
	count := len(l.blocks) - keep
	clear(l.blocks[keep:])
	l.blocks = l.blocks[:keep]
	return count, nil
}

// SetIrreversible raises the irreversible block to the newest logged block
// whose source block num is at or below sourceNum. It never lowers it.
func (l *BlockLog) SetIrreversible(sourceNum uint32) uint32 {
	if sourceNum == ^uint32(0) {
		return l.SetIrreversibleNum(sourceNum)
	}
	if b := l.BlockBeforeSourceNum(sourceNum + 1); b != nil {
		l.irreversible = max(l.irreversible, b.Num)
	}
	return l.irreversible
}

// SetIrreversibleNum raises the irreversible block to num, clamped to the
// head. It never lowers it.
func (l *BlockLog) SetIrreversibleNum(num uint32) uint32 {
	var b *Block
	if num == ^uint32(0) {
		b = l.Head()
	} else {
		b = l.BlockBeforeNum(num + 1)
	}
	if b != nil {
		l.irreversible = max(l.irreversible, b.Num)
	}
	return l.irreversible
}

// Trim drops every block below the irreversible block. The irreversible
// block itself stays, without its transactions, so the next block can still
// be linked to it.
func (l *BlockLog) Trim() int {
	if len(l.blocks) == 0 || l.irreversible <= l.first() {
		return 0
	}
	drop := int(l.irreversible - l.first())
	clear(l.blocks[:drop])
	l.blocks = l.blocks[drop:]
	l.blocks[0] = l.blocks[0].stripped()
	return drop
}

// Reset empties the log and the irreversible block
func (l *BlockLog) Reset() {
	l.blocks = nil
	l.irreversible = 0
}

// BlockByNum returns the logged block with this num, or nil
func (l *BlockLog) BlockByNum(num uint32) *Block {
	if len(l.blocks) == 0 || num < l.first() || num > l.Head().Num {
		return nil
	}
	return l.blocks[num-l.first()]
}

// BlockBeforeNum returns the newest logged block with a num below num, or nil
func (l *BlockLog) BlockBeforeNum(num uint32) *Block {
	if len(l.blocks) == 0 || num <= l.first() {
		return nil
	}
	if num > l.Head().Num {
		return l.Head()
	}
	return l.blocks[num-1-l.first()]
}

// BlockBySourceNum returns the logged block built from the source block with
// this num, or nil
func (l *BlockLog) BlockBySourceNum(sourceNum uint32) *Block {
	idx := l.searchSourceNum(sourceNum)
	if idx < len(l.blocks) && l.blocks[idx].Source.Num == sourceNum {
		return l.blocks[idx]
	}
	return nil
}

// BlockBeforeSourceNum returns the newest logged block built from a source
// block with a num below sourceNum, or nil
func (l *BlockLog) BlockBeforeSourceNum(sourceNum uint32) *Block {
	idx := l.searchSourceNum(sourceNum)
	if idx == 0 {
		return nil
	}
	return l.blocks[idx-1]
}

// searchSourceNum returns the index of the first block with a source num at
// or above sourceNum. Source nums increase along the log.
func (l *BlockLog) searchSourceNum(sourceNum uint32) int {
	return sort.Search(len(l.blocks), func(i int) bool {
		return l.blocks[i].Source.Num >= sourceNum
	})
}
