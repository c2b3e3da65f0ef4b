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
	"errors"
	"fmt"
)

var (
	ErrBlockNotFound         = errors.New("block not found")
	ErrUnlinkableBlock       = errors.New("block does not link to the block log")
	ErrDuplicateBlock        = errors.New("block is already in the block log")
	ErrBlockIDMismatch       = errors.New("block id does not match its contents")
	ErrForkBelowIrreversible = errors.New(
		"cannot undo blocks at or below the irreversible block",
	)
)

type BlockNotFitChainError struct {
	blockNum      uint32
	blockPrevHash string
	parentHash    string
}

func NewBlockNotFitChainError(
	blockNum uint32,
	blockPrevHash string,
	parentHash string,
) BlockNotFitChainError {
	return BlockNotFitChainError{
		blockNum:      blockNum,
		blockPrevHash: blockPrevHash,
		parentHash:    parentHash,
	}
}

func (e BlockNotFitChainError) BlockNum() uint32 {
	return e.blockNum
}

func (e BlockNotFitChainError) BlockPrevHash() string {
	return e.blockPrevHash
}

// ParentHash is the id of the logged block the new block should have linked
// to, or empty if there is no such block
func (e BlockNotFitChainError) ParentHash() string {
	return e.parentHash
}

func (e BlockNotFitChainError) Error() string {
	if e.parentHash == "" {
		return fmt.Sprintf(
			"block %d with prev hash %s has no parent in the block log",
			e.blockNum,
			e.blockPrevHash,
		)
	}
	return fmt.Sprintf(
		"block %d with prev hash %s does not fit on logged block hash %s",
		e.blockNum,
		e.blockPrevHash,
		e.parentHash,
	)
}

func (e BlockNotFitChainError) Unwrap() error {
	return ErrUnlinkableBlock
}

type BlockIDMismatchError struct {
	blockNum     uint32
	claimedHash  string
	computedHash string
}

func NewBlockIDMismatchError(
	blockNum uint32,
	claimedHash string,
	computedHash string,
) BlockIDMismatchError {
	return BlockIDMismatchError{
		blockNum:     blockNum,
		claimedHash:  claimedHash,
		computedHash: computedHash,
	}
}

func (e BlockIDMismatchError) Error() string {
	return fmt.Sprintf(
		"block %d claims id %s but hashes to %s",
		e.blockNum,
		e.claimedHash,
		e.computedHash,
	)
}

func (e BlockIDMismatchError) Unwrap() error {
	return ErrBlockIDMismatch
}
