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
	"crypto/sha256"
	"fmt"

	"github.com/blinklabs-io/microchain/types"
	"github.com/fxamacker/cbor/v2"
)

// HashFunc computes a block id from the block's canonical encoding
type HashFunc func([]byte) types.Checksum256

// Sha256 is the default HashFunc
func Sha256(data []byte) types.Checksum256 {
	return types.Checksum256(sha256.Sum256(data))
}

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Action is a contract action as it appeared on the source chain. Data holds
// the CBOR encoding of the action's parameters.
type Action struct {
	_             struct{}   `cbor:",toarray"`
	FirstReceiver types.Name `json:"firstReceiver"`
	Receiver      types.Name `json:"receiver"`
	Name          types.Name `json:"name"`
	Data          []byte     `json:"data"`
}

type Transaction struct {
	_       struct{}          `cbor:",toarray"`
	ID      types.Checksum256 `json:"id"`
	Actions []Action          `json:"actions"`
}

// SourceBlock is the part of a source chain block this log cares about
type SourceBlock struct {
	_            struct{}             `cbor:",toarray"`
	Num          uint32               `json:"num"`
	ID           types.Checksum256    `json:"id"`
	Previous     types.Checksum256    `json:"previous"`
	Timestamp    types.BlockTimestamp `json:"timestamp"`
	Transactions []Transaction        `json:"transactions"`
}

// Block is an entry in the block log. Its num and previous are assigned by
// this log and are independent of the source chain's numbering.
type Block struct {
	_        struct{}          `cbor:",toarray"`
	Num      uint32            `json:"num"`
	ID       types.Checksum256 `json:"id"`
	Previous types.Checksum256 `json:"previous"`
	Source   SourceBlock       `json:"source"`
}

// blockContent is what the block id commits to
type blockContent struct {
	_        struct{} `cbor:",toarray"`
	Num      uint32
	Previous types.Checksum256
	Source   SourceBlock
}

// ComputeID hashes the canonical encoding of everything in the block except
// its id. A nil hash uses SHA-256.
func (b *Block) ComputeID(hash HashFunc) (types.Checksum256, error) {
	if hash == nil {
		hash = Sha256
	}
	data, err := encMode.Marshal(
		blockContent{
			Num:      b.Num,
			Previous: b.Previous,
			Source:   b.Source,
		},
	)
	if err != nil {
		return types.Checksum256{}, fmt.Errorf("encode block %d: %w", b.Num, err)
	}
	return hash(data), nil
}

// ActionCount returns the number of actions across all transactions
func (b *Block) ActionCount() int {
	ret := 0
	for _, tx := range b.Source.Transactions {
		ret += len(tx.Actions)
	}
	return ret
}

// stripped returns a copy of the block without its transactions
func (b *Block) stripped() *Block {
	ret := *b
	ret.Source.Transactions = nil
	return &ret
}

// Encode returns the canonical CBOR encoding of the block, including its id
func (b *Block) Encode() ([]byte, error) {
	return encMode.Marshal(b)
}

// DecodeBlock is the inverse of Block.Encode
func DecodeBlock(data []byte) (*Block, error) {
	var ret Block
	if err := cbor.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	return &ret, nil
}
