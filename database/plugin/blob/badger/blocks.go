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

package badger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/microchain/chain"
	badger "github.com/dgraph-io/badger/v4"
)

const (
	blockKeyPrefix  = "b"
	irreversibleKey = "m_irreversible"
)

// ErrBlockNotFound is chain.ErrBlockNotFound so callers need not care which
// store missed
var ErrBlockNotFound = chain.ErrBlockNotFound

func blockKey(num uint32) []byte {
	key := make([]byte, len(blockKeyPrefix)+4)
	copy(key, blockKeyPrefix)
	binary.BigEndian.PutUint32(key[len(blockKeyPrefix):], num)
	return key
}

func blockNumFromKey(key []byte) uint32 {
	return binary.BigEndian.Uint32(key[len(blockKeyPrefix):])
}

// deleteFrom removes every block numbered num or higher
func deleteFrom(txn *badger.Txn, num uint32) (int, error) {
	iterOpts := badger.DefaultIteratorOptions
	iterOpts.PrefetchValues = false
	iterOpts.Prefix = []byte(blockKeyPrefix)
	it := txn.NewIterator(iterOpts)
	var doomed [][]byte
	for it.Seek(blockKey(num)); it.ValidForPrefix(iterOpts.Prefix); it.Next() {
		doomed = append(doomed, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, key := range doomed {
		if err := txn.Delete(key); err != nil {
			return 0, err
		}
	}
	return len(doomed), nil
}

// PutBlock stores b as the newest block. Any stored block with the same or a
// higher number belongs to a discarded branch and is removed.
func (s *BlockStore) PutBlock(b *chain.Block) error {
	data, err := b.Encode()
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		removed, err := deleteFrom(txn, b.Num)
		if err != nil {
			return err
		}
		if removed > 0 {
			s.logger.Debug(
				fmt.Sprintf("block store: replaced %d blocks from %d", removed, b.Num),
				"component", "database",
			)
		}
		return txn.Set(blockKey(b.Num), data)
	})
	if err != nil {
		return fmt.Errorf("put block %d: %w", b.Num, err)
	}
	s.blockLRU.RemoveFrom(b.Num)
	s.metrics.opsTotal.WithLabelValues("put").Inc()
	s.metrics.bytesTotal.Add(float64(len(data)))
	return nil
}

// DeleteFrom removes every block numbered num or higher
func (s *BlockStore) DeleteFrom(num uint32) (int, error) {
	var removed int
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		removed, err = deleteFrom(txn, num)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete blocks from %d: %w", num, err)
	}
	s.blockLRU.RemoveFrom(num)
	s.metrics.opsTotal.WithLabelValues("delete").Add(float64(removed))
	return removed, nil
}

// Block returns the stored block with the given number. The returned block
// may be shared with other callers and must not be modified.
func (s *BlockStore) Block(num uint32) (*chain.Block, error) {
	if ret, ok := s.blockLRU.Get(num); ok {
		s.metrics.opsTotal.WithLabelValues("get_cached").Inc()
		return ret, nil
	}
	var ret *chain.Block
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(num))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrBlockNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			ret, err = chain.DecodeBlock(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.opsTotal.WithLabelValues("get").Inc()
	s.blockLRU.Put(ret)
	return ret, nil
}

// IterateBlocks calls fn for every stored block in ascending order. Iteration
// stops at the first error, which is returned.
func (s *BlockStore) IterateBlocks(fn func(*chain.Block) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(blockKeyPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			b, err := chain.DecodeBlock(val)
			if err != nil {
				return fmt.Errorf(
					"decode stored block %d: %w",
					blockNumFromKey(item.Key()),
					err,
				)
			}
			if err := fn(b); err != nil {
				return err
			}
		}
		return nil
	})
}

// Irreversible returns the stored irreversibility watermark, or 0
func (s *BlockStore) Irreversible() (uint32, error) {
	var ret uint32
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(irreversibleKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 4 {
				return fmt.Errorf("invalid irreversible watermark length %d", len(val))
			}
			ret = binary.BigEndian.Uint32(val)
			return nil
		})
	})
	return ret, err
}

func (s *BlockStore) SetIrreversible(num uint32) error {
	val := binary.BigEndian.AppendUint32(nil, num)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(irreversibleKey), val)
	})
}

// Reset removes every stored block and the watermark
func (s *BlockStore) Reset() error {
	s.metrics.opsTotal.WithLabelValues("reset").Inc()
	s.blockLRU.RemoveFrom(0)
	return s.db.DropAll()
}
