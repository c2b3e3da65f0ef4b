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
	"github.com/blinklabs-io/microchain/chain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultBlockLRUEntries is the number of decoded blocks kept in memory
const DefaultBlockLRUEntries = 256

// blockLRUCache is an LRU cache of decoded blocks keyed by block number.
// Cached blocks are shared and must not be modified. A nil cache is disabled.
type blockLRUCache struct {
	cache *lru.Cache[uint32, *chain.Block]
}

// newBlockLRUCache creates a cache holding up to maxEntries blocks. A
// negative or zero size disables the cache.
func newBlockLRUCache(maxEntries int) *blockLRUCache {
	if maxEntries <= 0 {
		return &blockLRUCache{}
	}
	// New only fails for a non-positive size
	cache, _ := lru.New[uint32, *chain.Block](maxEntries)
	return &blockLRUCache{cache: cache}
}

// Get returns the cached block and marks it as recently used
func (c *blockLRUCache) Get(num uint32) (*chain.Block, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(num)
}

// Put adds or replaces a block, evicting the least recently used block when
// the cache is full
func (c *blockLRUCache) Put(b *chain.Block) {
	if c.cache == nil {
		return
	}
	c.cache.Add(b.Num, b)
}

// RemoveFrom drops every cached block numbered num or higher
func (c *blockLRUCache) RemoveFrom(num uint32) {
	if c.cache == nil {
		return
	}
	if num == 0 {
		c.cache.Purge()
		return
	}
	for _, key := range c.cache.Keys() {
		if key >= num {
			c.cache.Remove(key)
		}
	}
}

func (c *blockLRUCache) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
