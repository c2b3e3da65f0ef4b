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
	"testing"

	"github.com/blinklabs-io/microchain/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockLRUCacheEviction(t *testing.T) {
	c := newBlockLRUCache(2)
	c.Put(&chain.Block{Num: 1})
	c.Put(&chain.Block{Num: 2})
	// Touch 1 so that 2 is the oldest
	_, ok := c.Get(1)
	require.True(t, ok)
	c.Put(&chain.Block{Num: 3})
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)

	replacement := &chain.Block{Num: 3, Previous: [32]byte{1}}
	c.Put(replacement)
	got, ok := c.Get(3)
	require.True(t, ok)
	assert.Same(t, replacement, got)
}

func TestBlockLRUCacheRemoveFrom(t *testing.T) {
	c := newBlockLRUCache(10)
	for num := uint32(1); num <= 5; num++ {
		c.Put(&chain.Block{Num: num})
	}
	c.RemoveFrom(3)
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(3)
	assert.False(t, ok)
	_, ok = c.Get(2)
	assert.True(t, ok)
}

func TestBlockLRUCacheDisabled(t *testing.T) {
	c := newBlockLRUCache(-1)
	c.Put(&chain.Block{Num: 1})
	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
