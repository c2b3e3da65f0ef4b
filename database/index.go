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

package database

import (
	"bytes"

	"github.com/blinklabs-io/microchain/database/keys"
	"github.com/google/btree"
)

const (
	IndexById  = "by_id"
	btreeOrder = 32
)

type indexEntry struct {
	key keys.Key
	id  ID
}

func indexEntryLess(a, b indexEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// Index is one unique ordering of a table's records. It maps keys to record
// ids and never holds the records themselves.
type Index struct {
	table string
	name  string
	tree  *btree.BTreeG[indexEntry]
}

func newIndex(table string, name string) *Index {
	return &Index{
		table: table,
		name:  name,
		tree:  btree.NewG(btreeOrder, indexEntryLess),
	}
}

func (i *Index) Name() string {
	return i.name
}

func (i *Index) Table() string {
	return i.table
}

func (i *Index) Len() int {
	return i.tree.Len()
}

// Find returns the id of the record with exactly this key
func (i *Index) Find(key keys.Key) (ID, bool) {
	entry, ok := i.tree.Get(indexEntry{key: key})
	if !ok {
		return 0, false
	}
	return entry.id, true
}

// LowerBound returns the first entry with a key >= key
func (i *Index) LowerBound(key keys.Key) (keys.Key, ID, bool) {
	var ret indexEntry
	found := false
	i.tree.AscendGreaterOrEqual(
		indexEntry{key: key},
		func(item indexEntry) bool {
			ret = item
			found = true
			return false
		},
	)
	return ret.key, ret.id, found
}

// UpperBound returns the first entry with a key > key
func (i *Index) UpperBound(key keys.Key) (keys.Key, ID, bool) {
	return i.LowerBound(keys.Successor(key))
}

// Last returns the entry with the greatest key
func (i *Index) Last() (keys.Key, ID, bool) {
	entry, ok := i.tree.Max()
	return entry.key, entry.id, ok
}

// Ascend calls fn for each entry with low <= key < high in ascending order.
// A nil bound is open.
func (i *Index) Ascend(
	low keys.Key,
	high keys.Key,
	fn func(key keys.Key, id ID) bool,
) {
	iter := func(item indexEntry) bool {
		if high != nil && bytes.Compare(item.key, high) >= 0 {
			return false
		}
		return fn(item.key, item.id)
	}
	if low == nil {
		i.tree.Ascend(iter)
		return
	}
	i.tree.AscendGreaterOrEqual(indexEntry{key: low}, iter)
}

// Descend calls fn for each entry with low <= key < high in descending order.
// A nil bound is open.
func (i *Index) Descend(
	low keys.Key,
	high keys.Key,
	fn func(key keys.Key, id ID) bool,
) {
	iter := func(item indexEntry) bool {
		if low != nil && bytes.Compare(item.key, low) < 0 {
			return false
		}
		return fn(item.key, item.id)
	}
	if high == nil {
		i.tree.Descend(iter)
		return
	}
	i.tree.DescendLessOrEqual(
		indexEntry{key: high},
		func(item indexEntry) bool {
			// The upper bound is exclusive
			if bytes.Equal(item.key, high) {
				return true
			}
			return iter(item)
		},
	)
}

// Any reports whether at least one entry has low <= key < high
func (i *Index) Any(low keys.Key, high keys.Key) bool {
	found := false
	i.Ascend(low, high, func(keys.Key, ID) bool {
		found = true
		return false
	})
	return found
}

func (i *Index) has(key keys.Key) (ID, bool) {
	return i.Find(key)
}

func (i *Index) set(key keys.Key, id ID) {
	i.tree.ReplaceOrInsert(indexEntry{key: key, id: id})
}

func (i *Index) delete(key keys.Key) {
	i.tree.Delete(indexEntry{key: key})
}

func (i *Index) clear() {
	i.tree.Clear(false)
}
