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
	"fmt"

	"github.com/blinklabs-io/microchain/database/keys"
)

// ID is the identity the table assigns a record on insert
type ID uint64

// Row is a stored record together with its identity. Rows returned by a table
// must only be changed through Table.Modify.
type Row[T any] struct {
	ID    ID
	Value T
}

// IndexSpec declares a unique ordering of a table's records
type IndexSpec[T any] struct {
	Name string
	Key  func(*Row[T]) keys.Key
}

type table interface {
	Name() string
	Len() int
	reset()
}

type Table[T any] struct {
	db      *Database
	name    string
	clone   func(T) T
	rows    map[ID]*Row[T]
	byID    *Index
	specs   []IndexSpec[T]
	indexes []*Index
	nextID  ID
}

func byIDKey[T any](r *Row[T]) keys.Key {
	return keys.Uint64(uint64(r.ID))
}

// NewTable registers a table with the database. The clone function must return
// a deep copy of a record and is used to snapshot records before they are
// modified. A nil clone copies the record by value.
func NewTable[T any](
	db *Database,
	name string,
	clone func(T) T,
	specs ...IndexSpec[T],
) *Table[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	t := &Table[T]{
		db:    db,
		name:  name,
		clone: clone,
		rows:  make(map[ID]*Row[T]),
		byID:  newIndex(name, IndexById),
		specs: append(
			[]IndexSpec[T]{{Name: IndexById, Key: byIDKey[T]}},
			specs...,
		),
	}
	t.indexes = append(t.indexes, t.byID)
	for _, spec := range specs {
		if spec.Name == IndexById {
			panic(fmt.Sprintf("table %s: index name %s is reserved", name, IndexById))
		}
		t.indexes = append(t.indexes, newIndex(name, spec.Name))
	}
	db.register(t)
	return t
}

func (t *Table[T]) Name() string {
	return t.name
}

func (t *Table[T]) Len() int {
	return len(t.rows)
}

// Index returns the named index. Unknown names are a programming error and
// panic.
func (t *Table[T]) Index(name string) *Index {
	for _, idx := range t.indexes {
		if idx.name == name {
			return idx
		}
	}
	panic(fmt.Sprintf("table %s has no index %s", t.name, name))
}

// Get returns the record with the given identity
func (t *Table[T]) Get(id ID) (*Row[T], bool) {
	row, ok := t.rows[id]
	return row, ok
}

// Find returns the record with exactly this key on the named index, if any
func (t *Table[T]) Find(index string, key keys.Key) (*Row[T], bool) {
	id, ok := t.Index(index).Find(key)
	if !ok {
		return nil, false
	}
	return t.rows[id], true
}

// MustFind is Find for records that are required to exist
func (t *Table[T]) MustFind(index string, key keys.Key) (*Row[T], error) {
	row, ok := t.Find(index, key)
	if !ok {
		return nil, NewMissingRecordError(t.name, index, key)
	}
	return row, nil
}

// LowerBound returns the first record with a key >= key on the named index
func (t *Table[T]) LowerBound(index string, key keys.Key) (*Row[T], bool) {
	_, id, ok := t.Index(index).LowerBound(key)
	if !ok {
		return nil, false
	}
	return t.rows[id], true
}

// UpperBound returns the first record with a key > key on the named index
func (t *Table[T]) UpperBound(index string, key keys.Key) (*Row[T], bool) {
	_, id, ok := t.Index(index).UpperBound(key)
	if !ok {
		return nil, false
	}
	return t.rows[id], true
}

// Last returns the record with the greatest key on the named index
func (t *Table[T]) Last(index string) (*Row[T], bool) {
	_, id, ok := t.Index(index).Last()
	if !ok {
		return nil, false
	}
	return t.rows[id], true
}

// Ascend calls fn for every record with low <= key < high on the named
// index. Nil bounds are open. Iteration stops when fn returns false. The
// table must not be changed from inside fn.
func (t *Table[T]) Ascend(
	index string,
	low keys.Key,
	high keys.Key,
	fn func(*Row[T]) bool,
) {
	t.Index(index).Ascend(low, high, func(_ keys.Key, id ID) bool {
		return fn(t.rows[id])
	})
}

// Rows returns every record in identity order
func (t *Table[T]) Rows() []*Row[T] {
	ret := make([]*Row[T], 0, len(t.rows))
	t.byID.Ascend(nil, nil, func(_ keys.Key, id ID) bool {
		ret = append(ret, t.rows[id])
		return true
	})
	return ret
}

// Insert adds a new record built by fn. It panics with a UniqueViolationError
// if the record collides with an existing one on any index.
func (t *Table[T]) Insert(fn func(*T)) *Row[T] {
	row := &Row[T]{ID: t.nextID}
	fn(&row.Value)
	for i, spec := range t.specs {
		key := spec.Key(row)
		if _, ok := t.indexes[i].has(key); ok {
			panic(t.uniqueViolation(i, key))
		}
	}
	t.putRow(row)
	t.nextID++
	t.db.record(func() {
		t.dropRow(row)
		t.nextID = row.ID
	})
	return row
}

// Modify changes a record in place. If the change would collide with another
// record on any index, the record is left unchanged and Modify panics with a
// UniqueViolationError.
func (t *Table[T]) Modify(row *Row[T], fn func(*T)) {
	t.mustContain(row)
	prior := t.clone(row.Value)
	oldKeys := t.keysOf(row)
	fn(&row.Value)
	newKeys := t.keysOf(row)
	for i, key := range newKeys {
		if bytes.Equal(key, oldKeys[i]) {
			continue
		}
		if _, ok := t.indexes[i].has(key); ok {
			row.Value = prior
			panic(t.uniqueViolation(i, key))
		}
	}
	for i, key := range newKeys {
		if bytes.Equal(key, oldKeys[i]) {
			continue
		}
		t.indexes[i].delete(oldKeys[i])
		t.indexes[i].set(key, row.ID)
	}
	t.db.record(func() {
		t.restore(row.ID, prior)
	})
}

// Remove deletes a record
func (t *Table[T]) Remove(row *Row[T]) {
	t.mustContain(row)
	t.dropRow(row)
	t.db.record(func() {
		t.putRow(row)
	})
}

// Clear removes every record. Unlike a reset, this is recorded on the undo
// stack and keeps the identity counter.
func (t *Table[T]) Clear() {
	for _, row := range t.Rows() {
		t.Remove(row)
	}
}

func (t *Table[T]) mustContain(row *Row[T]) {
	if row == nil || t.rows[row.ID] != row {
		panic(fmt.Sprintf("table %s: row is not stored in this table", t.name))
	}
}

func (t *Table[T]) keysOf(row *Row[T]) []keys.Key {
	ret := make([]keys.Key, len(t.specs))
	for i, spec := range t.specs {
		ret[i] = spec.Key(row)
	}
	return ret
}

func (t *Table[T]) putRow(row *Row[T]) {
	t.rows[row.ID] = row
	for i, spec := range t.specs {
		t.indexes[i].set(spec.Key(row), row.ID)
	}
}

func (t *Table[T]) dropRow(row *Row[T]) {
	for i, spec := range t.specs {
		t.indexes[i].delete(spec.Key(row))
	}
	delete(t.rows, row.ID)
}

func (t *Table[T]) restore(id ID, prior T) {
	row := t.rows[id]
	for i, spec := range t.specs {
		t.indexes[i].delete(spec.Key(row))
	}
	row.Value = prior
	for i, spec := range t.specs {
		t.indexes[i].set(spec.Key(row), row.ID)
	}
}

func (t *Table[T]) uniqueViolation(idx int, key keys.Key) UniqueViolationError {
	return UniqueViolationError{
		table: t.name,
		index: t.indexes[idx].name,
		key:   key,
	}
}

// reset drops every record and the identity counter without touching the
// undo stack
func (t *Table[T]) reset() {
	clear(t.rows)
	for _, idx := range t.indexes {
		idx.clear()
	}
	t.nextID = 0
}
