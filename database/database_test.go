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

package database_test

import (
	"slices"
	"testing"

	"github.com/blinklabs-io/microchain/database"
	"github.com/blinklabs-io/microchain/database/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Name  uint64
	Group uint32
	Tags  []string
}

const (
	indexByName  = "by_name"
	indexByGroup = "by_group"
)

func newTestTable(db *database.Database) *database.Table[testRecord] {
	return database.NewTable(
		db,
		"records",
		func(r testRecord) testRecord {
			r.Tags = slices.Clone(r.Tags)
			return r
		},
		database.IndexSpec[testRecord]{
			Name: indexByName,
			Key: func(r *database.Row[testRecord]) keys.Key {
				return keys.Uint64(r.Value.Name)
			},
		},
		database.IndexSpec[testRecord]{
			Name: indexByGroup,
			Key: func(r *database.Row[testRecord]) keys.Key {
				return keys.New().Uint32(r.Value.Group).Uint64(uint64(r.ID)).Key()
			},
		},
	)
}

func insertName(tbl *database.Table[testRecord], name uint64, group uint32) *database.Row[testRecord] {
	return tbl.Insert(func(r *testRecord) {
		r.Name = name
		r.Group = group
	})
}

func names(tbl *database.Table[testRecord]) []uint64 {
	var ret []uint64
	tbl.Ascend(indexByName, nil, nil, func(r *database.Row[testRecord]) bool {
		ret = append(ret, r.Value.Name)
		return true
	})
	return ret
}

func TestInsertAssignsSequentialIds(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	a := insertName(tbl, 30, 1)
	b := insertName(tbl, 10, 1)
	assert.Equal(t, database.ID(0), a.ID)
	assert.Equal(t, database.ID(1), b.ID)
	assert.Equal(t, []uint64{10, 30}, names(tbl))
	row, ok := tbl.Find(indexByName, keys.Uint64(30))
	require.True(t, ok)
	assert.Equal(t, a, row)
	_, ok = tbl.Find(indexByName, keys.Uint64(20))
	assert.False(t, ok)
	_, err := tbl.MustFind(indexByName, keys.Uint64(20))
	assert.ErrorIs(t, err, database.ErrMissingRecord)
}

func TestUniqueViolationPanicsWithoutChanges(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	insertName(tbl, 1, 1)
	b := insertName(tbl, 2, 1)
	assert.PanicsWithError(
		t,
		"duplicate key 0000000000000001 on unique index records.by_name",
		func() { insertName(tbl, 1, 2) },
	)
	assert.Equal(t, 2, tbl.Len())
	assert.Panics(t, func() {
		tbl.Modify(b, func(r *testRecord) { r.Name = 1 })
	})
	assert.Equal(t, uint64(2), b.Value.Name)
	assert.Equal(t, []uint64{1, 2}, names(tbl))
}

func TestUndoRoundTrip(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	base := insertName(tbl, 5, 0)
	session := db.StartUndoSession(true)
	inserted := insertName(tbl, 7, 0)
	tbl.Modify(inserted, func(r *testRecord) {
		r.Name = 8
		r.Tags = append(r.Tags, "x")
	})
	tbl.Modify(base, func(r *testRecord) {
		r.Tags = append(r.Tags, "changed")
	})
	tbl.Remove(base)
	session.Push()
	assert.Equal(t, 1, db.UndoCount())
	assert.Equal(t, []uint64{8}, names(tbl))

	db.Undo()
	assert.Equal(t, 0, db.UndoCount())
	assert.Equal(t, []uint64{5}, names(tbl))
	row, ok := tbl.Get(base.ID)
	require.True(t, ok)
	assert.Empty(t, row.Value.Tags)
	// The identity counter is restored so the next insert reuses id 1
	again := insertName(tbl, 9, 0)
	assert.Equal(t, database.ID(1), again.ID)
}

func TestSessionCloseUndoesUnlessPushed(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	func() {
		session := db.StartUndoSession(true)
		defer session.Close()
		insertName(tbl, 1, 0)
	}()
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, int64(0), db.Revision())
	func() {
		session := db.StartUndoSession(true)
		defer session.Close()
		insertName(tbl, 1, 0)
		session.Push()
	}()
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, int64(1), db.Revision())
}

func TestSquashMergesIntoParent(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	outer := db.StartUndoSession(true)
	insertName(tbl, 1, 0)
	inner := db.StartUndoSession(true)
	insertName(tbl, 2, 0)
	inner.Squash()
	assert.Equal(t, 1, db.UndoCount())
	failed := db.StartUndoSession(true)
	insertName(tbl, 3, 0)
	failed.Undo()
	assert.Equal(t, []uint64{1, 2}, names(tbl))
	outer.Push()
	db.Undo()
	assert.Equal(t, 0, tbl.Len())
}

func TestSquashWithoutParentIsPermanent(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	session := db.StartUndoSession(true)
	insertName(tbl, 1, 0)
	session.Squash()
	assert.Equal(t, 0, db.UndoCount())
	assert.Equal(t, 1, tbl.Len())
	assert.PanicsWithValue(t, database.ErrUndoPastCommit, func() { db.Undo() })
}

func TestCommitDropsOldStates(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	for i := range 4 {
		session := db.StartUndoSession(true)
		insertName(tbl, uint64(i), 0)
		session.Push()
	}
	assert.Equal(t, int64(4), db.Revision())
	db.Commit(2)
	assert.Equal(t, 2, db.UndoCount())
	db.UndoAll()
	assert.Equal(t, []uint64{0, 1}, names(tbl))
	assert.Equal(t, int64(2), db.Revision())
	assert.PanicsWithValue(t, database.ErrUndoPastCommit, func() { db.Undo() })
}

func TestDisabledSessionRecordsNothing(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	session := db.StartUndoSession(false)
	insertName(tbl, 1, 0)
	session.Push()
	assert.Equal(t, 0, db.UndoCount())
	require.NoError(t, db.SetRevision(10))
	assert.Equal(t, int64(10), db.Revision())
	next := db.StartUndoSession(true)
	assert.Equal(t, int64(11), db.Revision())
	assert.ErrorIs(t, db.SetRevision(12), database.ErrUndoStackNotEmpty)
	next.Push()
}

func TestClearIsUndoable(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	insertName(tbl, 1, 0)
	insertName(tbl, 2, 0)
	session := db.StartUndoSession(true)
	tbl.Clear()
	assert.Equal(t, 0, tbl.Len())
	session.Undo()
	assert.Equal(t, []uint64{1, 2}, names(tbl))
	db.Reset()
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, map[string]int{"records": 0}, db.TableStats())
}

func TestRangeIteration(t *testing.T) {
	db := database.New(nil)
	tbl := newTestTable(db)
	for i := range 10 {
		insertName(tbl, uint64(i*10), uint32(i%2))
	}
	var got []uint64
	tbl.Ascend(
		indexByName,
		keys.Uint64(20),
		keys.Uint64(50),
		func(r *database.Row[testRecord]) bool {
			got = append(got, r.Value.Name)
			return true
		},
	)
	assert.Equal(t, []uint64{20, 30, 40}, got)

	idx := tbl.Index(indexByName)
	var desc []uint64
	idx.Descend(keys.Uint64(20), keys.Uint64(50), func(k keys.Key, _ database.ID) bool {
		desc = append(desc, keys.NewReader(k).Uint64())
		return true
	})
	assert.Equal(t, []uint64{40, 30, 20}, desc)

	row, ok := tbl.LowerBound(indexByName, keys.Uint64(25))
	require.True(t, ok)
	assert.Equal(t, uint64(30), row.Value.Name)
	row, ok = tbl.UpperBound(indexByName, keys.Uint64(30))
	require.True(t, ok)
	assert.Equal(t, uint64(40), row.Value.Name)
	row, ok = tbl.Last(indexByName)
	require.True(t, ok)
	assert.Equal(t, uint64(90), row.Value.Name)

	// Odd group, ordered by id within the group
	var odd []uint64
	tbl.Ascend(
		indexByGroup,
		keys.New().Uint32(1).Key(),
		keys.New().Uint32(2).Key(),
		func(r *database.Row[testRecord]) bool {
			odd = append(odd, r.Value.Name)
			return true
		},
	)
	assert.Equal(t, []uint64{10, 30, 50, 70, 90}, odd)
	assert.True(t, idx.Any(keys.Uint64(85), nil))
	assert.False(t, idx.Any(keys.Uint64(91), nil))
}
