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

// undoState holds the inverse of every mutation made while it was the top of
// the undo stack
type undoState struct {
	revision int64
	inverses []func()
}

func (s *undoState) revert() {
	for i := len(s.inverses) - 1; i >= 0; i-- {
		s.inverses[i]()
	}
	s.inverses = nil
}

// Session is a handle on one undo state. A session that is neither pushed nor
// squashed is reverted by Close, so callers should always defer Close.
type Session struct {
	db    *Database
	apply bool
}

// StartUndoSession opens a new undo state on top of the stack. A disabled
// session records nothing and every method on it is a no-op.
func (d *Database) StartUndoSession(enabled bool) *Session {
	if !enabled {
		return &Session{db: d}
	}
	d.revision++
	d.stack = append(
		d.stack,
		&undoState{revision: d.revision},
	)
	return &Session{db: d, apply: true}
}

// Push keeps the session's changes on the undo stack, where Database.Undo can
// still revert them until they are committed
func (s *Session) Push() {
	s.apply = false
}

// Squash merges the session's changes into the state below it. With no state
// below, the changes become permanent.
func (s *Session) Squash() {
	if !s.apply {
		return
	}
	s.db.squash()
	s.apply = false
}

// Undo reverts the session's changes now
func (s *Session) Undo() {
	if !s.apply {
		return
	}
	s.db.Undo()
	s.apply = false
}

// Close reverts the session unless it was already pushed, squashed or undone
func (s *Session) Close() {
	s.Undo()
}

// Revision returns the revision of the newest state, or the committed
// revision when the undo stack is empty
func (d *Database) Revision() int64 {
	return d.revision
}

// SetRevision sets the base revision. It is only valid with an empty undo
// stack.
func (d *Database) SetRevision(revision int64) error {
	if len(d.stack) > 0 {
		return ErrUndoStackNotEmpty
	}
	d.revision = revision
	return nil
}

// UndoCount returns the number of revocable states on the undo stack
func (d *Database) UndoCount() int {
	return len(d.stack)
}

// Undo reverts the newest state on the undo stack. Reverting with an empty
// stack means the caller tried to reach past the committed revision, which
// is a sequencing bug and panics.
func (d *Database) Undo() {
	if len(d.stack) == 0 {
		panic(ErrUndoPastCommit)
	}
	top := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	top.revert()
	d.revision--
	d.logger.Debug(
		"reverted undo state",
		"component", "database",
		"revision", top.revision,
	)
}

// UndoAll reverts every state on the undo stack
func (d *Database) UndoAll() {
	for len(d.stack) > 0 {
		d.Undo()
	}
}

// Commit makes every state with a revision at or below the given revision
// permanent
func (d *Database) Commit(revision int64) {
	idx := 0
	for idx < len(d.stack) && d.stack[idx].revision <= revision {
		idx++
	}
	if idx == 0 {
		return
	}
	d.stack = append([]*undoState(nil), d.stack[idx:]...)
	d.logger.Debug(
		"committed undo states",
		"component", "database",
		"revision", revision,
		"count", idx,
	)
}

func (d *Database) squash() {
	if len(d.stack) == 0 {
		return
	}
	top := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	if len(d.stack) > 0 {
		prev := d.stack[len(d.stack)-1]
		prev.inverses = append(prev.inverses, top.inverses...)
	}
	d.revision--
}

// record adds an inverse to the newest state, if there is one
func (d *Database) record(inverse func()) {
	if len(d.stack) == 0 {
		return
	}
	top := d.stack[len(d.stack)-1]
	top.inverses = append(top.inverses, inverse)
}
