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
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrMissingRecord  = errors.New("missing record")
	ErrUndoPastCommit = errors.New(
		"cannot undo past committed revision",
	)
	ErrUndoStackNotEmpty = errors.New(
		"cannot set revision while undo stack is not empty",
	)
)

// MissingRecordError is returned by lookups for records that must exist
type MissingRecordError struct {
	table string
	index string
	key   []byte
}

func NewMissingRecordError(table, index string, key []byte) MissingRecordError {
	return MissingRecordError{
		table: table,
		index: index,
		key:   key,
	}
}

func (e MissingRecordError) Table() string {
	return e.table
}

func (e MissingRecordError) Index() string {
	return e.index
}

func (e MissingRecordError) Error() string {
	return fmt.Sprintf(
		"missing record in %s.%s for key %s",
		e.table,
		e.index,
		hex.EncodeToString(e.key),
	)
}

func (e MissingRecordError) Unwrap() error {
	return ErrMissingRecord
}

// UniqueViolationError is raised (as a panic value) when an insert or modify
// would give two records the same key on an index
type UniqueViolationError struct {
	table string
	index string
	key   []byte
}

func (e UniqueViolationError) Error() string {
	return fmt.Sprintf(
		"duplicate key %s on unique index %s.%s",
		hex.EncodeToString(e.key),
		e.table,
		e.index,
	)
}
