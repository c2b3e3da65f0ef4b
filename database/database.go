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

// Package database implements an in-memory store of tables with unique
// ordered indexes and a stack of undo states, one per revocable block.
package database

import (
	"io"
	"log/slog"
)

type Database struct {
	logger   *slog.Logger
	tables   []table
	stack    []*undoState
	revision int64
}

// New creates an empty database. Tables are added with NewTable.
func New(logger *slog.Logger) *Database {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Database{
		logger: logger,
	}
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// TableStats returns the number of records in each registered table
func (d *Database) TableStats() map[string]int {
	ret := make(map[string]int, len(d.tables))
	for _, t := range d.tables {
		ret[t.Name()] = t.Len()
	}
	return ret
}

// Reset drops every record in every table, the undo stack and the revision.
// It cannot be undone.
func (d *Database) Reset() {
	for _, t := range d.tables {
		t.reset()
	}
	d.stack = nil
	d.revision = 0
	d.logger.Debug(
		"database reset",
		"component", "database",
	)
}

func (d *Database) register(t table) {
	for _, tmp := range d.tables {
		if tmp.Name() == t.Name() {
			panic("duplicate table name: " + t.Name())
		}
	}
	d.tables = append(d.tables, t)
}
