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
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Default sizes for BadgerDB (in bytes). Blocks are small, so these are well
// below badger's own defaults.
const (
	DefaultBlockCacheSize   = 64 << 20
	DefaultIndexCacheSize   = 32 << 20
	DefaultValueLogFileSize = 256 << 20
	DefaultMemTableSize     = 32 << 20
	DefaultValueThreshold   = 4 << 10
)

type BlockStoreOptionFunc func(*BlockStore)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.promRegistry = registry
	}
}

// WithDataDir specifies the data directory to use for storage
func WithDataDir(dataDir string) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.dataDir = dataDir
	}
}

// WithBlockCacheSize specifies the block cache size
func WithBlockCacheSize(size uint64) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.blockCacheSize = size
	}
}

// WithIndexCacheSize specifies the index cache size
func WithIndexCacheSize(size uint64) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.indexCacheSize = size
	}
}

// WithGc specifies whether value log garbage collection is enabled
func WithGc(enabled bool) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.gcEnabled = enabled
	}
}

// WithValueLogFileSize specifies the value log file size in bytes
func WithValueLogFileSize(size int64) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.valueLogFileSize = size
	}
}

// WithMemTableSize specifies the memtable size in bytes
func WithMemTableSize(size int64) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.memTableSize = size
	}
}

// WithValueThreshold specifies the value threshold for keeping values in LSM tree
func WithValueThreshold(threshold int64) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.valueThreshold = threshold
	}
}

// WithBlockLRUEntries specifies how many decoded blocks to keep in memory. Zero
// disables the cache.
func WithBlockLRUEntries(entries int) BlockStoreOptionFunc {
	return func(s *BlockStore) {
		s.blockLRUEntries = entries
	}
}
