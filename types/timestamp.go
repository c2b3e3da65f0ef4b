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

package types

import (
	"fmt"
	"strings"
	"time"
)

const (
	BlockIntervalMs   = 500
	BlockEpochMs      = 946684800000 // 2000-01-01T00:00:00Z
	blockTimestampFmt = "2006-01-02T15:04:05.000"
)

// BlockTimestamp counts half-second slots since the block epoch
type BlockTimestamp uint32

func NewBlockTimestamp(t time.Time) BlockTimestamp {
	ms := t.UnixMilli() - BlockEpochMs
	if ms < 0 {
		return 0
	}
	return BlockTimestamp(ms / BlockIntervalMs) //nolint:gosec
}

func ParseBlockTimestamp(s string) (BlockTimestamp, error) {
	// Accept both with and without fractional seconds and a trailing Z
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range []string{blockTimestampFmt, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return NewBlockTimestamp(t), nil
		}
	}
	return 0, fmt.Errorf("invalid block timestamp: %q", s)
}

func (b BlockTimestamp) Time() time.Time {
	return time.UnixMilli(int64(b)*BlockIntervalMs + BlockEpochMs).UTC()
}

func (b BlockTimestamp) String() string {
	return b.Time().Format(blockTimestampFmt)
}

func (b BlockTimestamp) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BlockTimestamp) UnmarshalText(data []byte) error {
	tmp, err := ParseBlockTimestamp(string(data))
	if err != nil {
		return err
	}
	*b = tmp
	return nil
}
