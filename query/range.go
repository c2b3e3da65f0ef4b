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

package query

import (
	"github.com/blinklabs-io/microchain/database/keys"
	"github.com/blinklabs-io/microchain/types"
)

// Range holds typed bounds on an index's leading key component
type Range[K any] struct {
	Gt *K
	Ge *K
	Lt *K
	Le *K
}

// Bounds converts the range into index key bounds
func (r Range[K]) Bounds(key func(K) keys.Key) Bounds {
	var ret Bounds
	if r.Gt != nil {
		ret.Gt = key(*r.Gt)
	}
	if r.Ge != nil {
		ret.Ge = key(*r.Ge)
	}
	if r.Lt != nil {
		ret.Lt = key(*r.Lt)
	}
	if r.Le != nil {
		ret.Le = key(*r.Le)
	}
	return ret
}

type (
	NameRange  = Range[types.Name]
	TimeRange  = Range[types.BlockTimestamp]
	RoundRange = Range[uint8]
	IDRange    = Range[uint64]
)
