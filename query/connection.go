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
	"bytes"
	"encoding/hex"
	"slices"

	"github.com/blinklabs-io/microchain/database"
	"github.com/blinklabs-io/microchain/database/keys"
)

// Bounds restricts a connection to a key range. Ge takes precedence over Gt
// and Le over Lt. A nil bound leaves that side open.
type Bounds struct {
	Gt keys.Key
	Ge keys.Key
	Lt keys.Key
	Le keys.Key
}

// ConnectionArgs selects a page. First applies before Last when both are
// given.
type ConnectionArgs struct {
	First  *uint32
	Last   *uint32
	Before *string
	After  *string
}

type PageInfo struct {
	HasPreviousPage bool   `json:"hasPreviousPage"`
	HasNextPage     bool   `json:"hasNextPage"`
	StartCursor     string `json:"startCursor"`
	EndCursor       string `json:"endCursor"`
}

type Edge[T any] struct {
	Node   T      `json:"node"`
	Cursor string `json:"cursor"`
}

type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Nodes returns the nodes of every edge, in order
func (c Connection[T]) Nodes() []T {
	ret := make([]T, 0, len(c.Edges))
	for _, edge := range c.Edges {
		ret = append(ret, edge.Node)
	}
	return ret
}

// EncodeCursor returns the cursor for an index key
func EncodeCursor(key keys.Key) string {
	return hex.EncodeToString(key)
}

// DecodeCursor returns the index key for a cursor
func DecodeCursor(cursor string) (keys.Key, error) {
	return hex.DecodeString(cursor)
}

// lowKey returns the inclusive lower bound of b, or nil when open
func (b Bounds) lowKey() keys.Key {
	if b.Ge != nil {
		return b.Ge
	}
	if b.Gt != nil {
		return keys.Successor(b.Gt)
	}
	return nil
}

// highKey returns the exclusive upper bound of b, or nil when open
func (b Bounds) highKey() keys.Key {
	if b.Le != nil {
		return keys.Successor(b.Le)
	}
	if b.Lt != nil {
		return b.Lt
	}
	return nil
}

// maxLow returns the tighter of two inclusive lower bounds
func maxLow(a, b keys.Key) keys.Key {
	if a == nil {
		return b
	}
	if b == nil || bytes.Compare(a, b) >= 0 {
		return a
	}
	return b
}

// minHigh returns the tighter of two exclusive upper bounds
func minHigh(a, b keys.Key) keys.Key {
	if a == nil {
		return b
	}
	if b == nil || bytes.Compare(a, b) <= 0 {
		return a
	}
	return b
}

type entry struct {
	key keys.Key
	id  database.ID
}

// MakeConnection pages through idx. Records come back in ascending key order
// and each edge's cursor is its key in lowercase hex. Invalid cursors produce
// an empty page.
func MakeConnection[T any](
	idx *database.Index,
	bounds Bounds,
	args ConnectionArgs,
	resolve func(database.ID) T,
) Connection[T] {
	ret := Connection[T]{
		Edges: []Edge[T]{},
	}
	low := bounds.lowKey()
	high := bounds.highKey()
	pageLow, pageHigh := low, high
	if args.After != nil {
		key, err := DecodeCursor(*args.After)
		if err != nil {
			return ret
		}
		pageLow = maxLow(pageLow, keys.Successor(key))
	}
	if args.Before != nil {
		key, err := DecodeCursor(*args.Before)
		if err != nil {
			return ret
		}
		pageHigh = minHigh(pageHigh, key)
	}
	if pageLow != nil && pageHigh != nil && bytes.Compare(pageLow, pageHigh) >= 0 {
		return ret
	}

	var window []entry
	collect := func(limit *uint32) func(keys.Key, database.ID) bool {
		return func(key keys.Key, id database.ID) bool {
			if limit != nil && uint32(len(window)) >= *limit {
				return false
			}
			window = append(window, entry{key: key, id: id})
			return true
		}
	}
	switch {
	case args.First != nil:
		idx.Ascend(pageLow, pageHigh, collect(args.First))
		if args.Last != nil && uint32(len(window)) > *args.Last {
			window = window[uint32(len(window))-*args.Last:]
		}
	case args.Last != nil:
		idx.Descend(pageLow, pageHigh, collect(args.Last))
		slices.Reverse(window)
	default:
		idx.Ascend(pageLow, pageHigh, collect(nil))
	}

	if len(window) == 0 {
		// Split the range where the empty page sits
		pivot, pivotIsLow := pageLow, true
		if args.First == nil && args.Last != nil {
			pivot, pivotIsLow = pageHigh, false
		}
		switch {
		case pivot == nil && pivotIsLow:
			ret.PageInfo.HasNextPage = idx.Any(low, high)
		case pivot == nil:
			ret.PageInfo.HasPreviousPage = idx.Any(low, high)
		default:
			ret.PageInfo.HasPreviousPage = idx.Any(low, pivot)
			ret.PageInfo.HasNextPage = idx.Any(maxLow(low, pivot), high)
		}
		return ret
	}

	for _, e := range window {
		ret.Edges = append(ret.Edges, Edge[T]{
			Node:   resolve(e.id),
			Cursor: EncodeCursor(e.key),
		})
	}
	first := window[0].key
	last := window[len(window)-1].key
	ret.PageInfo = PageInfo{
		HasPreviousPage: idx.Any(low, first),
		HasNextPage:     idx.Any(keys.Successor(last), high),
		StartCursor:     EncodeCursor(first),
		EndCursor:       EncodeCursor(last),
	}
	return ret
}
