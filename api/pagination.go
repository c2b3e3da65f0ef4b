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

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/blinklabs-io/microchain/query"
	"github.com/blinklabs-io/microchain/types"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// ParseConnectionArgs reads the first, last, before and after query
// parameters
func ParseConnectionArgs(r *http.Request) (query.ConnectionArgs, error) {
	var ret query.ConnectionArgs
	values := r.URL.Query()
	for _, param := range []struct {
		name string
		dst  **uint32
	}{
		{"first", &ret.First},
		{"last", &ret.Last},
	} {
		v := values.Get(param.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return query.ConnectionArgs{}, fmt.Errorf(
				"%w: %s: %w",
				ErrInvalidPaginationParameters,
				param.name,
				err,
			)
		}
		tmp := uint32(n)
		*param.dst = &tmp
	}
	if values.Has("before") {
		tmp := values.Get("before")
		ret.Before = &tmp
	}
	if values.Has("after") {
		tmp := values.Get("after")
		ret.After = &tmp
	}
	return ret, nil
}

// parseRange reads the gt, ge, lt and le query parameters
func parseRange[K any](
	values url.Values,
	parse func(string) (K, error),
) (query.Range[K], error) {
	var ret query.Range[K]
	for _, param := range []struct {
		name string
		dst  **K
	}{
		{"gt", &ret.Gt},
		{"ge", &ret.Ge},
		{"lt", &ret.Lt},
		{"le", &ret.Le},
	} {
		if !values.Has(param.name) {
			continue
		}
		tmp, err := parse(values.Get(param.name))
		if err != nil {
			return query.Range[K]{}, fmt.Errorf(
				"%w: %s: %w",
				ErrInvalidPaginationParameters,
				param.name,
				err,
			)
		}
		*param.dst = &tmp
	}
	return ret, nil
}

func ParseNameRange(r *http.Request) (query.NameRange, error) {
	return parseRange(r.URL.Query(), types.NewName)
}

func ParseTimeRange(r *http.Request) (query.TimeRange, error) {
	return parseRange(r.URL.Query(), types.ParseBlockTimestamp)
}

func ParseRoundRange(r *http.Request) (query.RoundRange, error) {
	return parseRange(r.URL.Query(), func(s string) (uint8, error) {
		n, err := strconv.ParseUint(s, 10, 8)
		return uint8(n), err
	})
}

func ParseIDRange(r *http.Request) (query.IDRange, error) {
	return parseRange(r.URL.Query(), func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	})
}

// ListParams selects stored records by block number
type ListParams struct {
	From  uint32
	Limit int
}

// ParseListParams parses the from and limit query parameters and applies
// defaults and bounds clamping
func ParseListParams(r *http.Request) (ListParams, error) {
	params := ListParams{
		Limit: DefaultListLimit,
	}
	values := r.URL.Query()
	if v := values.Get("from"); v != "" {
		from, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ListParams{}, ErrInvalidPaginationParameters
		}
		params.From = uint32(from)
	}
	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return ListParams{}, ErrInvalidPaginationParameters
		}
		params.Limit = limit
	}
	// Bounds clamping
	if params.Limit < 1 {
		params.Limit = 1
	}
	if params.Limit > MaxListLimit {
		params.Limit = MaxListLimit
	}
	return params, nil
}
