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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/microchain/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionArgsDefaultValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
	args, err := ParseConnectionArgs(req)
	require.NoError(t, err)
	assert.Nil(t, args.First)
	assert.Nil(t, args.Last)
	assert.Nil(t, args.Before)
	assert.Nil(t, args.After)
}

func TestParseConnectionArgsValid(t *testing.T) {
	req := httptest.NewRequest(
		http.MethodGet,
		"/api/v1/test?first=10&last=3&after=00ff&before=",
		nil,
	)
	args, err := ParseConnectionArgs(req)
	require.NoError(t, err)
	require.NotNil(t, args.First)
	assert.Equal(t, uint32(10), *args.First)
	require.NotNil(t, args.Last)
	assert.Equal(t, uint32(3), *args.Last)
	require.NotNil(t, args.After)
	assert.Equal(t, "00ff", *args.After)
	// An empty cursor is still a cursor
	require.NotNil(t, args.Before)
	assert.Empty(t, *args.Before)
}

func TestParseRanges(t *testing.T) {
	req := httptest.NewRequest(
		http.MethodGet,
		"/api/v1/test?gt=alice&le=bob",
		nil,
	)
	names, err := ParseNameRange(req)
	require.NoError(t, err)
	require.NotNil(t, names.Gt)
	assert.Equal(t, types.MustName("alice"), *names.Gt)
	require.NotNil(t, names.Le)
	assert.Equal(t, types.MustName("bob"), *names.Le)
	assert.Nil(t, names.Ge)
	assert.Nil(t, names.Lt)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/test?ge=2&lt=5", nil)
	rounds, err := ParseRoundRange(req)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), *rounds.Ge)
	assert.Equal(t, uint8(5), *rounds.Lt)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/test?ge=2022-01-08T15:00:00.000", nil)
	times, err := ParseTimeRange(req)
	require.NoError(t, err)
	assert.Equal(t, "2022-01-08T15:00:00.000", times.Ge.String())
}

func TestParsePaginationInvalid(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		parse func(*http.Request) error
	}{
		{
			name: "negative first",
			url:  "/api/v1/test?first=-1",
			parse: func(r *http.Request) error {
				_, err := ParseConnectionArgs(r)
				return err
			},
		},
		{
			name: "bad name",
			url:  "/api/v1/test?gt=Alice",
			parse: func(r *http.Request) error {
				_, err := ParseNameRange(r)
				return err
			},
		},
		{
			name: "round out of range",
			url:  "/api/v1/test?le=256",
			parse: func(r *http.Request) error {
				_, err := ParseRoundRange(r)
				return err
			},
		},
		{
			name: "non-numeric id",
			url:  "/api/v1/test?lt=abc",
			parse: func(r *http.Request) error {
				_, err := ParseIDRange(r)
				return err
			},
		},
		{
			name: "non-numeric limit",
			url:  "/api/v1/test?limit=abc",
			parse: func(r *http.Request) error {
				_, err := ParseListParams(r)
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			assert.ErrorIs(t, tt.parse(req), ErrInvalidPaginationParameters)
		})
	}
}

func TestParseListParamsClampBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
	params, err := ParseListParams(req)
	require.NoError(t, err)
	assert.Equal(t, DefaultListLimit, params.Limit)
	assert.Zero(t, params.From)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/test?from=7&limit=99999", nil)
	params, err = ParseListParams(req)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), params.From)
	assert.Equal(t, MaxListLimit, params.Limit)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/test?limit=0", nil)
	params, err = ParseListParams(req)
	require.NoError(t, err)
	assert.Equal(t, 1, params.Limit)
}
