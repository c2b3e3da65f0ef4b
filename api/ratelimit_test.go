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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPKeyFromRemoteAddr(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		expected string
	}{
		{name: "empty", addr: "", expected: ""},
		{name: "IPv4", addr: "192.168.1.10:3000", expected: "192.168.1.10"},
		{name: "IPv4 loopback", addr: "127.0.0.1:12345", expected: "127.0.0.1"},
		{
			name:     "IPv6 grouped by /64",
			addr:     "[2001:db8:85a3::8a2e:370:7334]:3000",
			expected: "2001:db8:85a3::/64",
		},
		{
			name:     "IPv6 same /64 prefix",
			addr:     "[2001:db8:85a3::1]:3001",
			expected: "2001:db8:85a3::/64",
		},
		{
			name:     "IPv4-mapped IPv6",
			addr:     "[::ffff:10.0.0.1]:80",
			expected: "10.0.0.1",
		},
		{name: "no port", addr: "10.0.0.1", expected: ""},
		{name: "not an IP", addr: "example.com:80", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ipKeyFromRemoteAddr(tt.addr))
		})
	}
}

func TestIPLimiterSlots(t *testing.T) {
	l := newIPLimiter(2)
	assert.True(t, l.acquire("10.0.0.1"))
	assert.True(t, l.acquire("10.0.0.1"))
	assert.False(t, l.acquire("10.0.0.1"))
	// Other sources have their own slots
	assert.True(t, l.acquire("10.0.0.2"))
	// Exempt sources are never limited
	assert.True(t, l.acquire(""))
	assert.True(t, l.acquire(""))

	l.release("10.0.0.1")
	assert.Equal(t, 1, l.count("10.0.0.1"))
	assert.True(t, l.acquire("10.0.0.1"))
	l.release("10.0.0.1")
	l.release("10.0.0.1")
	assert.Equal(t, 0, l.count("10.0.0.1"))
	assert.NotContains(t, l.inFlight, "10.0.0.1")
}

func TestIPLimiterMiddleware(t *testing.T) {
	l := newIPLimiter(1)
	var inner *httptest.ResponseRecorder
	handler := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A second request from the same client while this one is in flight
		inner = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = r.RemoteAddr
		l.middleware(http.NotFoundHandler()).ServeHTTP(inner, req)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusTooManyRequests, inner.Code)
	assert.Equal(t, 0, l.count("192.0.2.7"))
}
