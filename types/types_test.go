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

package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/blinklabs-io/microchain/types"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameKnownValues(t *testing.T) {
	testDefs := []struct {
		name  string
		value uint64
	}{
		{name: "", value: 0},
		{name: "eosio", value: 0x5530ea0000000000},
		{name: "eosio.token", value: 0x5530ea033482a600},
		{name: "genesis.eden", value: 0x62a6ac3b00525530},
	}
	for _, testDef := range testDefs {
		n, err := types.NewName(testDef.name)
		require.NoError(t, err, "name %q", testDef.name)
		assert.Equal(t, testDef.value, uint64(n), "name %q", testDef.name)
		assert.Equal(t, testDef.name, n.String())
	}
}

func TestNameInvalid(t *testing.T) {
	for _, s := range []string{"UPPER", "a6", "abcdefghijklmn", "abc.", "aaaaaaaaaaaaz"} {
		_, err := types.NewName(s)
		assert.ErrorIs(t, err, types.ErrInvalidName, "name %q", s)
	}
}

func TestNameIsHumanAccount(t *testing.T) {
	assert.True(t, types.MustName("alice").IsHumanAccount())
	assert.True(t, types.MustName("alice.edev").IsHumanAccount())
	assert.False(t, types.Name(0).IsHumanAccount())
	// Placeholder winners carry data in the low nibble
	assert.False(t, types.Name(1).IsHumanAccount())
	assert.False(t, types.MustName("aaaaaaaaaaaa1").IsHumanAccount())
}

func TestNameJSONAndCBOR(t *testing.T) {
	n := types.MustName("bob")
	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, `"bob"`, string(data))
	var decoded types.Name
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, n, decoded)
	// CBOR keeps the raw integer form
	cborData, err := cbor.Marshal(n)
	require.NoError(t, err)
	var cborDecoded uint64
	require.NoError(t, cbor.Unmarshal(cborData, &cborDecoded))
	assert.Equal(t, uint64(n), cborDecoded)
}

func TestChecksum256(t *testing.T) {
	hexStr := "000047442c8830c700ecb099064ee1b038ed6fd254133f582e906a4bc3fd0001"
	c, err := types.NewChecksum256FromHex(hexStr)
	require.NoError(t, err)
	assert.Equal(t, hexStr, c.String())
	assert.False(t, c.IsZero())
	cborData, err := cbor.Marshal(c)
	require.NoError(t, err)
	var decoded types.Checksum256
	require.NoError(t, cbor.Unmarshal(cborData, &decoded))
	assert.Equal(t, c, decoded)
	_, err = types.NewChecksum256FromHex("abcd")
	assert.Error(t, err)
}

func TestBlockTimestamp(t *testing.T) {
	ts, err := types.ParseBlockTimestamp("2022-01-08T15:00:00.000")
	require.NoError(t, err)
	assert.Equal(t, "2022-01-08T15:00:00.000", ts.String())
	assert.Equal(
		t,
		time.Date(2022, 1, 8, 15, 0, 0, 0, time.UTC),
		ts.Time(),
	)
	next := ts + 1
	assert.Equal(t, "2022-01-08T15:00:00.500", next.String())
	_, err = types.ParseBlockTimestamp("yesterday")
	assert.Error(t, err)
}

func TestAsset(t *testing.T) {
	a, err := types.ParseAsset("10.0000 EOS")
	require.NoError(t, err)
	assert.Equal(t, int64(100000), a.Amount)
	assert.Equal(t, uint8(4), a.Symbol.Precision)
	assert.Equal(t, "10.0000 EOS", a.String())
	small := types.Asset{Amount: 5, Symbol: types.Symbol{Code: "EOS", Precision: 4}}
	assert.Equal(t, "0.0005 EOS", small.String())
	sym, err := types.ParseSymbol("4,EOS")
	require.NoError(t, err)
	assert.Equal(t, "4,EOS", sym.String())
	_, err = types.ParseAsset("10.0000 eos")
	assert.Error(t, err)
}

func TestAssetJSON(t *testing.T) {
	var tmp struct {
		Quantity types.Asset  `json:"quantity"`
		Symbol   types.Symbol `json:"symbol"`
	}
	require.NoError(
		t,
		json.Unmarshal([]byte(`{"quantity":"1.5000 EOS","symbol":"4,EOS"}`), &tmp),
	)
	assert.Equal(t, int64(15000), tmp.Quantity.Amount)
	assert.Equal(t, "EOS", tmp.Symbol.Code)
	data, err := json.Marshal(tmp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"quantity":"1.5000 EOS","symbol":"4,EOS"}`, string(data))
}
