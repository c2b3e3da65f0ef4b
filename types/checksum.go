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
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const Checksum256Size = 32

// Checksum256 is a block or transaction id
type Checksum256 [Checksum256Size]byte

func NewChecksum256(data []byte) (Checksum256, error) {
	var ret Checksum256
	if len(data) != Checksum256Size {
		return ret, fmt.Errorf(
			"invalid checksum length: expected %d, got %d",
			Checksum256Size,
			len(data),
		)
	}
	copy(ret[:], data)
	return ret, nil
}

func NewChecksum256FromHex(s string) (Checksum256, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Checksum256{}, fmt.Errorf("invalid checksum hex: %w", err)
	}
	return NewChecksum256(data)
}

func (c Checksum256) String() string {
	return hex.EncodeToString(c[:])
}

func (c Checksum256) Bytes() []byte {
	return c[:]
}

func (c Checksum256) IsZero() bool {
	return c == Checksum256{}
}

func (c Checksum256) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Checksum256) UnmarshalText(data []byte) error {
	tmp, err := NewChecksum256FromHex(string(data))
	if err != nil {
		return err
	}
	*c = tmp
	return nil
}

// MarshalCBOR encodes the checksum as a byte string rather than an array of ints
func (c Checksum256) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(c[:])
}

func (c *Checksum256) UnmarshalCBOR(data []byte) error {
	var tmp []byte
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return err
	}
	ret, err := NewChecksum256(tmp)
	if err != nil {
		return err
	}
	*c = ret
	return nil
}
