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
	"errors"
	"fmt"
	"strings"
)

const nameCharmap = ".12345abcdefghijklmnopqrstuvwxyz"

var ErrInvalidName = errors.New("invalid name")

// Name is an account or action name in the source chain's base32 encoding.
// Up to 12 characters use 5 bits each, an optional 13th uses the low 4 bits.
type Name uint64

func nameCharValue(c byte) (uint64, bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 6, true
	case c >= '1' && c <= '5':
		return uint64(c-'1') + 1, true
	case c == '.':
		return 0, true
	}
	return 0, false
}

// NewName encodes a name string
func NewName(s string) (Name, error) {
	if len(s) > 13 {
		return 0, fmt.Errorf("%w: %q is longer than 13 characters", ErrInvalidName, s)
	}
	var value uint64
	for i := 0; i < len(s); i++ {
		v, ok := nameCharValue(s[i])
		if !ok {
			return 0, fmt.Errorf("%w: %q contains %q", ErrInvalidName, s, s[i])
		}
		if i < 12 {
			value |= (v & 0x1f) << (64 - 5*(i+1))
			continue
		}
		if v > 0x0f {
			return 0, fmt.Errorf("%w: %q has an out of range 13th character", ErrInvalidName, s)
		}
		value |= v & 0x0f
	}
	ret := Name(value)
	// Reject names that don't round-trip, like trailing dots
	if ret.String() != s {
		return 0, fmt.Errorf("%w: %q is not in canonical form", ErrInvalidName, s)
	}
	return ret, nil
}

// MustName is NewName for constant input. It panics on invalid names
func MustName(s string) Name {
	n, err := NewName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Name) String() string {
	var buf [13]byte
	tmp := uint64(n)
	for i := 0; i <= 12; i++ {
		mask := uint64(0x1f)
		shift := 5
		if i == 0 {
			mask = 0x0f
			shift = 4
		}
		buf[12-i] = nameCharmap[tmp&mask]
		tmp >>= shift
	}
	return strings.TrimRight(string(buf[:]), ".")
}

// IsEmpty reports whether this is the zero name
func (n Name) IsEmpty() bool {
	return n == 0
}

// IsHumanAccount reports whether the name looks like a regular account: it is
// nonzero and has no 13th character. Numeric placeholders used as "no winner"
// markers set the low nibble and fail this check.
func (n Name) IsHumanAccount() bool {
	return n != 0 && n&0x0f == 0
}

func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Name) UnmarshalText(data []byte) error {
	tmp, err := NewName(string(data))
	if err != nil {
		return err
	}
	*n = tmp
	return nil
}
