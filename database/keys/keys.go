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

// Package keys builds order-preserving byte keys for table indexes. All
// components are fixed width and big-endian, so comparing two keys with
// bytes.Compare gives the same answer as comparing the tuples they encode.
package keys

import (
	"encoding/binary"
	"math"
)

type Key []byte

type Builder struct {
	buf []byte
}

func New() *Builder {
	return &Builder{buf: make([]byte, 0, 24)}
}

func (b *Builder) Uint8(v uint8) *Builder {
	b.buf = append(b.buf, v)
	return b
}

func (b *Builder) Uint32(v uint32) *Builder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, v)
	return b
}

func (b *Builder) Uint64(v uint64) *Builder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, v)
	return b
}

func (b *Builder) Key() Key {
	return Key(b.buf)
}

func Uint64(v uint64) Key {
	return New().Uint64(v).Key()
}

// Successor returns the smallest key that sorts after k
func Successor(k Key) Key {
	ret := make(Key, len(k), len(k)+1)
	copy(ret, k)
	return append(ret, 0x00)
}

// Reader decodes keys produced by Builder
type Reader struct {
	buf []byte
	err bool
}

func NewReader(k Key) *Reader {
	return &Reader{buf: k}
}

func (r *Reader) Uint8() uint8 {
	if len(r.buf) < 1 {
		r.err = true
		return 0
	}
	v := r.buf[0]
	r.buf = r.buf[1:]
	return v
}

func (r *Reader) Uint32() uint32 {
	if len(r.buf) < 4 {
		r.err = true
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}

func (r *Reader) Uint64() uint64 {
	if len(r.buf) < 8 {
		r.err = true
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v
}

// Done reports whether the whole key was consumed without running short
func (r *Reader) Done() bool {
	return !r.err && len(r.buf) == 0
}

const (
	MaxUint8  = math.MaxUint8
	MaxUint32 = math.MaxUint32
	MaxUint64 = uint64(math.MaxUint64)
)
