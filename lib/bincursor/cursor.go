//
// Copyright (c) SAS Institute Inc.
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
//

package bincursor

// Cursor walks a buffer sequentially. A failed read leaves the position
// unchanged.
type Cursor struct {
	buf []byte
	pos int64
}

func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

func (c *Cursor) Pos() int64       { return c.pos }
func (c *Cursor) Len() int64       { return int64(len(c.buf)) }
func (c *Cursor) Remaining() int64 { return int64(len(c.buf)) - c.pos }

// Seek moves to an absolute position. Seeking to the end of the buffer is
// allowed.
func (c *Cursor) Seek(pos int64) error {
	if err := check(int64(len(c.buf)), pos, 0); err != nil {
		return err
	}
	c.pos = pos
	return nil
}

// Next consumes n bytes and returns them. The result aliases the buffer.
func (c *Cursor) Next(n int64) ([]byte, error) {
	b, err := Bytes(c.buf, c.pos, n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return b, nil
}

func (c *Cursor) Uint16() (uint16, error) {
	v, err := Uint16(c.buf, c.pos)
	if err == nil {
		c.pos += 2
	}
	return v, err
}

func (c *Cursor) Uint32() (uint32, error) {
	v, err := Uint32(c.buf, c.pos)
	if err == nil {
		c.pos += 4
	}
	return v, err
}

func (c *Cursor) Uint64() (uint64, error) {
	v, err := Uint64(c.buf, c.pos)
	if err == nil {
		c.pos += 8
	}
	return v, err
}
