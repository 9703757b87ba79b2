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

// Package bincursor provides bounds-checked little-endian access to byte
// buffers and random-access files. Every accessor validates the requested
// range and reports an OutOfBoundsError instead of panicking.
package bincursor

import (
	"encoding/binary"
	"fmt"
	"io"
)

// OutOfBoundsError is returned when a read or write would touch bytes beyond
// the end of the addressable range.
type OutOfBoundsError struct {
	Offset int64
	Length int64
	Size   int64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("read of %d bytes at offset %d exceeds size %d", e.Length, e.Offset, e.Size)
}

func check(size, off, n int64) error {
	if off < 0 || n < 0 || off > size || n > size-off {
		return &OutOfBoundsError{Offset: off, Length: n, Size: size}
	}
	return nil
}

// Bytes returns the n bytes of buf starting at off. The result aliases buf.
func Bytes(buf []byte, off, n int64) ([]byte, error) {
	if err := check(int64(len(buf)), off, n); err != nil {
		return nil, err
	}
	return buf[off : off+n], nil
}

func Uint16(buf []byte, off int64) (uint16, error) {
	b, err := Bytes(buf, off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func Uint32(buf []byte, off int64) (uint32, error) {
	b, err := Bytes(buf, off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func Uint64(buf []byte, off int64) (uint64, error) {
	b, err := Bytes(buf, off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func PutUint16(buf []byte, off int64, v uint16) error {
	b, err := Bytes(buf, off, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

func PutUint32(buf []byte, off int64, v uint32) error {
	b, err := Bytes(buf, off, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func PutUint64(buf []byte, off int64, v uint64) error {
	b, err := Bytes(buf, off, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// ReadBytesAt reads exactly n bytes at off from a file of the given size into
// a freshly allocated buffer.
func ReadBytesAt(r io.ReaderAt, size, off, n int64) ([]byte, error) {
	if err := check(size, off, n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := readFull(r, off, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func ReadUint16At(r io.ReaderAt, size, off int64) (uint16, error) {
	var b [2]byte
	if err := readSmall(r, size, off, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func ReadUint32At(r io.ReaderAt, size, off int64) (uint32, error) {
	var b [4]byte
	if err := readSmall(r, size, off, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func ReadUint64At(r io.ReaderAt, size, off int64) (uint64, error) {
	var b [8]byte
	if err := readSmall(r, size, off, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readSmall(r io.ReaderAt, size, off int64, b []byte) error {
	if err := check(size, off, int64(len(b))); err != nil {
		return err
	}
	return readFull(r, off, b)
}

// readFull treats a short read as ErrUnexpectedEOF. ReaderAt may report io.EOF
// alongside a complete read at the end of the file.
func readFull(r io.ReaderAt, off int64, b []byte) error {
	n, err := r.ReadAt(b, off)
	if n == len(b) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}
