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

package zipslicer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/sassoftware/apkchannel/lib/bincursor"
)

// APK Signing Block layout:
//
//	uint64  size of the block, excluding this field
//	repeated ID-value pairs:
//	    uint64  size of the pair, excluding this field
//	    uint32  ID
//	    value   (size - 4) bytes
//	uint64  size of the block, same as the first field
//	[16]byte magic
const (
	SigningBlockMagic = "APK Sig Block 42"

	sigBlockMinSize   = 32
	sigBlockFooterLen = 8 + len(SigningBlockMagic)
	pairHeaderLen     = 8 + 4

	sigBlockStructure = "APK signing block"
)

// SigningBlock is a located APK Signing Block
type SigningBlock struct {
	// Offset of the first byte of the block in the file
	Offset int64
	// Raw bytes of the entire block, including both size fields and the magic
	Raw []byte
}

// Pair is a single ID-value entry of a signing block
type Pair struct {
	ID    uint32
	Value []byte
}

// Len returns the on-disk size of the pair including its length prefix
func (p Pair) Len() int64 {
	return int64(pairHeaderLen + len(p.Value))
}

// FindSigningBlock locates the APK Signing Block that ends at cdOffset. It
// returns nil without an error if no signing block magic precedes the central
// directory. A block whose size fields disagree or point outside of the file
// is reported as a MalformedError.
func FindSigningBlock(r io.ReaderAt, size, cdOffset int64) (*SigningBlock, error) {
	if cdOffset > size {
		return nil, malformed(sigBlockStructure, nil, "central directory offset %d is past end of file", cdOffset)
	}
	magicLen := int64(len(SigningBlockMagic))
	if cdOffset < magicLen {
		return nil, nil
	}
	magic, err := bincursor.ReadBytesAt(r, size, cdOffset-magicLen, magicLen)
	if err != nil {
		return nil, err
	}
	if string(magic) != SigningBlockMagic {
		return nil, nil
	}
	if cdOffset < sigBlockMinSize {
		return nil, malformed(sigBlockStructure, nil, "magic found but only %d bytes precede the central directory", cdOffset)
	}
	footerSize, err := bincursor.ReadUint64At(r, size, cdOffset-int64(sigBlockFooterLen))
	if err != nil {
		return nil, err
	}
	if footerSize < uint64(sigBlockFooterLen) || footerSize > math.MaxInt32-8 {
		return nil, malformed(sigBlockStructure, nil, "size %d out of range", footerSize)
	}
	total := int64(footerSize) + 8
	start := cdOffset - total
	if start < 0 {
		return nil, malformed(sigBlockStructure, nil, "size %d exceeds the %d bytes before the central directory", footerSize, cdOffset)
	}
	headerSize, err := bincursor.ReadUint64At(r, size, start)
	if err != nil {
		return nil, err
	}
	if headerSize != footerSize {
		return nil, malformed(sigBlockStructure, nil, "header size %d does not match footer size %d", headerSize, footerSize)
	}
	raw, err := bincursor.ReadBytesAt(r, size, start, total)
	if err != nil {
		return nil, err
	}
	return &SigningBlock{Offset: start, Raw: raw}, nil
}

// FindSigningBlockForEnd locates the signing block preceding the central
// directory named by end. The end record is the last structure in the file, so
// its end doubles as the file size.
func FindSigningBlockForEnd(r io.ReaderAt, end *EndRecord) (*SigningBlock, error) {
	return FindSigningBlock(r, end.End(), end.CDOffset())
}

// Size returns the value of the block's size fields
func (b *SigningBlock) Size() uint64 {
	return binary.LittleEndian.Uint64(b.Raw)
}

// End returns the offset just past the block, where the central directory
// begins
func (b *SigningBlock) End() int64 {
	return b.Offset + int64(len(b.Raw))
}

// Walk calls fn for each ID-value pair in order until fn returns false. Pairs
// whose length prefix is too small or runs past the footer produce a
// MalformedError.
func (b *SigningBlock) Walk(fn func(index int, p Pair) bool) error {
	if len(b.Raw) < sigBlockMinSize {
		return malformed(sigBlockStructure, nil, "block of %d bytes is too small", len(b.Raw))
	}
	limit := int64(len(b.Raw) - sigBlockFooterLen)
	c := bincursor.New(b.Raw[:limit])
	if err := c.Seek(8); err != nil {
		return err
	}
	for i := 1; c.Remaining() > 0; i++ {
		pairLen, err := c.Uint64()
		if err != nil {
			return malformed(sigBlockStructure, err, "truncated length of pair #%d", i)
		}
		if pairLen < 4 || pairLen > uint64(c.Remaining()) {
			return malformed(sigBlockStructure, nil, "pair #%d length %d out of range, %d bytes remain", i, pairLen, c.Remaining())
		}
		id, _ := c.Uint32()
		value, _ := c.Next(int64(pairLen) - 4)
		if !fn(i, Pair{ID: id, Value: value}) {
			return nil
		}
	}
	return nil
}

// Pairs returns all ID-value pairs of the block. Values alias the block.
func (b *SigningBlock) Pairs() ([]Pair, error) {
	var pairs []Pair
	err := b.Walk(func(_ int, p Pair) bool {
		pairs = append(pairs, p)
		return true
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// Find returns the value of the first pair with the given ID. Pairs after the
// match are not examined.
func (b *SigningBlock) Find(id uint32) (value []byte, found bool, err error) {
	err = b.Walk(func(_ int, p Pair) bool {
		if p.ID == id {
			value = p.Value
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// WithPair returns a copy of the block, at the same offset, with any existing
// pairs carrying p's ID removed and p appended immediately before the footer.
// Both size fields are updated. The returned delta is the change in the
// block's on-disk length.
func (b *SigningBlock) WithPair(p Pair) (newBlock *SigningBlock, delta int64, err error) {
	pairs, err := b.Pairs()
	if err != nil {
		return nil, 0, err
	}
	kept := pairs[:0:0]
	for _, existing := range pairs {
		if existing.ID != p.ID {
			kept = append(kept, existing)
		}
	}
	raw, err := MarshalSigningBlock(append(kept, p))
	if err != nil {
		return nil, 0, err
	}
	newBlock = &SigningBlock{Offset: b.Offset, Raw: raw}
	return newBlock, int64(len(raw) - len(b.Raw)), nil
}

// MarshalSigningBlock serializes a complete signing block from a list of pairs
func MarshalSigningBlock(pairs []Pair) ([]byte, error) {
	total := int64(8 + sigBlockFooterLen)
	for _, p := range pairs {
		total += p.Len()
	}
	if total-8 > math.MaxInt32-8 {
		return nil, fmt.Errorf("signing block of %d bytes is too large", total)
	}
	var buf bytes.Buffer
	buf.Grow(int(total))
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], uint64(total-8))
	buf.Write(scratch[:])
	for _, p := range pairs {
		binary.LittleEndian.PutUint64(scratch[:], uint64(4+len(p.Value)))
		buf.Write(scratch[:])
		binary.LittleEndian.PutUint32(scratch[:4], p.ID)
		buf.Write(scratch[:4])
		buf.Write(p.Value)
	}
	binary.LittleEndian.PutUint64(scratch[:], uint64(total-8))
	buf.Write(scratch[:])
	buf.WriteString(SigningBlockMagic)
	return buf.Bytes(), nil
}
