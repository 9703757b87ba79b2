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
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/sassoftware/apkchannel/lib/bincursor"
)

const (
	DirectoryEndSignature = 0x06054b50
	DirectoryEndLen       = 22
	MaxCommentLen         = math.MaxUint16

	directory64LocSignature = 0x07064b50
	directory64LocLen       = 20

	endTotalCountOffset = 10
	endCDSizeOffset     = 12
	endCDOffsetOffset   = 16
	endCommentLenOffset = 20

	uint32Max = math.MaxUint32
)

// EndRecord is the end of central directory record of a zip file, including
// its trailing comment.
type EndRecord struct {
	// Offset of the record from the start of the file
	Offset int64
	// Raw bytes of the record, from the signature to the end of the comment
	Raw []byte
}

// FindEndRecord locates the end of central directory record. It returns nil
// without an error if the file is too small or no valid record is found in the
// last 65557 bytes.
//
// Candidates are tried from the tail of the search window toward its head, and
// a candidate is only accepted if its comment length field exactly accounts for
// the bytes that follow it. This keeps a signature embedded in a comment from
// being mistaken for the real record.
func FindEndRecord(r io.ReaderAt, size int64) (*EndRecord, error) {
	if size < DirectoryEndLen {
		return nil, nil
	}
	window := int64(DirectoryEndLen + MaxCommentLen)
	if size < window {
		window = size
	}
	base := size - window
	buf, err := bincursor.ReadBytesAt(r, size, base, window)
	if err != nil {
		return nil, fmt.Errorf("reading zip trailer: %w", err)
	}
	for i := window - DirectoryEndLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:]) != DirectoryEndSignature {
			continue
		}
		commentLen := int64(binary.LittleEndian.Uint16(buf[i+endCommentLenOffset:]))
		if commentLen != window-i-DirectoryEndLen {
			continue
		}
		raw := make([]byte, window-i)
		copy(raw, buf[i:])
		return &EndRecord{Offset: base + i, Raw: raw}, nil
	}
	return nil, nil
}

// End returns the offset just past the record, which is normally the file size
func (e *EndRecord) End() int64 {
	return e.Offset + int64(len(e.Raw))
}

func (e *EndRecord) EntryCount() int {
	return int(binary.LittleEndian.Uint16(e.Raw[endTotalCountOffset:]))
}

func (e *EndRecord) CDSize() int64 {
	return int64(binary.LittleEndian.Uint32(e.Raw[endCDSizeOffset:]))
}

func (e *EndRecord) CDOffset() int64 {
	return int64(binary.LittleEndian.Uint32(e.Raw[endCDOffsetOffset:]))
}

func (e *EndRecord) CommentLength() int {
	return int(binary.LittleEndian.Uint16(e.Raw[endCommentLenOffset:]))
}

// Comment returns the archive comment. The result aliases the record.
func (e *EndRecord) Comment() []byte {
	return e.Raw[DirectoryEndLen:]
}

// IsZip64 reports whether a ZIP64 end of central directory locator
// immediately precedes the record.
func (e *EndRecord) IsZip64(r io.ReaderAt) bool {
	if e.Offset < directory64LocLen {
		return false
	}
	sig, err := bincursor.ReadUint32At(r, e.Offset, e.Offset-directory64LocLen)
	return err == nil && sig == directory64LocSignature
}

// WithCDOffset returns a copy of the record with the central directory offset
// replaced. All other fields are left untouched.
func (e *EndRecord) WithCDOffset(offset int64) (*EndRecord, error) {
	if offset < 0 || offset >= uint32Max {
		return nil, fmt.Errorf("central directory offset %d does not fit a 32-bit zip", offset)
	}
	raw := make([]byte, len(e.Raw))
	copy(raw, e.Raw)
	if err := bincursor.PutUint32(raw, endCDOffsetOffset, uint32(offset)); err != nil {
		return nil, err
	}
	return &EndRecord{Offset: e.Offset, Raw: raw}, nil
}

// WithComment returns a copy of the record with the comment replaced. The
// fixed fields before the comment length are copied unchanged.
func (e *EndRecord) WithComment(comment []byte) (*EndRecord, error) {
	if len(comment) > MaxCommentLen {
		return nil, ErrCommentTooLong
	}
	raw := make([]byte, DirectoryEndLen+len(comment))
	copy(raw, e.Raw[:endCommentLenOffset])
	if err := bincursor.PutUint16(raw, endCommentLenOffset, uint16(len(comment))); err != nil {
		return nil, err
	}
	copy(raw[DirectoryEndLen:], comment)
	return &EndRecord{Offset: e.Offset, Raw: raw}, nil
}
