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

// Package comment stores the channel at the end of the zip archive comment.
// The v1 (JAR) signature scheme does not cover the comment.
//
// The trailer is laid out so it can be found by reading backwards from the end
// of the file:
//
//	channel   n bytes
//	n         uint16
//	magic     uint32 0x06054b51
package comment

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/lib/bincursor"
	"github.com/sassoftware/apkchannel/lib/binpatch"
	"github.com/sassoftware/apkchannel/lib/zipslicer"
)

const trailerLen = 2 + 4

var Scheme = &channel.Scheme{
	Name:        "comment",
	Aliases:     []string{"v1-comment", "zip-comment"},
	Description: "trailer appended to the zip archive comment (v1 signed or unsigned)",
	Priority:    20,
	Decode:      decode,
	Encode:      encode,
	CanEncode:   canEncode,
}

func init() {
	channel.Register(Scheme)
}

func decode(path string, opts channel.Options) (string, bool, error) {
	f, size, err := binpatch.OpenFile(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()
	return Read(f, size)
}

// Read extracts the channel from the trailer at the end of the file. The
// trailer must lie within the archive comment; a length that reaches beyond it
// is reported as a MalformedError.
func Read(r io.ReaderAt, size int64) (string, bool, error) {
	if size < trailerLen {
		return "", false, nil
	}
	magic, err := bincursor.ReadUint32At(r, size, size-4)
	if err != nil {
		return "", false, err
	}
	if magic != channel.Magic {
		return "", false, nil
	}
	n, err := bincursor.ReadUint16At(r, size, size-trailerLen)
	if err != nil {
		return "", false, err
	}
	if n == 0 {
		return "", false, nil
	}
	end, err := zipslicer.FindEndRecord(r, size)
	if err != nil || end == nil {
		return "", false, err
	}
	comment := end.Comment()
	if int(n)+trailerLen > len(comment) {
		return "", false, &zipslicer.MalformedError{
			Structure: "zip comment",
			Reason:    fmt.Sprintf("channel length %d exceeds the %d byte comment", n, len(comment)),
		}
	}
	value := comment[len(comment)-trailerLen-int(n) : len(comment)-trailerLen]
	log.Debug().Int64("eocd_offset", end.Offset).Int("length", int(n)).Msg("found channel in zip comment")
	return strings.ToValidUTF8(string(value), "\uFFFD"), true, nil
}

// existingTrailer returns the length of a well-formed channel trailer at the
// end of comment, or 0
func existingTrailer(comment []byte) int {
	if len(comment) < trailerLen {
		return 0
	}
	if binary.LittleEndian.Uint32(comment[len(comment)-4:]) != channel.Magic {
		return 0
	}
	n := int(binary.LittleEndian.Uint16(comment[len(comment)-trailerLen:]))
	if n == 0 || n+trailerLen > len(comment) {
		return 0
	}
	return n + trailerLen
}

func encode(src, dst, value string, opts channel.Options) error {
	if err := channel.Validate(value); err != nil {
		return err
	}
	f, size, err := binpatch.OpenFile(src)
	if err != nil {
		return err
	}
	defer f.Close()
	patch, err := Patch(f, size, value)
	if err != nil {
		return err
	}
	patch.BufferSize = opts.BufferSize
	return patch.Apply(f, dst)
}

// Patch computes the replacement end record carrying value. The original
// comment is kept as a prefix of the new one, minus any channel trailer a
// previous run left behind.
func Patch(r io.ReaderAt, size int64, value string) (*binpatch.PatchSet, error) {
	if err := channel.Validate(value); err != nil {
		return nil, err
	}
	end, err := zipslicer.FindEndRecord(r, size)
	if err != nil {
		return nil, err
	} else if end == nil {
		return nil, channel.ErrNotZip
	}
	comment := end.Comment()
	if prev := existingTrailer(comment); prev > 0 {
		log.Debug().Int("length", prev).Msg("replacing existing channel trailer")
		comment = comment[:len(comment)-prev]
	}
	newLen := len(comment) + len(value) + trailerLen
	if newLen > zipslicer.MaxCommentLen {
		return nil, fmt.Errorf("%w: comment would be %d bytes, limit is %d", channel.ErrChannelTooLong, newLen, zipslicer.MaxCommentLen)
	}
	newComment := make([]byte, 0, newLen)
	newComment = append(newComment, comment...)
	newComment = append(newComment, value...)
	newComment = binary.LittleEndian.AppendUint16(newComment, uint16(len(value)))
	newComment = binary.LittleEndian.AppendUint32(newComment, channel.Magic)
	newEnd, err := end.WithComment(newComment)
	if err != nil {
		return nil, err
	}
	// the kept comment and the channel together can still spell out a
	// record that a reader would find before this one
	if found, err := zipslicer.FindEndRecord(bytes.NewReader(newEnd.Raw), int64(len(newEnd.Raw))); err != nil || found == nil || found.Offset != 0 {
		return nil, fmt.Errorf("%w: comment would hide the end of central directory record", channel.ErrInvalidChannel)
	}
	log.Debug().
		Int64("eocd_offset", end.Offset).
		Int("old_comment_length", end.CommentLength()).
		Int("new_comment_length", newEnd.CommentLength()).
		Msg("appending channel to zip comment")
	patch := binpatch.New()
	patch.Add(end.Offset, int64(len(end.Raw)), newEnd.Raw)
	return patch, nil
}

func canEncode(path string) (bool, error) {
	f, size, err := binpatch.OpenFile(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	end, err := zipslicer.FindEndRecord(f, size)
	return end != nil, err
}
