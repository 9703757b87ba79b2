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

// Package sigblock stores the channel as an ID-value pair of the APK Signing
// Block. The v2 and v3 signature schemes do not cover the signing block
// itself, so the pair can be added without invalidating the signature as long
// as the central directory offset in the end record is moved to match.
package sigblock

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/lib/binpatch"
	"github.com/sassoftware/apkchannel/lib/zipslicer"
)

var Scheme = &channel.Scheme{
	Name:        "sigblock",
	Aliases:     []string{"v2", "v3", "signing-block"},
	Description: "ID-value pair inside the APK Signing Block (v2/v3 signed APKs)",
	Priority:    10,
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

// Read extracts the channel from a container of the given size. A missing end
// record, signing block or channel pair is reported as ok == false.
func Read(r io.ReaderAt, size int64) (value string, ok bool, err error) {
	end, block, err := locate(r, size)
	if err != nil || block == nil {
		return "", false, err
	}
	raw, found, err := block.Find(channel.Magic)
	if err != nil {
		return "", false, err
	}
	if !found || len(raw) == 0 {
		return "", false, nil
	}
	log.Debug().
		Int64("block_offset", block.Offset).
		Int64("cd_offset", end.CDOffset()).
		Int("length", len(raw)).
		Msg("found channel pair in signing block")
	return strings.ToValidUTF8(string(raw), "\uFFFD"), true, nil
}

func locate(r io.ReaderAt, size int64) (*zipslicer.EndRecord, *zipslicer.SigningBlock, error) {
	end, err := zipslicer.FindEndRecord(r, size)
	if err != nil || end == nil {
		return nil, nil, err
	}
	block, err := zipslicer.FindSigningBlockForEnd(r, end)
	if err != nil {
		return nil, nil, err
	}
	return end, block, nil
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

// Patch computes the two replacements needed to embed value: the signing block
// grows by one pair, and the end record's central directory offset moves by
// the same amount. Everything else in the file is copied unchanged.
func Patch(r io.ReaderAt, size int64, value string) (*binpatch.PatchSet, error) {
	if err := channel.Validate(value); err != nil {
		return nil, err
	}
	end, block, err := locate(r, size)
	if err != nil {
		return nil, err
	} else if end == nil {
		return nil, channel.ErrNotZip
	} else if block == nil {
		return nil, channel.ErrNotSigned
	}
	if end.IsZip64(r) {
		return nil, errors.New("ZIP64 archives are not supported")
	}
	newBlock, delta, err := block.WithPair(zipslicer.Pair{ID: channel.Magic, Value: []byte(value)})
	if err != nil {
		return nil, err
	}
	newEnd, err := end.WithCDOffset(end.CDOffset() + delta)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", channel.ErrChannelTooLong, err)
	}
	log.Debug().
		Int64("block_offset", block.Offset).
		Uint64("old_size", block.Size()).
		Uint64("new_size", newBlock.Size()).
		Int64("old_cd_offset", end.CDOffset()).
		Int64("new_cd_offset", newEnd.CDOffset()).
		Msg("inserting channel pair")
	patch := binpatch.New()
	patch.Add(block.Offset, int64(len(block.Raw)), newBlock.Raw)
	patch.Add(end.Offset, int64(len(end.Raw)), newEnd.Raw)
	return patch, nil
}

func canEncode(path string) (bool, error) {
	f, size, err := binpatch.OpenFile(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	_, block, err := locate(f, size)
	if err != nil {
		return false, err
	}
	return block != nil, nil
}
