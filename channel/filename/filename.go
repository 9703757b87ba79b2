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

// Package filename stores the channel as the name of an empty archive member,
// META-INF/channel_<channel> by default. Files under META-INF are excluded from
// the v1 (JAR) signature, but adding one means rebuilding the whole archive,
// which discards any APK Signing Block.
package filename

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/lib/atomicfile"
	"github.com/sassoftware/apkchannel/lib/binpatch"
	"github.com/sassoftware/apkchannel/lib/streamcopy"
	"github.com/sassoftware/apkchannel/lib/zipslicer"
)

var Scheme = &channel.Scheme{
	Name:        "filename",
	Aliases:     []string{"v1-file", "file"},
	Description: "empty marker entry named after the channel (v1 signed or unsigned)",
	Priority:    30,
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
	dir, err := zipslicer.ReadDirectory(f, size)
	if err != nil || dir == nil {
		return "", false, err
	}
	prefix := opts.Prefix()
	entry := dir.FindPrefix(prefix)
	if entry == nil {
		return "", false, nil
	}
	value := strings.TrimPrefix(entry.Name, prefix)
	if value == "" {
		return "", false, nil
	}
	log.Debug().Str("entry", entry.Name).Msg("found channel marker entry")
	return value, true, nil
}

// ValidateName rejects channels that cannot follow prefix in an archive member
// name
func ValidateName(value, prefix string) error {
	if err := channel.Validate(value); err != nil {
		return err
	}
	if strings.ContainsAny(value, "/\\\x00") {
		return fmt.Errorf("%w: %q", channel.ErrInvalidChannel, value)
	}
	if len(prefix)+len(value) > 0xffff {
		return channel.ErrChannelTooLong
	}
	return nil
}

func encode(src, dst, value string, opts channel.Options) error {
	if err := ValidateName(value, opts.Prefix()); err != nil {
		return err
	}
	f, size, err := binpatch.OpenFile(src)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, size)
	if errors.Is(err, zip.ErrFormat) {
		return fmt.Errorf("%w: %s", channel.ErrNotZip, err)
	} else if err != nil {
		return err
	}
	if end, err := zipslicer.FindEndRecord(f, size); err == nil && end != nil {
		if block, err := zipslicer.FindSigningBlock(f, size, end.CDOffset()); err == nil && block != nil {
			log.Warn().Str("path", src).Msg("rebuilding the archive discards its APK signing block")
		}
	}
	out, err := atomicfile.WriteAny(dst, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = streamcopy.DefaultBufferSize
	}
	bw := bufio.NewWriterSize(out, bufSize)
	if err := rebuild(zr, zip.NewWriter(bw), value, opts); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return out.Commit()
}

// rebuild writes the marker entry followed by every original entry, copied
// without recompression
func rebuild(zr *zip.Reader, zw *zip.Writer, value string, opts channel.Options) error {
	prefix := opts.Prefix()
	marker := &zip.FileHeader{
		Name:   prefix + value,
		Method: zip.Store,
	}
	if ref := referenceEntry(zr, opts.Reference()); ref != nil {
		marker.Modified = ref.Modified
		marker.ModifiedTime = ref.ModifiedTime
		marker.ModifiedDate = ref.ModifiedDate
	}
	if _, err := zw.CreateHeader(marker); err != nil {
		return err
	}
	copied := 0
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) {
			log.Debug().Str("entry", f.Name).Msg("dropping previous channel marker")
			continue
		}
		if err := zw.Copy(f); err != nil {
			return fmt.Errorf("copying %s: %w", f.Name, err)
		}
		copied++
	}
	if err := zw.SetComment(zr.Comment); err != nil {
		return err
	}
	log.Debug().Str("entry", marker.Name).Int("copied", copied).Msg("rebuilt archive")
	return zw.Close()
}

// referenceEntry finds the member whose timestamp the marker copies, falling
// back to the first member
func referenceEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	if len(zr.File) > 0 {
		return zr.File[0]
	}
	return nil
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
