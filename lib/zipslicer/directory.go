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
	"io"
	"strings"

	"github.com/sassoftware/apkchannel/lib/bincursor"
)

const (
	directoryHeaderSignature = 0x02014b50
	directoryHeaderLen       = 46
	zip64ExtraID             = 0x0001
	uint16Max                = 0xffff

	directoryStructure = "central directory"
)

// File is one entry of the central directory
type File struct {
	Name             string
	CreatorVersion   uint16
	ReaderVersion    uint16
	Flags            uint16
	Method           uint16
	ModifiedTime     uint16
	ModifiedDate     uint16
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
	Offset           uint64
	Extra            []byte
	Comment          []byte
}

// Directory is the parsed central directory of a zip file
type Directory struct {
	File []*File
	// DirLoc is the offset of the first central directory header
	DirLoc int64
	End    *EndRecord
}

// ReadDirectory locates the end record and parses every central directory
// entry. It returns nil without an error if the file is not a zip.
func ReadDirectory(r io.ReaderAt, size int64) (*Directory, error) {
	end, err := FindEndRecord(r, size)
	if err != nil || end == nil {
		return nil, err
	}
	return ReadWithEndRecord(r, end)
}

// ReadWithEndRecord parses the central directory described by an already
// located end record
func ReadWithEndRecord(r io.ReaderAt, end *EndRecord) (*Directory, error) {
	if end.IsZip64(r) {
		return nil, malformed(directoryStructure, nil, "ZIP64 archives are not supported")
	}
	cdOffset, cdSize := end.CDOffset(), end.CDSize()
	if cdOffset+cdSize > end.Offset {
		return nil, malformed(directoryStructure, nil, "directory at %d+%d overlaps end record at %d", cdOffset, cdSize, end.Offset)
	}
	cd, err := bincursor.ReadBytesAt(r, end.Offset, cdOffset, cdSize)
	if err != nil {
		return nil, err
	}
	files := make([]*File, 0, end.EntryCount())
	c := bincursor.New(cd)
	for c.Remaining() > 0 {
		f, err := readDirectoryHeader(c)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if end.EntryCount() != uint16Max && len(files) != end.EntryCount() {
		return nil, malformed(directoryStructure, nil, "found %d entries but end record claims %d", len(files), end.EntryCount())
	}
	return &Directory{File: files, DirLoc: cdOffset, End: end}, nil
}

func readDirectoryHeader(c *bincursor.Cursor) (*File, error) {
	pos := c.Pos()
	hdr, err := c.Next(directoryHeaderLen)
	if err != nil {
		return nil, malformed(directoryStructure, err, "truncated header at %d", pos)
	}
	if binary.LittleEndian.Uint32(hdr) != directoryHeaderSignature {
		return nil, malformed(directoryStructure, nil, "bad header signature at %d", pos)
	}
	f := &File{
		CreatorVersion:   binary.LittleEndian.Uint16(hdr[4:]),
		ReaderVersion:    binary.LittleEndian.Uint16(hdr[6:]),
		Flags:            binary.LittleEndian.Uint16(hdr[8:]),
		Method:           binary.LittleEndian.Uint16(hdr[10:]),
		ModifiedTime:     binary.LittleEndian.Uint16(hdr[12:]),
		ModifiedDate:     binary.LittleEndian.Uint16(hdr[14:]),
		CRC32:            binary.LittleEndian.Uint32(hdr[16:]),
		CompressedSize:   uint64(binary.LittleEndian.Uint32(hdr[20:])),
		UncompressedSize: uint64(binary.LittleEndian.Uint32(hdr[24:])),
		Offset:           uint64(binary.LittleEndian.Uint32(hdr[42:])),
	}
	nameLen := int64(binary.LittleEndian.Uint16(hdr[28:]))
	extraLen := int64(binary.LittleEndian.Uint16(hdr[30:]))
	commentLen := int64(binary.LittleEndian.Uint16(hdr[32:]))
	name, err := c.Next(nameLen)
	if err != nil {
		return nil, malformed(directoryStructure, err, "truncated file name at %d", pos)
	}
	f.Name = string(name)
	if f.Extra, err = c.Next(extraLen); err != nil {
		return nil, malformed(directoryStructure, err, "truncated extra field of %q", f.Name)
	}
	if f.Comment, err = c.Next(commentLen); err != nil {
		return nil, malformed(directoryStructure, err, "truncated comment of %q", f.Name)
	}
	f.applyZip64Extra()
	return f, nil
}

func (f *File) applyZip64Extra() {
	needUSize := f.UncompressedSize == uint32Max
	needCSize := f.CompressedSize == uint32Max
	needOffset := f.Offset == uint32Max
	extra := f.Extra
	for len(extra) >= 4 {
		tag := binary.LittleEndian.Uint16(extra[:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if size > len(extra)-4 {
			break
		}
		if tag == zip64ExtraID {
			e := extra[4 : 4+size]
			if needUSize && len(e) >= 8 {
				f.UncompressedSize = binary.LittleEndian.Uint64(e)
				e = e[8:]
			}
			if needCSize && len(e) >= 8 {
				f.CompressedSize = binary.LittleEndian.Uint64(e)
				e = e[8:]
			}
			if needOffset && len(e) >= 8 {
				f.Offset = binary.LittleEndian.Uint64(e)
			}
			break
		}
		extra = extra[4+size:]
	}
}

// FindPrefix returns the first entry whose name starts with prefix, or nil
func (d *Directory) FindPrefix(prefix string) *File {
	for _, f := range d.File {
		if strings.HasPrefix(f.Name, prefix) {
			return f
		}
	}
	return nil
}
