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

// Package binpatch rewrites selected byte ranges of a file while streaming
// every other byte through unchanged.
package binpatch

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/sassoftware/apkchannel/lib/atomicfile"
	"github.com/sassoftware/apkchannel/lib/streamcopy"
)

// Patch replaces OldLength bytes at Offset of the source with Blob, which may
// be of a different length
type Patch struct {
	Offset    int64
	OldLength int64
	Blob      []byte
}

type PatchSet struct {
	Patches []Patch
	// BufferSize bounds the memory used to copy unpatched ranges. Zero
	// selects streamcopy.DefaultBufferSize.
	BufferSize int
}

func New() *PatchSet {
	return new(PatchSet)
}

// Add replaces oldLength bytes at offset with blob
func (p *PatchSet) Add(offset, oldLength int64, blob []byte) {
	p.Patches = append(p.Patches, Patch{Offset: offset, OldLength: oldLength, Blob: blob})
}

// OutputSize returns the length of the result when applied to a source of the
// given size
func (p *PatchSet) OutputSize(size int64) int64 {
	for _, patch := range p.Patches {
		size += int64(len(patch.Blob)) - patch.OldLength
	}
	return size
}

func (p *PatchSet) check(size int64) error {
	sort.SliceStable(p.Patches, func(i, j int) bool {
		return p.Patches[i].Offset < p.Patches[j].Offset
	})
	var pos int64
	for _, patch := range p.Patches {
		if patch.Offset < pos || patch.OldLength < 0 {
			return fmt.Errorf("patch at %d+%d overlaps a previous patch", patch.Offset, patch.OldLength)
		}
		pos = patch.Offset + patch.OldLength
		if pos > size {
			return fmt.Errorf("patch at %d+%d exceeds source size %d", patch.Offset, patch.OldLength, size)
		}
	}
	return nil
}

// WriteTo streams the patched result of src, which is size bytes long, to w
func (p *PatchSet) WriteTo(w io.Writer, src io.ReaderAt, size int64) error {
	if err := p.check(size); err != nil {
		return err
	}
	bufSize := p.BufferSize
	if bufSize <= 0 {
		bufSize = streamcopy.DefaultBufferSize
	}
	buf := make([]byte, bufSize)
	var pos int64
	for _, patch := range p.Patches {
		if err := streamcopy.CopyRange(w, src, pos, patch.Offset-pos, buf); err != nil {
			return err
		}
		if n, err := w.Write(patch.Blob); err != nil {
			return err
		} else if n != len(patch.Blob) {
			return io.ErrShortWrite
		}
		pos = patch.Offset + patch.OldLength
	}
	return streamcopy.CopyRange(w, src, pos, size-pos, buf)
}

// Apply writes the patched contents of infile to outpath. Regular files are
// written to a temporary name and renamed into place on success, so outpath
// may be the same file as infile and is left untouched on failure.
func (p *PatchSet) Apply(infile *os.File, outpath string) error {
	info, err := infile.Stat()
	if err != nil {
		return err
	}
	out, err := atomicfile.WriteAny(outpath, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	if err := p.WriteTo(out, infile, info.Size()); err != nil {
		return err
	}
	if err := out.Commit(); err != nil {
		return err
	}
	log.Debug().
		Str("path", outpath).
		Int("patches", len(p.Patches)).
		Int64("size", p.OutputSize(info.Size())).
		Msg("wrote patched file")
	return nil
}
