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

// Package apktest synthesizes small zip and APK fixtures for tests
package apktest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sassoftware/apkchannel/lib/zipslicer"
)

// Pair IDs found in real signing blocks
const (
	BlockIDSchemeV2      = 0x7109871a
	BlockIDVerityPadding = 0x42726577
)

type Entry struct {
	Name     string
	Body     []byte
	Method   uint16
	Modified time.Time
}

var ManifestTime = time.Date(2021, 3, 4, 5, 6, 8, 0, time.UTC)

// DefaultEntries resembles the layout of a minimal APK
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "AndroidManifest.xml", Body: bytes.Repeat([]byte("manifest "), 40), Method: zip.Deflate, Modified: ManifestTime},
		{Name: "classes.dex", Body: []byte("dex\n035\x00 not really bytecode"), Method: zip.Store, Modified: ManifestTime.Add(time.Hour)},
		{Name: "res/raw/data.bin", Body: bytes.Repeat([]byte{0, 1, 2, 3, 0xff}, 300), Method: zip.Deflate, Modified: ManifestTime.Add(2 * time.Hour)},
	}
}

// BuildZip returns a zip archive holding entries, with an optional archive
// comment
func BuildZip(t testing.TB, entries []Entry, comment string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, e := range entries {
		fw, err := w.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   e.Method,
			Modified: e.Modified,
		})
		require.NoError(t, err)
		_, err = fw.Write(e.Body)
		require.NoError(t, err)
	}
	if comment != "" {
		require.NoError(t, w.SetComment(comment))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// InsertSigningBlock places a signing block holding pairs between the entry
// data and the central directory, and moves the end record's central
// directory offset to match
func InsertSigningBlock(t testing.TB, zipData []byte, pairs []zipslicer.Pair) []byte {
	t.Helper()
	end, err := zipslicer.FindEndRecord(bytes.NewReader(zipData), int64(len(zipData)))
	require.NoError(t, err)
	require.NotNil(t, end)
	block, err := zipslicer.MarshalSigningBlock(pairs)
	require.NoError(t, err)
	cd := end.CDOffset()
	newEnd, err := end.WithCDOffset(cd + int64(len(block)))
	require.NoError(t, err)
	out := make([]byte, 0, len(zipData)+len(block))
	out = append(out, zipData[:cd]...)
	out = append(out, block...)
	out = append(out, zipData[cd:end.Offset]...)
	out = append(out, newEnd.Raw...)
	return out
}

// SignedAPK returns an archive with a signing block holding one unrelated
// pair, ID 0x01 with a 3 byte value
func SignedAPK(t testing.TB) []byte {
	t.Helper()
	return InsertSigningBlock(t, BuildZip(t, DefaultEntries(), ""), []zipslicer.Pair{
		{ID: 0x01, Value: []byte{0xaa, 0xbb, 0xcc}},
	})
}

// WriteFile stores data in dir and returns the path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// ReadFile returns the contents of path
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
