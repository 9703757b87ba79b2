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

package magic

import (
	"bytes"
	"encoding/binary"
	"io"
)

type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeZIP
	FileTypeJAR
	FileTypeAPK
)

var typeNames = map[FileType]string{
	FileTypeUnknown: "unknown",
	FileTypeZIP:     "zip",
	FileTypeJAR:     "jar",
	FileTypeAPK:     "apk",
}

func (t FileType) String() string {
	return typeNames[t]
}

const localHeaderLen = 30

// Detect identifies a zip-family container from its leading bytes
func Detect(r io.Reader) FileType {
	var buf [1024]byte
	n, _ := io.ReadFull(r, buf[:])
	blob := buf[:n]
	switch {
	case bytes.HasPrefix(blob, []byte{0x50, 0x4b, 0x05, 0x06}):
		// empty archive
		return FileTypeZIP
	case bytes.HasPrefix(blob, []byte{0x50, 0x4b, 0x03, 0x04}):
		if len(blob) >= localHeaderLen {
			fnLen := int(binary.LittleEndian.Uint16(blob[26:28]))
			if end := localHeaderLen + fnLen; end <= len(blob) {
				switch string(blob[localHeaderLen:end]) {
				case "AndroidManifest.xml", "classes.dex", "resources.arsc":
					return FileTypeAPK
				}
			}
		}
		if bytes.Contains(blob, []byte("AndroidManifest.xml")) {
			return FileTypeAPK
		}
		if bytes.Contains(blob, []byte("META-INF/")) {
			return FileTypeJAR
		}
		return FileTypeZIP
	}
	return FileTypeUnknown
}
