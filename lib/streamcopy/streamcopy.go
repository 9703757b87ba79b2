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

package streamcopy

import (
	"fmt"
	"io"
)

// DefaultBufferSize is used when the caller does not supply a buffer
const DefaultBufferSize = 64 * 1024

// CopyRange copies exactly n bytes starting at off in src to dst. Memory use
// is bounded by the size of buf regardless of n. If buf is nil a buffer of
// DefaultBufferSize is allocated for the call.
func CopyRange(dst io.Writer, src io.ReaderAt, off, n int64, buf []byte) error {
	if off < 0 || n < 0 {
		return fmt.Errorf("invalid copy range %d+%d", off, n)
	}
	if n == 0 {
		return nil
	}
	if len(buf) == 0 {
		size := int64(DefaultBufferSize)
		if n < size {
			size = n
		}
		buf = make([]byte, size)
	}
	copied, err := io.CopyBuffer(dst, io.NewSectionReader(src, off, n), buf)
	if err != nil {
		return err
	}
	if copied != n {
		return fmt.Errorf("copying %d bytes at offset %d: %w", n, off, io.ErrUnexpectedEOF)
	}
	return nil
}
