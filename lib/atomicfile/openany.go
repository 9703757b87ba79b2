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

package atomicfile

import (
	"io"
	"os"
)

type nopAtomic struct {
	io.Writer
	closer func() error
}

func (a *nopAtomic) Close() error {
	if a.closer == nil {
		return nil
	}
	closer := a.closer
	a.closer = nil
	return closer()
}

func (a *nopAtomic) Commit() error {
	return a.Close()
}

func isSpecial(path string) bool {
	if stat, err := os.Stat(path); err == nil {
		if !stat.Mode().IsRegular() {
			return true
		}
	}
	return false
}

// WriteAny picks the best strategy for writing to the given path. "-" writes
// to standard output, pipes and devices are written to directly, and
// everything else uses write-rename with the given permissions.
func WriteAny(path string, mode os.FileMode) (AtomicFile, error) {
	if path == "-" {
		return &nopAtomic{Writer: os.Stdout}, nil
	}
	if isSpecial(path) {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			return nil, err
		}
		return &nopAtomic{Writer: f, closer: f.Close}, nil
	}
	return NewMode(path, mode)
}
