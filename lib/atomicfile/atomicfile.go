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

// Package atomicfile writes a file under a temporary name and renames it into
// place only once all content has been written, so readers of the final path
// never observe a partial file.
package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// AtomicFile is a pending output file. Close without Commit discards it.
type AtomicFile interface {
	io.WriteCloser
	Commit() error
}

type atomicFile struct {
	name     string
	mode     os.FileMode
	tempfile *os.File
}

// New starts writing a file that will be renamed to name on Commit
func New(name string) (AtomicFile, error) {
	return NewMode(name, 0644)
}

// NewMode is like New but the committed file gets the given permissions
func NewMode(name string, mode os.FileMode) (AtomicFile, error) {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	tempfile, err := os.CreateTemp(dir, base+".tmp*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{name: name, mode: mode.Perm(), tempfile: tempfile}, nil
}

func (f *atomicFile) Write(d []byte) (int, error) {
	if f.tempfile == nil {
		return 0, os.ErrClosed
	}
	return f.tempfile.Write(d)
}

// Close discards the temporary file if it has not been committed
func (f *atomicFile) Close() error {
	if f.tempfile == nil {
		return nil
	}
	f.tempfile.Close()
	os.Remove(f.tempfile.Name())
	f.tempfile = nil
	return nil
}

func (f *atomicFile) Commit() error {
	if f.tempfile == nil {
		return errors.New("file is closed")
	}
	name := f.tempfile.Name()
	if err := f.tempfile.Chmod(f.mode); err != nil {
		f.Close()
		return err
	}
	if err := f.tempfile.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.tempfile.Close(); err != nil {
		os.Remove(name)
		f.tempfile = nil
		return err
	}
	f.tempfile = nil
	err := os.Rename(name, f.name)
	if err != nil && runtime.GOOS == "windows" {
		// rename can't overwrite on windows
		if rerr := os.Remove(f.name); rerr == nil || os.IsNotExist(rerr) {
			err = os.Rename(name, f.name)
		}
	}
	if err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
