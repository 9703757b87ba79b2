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

package logging

import (
	"errors"
	"os"
	"sync"
)

// ReopenWriter appends to a log file, reopening it whenever the path no longer
// refers to the file it has open, e.g. after logrotate moved it away
type ReopenWriter struct {
	path string
	mu   sync.Mutex
	f    *os.File
	fi   os.FileInfo
}

func NewReopenWriter(path string) (*ReopenWriter, error) {
	w := &ReopenWriter{path: path}
	if err := w.openLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *ReopenWriter) openLocked() error {
	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	// inode to compare against later
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if w.f != nil {
		w.f.Close()
	}
	w.f, w.fi = f, fi
	return nil
}

func (w *ReopenWriter) reopenLocked() error {
	if w.f != nil {
		fi, err := os.Stat(w.path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if fi != nil && os.SameFile(fi, w.fi) {
			return nil
		}
	}
	return w.openLocked()
}

func (w *ReopenWriter) Write(d []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.reopenLocked(); err != nil {
		return 0, err
	}
	return w.f.Write(d)
}

func (w *ReopenWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
