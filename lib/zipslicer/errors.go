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
	"errors"
	"fmt"
)

// MalformedError indicates that a structure was found but its size or offset
// fields are inconsistent. It is distinct from a structure simply being
// absent.
type MalformedError struct {
	Structure string
	Reason    string
	Err       error
}

func (e *MalformedError) Error() string {
	msg := "malformed " + e.Structure + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// IsMalformed returns true if err is or wraps a MalformedError
func IsMalformed(err error) bool {
	var e *MalformedError
	return errors.As(err, &e)
}

func malformed(structure string, err error, format string, args ...interface{}) error {
	return &MalformedError{
		Structure: structure,
		Reason:    fmt.Sprintf(format, args...),
		Err:       err,
	}
}

// ErrCommentTooLong is returned when a rebuilt end record would not fit its
// 16-bit comment length field
var ErrCommentTooLong = errors.New("zip comment exceeds 65535 bytes")
