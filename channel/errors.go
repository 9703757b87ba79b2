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

package channel

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyChannel   = errors.New("channel must not be empty")
	ErrInvalidChannel = errors.New("channel is not valid UTF-8 or contains forbidden characters")
	ErrChannelTooLong = errors.New("channel is too long for this scheme")
	ErrNotZip         = errors.New("not a zip archive: end of central directory not found")
	ErrNotSigned      = errors.New("no APK signing block found; the signing block scheme requires a v2 or v3 signed APK")
)

// UnknownSchemeError is returned when a scheme name is not registered
type UnknownSchemeError struct {
	Name string
}

func (e UnknownSchemeError) Error() string {
	return fmt.Sprintf("unknown channel scheme %q", e.Name)
}
