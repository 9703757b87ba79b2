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
	"strings"

	"github.com/rs/zerolog/log"
)

// Auto is the pseudo scheme name that selects a scheme per file
const Auto = "auto"

// Lookup resolves a scheme name, returning nil for Auto
func Lookup(name string) (*Scheme, error) {
	if name == "" || strings.EqualFold(name, Auto) {
		return nil, nil
	}
	s := ByName(name)
	if s == nil {
		return nil, UnknownSchemeError{Name: name}
	}
	return s, nil
}

// ReadAny tries each registered scheme in priority order and returns the first
// channel found along with the scheme that held it
func ReadAny(path string, opts Options) (*Scheme, string, bool, error) {
	for _, s := range registered {
		value, ok, err := s.Decode(path, opts)
		if err != nil {
			return s, "", false, err
		}
		if ok {
			return s, value, true, nil
		}
		log.Debug().Str("path", path).Str("scheme", s.Name).Msg("no channel")
	}
	return nil, "", false, nil
}

// ChooseEncoder picks the highest priority scheme able to write to path
func ChooseEncoder(path string) (*Scheme, error) {
	for _, s := range registered {
		if s.CanEncode == nil {
			continue
		}
		ok, err := s.CanEncode(path)
		if err != nil {
			return nil, err
		}
		if ok {
			return s, nil
		}
	}
	return nil, ErrNotZip
}
