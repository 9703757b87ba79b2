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

// Package channel holds the registry of channel embedding schemes. Each
// scheme lives in a subpackage and registers itself on import.
package channel

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sassoftware/apkchannel/lib/zipslicer"
)

// Magic tags channel data in both the zip comment and the signing block
const Magic = zipslicer.DirectoryEndSignature + 1

const (
	DefaultFilenamePrefix = "META-INF/channel_"
	DefaultReferenceEntry = "AndroidManifest.xml"
)

// Options tune how schemes read and write containers. The zero value selects
// the defaults.
type Options struct {
	// FilenamePrefix names the marker entry of the filename scheme
	FilenamePrefix string
	// ReferenceEntry is the archive member whose timestamp the marker entry
	// copies
	ReferenceEntry string
	// BufferSize bounds the memory used to stream unchanged file regions
	BufferSize int
}

func (o Options) Prefix() string {
	if o.FilenamePrefix == "" {
		return DefaultFilenamePrefix
	}
	return o.FilenamePrefix
}

func (o Options) Reference() string {
	if o.ReferenceEntry == "" {
		return DefaultReferenceEntry
	}
	return o.ReferenceEntry
}

type Scheme struct {
	Name        string
	Aliases     []string
	Description string
	// Priority orders schemes when reading with automatic selection; lower
	// values are tried first
	Priority int
	// Decode returns the embedded channel. ok is false without an error if
	// the file carries no channel for this scheme.
	Decode func(path string, opts Options) (channel string, ok bool, err error)
	// Encode writes a copy of src with channel embedded to dst. Nothing is
	// written to dst on failure.
	Encode func(src, dst, channel string, opts Options) error
	// CanEncode reports whether the file has the structures Encode relies on
	CanEncode func(path string) (bool, error)
}

var registered []*Scheme

func Register(s *Scheme) {
	registered = append(registered, s)
	sort.SliceStable(registered, func(i, j int) bool {
		return registered[i].Priority < registered[j].Priority
	})
}

// ByName returns the scheme with the given name or alias
func ByName(name string) *Scheme {
	name = strings.ToLower(name)
	for _, s := range registered {
		if s.Name == name {
			return s
		}
		for _, alias := range s.Aliases {
			if alias == name {
				return s
			}
		}
	}
	return nil
}

// All returns registered schemes in priority order
func All() []*Scheme {
	return append([]*Scheme(nil), registered...)
}

// Names returns the names of registered schemes in priority order
func Names() []string {
	names := make([]string, len(registered))
	for i, s := range registered {
		names[i] = s.Name
	}
	return names
}

// Validate rejects channel strings that no scheme can carry
func Validate(channel string) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if !utf8.ValidString(channel) {
		return ErrInvalidChannel
	}
	// a backward scan for the end record would stop on the copy
	if strings.Contains(channel, endSignature) {
		return fmt.Errorf("%w: contains the end of central directory signature", ErrInvalidChannel)
	}
	return nil
}

var endSignature = string(binary.LittleEndian.AppendUint32(nil, zipslicer.DirectoryEndSignature))
