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

package shared

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/sassoftware/apkchannel/channel"
)

// SchemeValue is a flag holding a scheme name or "auto". Unknown names are
// rejected while parsing the command line.
type SchemeValue struct {
	name string
}

var _ pflag.Value = (*SchemeValue)(nil)

func (v *SchemeValue) String() string {
	return v.name
}

func (v *SchemeValue) Set(s string) error {
	s = strings.ToLower(s)
	if _, err := channel.Lookup(s); err != nil {
		return err
	}
	v.name = s
	return nil
}

func (v *SchemeValue) Type() string {
	return "scheme"
}

// Changed reports whether the flag was given
func (v *SchemeValue) Changed() bool {
	return v.name != ""
}

// AddSchemeFlag registers --scheme on fs
func AddSchemeFlag(fs *pflag.FlagSet, v *SchemeValue) {
	fs.VarP(v, "scheme", "s", "Channel scheme: auto, "+strings.Join(channel.Names(), ", "))
}

// ResolveScheme returns the scheme selected on the command line, falling back
// to the configured one. A nil scheme means automatic selection.
func ResolveScheme(v *SchemeValue) (*channel.Scheme, error) {
	name := v.name
	if name == "" && CurrentConfig != nil {
		name = CurrentConfig.Scheme
	}
	return channel.Lookup(name)
}
