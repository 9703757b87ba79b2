/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"runtime/debug"
	"strings"
)

var (
	Version = "unknown"
	Commit  = "unknown"
)

// SetVersion records the version stamped in at link time. Without one, the
// module version is used when the binary was built with `go install`.
func SetVersion(version, commit string) {
	if version != "" && version != "unknown" {
		Version, Commit = version, commit
		return
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		setFromBuildInfo(bi)
	}
}

func setFromBuildInfo(bi *debug.BuildInfo) {
	if strings.HasPrefix(bi.Main.Version, "v") {
		Version = bi.Main.Version
		Commit = bi.Main.Sum
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && Commit == "unknown" {
			Commit = s.Value
		}
	}
}
