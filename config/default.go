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
	"os"
	"path/filepath"
)

const configName = "apkchannel.yaml"

// DefaultDir is the per-user configuration directory, e.g.
// ~/.config/apkchannel, or "" if the platform has none
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "apkchannel")
}

// DefaultConfig is the path of the configuration file read when --config is
// not given. It is fine for it not to exist.
func DefaultConfig() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, configName)
}
