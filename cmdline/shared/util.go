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
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/sassoftware/apkchannel/config"
)

// InitConfig loads the configuration file named by --config, or the default
// one if it exists, then applies environment overrides
func InitConfig() error {
	if CurrentConfig != nil {
		return nil
	}
	usedDefault := false
	path := ArgConfig
	if path == "" {
		path = config.DefaultConfig()
		usedDefault = true
	}
	cfg := config.New()
	if path != "" {
		loaded, err := config.ReadFile(path)
		switch {
		case err == nil:
			cfg = loaded
		case usedDefault && errors.Is(err, os.ErrNotExist):
			// defaults only
		default:
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	cfg.ApplyEnvironment()
	CurrentConfig = cfg
	return nil
}

// Fail prints err and exits with a nonzero status
func Fail(err error) error {
	if err != nil {
		log.Debug().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(70)
	}
	return err
}
