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

	"github.com/spf13/cobra"

	"github.com/sassoftware/apkchannel/config"
	"github.com/sassoftware/apkchannel/internal/logging"
)

var ArgConfig string
var CurrentConfig *config.Config
var (
	argVersion  bool
	argLogLevel string
	argLogFile  string
)

var RootCmd = &cobra.Command{
	Use:               "apkchannel",
	Short:             "Embed and extract distribution channel markers in APK files",
	PersistentPreRunE: setup,
	RunE:              bailUnlessVersion,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&ArgConfig, "config", "", "Configuration file")
	RootCmd.PersistentFlags().BoolVar(&argVersion, "version", false, "Show version and exit")
	RootCmd.PersistentFlags().StringVar(&argLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&argLogFile, "log-file", "", "Write JSON logs to this file, or - for stderr")
}

func setup(cmd *cobra.Command, args []string) error {
	if argVersion {
		fmt.Printf("apkchannel version %s (%s)\n", config.Version, config.Commit)
		os.Exit(0)
	}
	if err := InitConfig(); err != nil {
		return err
	}
	if argLogLevel != "" {
		CurrentConfig.LogLevel = argLogLevel
	}
	if argLogFile != "" {
		CurrentConfig.LogFile = argLogFile
	}
	return logging.Setup(CurrentConfig.LogLevel, CurrentConfig.LogFile)
}

func bailUnlessVersion(cmd *cobra.Command, args []string) error {
	if !argVersion {
		return errors.New("Expected a command")
	}
	return nil
}

func Main() {
	if err := RootCmd.Execute(); err != nil {
		Fail(err)
	}
}
