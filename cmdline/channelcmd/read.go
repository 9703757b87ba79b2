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

package channelcmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/cmdline/shared"
)

var ReadCmd = &cobra.Command{
	Use:   "read FILE...",
	Short: "Print the channel embedded in one or more files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  readCmd,
}

var readScheme shared.SchemeValue

func init() {
	shared.RootCmd.AddCommand(ReadCmd)
	shared.AddSchemeFlag(ReadCmd.Flags(), &readScheme)
}

type readResult struct {
	Scheme  *channel.Scheme
	Channel string
	Found   bool
}

func readOne(path string, scheme *channel.Scheme, opts channel.Options) (readResult, error) {
	if scheme == nil {
		s, value, ok, err := channel.ReadAny(path, opts)
		return readResult{Scheme: s, Channel: value, Found: ok}, err
	}
	value, ok, err := scheme.Decode(path, opts)
	return readResult{Scheme: scheme, Channel: value, Found: ok}, err
}

// readFiles prints one line per file and returns an error if any file could
// not be read
func readFiles(w io.Writer, paths []string, scheme *channel.Scheme, opts channel.Options) error {
	failed := 0
	for _, path := range paths {
		res, err := readOne(path, scheme, opts)
		if err != nil {
			fmt.Fprintf(w, "%s ERROR: %s\n", path, err)
			failed++
			continue
		}
		if !res.Found {
			fmt.Fprintf(w, "%s: no channel\n", path)
			continue
		}
		log.Debug().Str("path", path).Str("scheme", res.Scheme.Name).Msg("read channel")
		fmt.Fprintf(w, "%s: %s\n", path, res.Channel)
	}
	if failed != 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(paths))
	}
	return nil
}

func readCmd(cmd *cobra.Command, args []string) error {
	scheme, err := shared.ResolveScheme(&readScheme)
	if err != nil {
		return err
	}
	return shared.Fail(readFiles(cmd.OutOrStdout(), args, scheme, currentOptions()))
}
