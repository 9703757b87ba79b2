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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/cmdline/shared"
)

var WriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write copies of a file with a channel embedded",
	RunE:  writeCmd,
}

var (
	argInput       string
	argOutput      string
	argOutDir      string
	argChannels    []string
	argChannelFile string
	argJobs        int
	writeScheme    shared.SchemeValue
)

func init() {
	shared.RootCmd.AddCommand(WriteCmd)
	WriteCmd.Flags().StringVarP(&argInput, "input", "i", "", "Input APK or zip file")
	WriteCmd.Flags().StringVarP(&argOutput, "output", "o", "", "Output file for a single channel; may be the input file")
	WriteCmd.Flags().StringVar(&argOutDir, "outdir", "", "Output directory when writing several channels")
	WriteCmd.Flags().StringArrayVarP(&argChannels, "channel", "c", nil, "Channel to embed; Can be specified multiple times")
	WriteCmd.Flags().StringVar(&argChannelFile, "channel-file", "", "File listing one channel per line")
	WriteCmd.Flags().IntVarP(&argJobs, "jobs", "j", 0, "Number of outputs to write in parallel (default from config)")
	shared.AddSchemeFlag(WriteCmd.Flags(), &writeScheme)
}

type writeJob struct {
	Channel string
	Output  string
}

// readChannelFile returns the channels listed in r, one per line. Blank lines
// and lines starting with # are skipped.
func readChannelFile(r io.Reader) ([]string, error) {
	var channels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		channels = append(channels, line)
	}
	return channels, scanner.Err()
}

func collectChannels(flagValues []string, channelFile string) ([]string, error) {
	channels := append([]string(nil), flagValues...)
	if channelFile != "" {
		f, err := os.Open(channelFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		fromFile, err := readChannelFile(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", channelFile, err)
		}
		channels = append(channels, fromFile...)
	}
	seen := make(map[string]bool, len(channels))
	unique := channels[:0]
	for _, c := range channels {
		if seen[c] {
			log.Debug().Str("channel", c).Msg("skipping duplicate channel")
			continue
		}
		seen[c] = true
		unique = append(unique, c)
	}
	return unique, nil
}

// outputName derives <base>_<channel><ext> in outDir from the input path
func outputName(input, outDir, value string) (string, error) {
	if strings.ContainsAny(value, "/\\\x00") || value == "." || value == ".." {
		return "", fmt.Errorf("%w: %q cannot be used in a file name", channel.ErrInvalidChannel, value)
	}
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	return filepath.Join(outDir, strings.TrimSuffix(base, ext)+"_"+value+ext), nil
}

func planJobs(input, output, outDir string, channels []string) ([]writeJob, error) {
	switch {
	case len(channels) == 0:
		return nil, errors.New("--channel or --channel-file is required")
	case output != "" && outDir != "":
		return nil, errors.New("--output and --outdir are mutually exclusive")
	case output != "":
		if len(channels) != 1 {
			return nil, errors.New("--output takes exactly one channel; use --outdir for several")
		}
		return []writeJob{{Channel: channels[0], Output: output}}, nil
	case outDir == "":
		return nil, errors.New("--output or --outdir is required")
	}
	jobs := make([]writeJob, len(channels))
	for i, c := range channels {
		name, err := outputName(input, outDir, c)
		if err != nil {
			return nil, err
		}
		jobs[i] = writeJob{Channel: c, Output: name}
	}
	return jobs, nil
}

// writeAll encodes every job from input, at most concurrency at a time. The
// first failure cancels jobs that have not started yet.
func writeAll(ctx context.Context, input string, scheme *channel.Scheme, jobs []writeJob, concurrency int, opts channel.Options) error {
	if scheme == nil {
		var err error
		scheme, err = channel.ChooseEncoder(input)
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}
		log.Info().Str("path", input).Str("scheme", scheme.Name).Msg("selected scheme")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for _, job := range jobs {
		job := job
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := scheme.Encode(input, job.Output, job.Channel, opts); err != nil {
				return fmt.Errorf("channel %q: %w", job.Channel, err)
			}
			log.Info().Str("output", job.Output).Str("channel", job.Channel).Str("scheme", scheme.Name).Msg("wrote channel")
			return nil
		})
	}
	return eg.Wait()
}

func writeCmd(cmd *cobra.Command, args []string) error {
	if argInput == "" {
		return errors.New("--input is required")
	}
	scheme, err := shared.ResolveScheme(&writeScheme)
	if err != nil {
		return err
	}
	channels, err := collectChannels(argChannels, argChannelFile)
	if err != nil {
		return shared.Fail(err)
	}
	jobs, err := planJobs(argInput, argOutput, argOutDir, channels)
	if err != nil {
		return err
	}
	if argOutDir != "" {
		if err := os.MkdirAll(argOutDir, 0755); err != nil {
			return shared.Fail(err)
		}
	}
	concurrency := argJobs
	if concurrency == 0 && shared.CurrentConfig != nil {
		concurrency = shared.CurrentConfig.Concurrency
	}
	return shared.Fail(writeAll(cmd.Context(), argInput, scheme, jobs, concurrency, currentOptions()))
}
