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

package logging

import (
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const rfc3339Milli = "2006-01-02T15:04:05.000Z07:00" // RFC3339 with 3 decimal places, padded

// Setup points the global zerolog logger at stderr or a file and sets its
// level. An empty logFile writes human readable text to stderr, "-" writes
// JSON to stderr and anything else appends JSON to that path.
func Setup(levelName, logFile string) error {
	level, err := ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	w, err := output(logFile, os.Stderr)
	if err != nil {
		return fmt.Errorf("log_file: %w", err)
	}
	zerolog.TimeFieldFormat = rfc3339Milli
	zerolog.DurationFieldInteger = true
	log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(level)
	// pass stdlib logger through
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
	return nil
}

// ParseLevel is zerolog.ParseLevel with an empty name meaning info
func ParseLevel(levelName string) (zerolog.Level, error) {
	if levelName == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(levelName)
}

func output(logFile string, stderr *os.File) (io.Writer, error) {
	switch logFile {
	case "-":
		return stderr, nil
	case "":
		return zerolog.ConsoleWriter{
			Out:        stderr,
			TimeFormat: "15:04:05",
			NoColor:    !term.IsTerminal(int(stderr.Fd())),
		}, nil
	default:
		return NewReopenWriter(logFile)
	}
}
