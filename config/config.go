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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/sassoftware/apkchannel/channel"
)

const (
	EnvScheme   = "APKCHANNEL_SCHEME"
	EnvLogLevel = "APKCHANNEL_LOG_LEVEL"
)

type Config struct {
	Scheme         string `yaml:"scheme"`           // Default scheme for read and write, "auto" if unset
	LogLevel       string `yaml:"log_level"`        // zerolog level name
	LogFile        string `yaml:"log_file"`         // "-" for JSON on stderr, otherwise a path to append JSON to
	FilenamePrefix string `yaml:"filename_prefix"`  // Marker entry prefix for the filename scheme
	ReferenceEntry string `yaml:"reference_entry"`  // Entry whose timestamp the marker copies
	CopyBufferSize int    `yaml:"copy_buffer_size"` // Bytes buffered when copying unchanged data
	Concurrency    int    `yaml:"concurrency"`      // Parallel outputs when writing many channels
}

// New returns a configuration with defaults filled in
func New() *Config {
	cfg := new(Config)
	cfg.normalize()
	return cfg
}

func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := new(Config)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.CopyBufferSize < 0 {
		return errors.New("copy_buffer_size must not be negative")
	}
	if cfg.Concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	if cfg.LogFile != "" && cfg.LogFile != "-" && !filepath.IsAbs(cfg.LogFile) {
		return fmt.Errorf("log_file: %q must be an absolute path", cfg.LogFile)
	}
	return nil
}

func (cfg *Config) normalize() {
	if cfg.Scheme == "" {
		cfg.Scheme = channel.Auto
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
}

// ApplyEnvironment overrides settings from APKCHANNEL_* variables
func (cfg *Config) ApplyEnvironment() {
	if v := os.Getenv(EnvScheme); v != "" {
		cfg.Scheme = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// Options returns the scheme options selected by the configuration
func (cfg *Config) Options() channel.Options {
	return channel.Options{
		FilenamePrefix: cfg.FilenamePrefix,
		ReferenceEntry: cfg.ReferenceEntry,
		BufferSize:     cfg.CopyBufferSize,
	}
}
