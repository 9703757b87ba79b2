package config

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/apkchannel/channel"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
scheme: comment
log_level: debug
filename_prefix: META-INF/market_
reference_entry: classes.dex
copy_buffer_size: 4096
concurrency: 2
`))
	require.NoError(t, err)
	assert.Equal(t, "comment", cfg.Scheme)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, channel.Options{
		FilenamePrefix: "META-INF/market_",
		ReferenceEntry: "classes.dex",
		BufferSize:     4096,
	}, cfg.Options())
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
	assert.Equal(t, channel.Auto, cfg.Scheme)
	assert.Equal(t, runtime.NumCPU(), cfg.Concurrency)
	assert.Equal(t, channel.Options{}, cfg.Options())
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"Syntax":         "scheme: [unterminated",
		"NegativeBuffer": "copy_buffer_size: -1",
		"NegativeJobs":   "concurrency: -4",
		"RelativeLog":    "log_file: logs/apkchannel.log",
	}
	for name, doc := range tests {
		doc := doc
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkchannel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_file: \"-\"\n"), 0600))
	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "-", cfg.LogFile)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv(EnvScheme, "sigblock")
	t.Setenv(EnvLogLevel, "warn")
	cfg := New()
	cfg.ApplyEnvironment()
	assert.Equal(t, "sigblock", cfg.Scheme)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestDefaultConfig(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only honored on unix")
	}
	t.Setenv("XDG_CONFIG_HOME", "/home/builder/.config")
	assert.Equal(t, filepath.Join("/home/builder", ".config", "apkchannel", "apkchannel.yaml"), DefaultConfig())
}

func TestVersion(t *testing.T) {
	savedVersion, savedCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = savedVersion, savedCommit })

	SetVersion("v1.2.3", "abcdef")
	assert.Equal(t, "v1.2.3", Version)
	assert.Equal(t, "abcdef", Commit)

	Version, Commit = "unknown", "unknown"
	setFromBuildInfo(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123abcd"}},
	})
	assert.Equal(t, "unknown", Version)
	assert.Equal(t, "0123abcd", Commit)
}
