package filename_test

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/channel/filename"
	"github.com/sassoftware/apkchannel/internal/apktest"
)

func openZip(t *testing.T, path string) *zip.Reader {
	t.Helper()
	data := apktest.ReadFile(t, path)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return zr
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := apktest.WriteFile(t, dir, "app.apk", apktest.BuildZip(t, apktest.DefaultEntries(), "keep this"))
	dst := filepath.Join(dir, "app_huawei.apk")

	require.NoError(t, filename.Scheme.Encode(src, dst, "huawei", channel.Options{}))
	value, ok, err := filename.Scheme.Decode(dst, channel.Options{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "huawei", value)

	zr := openZip(t, dst)
	assert.Equal(t, "keep this", zr.Comment)
	require.Len(t, zr.File, 4)
	marker := zr.File[0]
	assert.Equal(t, "META-INF/channel_huawei", marker.Name)
	assert.Equal(t, zip.Store, marker.Method)
	assert.Zero(t, marker.UncompressedSize64)
	assert.True(t, apktest.ManifestTime.Equal(marker.Modified.UTC()), "marker timestamp %s", marker.Modified)

	// original entries survive with their method and contents
	for i, e := range apktest.DefaultEntries() {
		f := zr.File[i+1]
		assert.Equal(t, e.Name, f.Name)
		assert.Equal(t, e.Method, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, e.Body, body)
	}
}

func TestReplace(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := apktest.WriteFile(t, dir, "app.apk", apktest.BuildZip(t, apktest.DefaultEntries(), ""))
	require.NoError(t, filename.Scheme.Encode(path, path, "first", channel.Options{}))
	require.NoError(t, filename.Scheme.Encode(path, path, "second", channel.Options{}))

	value, ok, err := filename.Scheme.Decode(path, channel.Options{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)
	assert.Len(t, openZip(t, path).File, 4)
}

func TestCustomOptions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := apktest.WriteFile(t, dir, "app.apk", apktest.BuildZip(t, apktest.DefaultEntries(), ""))
	dst := filepath.Join(dir, "out.apk")
	opts := channel.Options{FilenamePrefix: "META-INF/market-", ReferenceEntry: "classes.dex", BufferSize: 512}

	require.NoError(t, filename.Scheme.Encode(src, dst, "store_1", opts))
	value, ok, err := filename.Scheme.Decode(dst, opts)
	require.NoError(t, err)
	assert.True(t, ok)
	// underscores in the channel are kept
	assert.Equal(t, "store_1", value)

	marker := openZip(t, dst).File[0]
	assert.Equal(t, "META-INF/market-store_1", marker.Name)
	assert.True(t, apktest.ManifestTime.Add(time.Hour).Equal(marker.Modified.UTC()))

	// the default prefix does not see it
	_, ok, err = filename.Scheme.Decode(dst, channel.Options{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAbsent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := map[string][]byte{
		"Plain":       apktest.BuildZip(t, apktest.DefaultEntries(), ""),
		"EmptySuffix": apktest.BuildZip(t, append(apktest.DefaultEntries(), apktest.Entry{Name: channel.DefaultFilenamePrefix}), ""),
		"NotZip":      []byte("nothing to see here"),
	}
	for name, data := range tests {
		path := apktest.WriteFile(t, dir, name, data)
		t.Run(name, func(t *testing.T) {
			value, ok, err := filename.Scheme.Decode(path, channel.Options{})
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, value)
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()
	prefix := channel.DefaultFilenamePrefix
	assert.NoError(t, filename.ValidateName("google_play", prefix))
	assert.ErrorIs(t, filename.ValidateName("", prefix), channel.ErrEmptyChannel)
	assert.ErrorIs(t, filename.ValidateName("a/b", prefix), channel.ErrInvalidChannel)
	assert.ErrorIs(t, filename.ValidateName(`a\b`, prefix), channel.ErrInvalidChannel)
	assert.ErrorIs(t, filename.ValidateName("a\x00b", prefix), channel.ErrInvalidChannel)
	assert.ErrorIs(t, filename.ValidateName("PK\x05\x06", prefix), channel.ErrInvalidChannel)
	assert.ErrorIs(t, filename.ValidateName(string(bytes.Repeat([]byte("x"), 0xffff)), prefix), channel.ErrChannelTooLong)

	// the limit follows the configured prefix
	fits := string(bytes.Repeat([]byte("x"), 0xffff-len(prefix)))
	assert.NoError(t, filename.ValidateName(fits, prefix))
	longPrefix := "META-INF/" + string(bytes.Repeat([]byte("p"), 100)) + "_"
	assert.ErrorIs(t, filename.ValidateName(fits, longPrefix), channel.ErrChannelTooLong)
}

func TestEncodeErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := apktest.WriteFile(t, dir, "app.apk", apktest.BuildZip(t, apktest.DefaultEntries(), ""))
	junk := apktest.WriteFile(t, dir, "junk.apk", []byte("not a zip file"))

	dst := filepath.Join(dir, "slash.apk")
	assert.ErrorIs(t, filename.Scheme.Encode(src, dst, "x/y", channel.Options{}), channel.ErrInvalidChannel)
	assert.NoFileExists(t, dst)

	dst = filepath.Join(dir, "eocd.apk")
	err := filename.Scheme.Encode(src, dst, "PK\x05\x060123456789abcdef\x08\x00ab", channel.Options{})
	assert.ErrorIs(t, err, channel.ErrInvalidChannel)
	assert.NoFileExists(t, dst)

	dst = filepath.Join(dir, "long-prefix.apk")
	opts := channel.Options{FilenamePrefix: string(bytes.Repeat([]byte("p"), 0xff00))}
	err = filename.Scheme.Encode(src, dst, string(bytes.Repeat([]byte("x"), 0x100)), opts)
	assert.ErrorIs(t, err, channel.ErrChannelTooLong)
	assert.NoFileExists(t, dst)

	dst = filepath.Join(dir, "junk-out.apk")
	assert.ErrorIs(t, filename.Scheme.Encode(junk, dst, "abc", channel.Options{}), channel.ErrNotZip)
	assert.NoFileExists(t, dst)
}
