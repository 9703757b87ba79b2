package comment_test

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/channel/comment"
	"github.com/sassoftware/apkchannel/internal/apktest"
	"github.com/sassoftware/apkchannel/lib/zipslicer"
)

func findEnd(t *testing.T, data []byte) *zipslicer.EndRecord {
	t.Helper()
	end, err := zipslicer.FindEndRecord(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.NotNil(t, end)
	return end
}

func trailer(value string) []byte {
	b := []byte(value)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(value)))
	return binary.LittleEndian.AppendUint32(b, channel.Magic)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	orig := apktest.BuildZip(t, apktest.DefaultEntries(), "0123456789")
	src := apktest.WriteFile(t, dir, "app.apk", orig)
	dst := filepath.Join(dir, "app-abc.apk")

	require.NoError(t, comment.Scheme.Encode(src, dst, "abc", channel.Options{}))
	out := apktest.ReadFile(t, dst)
	assert.Equal(t, len(orig)+9, len(out))
	// everything but the comment length field is an unchanged prefix
	oldEnd := findEnd(t, orig)
	assert.Equal(t, orig[:oldEnd.Offset+20], out[:oldEnd.Offset+20])
	newEnd := findEnd(t, out)
	assert.Equal(t, 19, newEnd.CommentLength())
	assert.Equal(t, append([]byte("0123456789"), trailer("abc")...), newEnd.Comment())

	value, ok, err := comment.Scheme.Decode(dst, channel.Options{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)

	// still a valid archive
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
}

func TestSignedUnchanged(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	orig := apktest.SignedAPK(t)
	path := apktest.WriteFile(t, dir, "app.apk", orig)
	require.NoError(t, comment.Scheme.Encode(path, path, "in-place", channel.Options{}))
	out := apktest.ReadFile(t, path)
	oldEnd := findEnd(t, orig)
	newEnd := findEnd(t, out)
	assert.Equal(t, oldEnd.CDOffset(), newEnd.CDOffset())
	assert.Equal(t, orig[:oldEnd.Offset], out[:newEnd.Offset])
}

func TestReplace(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := apktest.WriteFile(t, dir, "app.apk", apktest.BuildZip(t, apktest.DefaultEntries(), "note"))
	require.NoError(t, comment.Scheme.Encode(path, path, "first", channel.Options{}))
	require.NoError(t, comment.Scheme.Encode(path, path, "second", channel.Options{}))

	value, ok, err := comment.Scheme.Decode(path, channel.Options{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)
	end := findEnd(t, apktest.ReadFile(t, path))
	assert.Equal(t, append([]byte("note"), trailer("second")...), end.Comment())
}

func TestAbsent(t *testing.T) {
	t.Parallel()
	tests := map[string][]byte{
		"NoComment":    apktest.BuildZip(t, apktest.DefaultEntries(), ""),
		"PlainComment": apktest.BuildZip(t, apktest.DefaultEntries(), "just a comment"),
		"ZeroLength":   apktest.BuildZip(t, apktest.DefaultEntries(), string(trailer(""))),
		"NotZip":       []byte("tiny"),
		"TrailerOnly":  append([]byte("no end record"), trailer("abc")...),
	}
	for name, data := range tests {
		data := data
		t.Run(name, func(t *testing.T) {
			value, ok, err := comment.Read(bytes.NewReader(data), int64(len(data)))
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, value)
		})
	}
}

func TestMalformed(t *testing.T) {
	t.Parallel()
	// declared length reaches past the start of the comment
	bad := []byte("ab")
	bad = binary.LittleEndian.AppendUint16(bad, 200)
	bad = binary.LittleEndian.AppendUint32(bad, channel.Magic)
	data := apktest.BuildZip(t, apktest.DefaultEntries(), string(bad))
	_, ok, err := comment.Read(bytes.NewReader(data), int64(len(data)))
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, zipslicer.IsMalformed(err))
}

func TestEncodeErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := apktest.WriteFile(t, dir, "app.apk", apktest.BuildZip(t, apktest.DefaultEntries(), ""))

	t.Run("EmptyChannel", func(t *testing.T) {
		dst := filepath.Join(dir, "empty.apk")
		assert.ErrorIs(t, comment.Scheme.Encode(src, dst, "", channel.Options{}), channel.ErrEmptyChannel)
		assert.NoFileExists(t, dst)
	})
	t.Run("InvalidUTF8", func(t *testing.T) {
		dst := filepath.Join(dir, "invalid.apk")
		assert.ErrorIs(t, comment.Scheme.Encode(src, dst, "a\xffb", channel.Options{}), channel.ErrInvalidChannel)
		assert.NoFileExists(t, dst)
	})
	t.Run("TooLong", func(t *testing.T) {
		dst := filepath.Join(dir, "long.apk")
		long := string(bytes.Repeat([]byte("x"), zipslicer.MaxCommentLen))
		assert.ErrorIs(t, comment.Scheme.Encode(src, dst, long, channel.Options{}), channel.ErrChannelTooLong)
		assert.NoFileExists(t, dst)
	})
	t.Run("NotZip", func(t *testing.T) {
		junk := apktest.WriteFile(t, dir, "junk.bin", []byte("not an archive at all"))
		dst := filepath.Join(dir, "junk-out.bin")
		assert.ErrorIs(t, comment.Scheme.Encode(junk, dst, "abc", channel.Options{}), channel.ErrNotZip)
		assert.NoFileExists(t, dst)
	})
}

func TestHiddenEndRecord(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// 16 filler bytes put the fake record's comment length field at offset
	// 20, and 8 covers "ab" plus the trailer
	tail := "0123456789abcdef" + "\x08\x00" + "ab"

	t.Run("InChannel", func(t *testing.T) {
		src := apktest.WriteFile(t, dir, "plain.apk", apktest.BuildZip(t, apktest.DefaultEntries(), ""))
		dst := filepath.Join(dir, "plain-out.apk")
		err := comment.Scheme.Encode(src, dst, "PK\x05\x06"+tail, channel.Options{})
		assert.ErrorIs(t, err, channel.ErrInvalidChannel)
		assert.NoFileExists(t, dst)
	})
	t.Run("SpanningComment", func(t *testing.T) {
		src := apktest.WriteFile(t, dir, "noted.apk", apktest.BuildZip(t, apktest.DefaultEntries(), "PK\x05"))
		dst := filepath.Join(dir, "noted-out.apk")
		err := comment.Scheme.Encode(src, dst, "\x06"+tail, channel.Options{})
		assert.ErrorIs(t, err, channel.ErrInvalidChannel)
		assert.NoFileExists(t, dst)
	})
	t.Run("NearMiss", func(t *testing.T) {
		// the signature alone, with lengths that do not line up, is harmless
		src := apktest.WriteFile(t, dir, "near.apk", apktest.BuildZip(t, apktest.DefaultEntries(), "PK\x05"))
		dst := filepath.Join(dir, "near-out.apk")
		require.NoError(t, comment.Scheme.Encode(src, dst, "\x06-store", channel.Options{}))
		value, ok, err := comment.Scheme.Decode(dst, channel.Options{})
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "\x06-store", value)
	})
}
