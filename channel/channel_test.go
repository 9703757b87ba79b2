package channel_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sassoftware/apkchannel/channel"
	"github.com/sassoftware/apkchannel/channel/comment"
	"github.com/sassoftware/apkchannel/channel/filename"
	"github.com/sassoftware/apkchannel/channel/sigblock"
	"github.com/sassoftware/apkchannel/internal/apktest"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"sigblock", "comment", "filename"}, channel.Names())
	assert.Same(t, sigblock.Scheme, channel.ByName("V2"))
	assert.Same(t, comment.Scheme, channel.ByName("zip-comment"))
	assert.Same(t, filename.Scheme, channel.ByName("filename"))
	assert.Nil(t, channel.ByName("v4"))
	assert.Len(t, channel.All(), 3)
}

func TestLookup(t *testing.T) {
	s, err := channel.Lookup(channel.Auto)
	require.NoError(t, err)
	assert.Nil(t, s)
	s, err = channel.Lookup("comment")
	require.NoError(t, err)
	assert.Same(t, comment.Scheme, s)

	// names are case insensitive, auto included
	s, err = channel.Lookup("AUTO")
	require.NoError(t, err)
	assert.Nil(t, s)
	s, err = channel.Lookup("Comment")
	require.NoError(t, err)
	assert.Same(t, comment.Scheme, s)

	_, err = channel.Lookup("bogus")
	var unknown channel.UnknownSchemeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "bogus", unknown.Name)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, channel.Validate("pgyer"))
	assert.NoError(t, channel.Validate("应用宝"))
	assert.ErrorIs(t, channel.Validate(""), channel.ErrEmptyChannel)
	assert.ErrorIs(t, channel.Validate("\xc3\x28"), channel.ErrInvalidChannel)
	assert.ErrorIs(t, channel.Validate("PK\x05\x06"), channel.ErrInvalidChannel)
	assert.ErrorIs(t, channel.Validate("ab"+"PK\x05\x06"+"cd"), channel.ErrInvalidChannel)
	// the channel magic is not the end record signature
	assert.NoError(t, channel.Validate("QK\x05\x06"))
}

func TestReadAny(t *testing.T) {
	dir := t.TempDir()
	signed := apktest.WriteFile(t, dir, "signed.apk", apktest.SignedAPK(t))

	s, value, ok, err := channel.ReadAny(signed, channel.Options{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, s)
	assert.Empty(t, value)

	withComment := filepath.Join(dir, "comment.apk")
	require.NoError(t, comment.Scheme.Encode(signed, withComment, "from-comment", channel.Options{}))
	s, value, ok, err = channel.ReadAny(withComment, channel.Options{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, comment.Scheme, s)
	assert.Equal(t, "from-comment", value)

	// the signing block wins when both are present
	both := filepath.Join(dir, "both.apk")
	require.NoError(t, sigblock.Scheme.Encode(withComment, both, "from-block", channel.Options{}))
	s, value, ok, err = channel.ReadAny(both, channel.Options{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Same(t, sigblock.Scheme, s)
	assert.Equal(t, "from-block", value)
}

func TestChooseEncoder(t *testing.T) {
	dir := t.TempDir()
	s, err := channel.ChooseEncoder(apktest.WriteFile(t, dir, "signed.apk", apktest.SignedAPK(t)))
	require.NoError(t, err)
	assert.Same(t, sigblock.Scheme, s)

	s, err = channel.ChooseEncoder(apktest.WriteFile(t, dir, "plain.apk", apktest.BuildZip(t, apktest.DefaultEntries(), "")))
	require.NoError(t, err)
	assert.Same(t, comment.Scheme, s)

	_, err = channel.ChooseEncoder(apktest.WriteFile(t, dir, "junk.apk", []byte("junk")))
	assert.ErrorIs(t, err, channel.ErrNotZip)
}
