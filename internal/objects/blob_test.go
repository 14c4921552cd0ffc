package objects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBlob_Deterministic(t *testing.T) {
	a := HashBlob([]byte("hello world\n"))
	b := HashBlob([]byte("hello world\n"))
	assert.Equal(t, a, b)
	assert.True(t, ValidHash(a))
}

func TestHashBlob_ContentSensitive(t *testing.T) {
	a := HashBlob([]byte("hello"))
	b := HashBlob([]byte("hello!"))
	assert.NotEqual(t, a, b)
}

func TestHashBlob_EmptyContent(t *testing.T) {
	h := HashBlob(nil)
	assert.True(t, ValidHash(h))
	assert.Equal(t, h, HashBlob([]byte{}))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	content := []byte("line one\nline two\n")

	encoded, err := Encode(content)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, content, decoded)
}

func TestEncodeDecode_LargeContent(t *testing.T) {
	content := []byte(strings.Repeat("the quick brown fox\n", 10000))

	encoded, err := Encode(content)
	require.NoError(t, err)
	// Repetitive content should compress well
	assert.Less(t, len(encoded), len(content))

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, content, decoded)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not a zstd stream"))
	assert.Error(t, err)
}

func TestDecodeVerify_HashMismatch(t *testing.T) {
	encoded, err := Encode([]byte("content"))
	require.NoError(t, err)

	_, err = DecodeVerify(encoded, HashBlob([]byte("different")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestDecodeVerify_Match(t *testing.T) {
	content := []byte("content")
	encoded, err := Encode(content)
	require.NoError(t, err)

	got, err := DecodeVerify(encoded, HashBlob(content))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestValidHash(t *testing.T) {
	assert.True(t, ValidHash(strings.Repeat("ab", 32)))
	assert.False(t, ValidHash(""))
	assert.False(t, ValidHash("xyz"))
	assert.False(t, ValidHash(strings.Repeat("AB", 32))) // uppercase not accepted
	assert.False(t, ValidHash(strings.Repeat("ab", 31)))
}
