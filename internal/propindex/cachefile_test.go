package propindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheHeaderRoundTrip(t *testing.T) {
	data := []byte("some compiled index bytes")
	h := NewCacheHeader(KindTextCompiled, 3, data)
	buf := h.Serialize()

	var got CacheHeader
	require.NoError(t, got.Deserialize(buf))
	require.NoError(t, got.ValidateHeaderCRC(buf))
	require.NoError(t, got.Validate(KindTextCompiled))
	require.NoError(t, got.ValidateDataCRC(data))
	require.Equal(t, uint64(3), got.EntryCount)
}

func TestCacheHeaderRejectsWrongKind(t *testing.T) {
	data := []byte("payload")
	h := NewCacheHeader(KindTextCompiled, 1, data)
	buf := h.Serialize()

	var got CacheHeader
	require.NoError(t, got.Deserialize(buf))
	require.ErrorIs(t, got.Validate(99), ErrInvalidKind)
}

func TestCacheHeaderDetectsTamperedData(t *testing.T) {
	data := []byte("payload")
	h := NewCacheHeader(KindTextCompiled, 1, data)
	tampered := append([]byte{}, data...)
	tampered[0] ^= 0xFF

	require.Error(t, h.ValidateDataCRC(tampered))
}

func TestWriteAndReadCacheFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "index.cache")
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	require.NoError(t, WriteCacheFile(path, KindTextCompiled, data, 4))
	require.True(t, CacheFileExists(path))

	got, header, err := ReadCacheFile(path, KindTextCompiled)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.Equal(t, uint64(4), header.EntryCount)
}

func TestReadCacheFileRejectsWrongKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.cache")
	require.NoError(t, WriteCacheFile(path, KindTextCompiled, []byte("x"), 1))

	_, _, err := ReadCacheFile(path, 99)
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestCacheFileExistsFalseForMissingPath(t *testing.T) {
	require.False(t, CacheFileExists(filepath.Join(t.TempDir(), "nope")))
}
