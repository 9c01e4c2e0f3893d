package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressText_SmallTextStaysRaw(t *testing.T) {
	data, algo, err := CompressText("Aspirin reduces fever.")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, algo)
	assert.Equal(t, "Aspirin reduces fever.", string(data))
}

func TestCompressText_LargeTextUsesBrotli(t *testing.T) {
	text := strings.Repeat("Paracetamol is used to treat pain and fever. ", 40)

	data, algo, err := CompressText(text)
	require.NoError(t, err)
	assert.Equal(t, CompressionBrotli, algo)
	assert.Less(t, len(data), len(text))

	back, err := DecompressText(data, algo)
	require.NoError(t, err)
	assert.Equal(t, text, back)
}

func TestCompressData_Gzip(t *testing.T) {
	in := []byte(strings.Repeat("dose ", 200))
	out, err := CompressData(in, CompressionGzip)
	require.NoError(t, err)

	back, err := DecompressData(out, CompressionGzip)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestCompressData_Unsupported(t *testing.T) {
	_, err := CompressData([]byte("x"), "zstd")
	assert.Error(t, err)
	_, err = DecompressData([]byte("x"), "zstd")
	assert.Error(t, err)
}
