package vbuf_test

import (
	"path/filepath"
	"testing"

	"github.com/prinbee/prinbee-core/vbuf"
	"github.com/stretchr/testify/require"
)

func TestSpillAndReloadRoundTrip(t *testing.T) {
	b := vbuf.New()
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}
	_, err := b.Pwrite(payload, 0, true)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "overflow.zst")
	require.NoError(t, b.SpillToFile(path))

	reloaded := vbuf.New()
	require.NoError(t, reloaded.LoadCompressedFile(path, true))
	require.EqualValues(t, len(payload), reloaded.Size())

	out := make([]byte, len(payload))
	_, err = reloaded.Pread(out, 0, true)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestLoadCompressedFileMissingOptional(t *testing.T) {
	b := vbuf.New()
	require.NoError(t, b.LoadCompressedFile(filepath.Join(t.TempDir(), "missing.zst"), false))
	require.EqualValues(t, 0, b.Size())
}

func TestLoadCompressedFileMissingRequired(t *testing.T) {
	b := vbuf.New()
	err := b.LoadCompressedFile(filepath.Join(t.TempDir(), "missing.zst"), true)
	require.Error(t, err)
}
