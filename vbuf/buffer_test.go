package vbuf_test

import (
	"testing"

	"github.com/prinbee/prinbee-core/vbuf"
	"github.com/stretchr/testify/require"
)

// fakePage is a minimal pageReleaser stand-in for page.File, tracking a
// single page's refcount so tests can assert split/erase/release keep it
// balanced.
type fakePage struct {
	refcount int
}

func (p *fakePage) Retain(data []byte) error {
	p.refcount++
	return nil
}

func (p *fakePage) Release(data []byte) error {
	p.refcount--
	return nil
}

func TestPwritePreadRoundTrip(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("hello"), 0, true)
	require.NoError(t, err)
	require.EqualValues(t, 5, b.Size())
	require.True(t, b.Modified())

	out := make([]byte, 5)
	n, err := b.Pread(out, 0, true)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(out))
}

func TestPwriteWithoutGrowthFails(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("x"), 0, false)
	require.Error(t, err)
}

func TestPreadFullPastEndFails(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("abc"), 0, true)
	require.NoError(t, err)

	out := make([]byte, 10)
	_, err = b.Pread(out, 0, true)
	require.Error(t, err)

	// non-full read is allowed to come back short.
	n, err := b.Pread(out, 0, false)
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestPinsertAppend(t *testing.T) {
	b := vbuf.New()
	require.NoError(t, b.Pinsert([]byte("hello"), 0))
	require.NoError(t, b.Pinsert([]byte(" world"), 5))
	require.EqualValues(t, 11, b.Size())

	out := make([]byte, 11)
	_, err := b.Pread(out, 0, true)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(out))
	require.True(t, b.Modified())
}

func TestPinsertThenPeraseRoundTrip(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("helloworld"), 0, true)
	require.NoError(t, err)

	require.NoError(t, b.Pinsert([]byte("XXXXX"), 5))
	require.EqualValues(t, 15, b.Size())

	erased, err := b.Perase(5, 5)
	require.NoError(t, err)
	require.EqualValues(t, 5, erased)
	require.EqualValues(t, 10, b.Size())

	out := make([]byte, 10)
	_, err = b.Pread(out, 0, true)
	require.NoError(t, err)
	require.Equal(t, "helloworld", string(out))
}

func TestPeraseZeroIsNoop(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("data"), 0, true)
	require.NoError(t, err)
	n, err := b.Perase(0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
	require.EqualValues(t, 4, b.Size())
}

func TestPeraseOffsetPastEndIsNoop(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("data"), 0, true)
	require.NoError(t, err)
	n, err := b.Perase(10, 100)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestPeraseEverythingKeepsModifiedTrue(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("data"), 0, true)
	require.NoError(t, err)
	_, err = b.Perase(4, 0)
	require.NoError(t, err)
	require.EqualValues(t, 0, b.Size())
	require.Equal(t, 0, b.CountBuffers())
	require.True(t, b.Modified())
}

func TestBlockSegmentSplitAndEraseBalancesRefcount(t *testing.T) {
	page := make([]byte, 16)
	copy(page, []byte("0123456789abcdef"))
	fp := &fakePage{refcount: 1}
	b := vbuf.NewFromBlock(page, 0, 16, fp)

	// insert in the middle splits the block segment into two block
	// segments sharing the same page, so the refcount should go from 1
	// to 2 (one retain).
	require.NoError(t, b.Pinsert([]byte("XX"), 8))
	require.Equal(t, 2, fp.refcount)
	require.EqualValues(t, 18, b.Size())

	// erase the inserted heap bytes plus one byte on each side: this
	// trims (not splits) each surviving block segment, so the refcount
	// is unaffected.
	erased, err := b.Perase(4, 7)
	require.NoError(t, err)
	require.EqualValues(t, 4, erased)
	require.Equal(t, 2, fp.refcount)
}

func TestPshiftLeft(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("0123456789"), 0, true)
	require.NoError(t, err)

	require.NoError(t, b.Pshift(-3, 3, 0xAA))

	out := make([]byte, 10)
	_, err = b.Pread(out, 0, true)
	require.NoError(t, err)
	require.Equal(t, "0123456789"[3:], string(out[:7]))
	require.Equal(t, []byte{0xAA, 0xAA, 0xAA}, out[7:])
}

func TestPshiftRightNotImplemented(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("abc"), 0, true)
	require.NoError(t, err)
	err = b.Pshift(1, 0, 0)
	require.Error(t, err)
}

func TestIsDataAvailable(t *testing.T) {
	b := vbuf.New()
	_, err := b.Pwrite([]byte("abcdef"), 0, true)
	require.NoError(t, err)
	require.True(t, b.IsDataAvailable(2, 4))
	require.False(t, b.IsDataAvailable(2, 5))
}
