package block_test

import (
	"testing"

	"github.com/prinbee/prinbee-core/block"
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
	"github.com/stretchr/testify/require"
)

// fakePager is a minimal block.Pager backed by in-memory pages keyed by offset,
// standing in for a page.File in these unit tests.
type fakePager struct {
	pages    map[dbtype.Reference][]byte
	pageSize uint32
	refcount map[dbtype.Reference]int
}

func newFakePager(pageSize uint32) *fakePager {
	return &fakePager{
		pages:    make(map[dbtype.Reference][]byte),
		pageSize: pageSize,
		refcount: make(map[dbtype.Reference]int),
	}
}

// alloc creates a zeroed page tagged BlockFree at offset, mirroring
// page.File.AllocatePage: every block is born onto the free list before
// something claims it with SetDBType.
func (p *fakePager) alloc(offset dbtype.Reference) {
	page := make([]byte, p.pageSize)
	page[0] = byte(dbtype.BlockFree >> 24)
	page[1] = byte(dbtype.BlockFree >> 16)
	page[2] = byte(dbtype.BlockFree >> 8)
	page[3] = byte(dbtype.BlockFree)
	p.pages[offset] = page
}

func (p *fakePager) GetPage(offset dbtype.Reference) ([]byte, error) {
	data, ok := p.pages[offset]
	if !ok {
		return nil, errtype.MissingData("fakePager: no page at offset %d", offset)
	}
	p.refcount[offset]++
	return data, nil
}

func (p *fakePager) Release(data []byte) error {
	for off, d := range p.pages {
		if &d[0] == &data[0] {
			p.refcount[off]--
			return nil
		}
	}
	return nil
}

func (p *fakePager) Retain(data []byte) error {
	for off, d := range p.pages {
		if &d[0] == &data[0] {
			p.refcount[off]++
			return nil
		}
	}
	return nil
}

func (p *fakePager) Sync(data []byte, immediate bool) error { return nil }
func (p *fakePager) PageSize() uint32                       { return p.pageSize }

func newTestHeader(t *testing.T) (*fakePager, block.SecondaryIndexHeader) {
	t.Helper()
	pager := newFakePager(64)
	pager.alloc(0)
	b, err := block.NewSecondaryIndexHeader(pager, 0)
	require.NoError(t, err)
	require.NoError(t, b.Load())
	return pager, b
}

func TestAccessorFailsBeforeLoad(t *testing.T) {
	pager := newFakePager(64)
	pager.alloc(0)
	b, err := block.NewSecondaryIndexHeader(pager, 0)
	require.NoError(t, err)
	_, err = b.ID()
	require.Error(t, err)
}

func TestSetDBTypeAndFieldRoundTrip(t *testing.T) {
	_, b := newTestHeader(t)

	require.NoError(t, b.SetDBType(dbtype.BlockSecondaryIndexHeader))
	got, err := b.GetDBType()
	require.NoError(t, err)
	require.Equal(t, dbtype.BlockSecondaryIndexHeader, got)

	require.NoError(t, b.SetID(7))
	require.NoError(t, b.SetNumberOfRows(42))
	require.NoError(t, b.SetTopIndex(512))
	require.NoError(t, b.SetBloomFilterAlgorithm(1))
	require.NoError(t, b.SetBloomFilterRenewing(true))

	id, err := b.ID()
	require.NoError(t, err)
	require.EqualValues(t, 7, id)

	rows, err := b.NumberOfRows()
	require.NoError(t, err)
	require.EqualValues(t, 42, rows)

	top, err := b.TopIndex()
	require.NoError(t, err)
	require.EqualValues(t, 512, top)

	alg, err := b.BloomFilterAlgorithm()
	require.NoError(t, err)
	require.EqualValues(t, 1, alg)

	renewing, err := b.BloomFilterRenewing()
	require.NoError(t, err)
	require.True(t, renewing)
}

func TestSetDBTypeSameKindIsNoop(t *testing.T) {
	_, b := newTestHeader(t)
	require.NoError(t, b.SetDBType(dbtype.BlockSecondaryIndexHeader))
	require.NoError(t, b.SetID(9))
	require.NoError(t, b.SetDBType(dbtype.BlockSecondaryIndexHeader))
	id, err := b.ID()
	require.NoError(t, err)
	require.EqualValues(t, 9, id)
}

func TestSetDBTypeZeroesHeaderOnKindChange(t *testing.T) {
	_, b := newTestHeader(t)
	require.NoError(t, b.SetDBType(dbtype.BlockSecondaryIndexHeader))
	require.NoError(t, b.SetID(9))
	require.NoError(t, b.SetDBType(dbtype.BlockFree))
	require.NoError(t, b.SetDBType(dbtype.BlockSecondaryIndexHeader))
	id, err := b.ID()
	require.NoError(t, err)
	require.EqualValues(t, 0, id)
}

func TestSetDBTypeRejectsDirectKindChange(t *testing.T) {
	_, b := newTestHeader(t)
	require.NoError(t, b.SetDBType(dbtype.BlockSecondaryIndexHeader))
	err := b.SetDBType(dbtype.BlockData)
	require.Error(t, err)
}

func TestClearBlockLeavesHeaderIntact(t *testing.T) {
	_, b := newTestHeader(t)
	require.NoError(t, b.SetDBType(dbtype.BlockSecondaryIndexHeader))
	require.NoError(t, b.SetID(3))
	require.NoError(t, b.ClearBlock())
	got, err := b.GetDBType()
	require.NoError(t, err)
	require.Equal(t, dbtype.BlockSecondaryIndexHeader, got)
}

func TestDataResolvesOffsetWithinPage(t *testing.T) {
	pager := newFakePager(64)
	pager.alloc(0)
	b, err := block.NewData(pager, 0)
	require.NoError(t, err)
	require.NoError(t, b.Load())

	data, err := b.Data(dbtype.Reference(70))
	require.NoError(t, err)
	require.Equal(t, 64-6, len(data))
}

func TestLoadThenReleaseAllowsReacquire(t *testing.T) {
	pager := newFakePager(64)
	pager.alloc(0)
	b, err := block.NewData(pager, 0)
	require.NoError(t, err)
	require.NoError(t, b.Load())
	require.NoError(t, b.Release())
	require.NoError(t, b.Load())
	require.NoError(t, b.Release())
}

func TestSetDataCalledTwiceFails(t *testing.T) {
	pager := newFakePager(64)
	pager.alloc(0)
	b, err := block.NewData(pager, 0)
	require.NoError(t, err)
	require.NoError(t, b.Load())
	err = b.SetData(pager.pages[0])
	require.Error(t, err)
}

func TestPayloadRoundTrip(t *testing.T) {
	pager := newFakePager(64)
	pager.alloc(0)
	d, err := block.NewData(pager, 0)
	require.NoError(t, err)
	require.NoError(t, d.Load())
	require.NoError(t, d.SetDBType(dbtype.BlockData))
	require.NoError(t, d.SetPayload([]byte("hello")))

	got, err := d.Payload()
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestBloomFilterAddAndMayContain(t *testing.T) {
	pager := newFakePager(256)
	pager.alloc(0)
	bf, err := block.NewBloomFilter(pager, 0)
	require.NoError(t, err)
	require.NoError(t, bf.Load())
	require.NoError(t, bf.SetDBType(dbtype.BlockBloomFilter))
	require.NoError(t, bf.SetHashCount(4, 128))

	require.NoError(t, bf.Add([]byte("present")))

	present, err := bf.MayContain([]byte("present"))
	require.NoError(t, err)
	require.True(t, present)

	absent, err := bf.MayContain([]byte("definitely-not-added"))
	require.NoError(t, err)
	_ = absent // a bloom filter may false-positive; only the positive case is deterministic
}
