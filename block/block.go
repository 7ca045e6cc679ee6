// Package block implements the block base type: a typed view over
// exactly one page of a page.File. A block's first bytes are a 4-byte
// magic tag (dbtype.BlockType) followed by a versioned, self-describing
// record built from a structure.Description.
package block

import (
	"github.com/cockroachdb/errors"
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
	"github.com/prinbee/prinbee-core/page"
	"github.com/prinbee/prinbee-core/structure"
)

// Pager is the subset of page.File a block needs: acquire, release, and
// flush the one page it is a view over.
type Pager interface {
	GetPage(offset dbtype.Reference) ([]byte, error)
	Release(data []byte) error
	Retain(data []byte) error
	Sync(data []byte, immediate bool) error
	PageSize() uint32
}

// Block is the runtime binding of a structure.Description to one page.
// It borrows its owning table's Pager rather than owning the page file
// itself (SPEC_FULL.md/DESIGN.md: back-references resolved as a
// non-owning borrow, per spec.md §9's table/block cycle note).
type Block struct {
	desc   structure.Description
	file   Pager
	offset dbtype.Reference

	data []byte // nil until SetData is called
	rec  *structure.Record
}

// New constructs a block bound to desc, ready to be attached to page data
// with SetData. desc must begin with a Magic field followed by a
// StructureVersion field, matching every concrete block kind in §4.4.
func New(desc structure.Description, f Pager, offset dbtype.Reference) (*Block, error) {
	if len(desc) < 2 || desc[0].Type != dbtype.Magic {
		return nil, errtype.Programming("block description must start with MAGIC")
	}
	if desc[1].Type != dbtype.StructureVersion {
		return nil, errtype.Programming("block description must have STRUCTURE_VERSION as its second field")
	}
	return &Block{desc: desc, file: f, offset: offset}, nil
}

// Offset returns the page offset this block is a view over.
func (b *Block) Offset() dbtype.Reference { return b.offset }

// SetData attaches the block to page bytes already retrieved from the
// page file (typically via Load). It may be called only once; a second
// call is a programming error, matching the original design's
// set_table/defined_twice discipline for one-shot setup calls.
func (b *Block) SetData(data []byte) error {
	if b.data != nil {
		return errtype.Programming("block: SetData called twice for page at offset %d", b.offset)
	}
	if uint32(len(data)) != b.file.PageSize() {
		return errtype.Programming("block: page data length %d does not match page size %d", len(data), b.file.PageSize())
	}
	b.data = data
	rec, err := structure.NewRecord(b.desc, structure.BytesAccessor{Data: data}, 0, 0)
	if err != nil {
		return err
	}
	b.rec = rec
	return nil
}

// Load fetches the page at the block's offset from the page file and
// binds it with SetData. Any accessor called before Load or SetData
// fails with errtype.ErrProgramming, mirroring the original's
// "data() called before set_data()" logic_error.
func (b *Block) Load() error {
	data, err := b.file.GetPage(b.offset)
	if err != nil {
		return err
	}
	if err := b.SetData(data); err != nil {
		_ = b.file.Release(data)
		return err
	}
	return nil
}

// Release gives the page back to the page file. A block must be
// released exactly once before it is discarded; a block that is never
// released keeps its page reference held.
func (b *Block) Release() error {
	if b.data == nil {
		return nil
	}
	err := b.file.Release(b.data)
	b.data = nil
	b.rec = nil
	return err
}

func (b *Block) requireData() error {
	if b.data == nil {
		return errtype.Programming("block: accessor called before SetData/Load")
	}
	return nil
}

// GetDBType reads the block's 4-byte magic/kind tag.
func (b *Block) GetDBType() (dbtype.BlockType, error) {
	if err := b.requireData(); err != nil {
		return 0, err
	}
	return dbtype.BlockType(b.data[0])<<24 | dbtype.BlockType(b.data[1])<<16 | dbtype.BlockType(b.data[2])<<8 | dbtype.BlockType(b.data[3]), nil
}

// SetDBType writes the block's kind tag. Changing the type (to a
// different, non-equal type) zeroes every byte from offset 4 through the
// end of the static header, matching the original design's set_dbtype;
// setting the same type twice is a no-op that does not re-zero anything.
func (b *Block) SetDBType(t dbtype.BlockType) error {
	if err := b.requireData(); err != nil {
		return err
	}
	current, err := b.GetDBType()
	if err != nil {
		return err
	}
	if current == t {
		return nil
	}
	if !current.CanTransitionTo(t) {
		return errtype.Validation("block at offset %d cannot transition from %s to %s", b.offset, current, t)
	}
	b.data[0] = byte(t >> 24)
	b.data[1] = byte(t >> 16)
	b.data[2] = byte(t >> 8)
	b.data[3] = byte(t)

	staticSize := b.rec.GetStaticSize()
	for i := 4; i < staticSize; i++ {
		b.data[i] = 0
	}
	return nil
}

// ClearBlock zeroes every byte after the static header, leaving the
// magic/version/fixed fields intact.
func (b *Block) ClearBlock() error {
	if err := b.requireData(); err != nil {
		return err
	}
	staticSize := b.rec.GetStaticSize()
	if staticSize == 0 {
		return errtype.Programming("block: structure of this kind cannot be dynamic-only (get_static_size == 0)")
	}
	for i := staticSize; i < len(b.data); i++ {
		b.data[i] = 0
	}
	return nil
}

// Data returns base+(offset mod page_size): an absolute file offset
// resolved to a byte position inside this block's own page, so a
// REFERENCE field that happens to target the current page can be
// addressed without a second lookup.
func (b *Block) Data(offset dbtype.Reference) ([]byte, error) {
	if err := b.requireData(); err != nil {
		return nil, err
	}
	pos := uint64(offset) % uint64(b.file.PageSize())
	return b.data[pos:], nil
}

// Record returns the structure.Record bound to this block's page, for
// typed field access (GetUInteger, SetString, NewArrayItem, ...).
func (b *Block) Record() (*structure.Record, error) {
	if err := b.requireData(); err != nil {
		return nil, err
	}
	return b.rec, nil
}

// Sync flushes this block's page through the page file.
func (b *Block) Sync(immediate bool) error {
	if err := b.requireData(); err != nil {
		return err
	}
	return b.file.Sync(b.data, immediate)
}

// IsPageNotFound reports whether err is the page-file's "page not found"
// flavor of error, re-exported here so block callers don't need to
// import page directly just to classify a release failure.
func IsPageNotFound(err error) bool {
	return errors.Is(err, errtype.ErrMissingData) || page.IsNotFound(err)
}
