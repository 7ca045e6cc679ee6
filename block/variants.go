package block

import "github.com/prinbee/prinbee-core/dbtype"

// Each concrete block kind follows the same recipe: one description array
// (descriptions.go), one constructor passing that description to the base
// Block, and typed getters/setters over its own fields. None of these
// wrapper types hold any state of their own beyond the embedded *Block.

// Free is a block that has been returned to the free list and carries no
// payload.
type Free struct{ *Block }

// NewFree constructs a Free block view over offset.
func NewFree(f Pager, offset dbtype.Reference) (Free, error) {
	b, err := New(FreeDescription, f, offset)
	return Free{b}, err
}

// Data is a generic payload-carrying block.
type Data struct{ *Block }

// NewData constructs a Data block view over offset.
func NewData(f Pager, offset dbtype.Reference) (Data, error) {
	b, err := New(DataDescription, f, offset)
	return Data{b}, err
}

// Payload returns the block's raw BUFFER32 payload bytes.
func (d Data) Payload() ([]byte, error) {
	rec, err := d.Record()
	if err != nil {
		return nil, err
	}
	return rec.GetBuffer("payload")
}

// SetPayload replaces the block's raw payload bytes.
func (d Data) SetPayload(p []byte) error {
	rec, err := d.Record()
	if err != nil {
		return err
	}
	return rec.SetBuffer("payload", p)
}

// Schema is the table-header block: it names the table, the schema
// version the table was last written with, and carries the compiled
// schema blob.
type Schema struct{ *Block }

// NewSchema constructs a Schema block view over offset.
func NewSchema(f Pager, offset dbtype.Reference) (Schema, error) {
	b, err := New(SchemaDescription, f, offset)
	return Schema{b}, err
}

// Name returns the owning table's name.
func (s Schema) Name() (string, error) {
	rec, err := s.Record()
	if err != nil {
		return "", err
	}
	return rec.GetString("name")
}

// SetName sets the owning table's name.
func (s Schema) SetName(name string) error {
	rec, err := s.Record()
	if err != nil {
		return err
	}
	return rec.SetString("name", name)
}

// Payload returns the compiled schema blob.
func (s Schema) Payload() ([]byte, error) {
	rec, err := s.Record()
	if err != nil {
		return nil, err
	}
	return rec.GetBuffer("payload")
}

// SetPayload replaces the compiled schema blob.
func (s Schema) SetPayload(p []byte) error {
	rec, err := s.Record()
	if err != nil {
		return err
	}
	return rec.SetBuffer("payload", p)
}

// PrimaryIndexTop is the root of a table's primary index.
type PrimaryIndexTop struct{ *Block }

// NewPrimaryIndexTop constructs a PrimaryIndexTop block view over offset.
func NewPrimaryIndexTop(f Pager, offset dbtype.Reference) (PrimaryIndexTop, error) {
	b, err := New(PrimaryIndexTopDescription, f, offset)
	return PrimaryIndexTop{b}, err
}

// Root returns the reference to the index's root node.
func (p PrimaryIndexTop) Root() (uint64, error) {
	rec, err := p.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("root")
}

// SetRoot sets the reference to the index's root node.
func (p PrimaryIndexTop) SetRoot(ref uint64) error {
	rec, err := p.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("root", ref)
}

// NumberOfRows returns the table's row count as tracked by this index.
func (p PrimaryIndexTop) NumberOfRows() (uint64, error) {
	rec, err := p.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("number_of_rows")
}

// SetNumberOfRows sets the table's row count.
func (p PrimaryIndexTop) SetNumberOfRows(n uint64) error {
	rec, err := p.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("number_of_rows", n)
}

// PrimaryIndexNode is one node of the primary index's (oid -> row
// reference) tree.
type PrimaryIndexNode struct{ *Block }

// NewPrimaryIndexNode constructs a PrimaryIndexNode block view over offset.
func NewPrimaryIndexNode(f Pager, offset dbtype.Reference) (PrimaryIndexNode, error) {
	b, err := New(PrimaryIndexNodeDescription, f, offset)
	return PrimaryIndexNode{b}, err
}

// Next returns the sibling node reference, or 0 if this is the last node.
func (p PrimaryIndexNode) Next() (uint64, error) {
	rec, err := p.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("next")
}

// SetNext sets the sibling node reference.
func (p PrimaryIndexNode) SetNext(ref uint64) error {
	rec, err := p.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("next", ref)
}

// AddEntry appends a new (oid, row) entry to the node, growing the
// record inside the block's page; the insert fails with a size error
// once the page has no spare room left for the entry.
func (p PrimaryIndexNode) AddEntry(oid, row uint64) error {
	rec, err := p.Record()
	if err != nil {
		return err
	}
	item, err := rec.NewArrayItem("entries")
	if err != nil {
		return err
	}
	if err := item.SetUInteger("oid", oid); err != nil {
		return err
	}
	return item.SetUInteger("row", row)
}

// SecondaryIndexHeader mirrors block_secondary_index.cpp's header block:
// the index's id, row count, root node reference, and bloom filter flags.
type SecondaryIndexHeader struct{ *Block }

// NewSecondaryIndexHeader constructs a SecondaryIndexHeader block view
// over offset.
func NewSecondaryIndexHeader(f Pager, offset dbtype.Reference) (SecondaryIndexHeader, error) {
	b, err := New(SecondaryIndexHeaderDescription, f, offset)
	return SecondaryIndexHeader{b}, err
}

// ID returns the secondary index's id.
func (s SecondaryIndexHeader) ID() (uint64, error) {
	rec, err := s.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("id")
}

// SetID sets the secondary index's id.
func (s SecondaryIndexHeader) SetID(id uint32) error {
	rec, err := s.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("id", uint64(id))
}

// NumberOfRows returns the number of rows indexed.
func (s SecondaryIndexHeader) NumberOfRows() (uint64, error) {
	rec, err := s.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("number_of_rows")
}

// SetNumberOfRows sets the number of rows indexed.
func (s SecondaryIndexHeader) SetNumberOfRows(n uint64) error {
	rec, err := s.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("number_of_rows", n)
}

// TopIndex returns the reference to the index's root sort-tree node.
func (s SecondaryIndexHeader) TopIndex() (uint64, error) {
	rec, err := s.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("top_index")
}

// SetTopIndex sets the reference to the index's root sort-tree node.
func (s SecondaryIndexHeader) SetTopIndex(ref uint64) error {
	rec, err := s.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("top_index", ref)
}

// BloomFilterAlgorithm returns the bloom_filter_flags.algorithm sub-field.
func (s SecondaryIndexHeader) BloomFilterAlgorithm() (uint64, error) {
	rec, err := s.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("bloom_filter_flags.algorithm")
}

// SetBloomFilterAlgorithm sets the bloom_filter_flags.algorithm sub-field.
func (s SecondaryIndexHeader) SetBloomFilterAlgorithm(alg uint64) error {
	rec, err := s.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("bloom_filter_flags.algorithm", alg)
}

// BloomFilterRenewing returns the bloom_filter_flags.renewing sub-field.
func (s SecondaryIndexHeader) BloomFilterRenewing() (bool, error) {
	rec, err := s.Record()
	if err != nil {
		return false, err
	}
	v, err := rec.GetUInteger("bloom_filter_flags.renewing")
	return v != 0, err
}

// SetBloomFilterRenewing sets the bloom_filter_flags.renewing sub-field.
func (s SecondaryIndexHeader) SetBloomFilterRenewing(v bool) error {
	rec, err := s.Record()
	if err != nil {
		return err
	}
	var n uint64
	if v {
		n = 1
	}
	return rec.SetUInteger("bloom_filter_flags.renewing", n)
}

// SecondaryIndexNode is one node of a secondary index's sort tree.
type SecondaryIndexNode struct{ *Block }

// NewSecondaryIndexNode constructs a SecondaryIndexNode block view over
// offset.
func NewSecondaryIndexNode(f Pager, offset dbtype.Reference) (SecondaryIndexNode, error) {
	b, err := New(SecondaryIndexNodeDescription, f, offset)
	return SecondaryIndexNode{b}, err
}

// Next returns the sibling node reference.
func (s SecondaryIndexNode) Next() (uint64, error) {
	rec, err := s.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("next")
}

// SetNext sets the sibling node reference.
func (s SecondaryIndexNode) SetNext(ref uint64) error {
	rec, err := s.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("next", ref)
}

// Indirect is a block holding a value too large to inline in its row,
// optionally chained to further Indirect blocks.
type Indirect struct{ *Block }

// NewIndirect constructs an Indirect block view over offset.
func NewIndirect(f Pager, offset dbtype.Reference) (Indirect, error) {
	b, err := New(IndirectDescription, f, offset)
	return Indirect{b}, err
}

// Next returns the reference to the next Indirect block in the chain, or
// 0 if this is the last one.
func (i Indirect) Next() (uint64, error) {
	rec, err := i.Record()
	if err != nil {
		return 0, err
	}
	return rec.GetUInteger("next")
}

// SetNext sets the reference to the next Indirect block in the chain.
func (i Indirect) SetNext(ref uint64) error {
	rec, err := i.Record()
	if err != nil {
		return err
	}
	return rec.SetUInteger("next", ref)
}

// Payload returns this chunk's raw bytes.
func (i Indirect) Payload() ([]byte, error) {
	rec, err := i.Record()
	if err != nil {
		return nil, err
	}
	return rec.GetBuffer("payload")
}

// SetPayload replaces this chunk's raw bytes.
func (i Indirect) SetPayload(p []byte) error {
	rec, err := i.Record()
	if err != nil {
		return err
	}
	return rec.SetBuffer("payload", p)
}

// Expiration indexes rows by their expiration_date column.
type Expiration struct{ *Block }

// NewExpiration constructs an Expiration block view over offset.
func NewExpiration(f Pager, offset dbtype.Reference) (Expiration, error) {
	b, err := New(ExpirationDescription, f, offset)
	return Expiration{b}, err
}
