package block

import (
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/structure"
)

// mustField panics on a malformed description; used only for the
// package-level description tables below, which are fixed at compile
// time -- an error here is a bug in this file, not user input.
func mustField(raw string, t dbtype.StructType, minV, maxV dbtype.SchemaVersion, sub structure.Description) structure.FieldDesc {
	f, err := structure.NewField(raw, t, minV, maxV, sub)
	if err != nil {
		panic(err)
	}
	return f
}

func header(magic dbtype.BlockType) []structure.FieldDesc {
	return []structure.FieldDesc{
		mustField("magic", dbtype.Magic, 0, 0, nil),
		mustField("version", dbtype.StructureVersion, 0, 0, nil),
	}
}

func end() structure.FieldDesc {
	return mustField("", dbtype.End, 0, 0, nil)
}

// FreeDescription is the empty free-block layout: a block transitioned
// to FREE carries no payload beyond the header, per spec.md §3's
// FREE-is-the-only-universal-transition invariant.
var FreeDescription = structure.Description(append(header(dbtype.BlockFree), end()))

// DataDescription is a generic data block: header plus a single BUFFER32
// payload holding whatever the owning table's row format puts there.
var DataDescription = structure.Description(append(header(dbtype.BlockData),
	mustField("payload", dbtype.Buffer32, 0, 0, nil),
	end(),
))

// SchemaDescription is the table-header/schema block: it stores the
// table's schema version and a BUFFER32 holding the serialized schema
// (parsed/compiled by the schema package) so the table's own .ini text
// need not be re-parsed on every open.
var SchemaDescription = structure.Description(append(header(dbtype.BlockSchema),
	mustField("schema_version", dbtype.VersionType, 0, 0, nil),
	mustField("name", dbtype.P8String, 0, 0, nil),
	mustField("payload", dbtype.Buffer32, 0, 0, nil),
	end(),
))

// PrimaryIndexTopDescription is the root of the primary index (an OID ->
// reference tree, §3's "primary index"): it names the root node and a
// running row count.
var PrimaryIndexTopDescription = structure.Description(append(header(dbtype.BlockPrimaryIndexTop),
	mustField("root", dbtype.ReferenceType, 0, 0, nil),
	mustField("number_of_rows", dbtype.Uint64, 0, 0, nil),
	end(),
))

// PrimaryIndexNodeDescription is one node of the primary index tree: an
// array of (oid, reference) pairs plus sibling links.
var oidEntryDescription = structure.Description{
	mustField("oid", dbtype.OIDType, 0, 0, nil),
	mustField("row", dbtype.ReferenceType, 0, 0, nil),
	end(),
}

var PrimaryIndexNodeDescription = structure.Description(append(header(dbtype.BlockPrimaryIndexNode),
	mustField("next", dbtype.ReferenceType, 0, 0, nil),
	mustField("entries", dbtype.Array16, 0, 0, oidEntryDescription),
	end(),
))

// SecondaryIndexHeaderDescription mirrors block_secondary_index.cpp's
// g_description exactly: id, number_of_rows, top_index, and a bit-packed
// bloom_filter_flags (algorithm:4, renewing:1).
var SecondaryIndexHeaderDescription = structure.Description(append(header(dbtype.BlockSecondaryIndexHeader),
	mustField("id", dbtype.Uint32, 0, 0, nil),
	mustField("number_of_rows", dbtype.Uint64, 0, 0, nil),
	mustField("top_index", dbtype.ReferenceType, 0, 0, nil),
	mustField("bloom_filter_flags=algorithm:4/renewing:1", dbtype.Bits32, 0, 0, nil),
	end(),
))

// sortKeyEntryDescription is one (key prefix, row reference) pair inside
// a secondary index node, ordered by the index's sort columns.
var sortKeyEntryDescription = structure.Description{
	mustField("key", dbtype.Buffer16, 0, 0, nil),
	mustField("row", dbtype.ReferenceType, 0, 0, nil),
	end(),
}

// SecondaryIndexNodeDescription is one node of a secondary index's sort
// tree.
var SecondaryIndexNodeDescription = structure.Description(append(header(dbtype.BlockSecondaryIndexNode),
	mustField("next", dbtype.ReferenceType, 0, 0, nil),
	mustField("entries", dbtype.Array16, 0, 0, sortKeyEntryDescription),
	end(),
))

// BloomFilterDescription is a bloom-filter side block attached to a
// secondary index, sized and hashed with xxhash (see bloom_filter.go).
var BloomFilterDescription = structure.Description(append(header(dbtype.BlockBloomFilter),
	mustField("hash_count", dbtype.Uint8, 0, 0, nil),
	mustField("bits", dbtype.Buffer32, 0, 0, nil),
	end(),
))

// IndirectDescription is a block used to store a value too large to
// inline (spec.md SPEC_FULL.md §4 item 1's blob-inlining threshold),
// pointing at the next indirect block if the value spans more than one.
var IndirectDescription = structure.Description(append(header(dbtype.BlockIndirect),
	mustField("next", dbtype.ReferenceType, 0, 0, nil),
	mustField("payload", dbtype.Buffer32, 0, 0, nil),
	end(),
))

// ExpirationDescription indexes rows by their expiration_date column,
// per spec.md §3's reserved expiration_date column semantics.
var expirationEntryDescription = structure.Description{
	mustField("expires_at", dbtype.NSTime, 0, 0, nil),
	mustField("row", dbtype.ReferenceType, 0, 0, nil),
	end(),
}

var ExpirationDescription = structure.Description(append(header(dbtype.BlockExpiration),
	mustField("entries", dbtype.Array32, 0, 0, expirationEntryDescription),
	end(),
))
