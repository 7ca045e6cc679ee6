package dbtype

import "fmt"

// StructType is the tagged vocabulary of field types a structure
// description can declare. It mirrors struct_type_t from the original
// design: a handful of fixed-width scalar kinds, bit-packed groups, and a
// few length-prefixed / nested composite kinds.
type StructType uint8

const (
	// Invalid marks the zero value; a field must never be left at this
	// type, and name_to_struct_type-style lookups return it for unknown
	// names (the caller then checks complex types before failing).
	Invalid StructType = iota

	Magic             // 4-byte block-kind tag, first field of every block
	StructureVersion  // Version pair, second field of every block

	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64

	Bits8  // bit-packed group occupying 8 bits
	Bits16 // bit-packed group occupying 16 bits
	Bits32 // bit-packed group occupying 32 bits
	Bits64 // bit-packed group occupying 64 bits

	VersionType // STRUCT_TYPE_VERSION: (major:16, minor:16)

	Time   // seconds since epoch, int64
	MSTime // milliseconds since epoch, int64
	USTime // microseconds since epoch, int64
	NSTime // nanoseconds since epoch, int64

	ReferenceType // 64-bit absolute file offset
	OIDType       // 64-bit opaque row identifier

	P8String  // uint8 length prefix + UTF-8 bytes
	P16String // uint16 length prefix + UTF-8 bytes

	Buffer8  // uint8 length prefix + raw bytes
	Buffer16 // uint16 length prefix + raw bytes
	Buffer32 // uint32 length prefix + raw bytes

	Array8  // uint8 element count + that many sub-structures
	Array16 // uint16 element count + that many sub-structures
	Array32 // uint32 element count + that many sub-structures

	Structure // inline nested record using a sub-description

	End // sentinel marking the end of a description list
)

var structTypeNames = map[StructType]string{
	Invalid:          "INVALID",
	Magic:            "MAGIC",
	StructureVersion: "STRUCTURE_VERSION",
	Int8:             "INT8",
	Uint8:            "UINT8",
	Int16:            "INT16",
	Uint16:           "UINT16",
	Int32:            "INT32",
	Uint32:           "UINT32",
	Int64:            "INT64",
	Uint64:           "UINT64",
	Bits8:            "BITS8",
	Bits16:           "BITS16",
	Bits32:           "BITS32",
	Bits64:           "BITS64",
	VersionType:      "VERSION",
	Time:             "TIME",
	MSTime:           "MSTIME",
	USTime:           "USTIME",
	NSTime:           "NSTIME",
	ReferenceType:    "REFERENCE",
	OIDType:          "OID",
	P8String:         "P8STRING",
	P16String:        "P16STRING",
	Buffer8:          "BUFFER8",
	Buffer16:         "BUFFER16",
	Buffer32:         "BUFFER32",
	Array8:           "ARRAY8",
	Array16:          "ARRAY16",
	Array32:          "ARRAY32",
	Structure:        "STRUCTURE",
	End:              "END",
}

var namesToStructType = func() map[string]StructType {
	m := make(map[string]StructType, len(structTypeNames))
	for t, n := range structTypeNames {
		m[n] = t
	}
	return m
}()

// String implements fmt.Stringer.
func (t StructType) String() string {
	if n, ok := structTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("StructType(%d)", uint8(t))
}

// NameToStructType resolves a basic type name (as used in an .ini file's
// type=... value) to its StructType. It returns Invalid for names that are
// not basic types -- the caller then consults the complex-type registry
// before reporting an error.
func NameToStructType(name string) StructType {
	if t, ok := namesToStructType[name]; ok {
		// MAGIC, STRUCTURE_VERSION and END are structural, not something a
		// column can declare as its type.
		switch t {
		case Magic, StructureVersion, End, Invalid:
			return Invalid
		}
		return t
	}
	return Invalid
}

// IsTimeType reports whether t stores an epoch offset, used to validate
// that an "expiration_date" column was declared with a time type.
func IsTimeType(t StructType) bool {
	switch t {
	case Time, MSTime, USTime, NSTime:
		return true
	default:
		return false
	}
}

// IsIntegerType reports whether t is one of the fixed-width signed or
// unsigned integer kinds, used to validate enum underlying types
// ([INT8..UINT64] inclusive).
func IsIntegerType(t StructType) bool {
	switch t {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	default:
		return false
	}
}

// StaticSize returns the fixed, on-the-wire byte width of t, or -1 when t
// has a dynamic (length-prefixed or nested) size that depends on content.
func StaticSize(t StructType) int {
	switch t {
	case Magic:
		return 4
	case StructureVersion, VersionType:
		return 4
	case Int8, Uint8, Bits8:
		return 1
	case Int16, Uint16, Bits16:
		return 2
	case Int32, Uint32, Bits32:
		return 4
	case Int64, Uint64, Bits64:
		return 8
	case Time:
		return 8
	case MSTime:
		return 8
	case USTime:
		return 8
	case NSTime:
		return 8
	case ReferenceType:
		return 8
	case OIDType:
		return 8
	default:
		return -1
	}
}
