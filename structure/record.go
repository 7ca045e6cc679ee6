package structure

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
)

// Record is the runtime binding of a Description to a byte range. It is
// created when a block is constructed over a page, or when a schema
// object materializes over a virtual buffer, and it dies with whatever
// owns that byte range.
type Record struct {
	desc    Description
	acc     Accessor
	base    int
	version dbtype.SchemaVersion
}

// NewRecord binds desc to acc starting at byte offset base. version is
// the structure version stored in the record (read from the
// STRUCTURE_VERSION field by the caller before fields are addressed), and
// governs which fields in desc are present.
func NewRecord(desc Description, acc Accessor, base int, version dbtype.SchemaVersion) (*Record, error) {
	if err := desc.Validate(base == 0); err != nil {
		return nil, err
	}
	return &Record{desc: desc, acc: acc, base: base, version: version}, nil
}

// GetStaticSize returns the byte distance from the record's base offset
// to its first dynamic field, or to the payload start when every field is
// static.
func (r *Record) GetStaticSize() int {
	return r.desc.StaticSize(r.version)
}

func arrayPrefixWidth(t dbtype.StructType) int {
	switch t {
	case dbtype.Array8:
		return 1
	case dbtype.Array16:
		return 2
	case dbtype.Array32:
		return 4
	default:
		return 0
	}
}

// fieldSize returns the total number of bytes field f occupies on the
// wire starting at offset, reading any dynamic length/count prefix it
// needs from acc.
func fieldSize(f FieldDesc, acc Accessor, offset int, version dbtype.SchemaVersion) (int, error) {
	if w := dbtype.StaticSize(f.Type); w >= 0 {
		return w, nil
	}
	switch f.Type {
	case dbtype.P8String, dbtype.Buffer8:
		var b [1]byte
		if err := acc.ReadAt(b[:], offset); err != nil {
			return 0, err
		}
		return 1 + int(b[0]), nil
	case dbtype.P16String, dbtype.Buffer16:
		var b [2]byte
		if err := acc.ReadAt(b[:], offset); err != nil {
			return 0, err
		}
		return 2 + int(binary.LittleEndian.Uint16(b[:])), nil
	case dbtype.Buffer32:
		var b [4]byte
		if err := acc.ReadAt(b[:], offset); err != nil {
			return 0, err
		}
		return 4 + int(binary.LittleEndian.Uint32(b[:])), nil
	case dbtype.Array8, dbtype.Array16, dbtype.Array32:
		width := arrayPrefixWidth(f.Type)
		count, err := readUint(acc, offset, width)
		if err != nil {
			return 0, err
		}
		total := width
		for i := uint64(0); i < count; i++ {
			elemSize, err := descriptionSize(f.SubDescription, acc, offset+total, version)
			if err != nil {
				return 0, err
			}
			total += elemSize
		}
		return total, nil
	case dbtype.Structure:
		return descriptionSize(f.SubDescription, acc, offset, version)
	default:
		return 0, errtype.Programming("field %q has an unresolvable dynamic type %s", f.Name, f.Type)
	}
}

func descriptionSize(desc Description, acc Accessor, offset int, version dbtype.SchemaVersion) (int, error) {
	total := 0
	for _, f := range desc {
		if f.Type == dbtype.End {
			break
		}
		if !f.PresentAt(version) {
			continue
		}
		sz, err := fieldSize(f, acc, offset+total, version)
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

func readUint(acc Accessor, offset, width int) (uint64, error) {
	var b [8]byte
	if err := acc.ReadAt(b[:width], offset); err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b[:2])), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b[:4])), nil
	case 8:
		return binary.LittleEndian.Uint64(b[:8]), nil
	default:
		return 0, errtype.Programming("unsupported integer width %d", width)
	}
}

func writeUint(acc Accessor, offset, width int, v uint64) error {
	var b [8]byte
	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b[:2], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b[:4], uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b[:8], v)
	default:
		return errtype.Programming("unsupported integer width %d", width)
	}
	return acc.WriteAt(b[:width], offset)
}

// parsePathSegment splits one "." separated path segment into its field
// name and, when present, a trailing "[idx]" array index (-1 if absent).
func parsePathSegment(seg string) (name string, idx int, err error) {
	b := strings.IndexByte(seg, '[')
	if b < 0 {
		return seg, -1, nil
	}
	if !strings.HasSuffix(seg, "]") {
		return "", 0, errtype.Validation("malformed array index in path segment %q", seg)
	}
	name = seg[:b]
	n, convErr := strconv.Atoi(seg[b+1 : len(seg)-1])
	if convErr != nil || n < 0 {
		return "", 0, errtype.Validation("malformed array index in path segment %q", seg)
	}
	return name, n, nil
}

// locate finds name directly within r's own description (not a dotted
// path), returning its descriptor and absolute offset.
func (r *Record) locate(name string) (FieldDesc, int, error) {
	offset := r.base
	for _, f := range r.desc {
		if f.Type == dbtype.End {
			break
		}
		if !f.PresentAt(r.version) {
			continue
		}
		if f.Name == name {
			return f, offset, nil
		}
		sz, err := fieldSize(f, r.acc, offset, r.version)
		if err != nil {
			return FieldDesc{}, 0, err
		}
		offset += sz
	}
	return FieldDesc{}, 0, errtype.MissingData("field_not_found: %q", name)
}

// arrayElement returns a sub-Record bound to element idx of the array
// field fd, located at absolute offset off.
func (r *Record) arrayElement(fd FieldDesc, off, idx int) (*Record, error) {
	width := arrayPrefixWidth(fd.Type)
	count, err := readUint(r.acc, off, width)
	if err != nil {
		return nil, err
	}
	if idx < 0 || uint64(idx) >= count {
		return nil, errtype.MissingData("out_of_range: index %d, array %q has %d element(s)", idx, fd.Name, count)
	}
	elemOffset := off + width
	for i := 0; i < idx; i++ {
		sz, err := descriptionSize(fd.SubDescription, r.acc, elemOffset, r.version)
		if err != nil {
			return nil, err
		}
		elemOffset += sz
	}
	return &Record{desc: fd.SubDescription, acc: r.acc, base: elemOffset, version: r.version}, nil
}

// resolve walks a dotted/bracketed path and returns the Record actually
// holding the leaf field together with that field's descriptor.
func (r *Record) resolve(path string) (*Record, FieldDesc, error) {
	cur := r
	segs := strings.Split(path, ".")
	for i, seg := range segs {
		name, idx, err := parsePathSegment(seg)
		if err != nil {
			return nil, FieldDesc{}, err
		}
		fd, off, err := cur.locate(name)
		if err != nil {
			return nil, FieldDesc{}, err
		}
		last := i == len(segs)-1
		if idx >= 0 {
			switch fd.Type {
			case dbtype.Array8, dbtype.Array16, dbtype.Array32:
			default:
				return nil, FieldDesc{}, errtype.TypeMismatch("field %q is not an array", name)
			}
			elem, err := cur.arrayElement(fd, off, idx)
			if err != nil {
				return nil, FieldDesc{}, err
			}
			if last {
				return nil, FieldDesc{}, errtype.TypeMismatch("path %q names a structure, not a scalar field", path)
			}
			cur = elem
			continue
		}
		if last {
			return cur, fd, nil
		}
		if fd.Type != dbtype.Structure {
			return nil, FieldDesc{}, errtype.TypeMismatch("field %q is not a nested structure", name)
		}
		cur = &Record{desc: fd.SubDescription, acc: cur.acc, base: off, version: cur.version}
	}
	return cur, FieldDesc{}, nil
}

// GetUInteger reads an unsigned integer, bit-packed sub-field, or bit-group
// word addressed by path. For a BITSn group, path is "group.subfield"; for
// the group's raw word, address the group name alone.
func (r *Record) GetUInteger(path string) (uint64, error) {
	rec, fd, err := r.splitGroup(path)
	if err != nil {
		return 0, err
	}
	if fd.bit != nil {
		return rec.getBitField(fd.field, *fd.bit)
	}
	f := fd.field
	switch f.Type {
	case dbtype.Uint8, dbtype.Uint16, dbtype.Uint32, dbtype.Uint64,
		dbtype.Int8, dbtype.Int16, dbtype.Int32, dbtype.Int64,
		dbtype.Bits8, dbtype.Bits16, dbtype.Bits32, dbtype.Bits64,
		dbtype.ReferenceType, dbtype.OIDType,
		dbtype.Time, dbtype.MSTime, dbtype.USTime, dbtype.NSTime:
		return readUint(rec.acc, fd.offset, dbtype.StaticSize(f.Type))
	default:
		return 0, errtype.TypeMismatch("field %q is not an unsigned-integer-compatible type (%s)", f.Name, f.Type)
	}
}

// GetInteger reads a signed integer field addressed by path.
func (r *Record) GetInteger(path string) (int64, error) {
	u, err := r.GetUInteger(path)
	if err != nil {
		return 0, err
	}
	rec, fd, err := r.splitGroup(path)
	if err != nil {
		return 0, err
	}
	width := dbtype.StaticSize(fd.field.Type)
	switch width {
	case 1:
		return int64(int8(u)), nil
	case 2:
		return int64(int16(u)), nil
	case 4:
		return int64(int32(u)), nil
	case 8:
		return int64(u), nil
	default:
		_ = rec
		return 0, errtype.TypeMismatch("field %q has no signed-integer width", fd.field.Name)
	}
}

// GetString reads a P8STRING/P16STRING field addressed by path.
func (r *Record) GetString(path string) (string, error) {
	rec, fd, err := r.resolve(path)
	if err != nil {
		return "", err
	}
	switch fd.Type {
	case dbtype.P8String, dbtype.P16String:
	default:
		return "", errtype.TypeMismatch("field %q is not a string type (%s)", fd.Name, fd.Type)
	}
	_, off, err := rec.locate(fd.Name)
	if err != nil {
		return "", err
	}
	width := 1
	if fd.Type == dbtype.P16String {
		width = 2
	}
	n, err := readUint(rec.acc, off, width)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := rec.acc.ReadAt(buf, off+width); err != nil {
		return "", err
	}
	return string(buf), nil
}

// GetBuffer reads a BUFFER8/16/32 field addressed by path.
func (r *Record) GetBuffer(path string) ([]byte, error) {
	rec, fd, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	width := 0
	switch fd.Type {
	case dbtype.Buffer8:
		width = 1
	case dbtype.Buffer16:
		width = 2
	case dbtype.Buffer32:
		width = 4
	default:
		return nil, errtype.TypeMismatch("field %q is not a buffer type (%s)", fd.Name, fd.Type)
	}
	_, off, err := rec.locate(fd.Name)
	if err != nil {
		return nil, err
	}
	n, err := readUint(rec.acc, off, width)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := rec.acc.ReadAt(buf, off+width); err != nil {
		return nil, err
	}
	return buf, nil
}

// GetVersion reads a VERSION (or STRUCTURE_VERSION) field addressed by
// path.
func (r *Record) GetVersion(path string) (dbtype.Version, error) {
	rec, fd, err := r.resolve(path)
	if err != nil {
		return dbtype.Version{}, err
	}
	if fd.Type != dbtype.VersionType && fd.Type != dbtype.StructureVersion {
		return dbtype.Version{}, errtype.TypeMismatch("field %q is not a VERSION type (%s)", fd.Name, fd.Type)
	}
	_, off, err := rec.locate(fd.Name)
	if err != nil {
		return dbtype.Version{}, err
	}
	raw, err := readUint(rec.acc, off, 4)
	if err != nil {
		return dbtype.Version{}, err
	}
	return dbtype.DecodeVersion(uint32(raw)), nil
}

// SetUInteger writes an unsigned integer or bit sub-field addressed by
// path.
func (r *Record) SetUInteger(path string, v uint64) error {
	rec, fd, err := r.splitGroup(path)
	if err != nil {
		return err
	}
	if fd.bit != nil {
		return rec.setBitField(fd.field, *fd.bit, fd.offset, v)
	}
	f := fd.field
	switch f.Type {
	case dbtype.Uint8, dbtype.Uint16, dbtype.Uint32, dbtype.Uint64,
		dbtype.Int8, dbtype.Int16, dbtype.Int32, dbtype.Int64,
		dbtype.Bits8, dbtype.Bits16, dbtype.Bits32, dbtype.Bits64,
		dbtype.ReferenceType, dbtype.OIDType,
		dbtype.Time, dbtype.MSTime, dbtype.USTime, dbtype.NSTime:
		return writeUint(rec.acc, fd.offset, dbtype.StaticSize(f.Type), v)
	default:
		return errtype.TypeMismatch("field %q is not an unsigned-integer-compatible type (%s)", f.Name, f.Type)
	}
}

// SetInteger writes a signed integer field addressed by path.
func (r *Record) SetInteger(path string, v int64) error {
	return r.SetUInteger(path, uint64(v))
}

// SetVersion writes a VERSION field addressed by path.
func (r *Record) SetVersion(path string, v dbtype.Version) error {
	rec, fd, err := r.resolve(path)
	if err != nil {
		return err
	}
	if fd.Type != dbtype.VersionType && fd.Type != dbtype.StructureVersion {
		return errtype.TypeMismatch("field %q is not a VERSION type (%s)", fd.Name, fd.Type)
	}
	_, off, err := rec.locate(fd.Name)
	if err != nil {
		return err
	}
	return writeUint(rec.acc, off, 4, uint64(v.Encode()))
}

// groupRef addresses either a whole field or one bit sub-field within a
// BITSn group.
type groupRef struct {
	field  FieldDesc
	offset int
	bit    *BitField
}

// splitGroup resolves path, additionally recognizing "group.subfield" as
// addressing one bit sub-field of a BITSn group rather than a nested
// structure field.
func (r *Record) splitGroup(path string) (*Record, groupRef, error) {
	if dot := strings.LastIndexByte(path, '.'); dot >= 0 {
		parent := path[:dot]
		leaf := path[dot+1:]
		if rec, fd, err := r.resolve(parent); err == nil {
			switch fd.Type {
			case dbtype.Bits8, dbtype.Bits16, dbtype.Bits32, dbtype.Bits64:
				for i := range fd.BitFields {
					if fd.BitFields[i].Name == leaf {
						_, off, lerr := rec.locate(fd.Name)
						if lerr != nil {
							return nil, groupRef{}, lerr
						}
						return rec, groupRef{field: fd, offset: off, bit: &fd.BitFields[i]}, nil
					}
				}
				return nil, groupRef{}, errtype.MissingData("field_not_found: %q has no bit sub-field %q", fd.Name, leaf)
			}
		}
	}
	rec, fd, err := r.resolve(path)
	if err != nil {
		return nil, groupRef{}, err
	}
	_, off, err := rec.locate(fd.Name)
	if err != nil {
		return nil, groupRef{}, err
	}
	return rec, groupRef{field: fd, offset: off}, nil
}

func bitFieldShift(fields []BitField, target string) (shift uint8, width uint8, ok bool) {
	var pos uint8
	for _, f := range fields {
		if f.Name == target {
			return pos, f.Bits, true
		}
		pos += f.Bits
	}
	return 0, 0, false
}

func (r *Record) getBitField(group FieldDesc, bit BitField) (uint64, error) {
	_, off, err := r.locate(group.Name)
	if err != nil {
		return 0, err
	}
	word, err := readUint(r.acc, off, dbtype.StaticSize(group.Type))
	if err != nil {
		return 0, err
	}
	shift, width, ok := bitFieldShift(group.BitFields, bit.Name)
	if !ok {
		return 0, errtype.MissingData("field_not_found: %q has no bit sub-field %q", group.Name, bit.Name)
	}
	mask := uint64(1)<<width - 1
	return (word >> shift) & mask, nil
}

func (r *Record) setBitField(group FieldDesc, bit BitField, offset int, v uint64) error {
	width := dbtype.StaticSize(group.Type)
	word, err := readUint(r.acc, offset, width)
	if err != nil {
		return err
	}
	shift, bits, ok := bitFieldShift(group.BitFields, bit.Name)
	if !ok {
		return errtype.MissingData("field_not_found: %q has no bit sub-field %q", group.Name, bit.Name)
	}
	mask := uint64(1)<<bits - 1
	if v > mask {
		return errtype.Validation("value %d does not fit in %d-bit sub-field %q", v, bits, bit.Name)
	}
	word = (word &^ (mask << shift)) | ((v & mask) << shift)
	return writeUint(r.acc, offset, width, word)
}

// zeroEncode returns the wire bytes of one freshly-initialized instance
// of desc at version: every dynamic field is empty (a zero length/count
// prefix), every static field is zeroed.
func zeroEncode(desc Description, version dbtype.SchemaVersion) []byte {
	var buf []byte
	for _, f := range desc {
		if f.Type == dbtype.End {
			break
		}
		if !f.PresentAt(version) {
			continue
		}
		if w := dbtype.StaticSize(f.Type); w >= 0 {
			buf = append(buf, make([]byte, w)...)
			continue
		}
		switch f.Type {
		case dbtype.P8String, dbtype.Buffer8, dbtype.Array8:
			buf = append(buf, 0)
		case dbtype.P16String, dbtype.Buffer16, dbtype.Array16:
			buf = append(buf, 0, 0)
		case dbtype.Buffer32, dbtype.Array32:
			buf = append(buf, 0, 0, 0, 0)
		case dbtype.Structure:
			buf = append(buf, zeroEncode(f.SubDescription, version)...)
		}
	}
	return buf
}

// NewArrayItem appends a freshly zero-initialized element to the array
// field addressed by path and returns a Record bound to it, mirroring the
// original design's structure::new_array_item. On a fixed-size block page
// this only succeeds while the page still has spare zero-padded capacity
// for the new element; a virtual buffer always has room to grow.
func (r *Record) NewArrayItem(path string) (*Record, error) {
	rec, fd, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	width := arrayPrefixWidth(fd.Type)
	if width == 0 {
		return nil, errtype.TypeMismatch("field %q is not an array type (%s)", fd.Name, fd.Type)
	}
	_, off, err := rec.locate(fd.Name)
	if err != nil {
		return nil, err
	}
	count, err := readUint(rec.acc, off, width)
	if err != nil {
		return nil, err
	}
	existing, err := descriptionSize(fd.SubDescription, rec.acc, off+width, rec.version)
	if err != nil {
		return nil, err
	}
	insertAt := off + width + existing
	payload := zeroEncode(fd.SubDescription, rec.version)
	if err := rec.acc.InsertAt(payload, insertAt); err != nil {
		return nil, err
	}
	if err := writeUint(rec.acc, off, width, count+1); err != nil {
		return nil, err
	}
	return &Record{desc: fd.SubDescription, acc: rec.acc, base: insertAt, version: rec.version}, nil
}

// copyScalar copies one field's value from src to an equally-typed field
// in dst, dispatching by type. Used by Migrate.
func copyScalar(src, dst *Record, f FieldDesc) error {
	switch f.Type {
	case dbtype.P8String, dbtype.P16String:
		v, err := src.GetString(f.Name)
		if err != nil {
			return err
		}
		return dst.SetString(f.Name, v)
	case dbtype.Buffer8, dbtype.Buffer16, dbtype.Buffer32:
		v, err := src.GetBuffer(f.Name)
		if err != nil {
			return err
		}
		return dst.SetBuffer(f.Name, v)
	case dbtype.VersionType, dbtype.StructureVersion:
		v, err := src.GetVersion(f.Name)
		if err != nil {
			return err
		}
		return dst.SetVersion(f.Name, v)
	case dbtype.Magic:
		_, srcOff, err := src.locate(f.Name)
		if err != nil {
			return err
		}
		raw, err := readUint(src.acc, srcOff, 4)
		if err != nil {
			return err
		}
		_, dstOff, err := dst.locate(f.Name)
		if err != nil {
			return err
		}
		return writeUint(dst.acc, dstOff, 4, raw)
	case dbtype.Structure, dbtype.Array8, dbtype.Array16, dbtype.Array32:
		// Nested composites are not copied: copying them verbatim would
		// require the destination to already hold the right element
		// count, which nothing here guarantees.
		return errtype.NotImplemented("migrating nested field %q across structure versions", f.Name)
	default:
		v, err := src.GetUInteger(f.Name)
		if err != nil {
			return err
		}
		return dst.SetUInteger(f.Name, v)
	}
}

// Migrate implements the original design's from_current_file_version:
// it builds a new Record over dest (already sized/zeroed for the target
// layout) at structure version to, copying every field present at both r's
// current version and to, and leaving fields absent from either end
// untouched (new-only fields keep whatever dest already holds at their
// offsets; old-only fields are simply not read). Nested STRUCTURE and
// ARRAY fields present at both ends are not copied: Migrate returns a
// NotImplemented error when it reaches one.
func (r *Record) Migrate(to dbtype.SchemaVersion, dest Accessor, destBase int) (*Record, error) {
	out := &Record{desc: r.desc, acc: dest, base: destBase, version: to}
	for _, f := range r.desc {
		if f.Type == dbtype.End {
			break
		}
		if !f.PresentAt(r.version) || !f.PresentAt(to) {
			continue
		}
		if err := copyScalar(r, out, f); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SetString writes a P8STRING/P16STRING field. Growth beyond the field's
// previously encoded length shifts the record's tail via InsertAt: a
// virtual buffer grows to fit, while a fixed block page succeeds only if
// it still has spare (zero-padded) capacity and fails with
// errtype.ErrSize otherwise.
func (r *Record) SetString(path string, v string) error {
	return r.setLengthPrefixed(path, []byte(v), dbtype.P8String, dbtype.P16String, 0)
}

// SetBuffer writes a BUFFER8/16/32 field, subject to the same growth
// rule as SetString.
func (r *Record) SetBuffer(path string, v []byte) error {
	return r.setLengthPrefixed(path, v, dbtype.Buffer8, dbtype.Buffer16, dbtype.Buffer32)
}

func (r *Record) setLengthPrefixed(path string, data []byte, t8, t16, t32 dbtype.StructType) error {
	rec, fd, err := r.resolve(path)
	if err != nil {
		return err
	}
	var width int
	switch fd.Type {
	case t8:
		width = 1
	case t16:
		width = 2
	case t32:
		if t32 == dbtype.Invalid {
			return errtype.TypeMismatch("field %q does not support a 32-bit length prefix", fd.Name)
		}
		width = 4
	default:
		return errtype.TypeMismatch("field %q has the wrong type for this accessor (%s)", fd.Name, fd.Type)
	}
	_, off, err := rec.locate(fd.Name)
	if err != nil {
		return err
	}
	oldN, err := readUint(rec.acc, off, width)
	if err != nil {
		return err
	}
	if uint64(len(data)) == oldN {
		return rec.acc.WriteAt(data, off+width)
	}
	// Length changed: replace the whole [prefix|payload] span. Growth
	// pushes the tail right via InsertAt; shrinking pulls it left via
	// EraseAt so a subsequent dynamic field in the same record is not
	// left reading stale bytes at the old, now-wrong offset.
	payload := make([]byte, width+len(data))
	switch width {
	case 1:
		payload[0] = byte(len(data))
	case 2:
		binary.LittleEndian.PutUint16(payload[:2], uint16(len(data)))
	case 4:
		binary.LittleEndian.PutUint32(payload[:4], uint32(len(data)))
	}
	copy(payload[width:], data)
	switch {
	case uint64(len(data)) > oldN:
		if err := rec.acc.InsertAt(payload[width+int(oldN):], off+width+int(oldN)); err != nil {
			return err
		}
	case uint64(len(data)) < oldN:
		if err := rec.acc.EraseAt(off+width+len(data), int(oldN)-len(data)); err != nil {
			return err
		}
	}
	return rec.acc.WriteAt(payload[:width+min(int(oldN), len(data))], off)
}
