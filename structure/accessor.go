package structure

import "github.com/prinbee/prinbee-core/errtype"

// Accessor is the byte range a Record is bound to. block.Block and
// vbuf.Buffer both implement it (directly or through a thin adapter), so
// the same Description/Record code serializes into a page or into a
// virtual buffer without caring which.
type Accessor interface {
	// Len returns the current accessor size in bytes.
	Len() int
	// ReadAt copies len(p) bytes starting at offset into p.
	ReadAt(p []byte, offset int) error
	// WriteAt overwrites len(p) bytes starting at offset with p. offset
	// and offset+len(p) must already be within Len().
	WriteAt(p []byte, offset int) error
	// InsertAt grows the accessor by len(p) bytes, shifting any bytes at
	// or past offset to the right, and writes p into the new space. A
	// fixed-size accessor (a raw block page) succeeds only while it has
	// spare zero-padded capacity and returns errtype.ErrSize once it
	// doesn't.
	InsertAt(p []byte, offset int) error
	// EraseAt removes n bytes starting at offset, shifting any bytes past
	// offset+n left to close the gap. A fixed-size accessor (a raw block
	// page) keeps its length by zero-padding the freed tail; a growable
	// accessor (a virtual buffer) shrinks by n.
	EraseAt(offset, n int) error
}

// BytesAccessor is a fixed-size Accessor directly over a byte slice, used
// to bind a Record to a block's page bytes.
type BytesAccessor struct {
	Data []byte
}

// Len implements Accessor.
func (b BytesAccessor) Len() int { return len(b.Data) }

// ReadAt implements Accessor.
func (b BytesAccessor) ReadAt(p []byte, offset int) error {
	if offset < 0 || offset+len(p) > len(b.Data) {
		return errtype.Size("read of %d bytes at offset %d is out of range (size %d)", len(p), offset, len(b.Data))
	}
	copy(p, b.Data[offset:offset+len(p)])
	return nil
}

// WriteAt implements Accessor.
func (b BytesAccessor) WriteAt(p []byte, offset int) error {
	if offset < 0 || offset+len(p) > len(b.Data) {
		return errtype.Size("write of %d bytes at offset %d is out of range (size %d)", len(p), offset, len(b.Data))
	}
	copy(b.Data[offset:offset+len(p)], p)
	return nil
}

// InsertAt implements Accessor. A block page cannot grow past its fixed
// allocation, but a dynamic field can still grow into whatever spare,
// zero-padded capacity the page has left: InsertAt shifts the bytes from
// offset onward to the right by len(p), which only works if the bytes it
// would push past the end of the page are themselves unused (zero). If
// they are not -- the record's encoded content already reaches the end of
// the page -- there is no room, and this fails with errtype.ErrSize.
func (b BytesAccessor) InsertAt(p []byte, offset int) error {
	n := len(p)
	if n == 0 {
		return nil
	}
	if offset < 0 || offset > len(b.Data) || n > len(b.Data) {
		return errtype.Size("insert of %d bytes at offset %d is out of range (size %d)", n, offset, len(b.Data))
	}
	for _, c := range b.Data[len(b.Data)-n:] {
		if c != 0 {
			return errtype.Size("page has no spare capacity left for a %d-byte insert at offset %d", n, offset)
		}
	}
	copy(b.Data[offset+n:], b.Data[offset:len(b.Data)-n])
	copy(b.Data[offset:offset+n], p)
	return nil
}

// EraseAt implements Accessor. The page's length is fixed, so the bytes
// past the freed span slide left to close the gap and the now-unused
// tail is zeroed, matching the zero-padded-payload invariant InsertAt
// relies on to detect spare capacity.
func (b BytesAccessor) EraseAt(offset, n int) error {
	if n == 0 {
		return nil
	}
	if offset < 0 || n < 0 || offset+n > len(b.Data) {
		return errtype.Size("erase of %d bytes at offset %d is out of range (size %d)", n, offset, len(b.Data))
	}
	copy(b.Data[offset:], b.Data[offset+n:])
	for i := len(b.Data) - n; i < len(b.Data); i++ {
		b.Data[i] = 0
	}
	return nil
}
