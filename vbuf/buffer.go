package vbuf

import (
	"os"

	"github.com/prinbee/prinbee-core/errtype"
)

// Buffer is a virtual buffer: segments, in order, form one logical
// address space [0, Size()).
type Buffer struct {
	segments  []segment
	totalSize uint64
	modified  bool
}

// New returns an empty virtual buffer.
func New() *Buffer {
	return &Buffer{}
}

// NewFromBlock returns a virtual buffer with a single block-backed
// segment covering [pageOffset, pageOffset+size) of page. releaser is
// used to manage the page's reference count as the segment is later
// split, resized, or dropped.
func NewFromBlock(page []byte, pageOffset, size uint64, releaser pageReleaser) *Buffer {
	return &Buffer{
		segments:  []segment{newBlockSegment(page, pageOffset, size, releaser)},
		totalSize: size,
	}
}

// AddBuffer appends one more block-backed segment to the buffer,
// mirroring the original design's add_buffer(block, offset, size): used
// to aggregate several pages (e.g. a multi-block schema record) into one
// logical address space.
func (b *Buffer) AddBuffer(page []byte, pageOffset, size uint64, releaser pageReleaser) {
	if size == 0 {
		return
	}
	b.segments = append(b.segments, newBlockSegment(page, pageOffset, size, releaser))
	b.totalSize += size
}

// LoadFile loads the entire contents of filename as a single heap
// segment. It is only permitted on an empty, unmodified buffer. If
// required is false, a missing file yields an empty buffer instead of an
// error.
func (b *Buffer) LoadFile(filename string, required bool) error {
	if b.totalSize != 0 || b.modified {
		return errtype.Programming("load_file called on a non-empty or already-modified virtual buffer")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errtype.IO(err, "could not load virtual buffer contents from %q", filename)
	}
	if len(data) == 0 {
		return nil
	}
	b.segments = []segment{newHeapSegment(data)}
	b.totalSize = uint64(len(data))
	return nil
}

// Modified reports whether any mutation has succeeded since the buffer
// was created (or since the last Reset).
func (b *Buffer) Modified() bool { return b.modified }

// Reset clears the modified flag without touching the buffer's contents.
func (b *Buffer) Reset() { b.modified = false }

// CountBuffers returns the number of segments currently backing the
// buffer.
func (b *Buffer) CountBuffers() int { return len(b.segments) }

// Size returns the buffer's total logical size.
func (b *Buffer) Size() uint64 { return b.totalSize }

// IsDataAvailable reports whether [offset, offset+size) lies entirely
// within the buffer's current logical range.
func (b *Buffer) IsDataAvailable(offset, size uint64) bool {
	return offset+size <= b.totalSize
}

// locate returns the segment index covering offset and the local offset
// within that segment. offset == totalSize is a valid "append position"
// and returns (len(segments), 0).
func (b *Buffer) locate(offset uint64) (int, uint64) {
	var pos uint64
	for i, s := range b.segments {
		if offset < pos+s.size {
			return i, offset - pos
		}
		pos += s.size
	}
	return len(b.segments), 0
}

// Pread copies up to len(out) bytes starting at offset into out. If full
// is true and offset+len(out) exceeds the buffer's size, it fails with
// errtype.ErrSize instead of returning a short read.
func (b *Buffer) Pread(out []byte, offset uint64, full bool) (int, error) {
	size := uint64(len(out))
	if size == 0 {
		return 0, nil
	}
	if full && offset+size > b.totalSize {
		return 0, errtype.Size("invalid_size: read of %d bytes at offset %d exceeds buffer size %d", size, offset, b.totalSize)
	}
	var avail uint64
	if offset < b.totalSize {
		avail = b.totalSize - offset
	}
	n := size
	if n > avail {
		n = avail
	}
	if n == 0 {
		return 0, nil
	}
	idx, local := b.locate(offset)
	var copied uint64
	for copied < n {
		seg := b.segments[idx].bytes()
		chunk := uint64(len(seg)) - local
		if chunk > n-copied {
			chunk = n - copied
		}
		copy(out[copied:copied+chunk], seg[local:local+chunk])
		copied += chunk
		idx++
		local = 0
	}
	return int(copied), nil
}

// growTo extends the buffer with one new heap segment so that
// Size() == end. The new segment's backing array capacity is rounded up
// to the next 4096-byte multiple, matching the original design's
// reserve() rounding for freshly appended heap buffers.
func (b *Buffer) growTo(end uint64) {
	need := end - b.totalSize
	data := make([]byte, need, roundUp4096(need))
	b.segments = append(b.segments, newHeapSegment(data))
	b.totalSize = end
}

// Pwrite overwrites len(buf) bytes starting at offset. If offset+len(buf)
// exceeds the buffer's size, it either grows the buffer by the overflow
// (allowGrowth) or fails with errtype.ErrSize.
func (b *Buffer) Pwrite(buf []byte, offset uint64, allowGrowth bool) (int, error) {
	size := uint64(len(buf))
	if size == 0 {
		return 0, nil
	}
	end := offset + size
	if end > b.totalSize {
		if !allowGrowth {
			return 0, errtype.Size("invalid_size: write of %d bytes at offset %d exceeds buffer size %d", size, offset, b.totalSize)
		}
		b.growTo(end)
	}
	idx, local := b.locate(offset)
	var written uint64
	for written < size {
		seg := b.segments[idx].bytes()
		chunk := uint64(len(seg)) - local
		if chunk > size-written {
			chunk = size - written
		}
		copy(seg[local:local+chunk], buf[written:written+chunk])
		written += chunk
		idx++
		local = 0
	}
	b.modified = true
	return int(written), nil
}

// Pinsert grows the buffer by len(buf) bytes at offset. Inserting into
// the middle of a block-backed segment splits it into two block-backed
// parts with the new heap segment placed between them; inserting into a
// heap-backed segment splits it the same way but both halves stay
// heap-backed. offset == Size() behaves like an append.
func (b *Buffer) Pinsert(buf []byte, offset uint64) error {
	size := uint64(len(buf))
	if size == 0 {
		return nil
	}
	if offset > b.totalSize {
		return errtype.Size("invalid_size: insert offset %d is past buffer size %d", offset, b.totalSize)
	}
	inserted := newHeapSegment(append([]byte(nil), buf...))

	if offset == b.totalSize {
		b.segments = append(b.segments, inserted)
		b.totalSize += size
		b.modified = true
		return nil
	}

	idx, local := b.locate(offset)
	if local == 0 {
		b.segments = append(b.segments[:idx:idx], append([]segment{inserted}, b.segments[idx:]...)...)
	} else {
		left, right, err := b.segments[idx].split(local)
		if err != nil {
			return err
		}
		tail := append([]segment{left, inserted, right}, b.segments[idx+1:]...)
		b.segments = append(b.segments[:idx:idx], tail...)
	}
	b.totalSize += size
	b.modified = true
	return nil
}

// Perase shrinks the buffer by up to size bytes starting at offset,
// clamped to the available tail, and returns how many bytes were
// actually erased. An offset at or past the current size is a no-op.
// Segments entirely inside the erase window are dropped (and, if
// block-backed, released); partial overlaps are trimmed in place.
func (b *Buffer) Perase(size, offset uint64) (uint64, error) {
	if size == 0 || offset >= b.totalSize {
		return 0, nil
	}
	if offset+size > b.totalSize {
		size = b.totalSize - offset
	}

	var out []segment
	var pos uint64
	remaining := size
	erased := uint64(0)
	for _, seg := range b.segments {
		segStart, segEnd := pos, pos+seg.size
		pos = segEnd
		if remaining == 0 || segEnd <= offset || segStart >= offset+size {
			out = append(out, seg)
			continue
		}
		cutStart := segStart
		if offset > cutStart {
			cutStart = offset
		}
		cutEnd := segEnd
		if offset+size < cutEnd {
			cutEnd = offset + size
		}
		cutLen := cutEnd - cutStart
		remaining -= cutLen
		erased += cutLen

		leftLen := cutStart - segStart
		rightLen := segEnd - cutEnd

		switch {
		case leftLen == 0 && rightLen == 0:
			// The whole segment falls inside the erase window: drop it,
			// releasing its single page reference if it has one.
			if err := seg.release(); err != nil {
				return 0, err
			}
		case leftLen > 0 && rightLen > 0:
			// The erase window is a gap in the middle: the segment's one
			// page reference must now cover two independently-lived
			// segments, so retain once more before splitting the bounds.
			if seg.heap {
				out = append(out, newHeapSegment(seg.data[:leftLen]), newHeapSegment(seg.data[seg.size-rightLen:]))
			} else {
				if err := seg.releaser.Retain(seg.page); err != nil {
					return 0, err
				}
				out = append(out,
					newBlockSegment(seg.page, seg.pageOffset, leftLen, seg.releaser),
					newBlockSegment(seg.page, seg.pageOffset+seg.size-rightLen, rightLen, seg.releaser),
				)
			}
		case leftLen > 0:
			// Only the tail of the segment is erased: the one existing
			// reference still covers the kept (shorter) prefix as-is.
			if seg.heap {
				out = append(out, newHeapSegment(seg.data[:leftLen]))
			} else {
				out = append(out, newBlockSegment(seg.page, seg.pageOffset, leftLen, seg.releaser))
			}
		default: // rightLen > 0
			// Only the head of the segment is erased: the one existing
			// reference still covers the kept (shorter) suffix as-is.
			if seg.heap {
				out = append(out, newHeapSegment(seg.data[seg.size-rightLen:]))
			} else {
				out = append(out, newBlockSegment(seg.page, seg.pageOffset+seg.size-rightLen, rightLen, seg.releaser))
			}
		}
	}
	b.segments = out
	b.totalSize -= erased
	b.modified = true
	return erased, nil
}

// Pshift moves the bytes at offset by delta: negative shifts left
// (toward offset 0), copying in 4096-byte slices and filling the
// vacated tail with fill. Right shifts (delta > 0) are not yet defined
// by the design this implements.
func (b *Buffer) Pshift(delta int64, offset uint64, fill byte) error {
	if delta == 0 {
		return nil
	}
	if delta > 0 {
		return errtype.NotImplemented("pshift with a positive delta (right shift)")
	}
	if offset > b.totalSize {
		return errtype.Size("invalid_size: shift offset %d is past buffer size %d", offset, b.totalSize)
	}
	amount := uint64(-delta)
	if amount > offset {
		amount = offset
	}

	const chunkSize = 4096
	src := offset
	dst := offset - amount
	buf := make([]byte, chunkSize)
	for src < b.totalSize {
		n := uint64(chunkSize)
		if src+n > b.totalSize {
			n = b.totalSize - src
		}
		if _, err := b.Pread(buf[:n], src, true); err != nil {
			return err
		}
		if _, err := b.Pwrite(buf[:n], dst, false); err != nil {
			return err
		}
		src += n
		dst += n
	}
	fillBuf := make([]byte, amount)
	for i := range fillBuf {
		fillBuf[i] = fill
	}
	if amount > 0 {
		if _, err := b.Pwrite(fillBuf, b.totalSize-amount, false); err != nil {
			return err
		}
	}
	b.modified = true
	return nil
}

// Len implements structure.Accessor.
func (b *Buffer) Len() int { return int(b.totalSize) }

// ReadAt implements structure.Accessor.
func (b *Buffer) ReadAt(p []byte, offset int) error {
	_, err := b.Pread(p, uint64(offset), true)
	return err
}

// WriteAt implements structure.Accessor.
func (b *Buffer) WriteAt(p []byte, offset int) error {
	_, err := b.Pwrite(p, uint64(offset), false)
	return err
}

// InsertAt implements structure.Accessor.
func (b *Buffer) InsertAt(p []byte, offset int) error {
	return b.Pinsert(p, uint64(offset))
}

// EraseAt implements structure.Accessor.
func (b *Buffer) EraseAt(offset, n int) error {
	erased, err := b.Perase(uint64(n), uint64(offset))
	if err != nil {
		return err
	}
	if erased != uint64(n) {
		return errtype.Size("erase of %d bytes at offset %d only freed %d bytes (buffer too short)", n, offset, erased)
	}
	return nil
}
