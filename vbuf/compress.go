package vbuf

import (
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/prinbee/prinbee-core/errtype"
)

// SpillToFile writes the buffer's entire contents to filename, zstd
// compressed. It is the counterpart to LoadCompressedFile, used when a
// value too large to keep inline (see schema.Table.ShouldInlineBlob) is
// moved out to an overflow file instead of an Indirect block chain.
func (b *Buffer) SpillToFile(filename string) error {
	data := make([]byte, b.totalSize)
	if _, err := b.Pread(data, 0, true); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return errtype.IO(err, "could not create zstd encoder")
	}
	defer enc.Close()
	compressed := enc.EncodeAll(data, nil)

	if err := os.WriteFile(filename, compressed, 0o644); err != nil {
		return errtype.IO(err, "could not spill virtual buffer contents to %q", filename)
	}
	return nil
}

// LoadCompressedFile is LoadFile's counterpart for a file previously
// written by SpillToFile: it reads filename, zstd-decompresses it, and
// loads the result as a single heap segment. Like LoadFile, it is only
// permitted on an empty, unmodified buffer.
func (b *Buffer) LoadCompressedFile(filename string, required bool) error {
	if b.totalSize != 0 || b.modified {
		return errtype.Programming("load_compressed_file called on a non-empty or already-modified virtual buffer")
	}
	raw, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errtype.IO(err, "could not load virtual buffer contents from %q", filename)
	}
	if len(raw) == 0 {
		return nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return errtype.IO(err, "could not create zstd decoder")
	}
	defer dec.Close()
	data, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return errtype.IO(err, "could not decompress %q", filename)
	}

	b.segments = []segment{newHeapSegment(data)}
	b.totalSize = uint64(len(data))
	return nil
}
