// Package page implements the page file: a growing, memory-mapped file of
// fixed-size pages. It is the leaf of the storage core -- blocks are typed
// views over the byte windows it hands out.
//
// The file is mapped with mmap(2) and pages are returned as refcounted byte
// slices so that several blocks can view the same page concurrently without
// re-reading it. Growing the file requires remapping, which would
// invalidate slices handed out against the old mapping; callers therefore
// must not hold any page reference across an AllocatePage call, matching
// the single-writer scheduling model described for the core (the owning
// table's lock is expected to serialize this).
package page

import (
	"os"
	"sync"
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/prinbee/prinbee-core/dbtype"
	"github.com/prinbee/prinbee-core/errtype"
	"golang.org/x/sys/unix"
)

// DefaultSize is the page size used when a table does not override it. It
// must stay a power of two per the data model.
const DefaultSize = 4096

// File owns one memory-mapped backing file and the bookkeeping needed to
// hand out and reclaim page-sized windows into it.
type File struct {
	mu       sync.Mutex
	path     string
	pageSize uint32
	fd       *os.File
	mapping  []byte // nil when the file is empty
	refs     map[uintptr]*pageRef
	metrics  *Metrics
}

type pageRef struct {
	offset dbtype.Reference
	count  int
}

// Options configure Open.
type Options struct {
	PageSize uint32 // defaults to DefaultSize when zero
	Metrics  *Metrics
}

// Open opens (creating if necessary) the page file at path. The file's
// existing size must already be a multiple of the page size; a freshly
// created file starts out empty.
func Open(path string, opts Options) (*File, error) {
	if opts.PageSize == 0 {
		opts.PageSize = DefaultSize
	}
	if opts.PageSize == 0 || opts.PageSize&(opts.PageSize-1) != 0 {
		return nil, errtype.Validation("page size %d is not a power of two", opts.PageSize)
	}

	fd, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, errtype.IO(err, "could not open page file %q", path)
	}

	f := &File{
		path:     path,
		pageSize: opts.PageSize,
		fd:       fd,
		refs:     make(map[uintptr]*pageRef),
		metrics:  opts.Metrics,
	}

	info, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, errtype.IO(err, "could not stat page file %q", path)
	}
	if info.Size()%int64(opts.PageSize) != 0 {
		fd.Close()
		return nil, errtype.Validation("page file %q size %d is not a multiple of the page size %d", path, info.Size(), opts.PageSize)
	}
	if info.Size() > 0 {
		if err := f.remap(info.Size()); err != nil {
			fd.Close()
			return nil, err
		}
	}

	return f, nil
}

// PageSize returns the fixed page size this file was opened with.
func (f *File) PageSize() uint32 {
	return f.pageSize
}

// Size returns the current length of the backing file, in bytes.
func (f *File) Size() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.mapping))
}

func (f *File) remap(size int64) error {
	if f.mapping != nil {
		if err := unix.Munmap(f.mapping); err != nil {
			return errtype.IO(err, "could not unmap page file %q", f.path)
		}
		f.mapping = nil
	}
	if size == 0 {
		return nil
	}
	mapping, err := unix.Mmap(int(f.fd.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errtype.IO(err, "could not mmap page file %q", f.path)
	}
	f.mapping = mapping
	return nil
}

// AllocatePage extends the file by one page and returns its offset. The
// new page's first four bytes are tagged dbtype.BlockFree -- every block
// is born onto the free list before something claims it with SetDBType,
// matching the FREE-only transition rule in dbtype.BlockType.CanTransitionTo
// -- and the rest of the page is zeroed. It fails if any page reference is
// currently outstanding, since growing the file requires remapping and
// would invalidate live slices.
func (f *File) AllocatePage() (dbtype.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.refs) != 0 {
		return 0, errtype.Programming("cannot grow page file %q while %d page(s) are still referenced", f.path, len(f.refs))
	}

	offset := dbtype.Reference(len(f.mapping))
	newSize := int64(len(f.mapping)) + int64(f.pageSize)
	if err := f.fd.Truncate(newSize); err != nil {
		return 0, errtype.IO(err, "could not grow page file %q to %d bytes", f.path, newSize)
	}
	if err := f.remap(newSize); err != nil {
		return 0, err
	}
	page := f.mapping[offset : uint64(offset)+uint64(f.pageSize)]
	page[0] = byte(dbtype.BlockFree >> 24)
	page[1] = byte(dbtype.BlockFree >> 16)
	page[2] = byte(dbtype.BlockFree >> 8)
	page[3] = byte(dbtype.BlockFree)
	if f.metrics != nil {
		f.metrics.pagesAllocated.Inc()
	}
	return offset, nil
}

// GetPage returns a page-sized byte window at offset, pinning it: the
// returned slice stays valid until Release is called on it. It fails with
// errtype.ErrMissingData if offset does not land on a page boundary within
// the current file.
func (f *File) GetPage(offset dbtype.Reference) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if uint64(offset)%uint64(f.pageSize) != 0 || uint64(offset)+uint64(f.pageSize) > uint64(len(f.mapping)) {
		return nil, errtype.MissingData("page at offset %d not found in %q (file size %d, page size %d)", offset, f.path, len(f.mapping), f.pageSize)
	}

	data := f.mapping[offset : uint64(offset)+uint64(f.pageSize) : uint64(offset)+uint64(f.pageSize)]
	ptr := uintptr(unsafe.Pointer(&data[0]))
	if r, ok := f.refs[ptr]; ok {
		r.count++
	} else {
		f.refs[ptr] = &pageRef{offset: offset, count: 1}
	}
	if f.metrics != nil {
		f.metrics.pageHits.Inc()
	}
	return data, nil
}

// Retain adds one more reference to a page previously returned by GetPage,
// without re-validating the offset. It is used when a single page
// reference needs to back two independent live users (for example, a
// virtual-buffer segment being split in two).
func (f *File) Retain(data []byte) error {
	if len(data) == 0 {
		return errtype.MissingData("cannot retain an empty page reference")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ptr := uintptr(unsafe.Pointer(&data[0]))
	r, ok := f.refs[ptr]
	if !ok {
		return errtype.MissingData("page_not_found: no outstanding reference for the given page pointer")
	}
	r.count++
	return nil
}

// Release gives up one reference to a page previously returned by GetPage.
// It fails with errtype.ErrMissingData if data was never handed out by this
// file (page_not_found in the original design).
func (f *File) Release(data []byte) error {
	if len(data) == 0 {
		return errtype.MissingData("cannot release an empty page reference")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ptr := uintptr(unsafe.Pointer(&data[0]))
	r, ok := f.refs[ptr]
	if !ok {
		return errtype.MissingData("page_not_found: no outstanding reference for the given page pointer")
	}
	r.count--
	if r.count <= 0 {
		delete(f.refs, ptr)
	}
	return nil
}

// Sync flushes the page at data to disk. immediate=true blocks until the
// write is durable (msync(MS_SYNC)); otherwise the kernel is asked to
// schedule the write but the call returns immediately (msync(MS_ASYNC)).
func (f *File) Sync(data []byte, immediate bool) error {
	if len(data) == 0 {
		return errtype.MissingData("cannot sync an empty page reference")
	}

	start := time.Now()
	flags := unix.MS_ASYNC
	if immediate {
		flags = unix.MS_SYNC
	}
	if err := unix.Msync(data, flags); err != nil {
		return errtype.IO(err, "could not sync page to %q", f.path)
	}
	if immediate {
		if err := f.fd.Sync(); err != nil {
			return errtype.IO(err, "could not fsync %q", f.path)
		}
		f.metrics.ObserveSyncLatency(time.Since(start))
	}
	if f.metrics != nil {
		f.metrics.syncs.Inc()
	}
	return nil
}

// Close unmaps and closes the backing file. It is an error to close a file
// that still has outstanding page references -- the caller has a block
// lifetime bug.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.refs) != 0 {
		return errtype.Programming("closing page file %q with %d page(s) still referenced", f.path, len(f.refs))
	}
	var err error
	if f.mapping != nil {
		err = unix.Munmap(f.mapping)
		f.mapping = nil
	}
	if closeErr := f.fd.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return errtype.IO(err, "could not close page file %q", f.path)
	}
	return nil
}

// IsNotFound reports whether err is the "page not found" / "file not
// found" flavor of errtype.ErrMissingData or errtype.ErrIO.
func IsNotFound(err error) bool {
	return errors.Is(err, errtype.ErrMissingData) || errors.Is(err, os.ErrNotExist)
}
