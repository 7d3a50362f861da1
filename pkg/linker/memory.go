package linker

import (
	"os"

	"golang.org/x/sys/unix"
)

// MemoryArea owns one contiguous byte space per input or output file.
// File-backed areas are memory mapped; anonymous areas live on the heap.
// MemoryRegion views are handed out by Request and are reference counted:
// when the last region is released the space may be unmapped.
type MemoryArea struct {
	Name     string
	data     []byte
	file     *os.File
	mapped   bool
	writable bool
	refs     int
	closing  bool
}

// OpenFileArea maps path read-only.
func OpenFileArea(path string) (*MemoryArea, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errorf(ErrIORead, "cannot open %s: %v", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errorf(ErrIORead, "cannot stat %s: %v", path, err)
	}

	if st.Size() == 0 {
		f.Close()
		return &MemoryArea{Name: path, data: []byte{}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()),
		unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		// Some filesystems refuse mmap; fall back to a heap load.
		f.Close()
		contents, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, errorf(ErrIORead, "cannot read %s: %v", path, rerr)
		}
		return &MemoryArea{Name: path, data: contents}, nil
	}

	return &MemoryArea{Name: path, data: data, file: f, mapped: true}, nil
}

// CreateFileArea creates path with the given size and maps it writable.
func CreateFileArea(path string, size uint64, perm os.FileMode) (*MemoryArea, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return nil, errorf(ErrIOWrite, "cannot create %s: %v", path, err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, errorf(ErrIOWrite, "cannot resize %s: %v", path, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errorf(ErrIOWrite, "cannot map %s: %v", path, err)
	}

	return &MemoryArea{
		Name: path, data: data, file: f, mapped: true, writable: true,
	}, nil
}

// NewHeapArea creates an anonymous writable area.
func NewHeapArea(name string, size uint64) *MemoryArea {
	return &MemoryArea{Name: name, data: make([]byte, size), writable: true}
}

func (a *MemoryArea) Size() uint64 {
	return uint64(len(a.data))
}

func (a *MemoryArea) Bytes() []byte {
	return a.data
}

// Request hands out a view over [offset, offset+length). Requests beyond
// the end of the space fail.
func (a *MemoryArea) Request(offset, length uint64) (*MemoryRegion, error) {
	if offset+length > uint64(len(a.data)) {
		return nil, errorf(ErrIORead,
			"%s: region [%d, %d) is out of range (size %d)",
			a.Name, offset, offset+length, len(a.data))
	}
	a.refs++
	return &MemoryRegion{
		area: a,
		off:  offset,
		data: a.data[offset : offset+length],
	}, nil
}

// Release drops one region. The caller must not touch r afterwards.
func (a *MemoryArea) Release(r *MemoryRegion) {
	if r.area != a {
		return
	}
	r.area = nil
	r.data = nil
	a.refs--
	if a.refs <= 0 && a.closing {
		a.unmap()
	}
}

// Close flushes and unmaps once every region has been released.
func (a *MemoryArea) Close() error {
	a.closing = true
	if a.refs > 0 {
		return nil
	}
	return a.unmap()
}

func (a *MemoryArea) unmap() error {
	if a.mapped {
		if a.writable {
			if err := unix.Msync(a.data, unix.MS_SYNC); err != nil {
				return errorf(ErrIOWrite, "%s: msync: %v", a.Name, err)
			}
		}
		if err := unix.Munmap(a.data); err != nil {
			return errorf(ErrIOWrite, "%s: munmap: %v", a.Name, err)
		}
		a.mapped = false
	}
	a.data = nil
	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		if err != nil {
			return errorf(ErrIOWrite, "%s: close: %v", a.Name, err)
		}
	}
	return nil
}

// MemoryRegion is a view over a slice of a MemoryArea. Regions are handed
// around by pointer and must not be copied; overlapping writable regions
// are legal but writers must serialise hand-offs through Sync.
type MemoryRegion struct {
	noCopy noCopy

	area *MemoryArea
	off  uint64
	data []byte
}

// noCopy makes go vet's copylocks check report copies of a MemoryRegion.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func (r *MemoryRegion) Start() []byte {
	return r.data
}

func (r *MemoryRegion) Size() uint64 {
	return uint64(len(r.data))
}

func (r *MemoryRegion) Offset() uint64 {
	return r.off
}

// Sync flushes modifications through to the backing file.
func (r *MemoryRegion) Sync() error {
	a := r.area
	if a == nil || !a.mapped || !a.writable {
		return nil
	}
	// msync wants a page-aligned address; flush the whole mapping.
	if err := unix.Msync(a.data, unix.MS_SYNC); err != nil {
		return errorf(ErrIOWrite, "%s: msync: %v", a.Name, err)
	}
	return nil
}
