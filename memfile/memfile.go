package memfile

import (
	"errors"
	"io"
)

const (
	DefaultInitialSize   = 223
	DefaultIncrementSize = 300
)

var ErrNegativeOffset = errors.New("memfile: negative offset")

// MemoryFile is a resizable byte area standing in for a file.
type MemoryFile struct {
	bytes         []byte
	size          int
	initialSize   int
	incrementSize int
	growths       int
}

func New() *MemoryFile {
	return &MemoryFile{
		initialSize:   DefaultInitialSize,
		incrementSize: DefaultIncrementSize,
	}
}

// FromBytes creates a file pre-loaded with a copy of data.
func FromBytes(data []byte) *MemoryFile {
	f := New()
	f.bytes = make([]byte, len(data))
	copy(f.bytes, data)
	f.size = len(data)
	return f
}

// SetInitialSize sets the capacity reserved before the first write.
// It has no effect once the file holds data.
func (f *MemoryFile) SetInitialSize(size int) {
	if size < 0 {
		size = 0
	}
	f.initialSize = size
}

// SetIncrementSize sets the capacity added each time the file must grow.
func (f *MemoryFile) SetIncrementSize(size int) {
	if size < 1 {
		size = 1
	}
	f.incrementSize = size
}

func (f *MemoryFile) InitialSize() int {
	return f.initialSize
}

func (f *MemoryFile) IncrementSize() int {
	return f.incrementSize
}

// Len returns the high-water mark of written bytes.
func (f *MemoryFile) Len() int {
	return f.size
}

// Cap returns the currently allocated capacity.
func (f *MemoryFile) Cap() int {
	return len(f.bytes)
}

// Growths returns how many times the file was reallocated.
func (f *MemoryFile) Growths() int {
	return f.growths
}

func (f *MemoryFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	if off >= int64(f.size) {
		return 0, io.EOF
	}

	n := copy(p, f.bytes[off:f.size])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *MemoryFile) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrNegativeOffset
	}

	end := int(off) + len(p)
	f.ensure(end)
	copy(f.bytes[off:], p)
	if end > f.size {
		f.size = end
	}
	return len(p), nil
}

// Append writes p at the high-water mark and returns its address.
func (f *MemoryFile) Append(p []byte) (int64, error) {
	off := int64(f.size)
	if _, err := f.WriteAt(p, off); err != nil {
		return 0, err
	}
	return off, nil
}

// Bytes returns a snapshot of the contents. The snapshot is never shorter
// than the initial reserve.
func (f *MemoryFile) Bytes() []byte {
	n := f.size
	if n < f.initialSize {
		n = f.initialSize
	}
	f.ensure(n)

	out := make([]byte, n)
	copy(out, f.bytes)
	return out
}

func (f *MemoryFile) ensure(capacity int) {
	if f.bytes == nil && f.initialSize > 0 {
		f.bytes = make([]byte, f.initialSize)
	}
	if capacity <= len(f.bytes) {
		return
	}

	increment := f.incrementSize
	if increment < 1 {
		increment = 1
	}
	missing := capacity - len(f.bytes)
	steps := (missing + increment - 1) / increment

	grown := make([]byte, len(f.bytes)+steps*increment)
	copy(grown, f.bytes)
	f.bytes = grown
	f.growths++
}
