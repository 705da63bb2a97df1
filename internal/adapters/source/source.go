// Package source implements ports.Source for files and in-memory buffers and
// lists the files of a directory tree. Large files are memory-mapped read-only
// where the platform supports it, so scanning a tree does not copy every file
// onto the heap.
package source

import (
	"fmt"
	"io"
	"os"
)

// MmapThreshold is the file size from which Open maps instead of reading.
const MmapThreshold = 1 << 20

// File is a ports.Source backed by a file on disk.
type File struct {
	path   string
	data   []byte
	unmap  func() error
	closed bool
}

// Open loads path. Files of at least MmapThreshold bytes are mapped
// read-only; smaller ones are read into memory.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}

	size := info.Size()
	if size >= MmapThreshold {
		data, unmap, err := mmapFile(f, size)
		if err == nil {
			return &File{path: path, data: data, unmap: unmap}, nil
		}
		// Fall through to a plain read (e.g. special files, unsupported fs).
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &File{path: path, data: data}, nil
}

// Name returns the file path.
func (f *File) Name() string { return f.path }

// Bytes returns the file content.
func (f *File) Bytes() []byte { return f.data }

// Mapped reports whether the content is a memory mapping.
func (f *File) Mapped() bool { return f.unmap != nil }

// Close unmaps a mapped file. Safe to call multiple times.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	data := f.data
	f.data = nil
	if f.unmap != nil && data != nil {
		return f.unmap()
	}
	return nil
}

// Memory is a ports.Source over a caller-owned buffer.
type Memory struct {
	name string
	data []byte
}

// NewMemory wraps data. The caller must not modify data afterwards.
func NewMemory(name string, data []byte) *Memory {
	return &Memory{name: name, data: data}
}

func (m *Memory) Name() string  { return m.name }
func (m *Memory) Bytes() []byte { return m.data }
func (m *Memory) Close() error  { return nil }
