// Package payload exposes the packed constant region of a compiled model as
// a contiguous immutable byte buffer. The region carries no self-description;
// the model's constant table is the sole source of truth for slicing it.
package payload

import (
	"fmt"
	"os"
	"unsafe"
)

// Section is a bounds-checked window over packed constant bytes. Generated
// model packages typically wrap a go:embed blob with FromBytes; tooling loads
// a constants.bin with FromFile or Map.
type Section struct {
	data  []byte
	unmap func() error
}

func FromBytes(data []byte) *Section {
	return &Section{data: data}
}

// FromFile reads the whole payload into memory.
func FromFile(path string) (*Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return &Section{data: data}, nil
}

func (s *Section) Len() int64 {
	return int64(len(s.data))
}

// Slice returns the n bytes at off. The returned slice aliases the section.
func (s *Section) Slice(off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off+n > int64(len(s.data)) {
		return nil, fmt.Errorf("payload slice [%d:%d) out of range (payload is %d bytes)", off, off+n, len(s.data))
	}
	return s.data[off : off+n : off+n], nil
}

// Ptr returns the address of the byte at off for handing across the ABI. The
// section must outlive every tensor built over it.
func (s *Section) Ptr(off int64) (unsafe.Pointer, error) {
	if off < 0 || off >= int64(len(s.data)) {
		return nil, fmt.Errorf("payload offset %d out of range (payload is %d bytes)", off, len(s.data))
	}
	return unsafe.Pointer(&s.data[off]), nil
}

// Close releases a mapping, if any. Safe to call on byte-backed sections.
func (s *Section) Close() error {
	if s.unmap == nil {
		return nil
	}
	f := s.unmap
	s.unmap = nil
	s.data = nil
	return f()
}
