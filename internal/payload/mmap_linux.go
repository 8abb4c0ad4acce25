//go:build linux

package payload

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map memory-maps the payload file read-only. Close unmaps it; every tensor
// view into the section must be released first.
func Map(path string) (*Section, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat payload: %w", err)
	}
	if st.Size() == 0 {
		return &Section{data: nil}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap payload: %w", err)
	}
	return &Section{
		data:  data,
		unmap: func() error { return unix.Munmap(data) },
	}, nil
}
