//go:build !linux

package payload

// Map falls back to an in-memory read where mmap is unavailable.
func Map(path string) (*Section, error) {
	return FromFile(path)
}
