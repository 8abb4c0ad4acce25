package payload

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSliceBounds(t *testing.T) {
	s := FromBytes([]byte{0, 1, 2, 3, 4, 5, 6, 7})

	if s.Len() != 8 {
		t.Errorf("Len = %d, want 8", s.Len())
	}

	got, err := s.Slice(2, 4)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if !bytes.Equal(got, []byte{2, 3, 4, 5}) {
		t.Errorf("Slice(2,4) = %v", got)
	}

	if _, err := s.Slice(6, 4); err == nil {
		t.Errorf("Slice past end should fail")
	}
	if _, err := s.Slice(-1, 2); err == nil {
		t.Errorf("negative offset should fail")
	}
	if _, err := s.Slice(0, -1); err == nil {
		t.Errorf("negative length should fail")
	}
	if got, err := s.Slice(8, 0); err != nil || len(got) != 0 {
		t.Errorf("empty slice at end should succeed, got %v, %v", got, err)
	}
}

func TestPtr(t *testing.T) {
	data := []byte{10, 20, 30}
	s := FromBytes(data)

	p, err := s.Ptr(1)
	if err != nil {
		t.Fatalf("Ptr failed: %v", err)
	}
	if *(*byte)(p) != 20 {
		t.Errorf("Ptr(1) dereferences to %d, want 20", *(*byte)(p))
	}
	if _, err := s.Ptr(3); err == nil {
		t.Errorf("Ptr past end should fail")
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constants.bin")
	want := []byte{9, 9, 9, 1}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile failed: %v", err)
	}
	got, err := s.Slice(0, 4)
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("payload bytes = %v, want %v", got, want)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constants.bin")
	want := []byte{1, 2, 3, 4, 5}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s, err := Map(path)
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	got, err := s.Slice(0, int64(len(want)))
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("mapped bytes = %v, want %v", got, want)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
