package model

import (
	"testing"
	"unsafe"

	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/hostabi"
)

func TestConstantViewCachesDataPtr(t *testing.T) {
	tab := hostabi.New()
	data := []byte{9, 8, 7, 6}
	h, st := tab.CreateTensorFromBlob(unsafe.Pointer(&data[0]), []int64{1}, []int64{1}, 0, abi.DtypeFloat32, abi.DeviceCPU, -1)
	if st != abi.StatusSuccess {
		t.Fatalf("CreateTensorFromBlob failed with status %d", st)
	}

	v, err := NewConstantView(tab, h)
	if err != nil {
		t.Fatalf("NewConstantView failed: %v", err)
	}
	if v.Tensor() != h {
		t.Errorf("Tensor() = %d, want %d", v.Tensor(), h)
	}
	if v.DataPtr() != unsafe.Pointer(&data[0]) {
		t.Errorf("DataPtr() does not point at the blob")
	}
	if !v.Valid() {
		t.Errorf("view should be valid")
	}
}

func TestConstantViewUnknownHandle(t *testing.T) {
	tab := hostabi.New()
	if _, err := NewConstantView(tab, abi.TensorHandle(42)); err == nil {
		t.Errorf("NewConstantView on unknown handle should fail")
	}
}

func TestConstantViewZeroValue(t *testing.T) {
	var v ConstantView
	if v.Valid() {
		t.Errorf("zero view should be invalid")
	}
}
