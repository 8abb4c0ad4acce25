package model

import (
	"unsafe"

	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/metrics"
)

// ConstantView is a non-owning snapshot of a registry entry: the raw handle
// plus its data pointer, cached once so the hot path never re-queries the
// ABI. Valid only while the registry that owns the handle is alive.
type ConstantView struct {
	h    abi.TensorHandle
	data unsafe.Pointer
}

func NewConstantView(d abi.Dispatch, h abi.TensorHandle) (ConstantView, error) {
	ptr, st := d.GetDataPtr(h)
	if err := abi.Check(st, "GetDataPtr"); err != nil {
		metrics.RecordABIFailure("GetDataPtr")
		return ConstantView{}, err
	}
	return ConstantView{h: h, data: ptr}, nil
}

func (v ConstantView) Tensor() abi.TensorHandle {
	return v.h
}

func (v ConstantView) DataPtr() unsafe.Pointer {
	return v.data
}

func (v ConstantView) Valid() bool {
	return v.h != 0
}
