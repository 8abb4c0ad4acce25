package model

import (
	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/metrics"
)

// OwnedTensor holds exclusive ownership of one opaque tensor handle. The
// zero value is empty. Ownership moves with MoveOut or leaves with Release;
// it never copies. Close deletes the underlying tensor exactly once.
type OwnedTensor struct {
	d abi.Dispatch
	h abi.TensorHandle
}

// Steal takes ownership of a raw handle created across the ABI.
func Steal(d abi.Dispatch, h abi.TensorHandle) OwnedTensor {
	return OwnedTensor{d: d, h: h}
}

// StealHandles takes ownership of every handle in raw, nulling the source
// slots. The slice backing storage stays with the caller.
func StealHandles(d abi.Dispatch, raw []abi.TensorHandle) []OwnedTensor {
	owned := make([]OwnedTensor, len(raw))
	for i, h := range raw {
		owned[i] = Steal(d, h)
		raw[i] = 0
	}
	return owned
}

func (t *OwnedTensor) Empty() bool {
	return t.h == 0
}

// Get returns the raw handle without transferring ownership.
func (t *OwnedTensor) Get() abi.TensorHandle {
	return t.h
}

// Release relinquishes ownership to the caller, who becomes responsible for
// deleting the handle. The receiver is left empty.
func (t *OwnedTensor) Release() abi.TensorHandle {
	h := t.h
	t.h = 0
	return h
}

// MoveOut transfers ownership to the returned value and empties the
// receiver.
func (t *OwnedTensor) MoveOut() OwnedTensor {
	moved := OwnedTensor{d: t.d, h: t.h}
	t.h = 0
	return moved
}

// Close deletes the tensor through the ABI. No-op on an empty handle; a
// second Close is a no-op.
func (t *OwnedTensor) Close() error {
	if t.h == 0 {
		return nil
	}
	st := t.d.DeleteTensor(t.h)
	t.h = 0
	if err := abi.Check(st, "DeleteTensor"); err != nil {
		metrics.RecordABIFailure("DeleteTensor")
		return err
	}
	return nil
}

func (t *OwnedTensor) Size(dim int64) (int64, error) {
	v, st := t.d.GetSize(t.h, dim)
	if err := abi.Check(st, "GetSize"); err != nil {
		metrics.RecordABIFailure("GetSize")
		return 0, err
	}
	return v, nil
}

func (t *OwnedTensor) Stride(dim int64) (int64, error) {
	v, st := t.d.GetStride(t.h, dim)
	if err := abi.Check(st, "GetStride"); err != nil {
		metrics.RecordABIFailure("GetStride")
		return 0, err
	}
	return v, nil
}

func (t *OwnedTensor) StorageOffset() (int64, error) {
	v, st := t.d.GetStorageOffset(t.h)
	if err := abi.Check(st, "GetStorageOffset"); err != nil {
		metrics.RecordABIFailure("GetStorageOffset")
		return 0, err
	}
	return v, nil
}
