// Package hostabi is the in-process implementation of the tensor ABI for the
// host device. Tensors are thin descriptors over caller-owned memory; the
// package owns no tensor data of its own unless asked to retain a buffer.
package hostabi

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/23skdu/longbow-bodkin/internal/abi"
)

type tensorRecord struct {
	shape         []int64
	stride        []int64
	storageOffset int64
	dtype         abi.Dtype
	device        abi.DeviceType
	deviceIndex   int32
	data          unsafe.Pointer

	// Keeps Go-owned backing memory alive while the handle exists. Nil for
	// tensors over foreign memory (payload sections, device blobs).
	backing []byte
}

type guardRecord struct {
	stream      abi.StreamHandle
	deviceIndex int32
}

// Table is a handle table satisfying abi.Dispatch. Safe for concurrent use.
type Table struct {
	mu         sync.Mutex
	nextTensor abi.TensorHandle
	nextGuard  abi.GuardHandle
	tensors    map[abi.TensorHandle]*tensorRecord
	guards     map[abi.GuardHandle]guardRecord
	guardStack []abi.GuardHandle
}

func New() *Table {
	return &Table{
		tensors: make(map[abi.TensorHandle]*tensorRecord),
		guards:  make(map[abi.GuardHandle]guardRecord),
	}
}

var _ abi.Dispatch = (*Table)(nil)

func (t *Table) CreateTensorFromBlob(data unsafe.Pointer, shape, stride []int64, storageOffset int64, dtype abi.Dtype, device abi.DeviceType, deviceIndex int32) (abi.TensorHandle, abi.Status) {
	if len(shape) != len(stride) {
		return 0, abi.StatusFailure
	}
	if dtype.ElementSize() == 0 {
		return 0, abi.StatusFailure
	}
	rec := &tensorRecord{
		shape:         append([]int64(nil), shape...),
		stride:        append([]int64(nil), stride...),
		storageOffset: storageOffset,
		dtype:         dtype,
		device:        device,
		deviceIndex:   deviceIndex,
		data:          data,
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextTensor++
	h := t.nextTensor
	t.tensors[h] = rec
	return h, abi.StatusSuccess
}

// CreateTensorFromBytes wraps a Go-owned buffer and retains a reference to it
// so the memory stays reachable for the handle's lifetime. Host-side
// convenience outside the frozen Dispatch surface; generated host runners use
// it for freshly allocated outputs.
func (t *Table) CreateTensorFromBytes(buf []byte, shape, stride []int64, storageOffset int64, dtype abi.Dtype) (abi.TensorHandle, abi.Status) {
	var data unsafe.Pointer
	if len(buf) > 0 {
		data = unsafe.Pointer(&buf[0])
	}
	h, st := t.CreateTensorFromBlob(data, shape, stride, storageOffset, dtype, abi.DeviceCPU, -1)
	if st != abi.StatusSuccess {
		return 0, st
	}
	t.mu.Lock()
	t.tensors[h].backing = buf
	t.mu.Unlock()
	return h, abi.StatusSuccess
}

func (t *Table) DeleteTensor(h abi.TensorHandle) abi.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tensors[h]; !ok {
		return abi.StatusFailure
	}
	delete(t.tensors, h)
	return abi.StatusSuccess
}

func (t *Table) lookup(h abi.TensorHandle) (*tensorRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.tensors[h]
	return rec, ok
}

func (t *Table) GetSize(h abi.TensorHandle, dim int64) (int64, abi.Status) {
	rec, ok := t.lookup(h)
	if !ok || dim < 0 || dim >= int64(len(rec.shape)) {
		return 0, abi.StatusFailure
	}
	return rec.shape[dim], abi.StatusSuccess
}

func (t *Table) GetStride(h abi.TensorHandle, dim int64) (int64, abi.Status) {
	rec, ok := t.lookup(h)
	if !ok || dim < 0 || dim >= int64(len(rec.stride)) {
		return 0, abi.StatusFailure
	}
	return rec.stride[dim], abi.StatusSuccess
}

func (t *Table) GetStorageOffset(h abi.TensorHandle) (int64, abi.Status) {
	rec, ok := t.lookup(h)
	if !ok {
		return 0, abi.StatusFailure
	}
	return rec.storageOffset, abi.StatusSuccess
}

func (t *Table) GetDataPtr(h abi.TensorHandle) (unsafe.Pointer, abi.Status) {
	rec, ok := t.lookup(h)
	if !ok {
		return nil, abi.StatusFailure
	}
	return rec.data, abi.StatusSuccess
}

func (t *Table) CreateStreamGuard(stream abi.StreamHandle, deviceIndex int32) (abi.GuardHandle, abi.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextGuard++
	g := t.nextGuard
	t.guards[g] = guardRecord{stream: stream, deviceIndex: deviceIndex}
	t.guardStack = append(t.guardStack, g)
	return g, abi.StatusSuccess
}

// DeleteStreamGuard enforces scoped nesting: only the most recently created
// guard may be deleted.
func (t *Table) DeleteStreamGuard(g abi.GuardHandle) abi.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.guards[g]; !ok {
		return abi.StatusFailure
	}
	if len(t.guardStack) == 0 || t.guardStack[len(t.guardStack)-1] != g {
		return abi.StatusFailure
	}
	t.guardStack = t.guardStack[:len(t.guardStack)-1]
	delete(t.guards, g)
	return abi.StatusSuccess
}

// Live reports the number of tensor handles not yet deleted. Tests use it to
// assert the runtime leaks nothing.
func (t *Table) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tensors)
}

// ActiveGuards reports the depth of the stream guard stack.
func (t *Table) ActiveGuards() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.guardStack)
}

// Shape returns a copy of the handle's shape.
func (t *Table) Shape(h abi.TensorHandle) ([]int64, error) {
	rec, ok := t.lookup(h)
	if !ok {
		return nil, fmt.Errorf("unknown tensor handle %d", h)
	}
	return append([]int64(nil), rec.shape...), nil
}

// Describe returns the full descriptor of a handle. Host runners use it to
// shape their outputs.
func (t *Table) Describe(h abi.TensorHandle) (shape, stride []int64, storageOffset int64, dtype abi.Dtype, err error) {
	rec, ok := t.lookup(h)
	if !ok {
		return nil, nil, 0, 0, fmt.Errorf("unknown tensor handle %d", h)
	}
	return append([]int64(nil), rec.shape...),
		append([]int64(nil), rec.stride...),
		rec.storageOffset, rec.dtype, nil
}

// NumBytes returns the dense payload size of the handle (element count times
// element width); strides do not enter into it.
func (t *Table) NumBytes(h abi.TensorHandle) (int64, error) {
	rec, ok := t.lookup(h)
	if !ok {
		return 0, fmt.Errorf("unknown tensor handle %d", h)
	}
	n := rec.dtype.ElementSize()
	for _, d := range rec.shape {
		n *= d
	}
	return n, nil
}

// Bytes returns the handle's dense payload as a byte slice aliasing the
// underlying memory. The slice is valid only while the handle is.
func (t *Table) Bytes(h abi.TensorHandle) ([]byte, error) {
	rec, ok := t.lookup(h)
	if !ok {
		return nil, fmt.Errorf("unknown tensor handle %d", h)
	}
	n := rec.dtype.ElementSize()
	for _, d := range rec.shape {
		n *= d
	}
	if n == 0 || rec.data == nil {
		return nil, nil
	}
	return unsafe.Slice((*byte)(rec.data), n), nil
}
