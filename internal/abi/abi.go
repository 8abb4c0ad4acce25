// Package abi defines the stable binary boundary between the bodkin runtime
// and a tensor library implementation. Everything crossing it is an opaque
// handle plus a status code; non-zero status means failure.
package abi

import "unsafe"

// TensorHandle is an opaque reference to a tensor owned by the ABI
// implementation. The zero value is the null handle.
type TensorHandle uintptr

// StreamHandle identifies a device-side work queue. Zero is the default
// stream.
type StreamHandle uintptr

// GuardHandle references an active stream/device activation.
type GuardHandle uintptr

// ProxyExecutor is an opaque fallback executor handle passed through to
// generated model code. The runtime never dereferences it.
type ProxyExecutor uintptr

type Status int32

const (
	StatusSuccess Status = 0
	StatusFailure Status = 1
)

type DeviceType int32

const (
	DeviceCPU  DeviceType = 0
	DeviceCUDA DeviceType = 1
)

func (d DeviceType) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	case DeviceCUDA:
		return "cuda"
	}
	return "unknown"
}

// Dispatch is the set of ABI operations the runtime consumes. A CUDA build
// binds this to the compiled shim; the host implementation lives in
// internal/hostabi.
type Dispatch interface {
	// CreateTensorFromBlob wraps caller-owned memory in a tensor. The memory
	// must stay alive for the lifetime of the returned handle; the ABI never
	// frees it.
	CreateTensorFromBlob(data unsafe.Pointer, shape, stride []int64, storageOffset int64, dtype Dtype, device DeviceType, deviceIndex int32) (TensorHandle, Status)

	DeleteTensor(h TensorHandle) Status

	GetSize(h TensorHandle, dim int64) (int64, Status)
	GetStride(h TensorHandle, dim int64) (int64, Status)
	GetStorageOffset(h TensorHandle) (int64, Status)
	GetDataPtr(h TensorHandle) (unsafe.Pointer, Status)

	CreateStreamGuard(stream StreamHandle, deviceIndex int32) (GuardHandle, Status)
	DeleteStreamGuard(g GuardHandle) Status
}
