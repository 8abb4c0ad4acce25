//go:build linux && cuda

package device

/*
#cgo LDFLAGS: -lcudart -L/usr/local/cuda/lib64
#cgo CFLAGS: -I/usr/local/cuda/include
#include <cuda_runtime.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/metrics"
)

// CUDARuntime implements Runtime over the CUDA runtime API.
type CUDARuntime struct {
	device int32

	mu     sync.Mutex
	allocs map[unsafe.Pointer]int64
}

type cudaEvent struct {
	ev C.cudaEvent_t
}

func (*cudaEvent) isEvent() {}

func NewCUDA(deviceIndex int32) (*CUDARuntime, error) {
	if rc := C.cudaSetDevice(C.int(deviceIndex)); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cudaSetDevice failed: %s", cudaErrString(rc))
	}
	var dev C.int
	if rc := C.cudaGetDevice(&dev); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cudaGetDevice failed: %s", cudaErrString(rc))
	}
	return &CUDARuntime{
		device: int32(dev),
		allocs: make(map[unsafe.Pointer]int64),
	}, nil
}

func cudaErrString(rc C.cudaError_t) string {
	return C.GoString(C.cudaGetErrorString(rc))
}

func (c *CUDARuntime) Name() string { return "cuda" }

func (c *CUDARuntime) DeviceIndex() (int32, error) {
	var dev C.int
	if rc := C.cudaGetDevice(&dev); rc != C.cudaSuccess {
		return 0, fmt.Errorf("cudaGetDevice failed: %s", cudaErrString(rc))
	}
	return int32(dev), nil
}

func (c *CUDARuntime) Malloc(n int64) (unsafe.Pointer, error) {
	var p unsafe.Pointer
	if rc := C.cudaMalloc(&p, C.size_t(n)); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cudaMalloc(%d) failed: %s", n, cudaErrString(rc))
	}
	c.mu.Lock()
	c.allocs[p] = n
	c.mu.Unlock()
	metrics.RecordDeviceMemory(n)
	return p, nil
}

func (c *CUDARuntime) Free(p unsafe.Pointer) error {
	c.mu.Lock()
	n, ok := c.allocs[p]
	if ok {
		delete(c.allocs, p)
	}
	c.mu.Unlock()
	if rc := C.cudaFree(p); rc != C.cudaSuccess {
		return fmt.Errorf("cudaFree failed: %s", cudaErrString(rc))
	}
	if ok {
		metrics.RecordDeviceMemory(-n)
	}
	return nil
}

func (c *CUDARuntime) CopyToDevice(dst unsafe.Pointer, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	rc := C.cudaMemcpy(dst, unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice)
	if rc != C.cudaSuccess {
		return fmt.Errorf("cudaMemcpy H2D failed: %s", cudaErrString(rc))
	}
	return nil
}

func (c *CUDARuntime) NewEvent() (Event, error) {
	var ev C.cudaEvent_t
	if rc := C.cudaEventCreate(&ev); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cudaEventCreate failed: %s", cudaErrString(rc))
	}
	return &cudaEvent{ev: ev}, nil
}

func (c *CUDARuntime) Record(ev Event, stream abi.StreamHandle) error {
	e, ok := ev.(*cudaEvent)
	if !ok {
		return fmt.Errorf("cuda record: foreign event %T", ev)
	}
	rc := C.cudaEventRecord(e.ev, C.cudaStream_t(unsafe.Pointer(uintptr(stream))))
	if rc != C.cudaSuccess {
		return fmt.Errorf("cudaEventRecord failed: %s", cudaErrString(rc))
	}
	return nil
}

func (c *CUDARuntime) Query(ev Event) (bool, error) {
	e, ok := ev.(*cudaEvent)
	if !ok {
		return false, fmt.Errorf("cuda query: foreign event %T", ev)
	}
	rc := C.cudaEventQuery(e.ev)
	switch rc {
	case C.cudaSuccess:
		return true, nil
	case C.cudaErrorNotReady:
		return false, nil
	}
	return false, fmt.Errorf("run did not finish successfully: %s", cudaErrString(C.cudaGetLastError()))
}

func (c *CUDARuntime) Synchronize(ev Event) error {
	e, ok := ev.(*cudaEvent)
	if !ok {
		return fmt.Errorf("cuda synchronize: foreign event %T", ev)
	}
	if rc := C.cudaEventSynchronize(e.ev); rc != C.cudaSuccess {
		return fmt.Errorf("cudaEventSynchronize failed: %s", cudaErrString(rc))
	}
	return nil
}

func (c *CUDARuntime) DestroyEvent(ev Event) error {
	e, ok := ev.(*cudaEvent)
	if !ok {
		return fmt.Errorf("cuda destroy: foreign event %T", ev)
	}
	if rc := C.cudaEventDestroy(e.ev); rc != C.cudaSuccess {
		return fmt.Errorf("cudaEventDestroy failed: %s", cudaErrString(rc))
	}
	return nil
}
