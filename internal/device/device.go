// Package device abstracts the accelerator operations the model runtime
// needs: raw device allocations, host-to-device copies, and completion
// events. The CUDA implementation is compiled in with the cuda build tag;
// the simulated runtime is always available.
package device

import (
	"errors"
	"unsafe"

	"github.com/23skdu/longbow-bodkin/internal/abi"
)

// ErrNoAccelerator is returned when a build has no accelerator support
// compiled in.
var ErrNoAccelerator = errors.New("no accelerator support in this build")

// Event is an opaque completion marker recorded on a stream.
type Event interface {
	isEvent()
}

// Runtime is the accelerator surface consumed by the model base. One call at
// a time per model instance; implementations need not serialize callers.
type Runtime interface {
	Name() string

	// DeviceIndex reports the device the runtime is bound to.
	DeviceIndex() (int32, error)

	Malloc(n int64) (unsafe.Pointer, error)
	Free(p unsafe.Pointer) error

	// CopyToDevice copies len(src) bytes from host memory to dst, which must
	// lie inside a live device allocation.
	CopyToDevice(dst unsafe.Pointer, src []byte) error

	NewEvent() (Event, error)
	Record(ev Event, stream abi.StreamHandle) error

	// Query reports whether work recorded on ev has completed. A failure
	// carries the device's error string.
	Query(ev Event) (bool, error)

	// Synchronize blocks until work recorded on ev completes.
	Synchronize(ev Event) error

	DestroyEvent(ev Event) error
}
