package device

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/metrics"
)

// SimRuntime emulates an accelerator with host memory. Events report
// not-ready until synchronized (or finished explicitly), which gives tests a
// window to observe in-flight runs.
type SimRuntime struct {
	deviceIndex int32

	mu     sync.Mutex
	allocs map[unsafe.Pointer][]byte
	events map[*simEvent]struct{}
}

type simEvent struct {
	mu       sync.Mutex
	recorded bool
	done     bool
}

func (*simEvent) isEvent() {}

func NewSim(deviceIndex int32) *SimRuntime {
	return &SimRuntime{
		deviceIndex: deviceIndex,
		allocs:      make(map[unsafe.Pointer][]byte),
		events:      make(map[*simEvent]struct{}),
	}
}

func (s *SimRuntime) Name() string { return "sim" }

func (s *SimRuntime) DeviceIndex() (int32, error) {
	return s.deviceIndex, nil
}

func (s *SimRuntime) Malloc(n int64) (unsafe.Pointer, error) {
	if n < 0 {
		return nil, fmt.Errorf("sim malloc: negative size %d", n)
	}
	if n == 0 {
		n = 1
	}
	buf := make([]byte, n)
	p := unsafe.Pointer(&buf[0])
	s.mu.Lock()
	s.allocs[p] = buf
	s.mu.Unlock()
	metrics.RecordDeviceMemory(n)
	return p, nil
}

func (s *SimRuntime) Free(p unsafe.Pointer) error {
	s.mu.Lock()
	buf, ok := s.allocs[p]
	if ok {
		delete(s.allocs, p)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("sim free: unknown allocation %p", p)
	}
	metrics.RecordDeviceMemory(-int64(len(buf)))
	return nil
}

func (s *SimRuntime) CopyToDevice(dst unsafe.Pointer, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if dst == nil {
		return fmt.Errorf("sim memcpy: nil destination")
	}
	copy(unsafe.Slice((*byte)(dst), len(src)), src)
	return nil
}

func (s *SimRuntime) NewEvent() (Event, error) {
	ev := &simEvent{}
	s.mu.Lock()
	s.events[ev] = struct{}{}
	s.mu.Unlock()
	return ev, nil
}

func (s *SimRuntime) Record(ev Event, stream abi.StreamHandle) error {
	e, ok := ev.(*simEvent)
	if !ok {
		return fmt.Errorf("sim record: foreign event %T", ev)
	}
	e.mu.Lock()
	e.recorded = true
	e.done = false
	e.mu.Unlock()
	return nil
}

func (s *SimRuntime) Query(ev Event) (bool, error) {
	e, ok := ev.(*simEvent)
	if !ok {
		return false, fmt.Errorf("sim query: foreign event %T", ev)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// An event that was never recorded queries as complete, matching CUDA.
	if !e.recorded {
		return true, nil
	}
	return e.done, nil
}

func (s *SimRuntime) Synchronize(ev Event) error {
	e, ok := ev.(*simEvent)
	if !ok {
		return fmt.Errorf("sim synchronize: foreign event %T", ev)
	}
	e.mu.Lock()
	e.done = true
	e.mu.Unlock()
	return nil
}

func (s *SimRuntime) DestroyEvent(ev Event) error {
	e, ok := ev.(*simEvent)
	if !ok {
		return fmt.Errorf("sim destroy: foreign event %T", ev)
	}
	s.mu.Lock()
	delete(s.events, e)
	s.mu.Unlock()
	return nil
}

// FinishPending marks every recorded event done, as if all dispatched work
// had drained.
func (s *SimRuntime) FinishPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ev := range s.events {
		ev.mu.Lock()
		if ev.recorded {
			ev.done = true
		}
		ev.mu.Unlock()
	}
}

// LiveAllocs reports outstanding device allocations.
func (s *SimRuntime) LiveAllocs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.allocs)
}

// Read copies n bytes back from a device pointer, for tests and dump
// tooling.
func (s *SimRuntime) Read(src unsafe.Pointer, n int64) []byte {
	out := make([]byte, n)
	if n > 0 && src != nil {
		copy(out, unsafe.Slice((*byte)(src), n))
	}
	return out
}
