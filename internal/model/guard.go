package model

import (
	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/metrics"
)

// StreamGuard activates a stream/device pairing for a lexical scope. Callers
// defer Close so deactivation happens on every exit path.
type StreamGuard struct {
	d abi.Dispatch
	g abi.GuardHandle
}

func NewStreamGuard(d abi.Dispatch, stream abi.StreamHandle, deviceIndex int32) (*StreamGuard, error) {
	g, st := d.CreateStreamGuard(stream, deviceIndex)
	if err := abi.Check(st, "CreateStreamGuard"); err != nil {
		metrics.RecordABIFailure("CreateStreamGuard")
		return nil, err
	}
	return &StreamGuard{d: d, g: g}, nil
}

// Close deactivates the guard. The handle is retained on failure so a
// misordered Close can be retried; Close after success is a no-op.
func (s *StreamGuard) Close() error {
	if s.g == 0 {
		return nil
	}
	if err := abi.Check(s.d.DeleteStreamGuard(s.g), "DeleteStreamGuard"); err != nil {
		metrics.RecordABIFailure("DeleteStreamGuard")
		return err
	}
	s.g = 0
	return nil
}
