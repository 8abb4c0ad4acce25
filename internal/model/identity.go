package model

import (
	"fmt"

	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/hostabi"
)

// IdentityRunner is a host-side stand-in for generated compute code: each
// output is a fresh copy of the corresponding input. It follows the Runner
// ownership contract exactly, which makes it the reference specialization
// for tests and the demo cmd.
type IdentityRunner struct {
	T *hostabi.Table
}

func (r IdentityRunner) RunImpl(inputs, outputs []abi.TensorHandle, stream abi.StreamHandle, executor abi.ProxyExecutor) error {
	if len(outputs) != len(inputs) {
		return fmt.Errorf("identity runner: %d inputs but %d output slots", len(inputs), len(outputs))
	}

	owned := StealHandles(r.T, inputs)
	defer func() {
		for i := range owned {
			owned[i].Close()
		}
	}()

	for i := range owned {
		shape, stride, storageOffset, dtype, err := r.T.Describe(owned[i].Get())
		if err != nil {
			return err
		}
		src, err := r.T.Bytes(owned[i].Get())
		if err != nil {
			return err
		}
		buf := make([]byte, len(src))
		copy(buf, src)

		h, st := r.T.CreateTensorFromBytes(buf, shape, stride, storageOffset, dtype)
		if err := abi.Check(st, "CreateTensorFromBytes"); err != nil {
			return err
		}
		outputs[i] = h
	}
	return nil
}
