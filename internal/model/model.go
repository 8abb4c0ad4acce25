// Package model is the execution runtime for one compiled inference model.
// It owns the model's constants, lays them out in device memory, launches
// the generated compute specialization, and tracks asynchronous completion.
package model

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/23skdu/longbow-bodkin/internal/abi"
	"github.com/23skdu/longbow-bodkin/internal/device"
	"github.com/23skdu/longbow-bodkin/internal/logger"
	"github.com/23skdu/longbow-bodkin/internal/metadata"
	"github.com/23skdu/longbow-bodkin/internal/metrics"
	"github.com/23skdu/longbow-bodkin/internal/payload"
)

// Runner is the per-model compute specialization produced by codegen. Input
// handles are stolen element-wise (the implementation nulls the source
// slots); output slots are populated with handles the caller owns. The array
// backing storage is borrowed in both directions.
type Runner interface {
	RunImpl(inputs, outputs []abi.TensorHandle, stream abi.StreamHandle, executor abi.ProxyExecutor) error
}

// Options binds a model to its ABI dispatch, its packed constant payload,
// and optionally an accelerator runtime. A nil Device means host-only
// execution.
type Options struct {
	Dispatch abi.Dispatch
	Device   device.Runtime
	Payload  *payload.Section
}

type runMarker int

const (
	runNotStarted runMarker = iota
	runPending
	runDone
)

// Model is the state machine common to every generated model. The type
// parameter selects the compute specialization at compile time; the hot path
// has no interface-value dispatch.
//
// One Run at a time per instance. The caller serializes; the model does not.
type Model[R Runner] struct {
	runner R

	d       abi.Dispatch
	rt      device.Runtime
	payload *payload.Section

	inputsInfo    []ParamInfo
	outputsInfo   []ParamInfo
	constantsInfo []ConstInfo
	inSpec        string
	outSpec       string

	constantsMap *ConstantMap
	constants    []ConstantView

	blob *ConstantBlob

	marker    runMarker
	event     device.Event
	deviceIdx int32

	log *logger.Logger
}

// New fixes the input/output/constant counts for the model's lifetime. On an
// accelerator it captures the current device index.
func New[R Runner](runner R, opts Options, numInputs, numOutputs, numConstants int) (*Model[R], error) {
	if opts.Dispatch == nil {
		return nil, errors.New("model: nil ABI dispatch")
	}
	m := &Model[R]{
		runner:        runner,
		d:             opts.Dispatch,
		rt:            opts.Device,
		payload:       opts.Payload,
		inputsInfo:    make([]ParamInfo, numInputs),
		outputsInfo:   make([]ParamInfo, numOutputs),
		constantsInfo: make([]ConstInfo, numConstants),
		deviceIdx:     -1,
		log:           logger.Log.With("model"),
	}
	if m.rt != nil {
		idx, err := m.rt.DeviceIndex()
		if err != nil {
			return nil, fmt.Errorf("query device index: %w", err)
		}
		m.deviceIdx = idx
	}
	return m, nil
}

// SetInput binds the name of input slot i.
func (m *Model[R]) SetInput(i int, name string) error {
	if i < 0 || i >= len(m.inputsInfo) {
		return fmt.Errorf("input index %d out of range [0, %d)", i, len(m.inputsInfo))
	}
	m.inputsInfo[i] = ParamInfo{Name: name}
	return nil
}

// SetOutput binds the name of output slot i.
func (m *Model[R]) SetOutput(i int, name string) error {
	if i < 0 || i >= len(m.outputsInfo) {
		return fmt.Errorf("output index %d out of range [0, %d)", i, len(m.outputsInfo))
	}
	m.outputsInfo[i] = ParamInfo{Name: name}
	return nil
}

// SetConstant binds the metadata of constant slot i.
func (m *Model[R]) SetConstant(i int, info ConstInfo) error {
	if i < 0 || i >= len(m.constantsInfo) {
		return fmt.Errorf("constant index %d out of range [0, %d)", i, len(m.constantsInfo))
	}
	m.constantsInfo[i] = info
	return nil
}

// SetSpecs binds the caller-opaque input and output structure specs.
func (m *Model[R]) SetSpecs(in, out string) {
	m.inSpec = in
	m.outSpec = out
}

// BindManifest fills the metadata tables from a loaded manifest. Counts must
// match the counts fixed at construction.
func (m *Model[R]) BindManifest(man *metadata.Manifest) error {
	if len(man.Inputs) != len(m.inputsInfo) ||
		len(man.Outputs) != len(m.outputsInfo) ||
		len(man.Constants) != len(m.constantsInfo) {
		return fmt.Errorf("manifest shape mismatch: manifest has %d/%d/%d inputs/outputs/constants, model was built for %d/%d/%d",
			len(man.Inputs), len(man.Outputs), len(man.Constants),
			len(m.inputsInfo), len(m.outputsInfo), len(m.constantsInfo))
	}
	for i, p := range man.Inputs {
		m.inputsInfo[i] = ParamInfo{Name: p.Name}
	}
	for i, p := range man.Outputs {
		m.outputsInfo[i] = ParamInfo{Name: p.Name}
	}
	for i, c := range man.Constants {
		m.constantsInfo[i] = ConstInfo{
			Name:          c.Name,
			Shape:         append([]int64(nil), c.Shape...),
			Stride:        append([]int64(nil), c.Stride...),
			Dtype:         c.DtypeOf(),
			StorageOffset: c.StorageOffset,
			DataSize:      c.DataSize,
		}
	}
	m.SetSpecs(man.InSpec, man.OutSpec)
	return nil
}

// LoadConstants slices the packed payload in declared index order and builds
// one tensor per constant. On an accelerator the constants are first copied
// into a single aligned device blob; on the host they reference the payload
// in place. Fail fast: an error leaves the registry partially populated and
// bound, so the caller can inspect and Close it.
func (m *Model[R]) LoadConstants(isCPU bool) error {
	start := time.Now()
	n := len(m.constantsInfo)

	if !isCPU && m.rt == nil {
		return device.ErrNoAccelerator
	}
	if m.payload == nil && n > 0 {
		return errors.New("model: no constant payload bound")
	}

	cm := NewConstantMap()
	m.constantsMap = cm

	offsets := make([]int64, n)
	if !isCPU {
		// A reload replaces any blob still owned from a previous load.
		if err := m.blob.Close(); err != nil {
			return fmt.Errorf("free previous constant blob: %w", err)
		}
		m.blob = nil
		blob, offs, err := allocConstantBlob(m.rt, m.constantsInfo)
		if err != nil {
			return err
		}
		m.blob = blob
		offsets = offs
	}

	deviceType := abi.DeviceCUDA
	if isCPU {
		deviceType = abi.DeviceCPU
	}

	var bytesRead int64
	for i, info := range m.constantsInfo {
		var ptr unsafe.Pointer
		if info.DataSize > 0 {
			src, err := m.payload.Slice(bytesRead, info.DataSize)
			if err != nil {
				return fmt.Errorf("constant %q: %w", info.Name, err)
			}
			if isCPU {
				ptr = unsafe.Pointer(&src[0])
			} else {
				ptr = m.blob.Ptr(offsets[i])
				if err := m.rt.CopyToDevice(ptr, src); err != nil {
					return fmt.Errorf("constant %q: %w", info.Name, err)
				}
			}
		}
		bytesRead += info.DataSize

		h, st := m.d.CreateTensorFromBlob(ptr, info.Shape, info.Stride, info.StorageOffset, info.Dtype, deviceType, m.deviceIdx)
		if err := abi.Check(st, "CreateTensorFromBlob"); err != nil {
			metrics.RecordABIFailure("CreateTensorFromBlob")
			return fmt.Errorf("constant %q: %w", info.Name, err)
		}
		owned := Steal(m.d, h)
		if err := cm.Insert(info.Name, &owned); err != nil {
			owned.Close()
			return err
		}
	}

	if err := m.UpdateConstantsMap(cm); err != nil {
		return err
	}
	metrics.RecordConstantsLoaded(bytesRead, time.Since(start))
	m.log.Debug("constants loaded", "count", n, "bytes", bytesRead, "device", deviceType.String())
	return nil
}

// UpdateConstantsMap rebinds the active registry and rebuilds the view array
// against it. The registry may be shared with other model instances; each
// instance keeps its own view array over the common handles.
func (m *Model[R]) UpdateConstantsMap(cm *ConstantMap) error {
	m.constantsMap = cm
	if cm == nil {
		return nil
	}
	views := make([]ConstantView, len(m.constantsInfo))
	for i, info := range m.constantsInfo {
		t, ok := cm.Get(info.Name)
		if !ok {
			continue
		}
		v, err := NewConstantView(m.d, t.Get())
		if err != nil {
			return fmt.Errorf("constant %q: %w", info.Name, err)
		}
		views[i] = v
	}
	m.constants = views
	return nil
}

// Run dispatches one execution. Input handles are stolen element-wise (the
// caller's slots are nulled); output slots come back populated with handles
// the caller owns. The call returns once work is dispatched, not once it is
// complete; completion is observed through IsFinished or WaitForCompletion.
func (m *Model[R]) Run(inputs, outputs []abi.TensorHandle, stream abi.StreamHandle, executor abi.ProxyExecutor) error {
	start := time.Now()
	if m.rt != nil {
		if m.event == nil {
			ev, err := m.rt.NewEvent()
			if err != nil {
				return fmt.Errorf("create completion event: %w", err)
			}
			m.event = ev
		}
		m.marker = runPending
		if err := m.runner.RunImpl(inputs, outputs, stream, executor); err != nil {
			return err
		}
		if err := m.rt.Record(m.event, stream); err != nil {
			return fmt.Errorf("record completion event: %w", err)
		}
		metrics.RecordRunDispatch(m.rt.Name(), time.Since(start))
		return nil
	}

	m.marker = runPending
	if err := m.runner.RunImpl(inputs, outputs, stream, executor); err != nil {
		return err
	}
	m.marker = runDone
	metrics.RecordRunDispatch("cpu", time.Since(start))
	return nil
}

// IsFinished reports whether the last dispatched run has completed. Never
// blocks. Calling it before any run is an error, distinct from "not ready".
func (m *Model[R]) IsFinished() (bool, error) {
	if m.rt != nil {
		if m.event == nil {
			metrics.RecordCompletionPoll("uninitialized")
			return false, errors.New("model completion event was not initialized")
		}
		done, err := m.rt.Query(m.event)
		if err != nil {
			metrics.RecordCompletionPoll("error")
			return false, err
		}
		if done {
			m.marker = runDone
			metrics.RecordCompletionPoll("done")
		} else {
			metrics.RecordCompletionPoll("pending")
		}
		return done, nil
	}

	if m.marker == runNotStarted {
		metrics.RecordCompletionPoll("uninitialized")
		return false, errors.New("model has not been run")
	}
	metrics.RecordCompletionPoll("done")
	return m.marker == runDone, nil
}

// WaitForCompletion blocks until the last dispatched run completes. Host
// execution is synchronous, so the host path is a no-op.
func (m *Model[R]) WaitForCompletion() error {
	if m.rt == nil {
		return nil
	}
	if m.event == nil {
		return errors.New("model completion event was not initialized")
	}
	if err := m.rt.Synchronize(m.event); err != nil {
		return err
	}
	m.marker = runDone
	return nil
}

// ReleaseConstantBlob transfers ownership of the device blob to the caller,
// who must keep it alive at least as long as any tensor view references it.
func (m *Model[R]) ReleaseConstantBlob() *ConstantBlob {
	b := m.blob
	m.blob = nil
	return b
}

// Close destroys the completion event and frees the constant blob if still
// owned. The constant registry is closed by its owner, which may be shared.
func (m *Model[R]) Close() error {
	var errs []error
	if m.event != nil && m.rt != nil {
		if err := m.rt.DestroyEvent(m.event); err != nil {
			m.log.Error("failed to destroy completion event", "error", err)
			errs = append(errs, err)
		}
		m.event = nil
	}
	if err := m.blob.Close(); err != nil {
		errs = append(errs, err)
	}
	m.blob = nil
	return errors.Join(errs...)
}

func (m *Model[R]) NumInputs() int    { return len(m.inputsInfo) }
func (m *Model[R]) NumOutputs() int   { return len(m.outputsInfo) }
func (m *Model[R]) NumConstants() int { return len(m.constantsInfo) }

func (m *Model[R]) InputName(i int) (string, error) {
	if i < 0 || i >= len(m.inputsInfo) {
		return "", fmt.Errorf("input index %d out of range [0, %d)", i, len(m.inputsInfo))
	}
	return m.inputsInfo[i].Name, nil
}

func (m *Model[R]) OutputName(i int) (string, error) {
	if i < 0 || i >= len(m.outputsInfo) {
		return "", fmt.Errorf("output index %d out of range [0, %d)", i, len(m.outputsInfo))
	}
	return m.outputsInfo[i].Name, nil
}

func (m *Model[R]) constant(i int) (*ConstInfo, error) {
	if i < 0 || i >= len(m.constantsInfo) {
		return nil, fmt.Errorf("constant index %d out of range [0, %d)", i, len(m.constantsInfo))
	}
	return &m.constantsInfo[i], nil
}

func (m *Model[R]) ConstantName(i int) (string, error) {
	info, err := m.constant(i)
	if err != nil {
		return "", err
	}
	return info.Name, nil
}

func (m *Model[R]) ConstantShape(i int) ([]int64, error) {
	info, err := m.constant(i)
	if err != nil {
		return nil, err
	}
	return info.Shape, nil
}

func (m *Model[R]) ConstantStride(i int) ([]int64, error) {
	info, err := m.constant(i)
	if err != nil {
		return nil, err
	}
	return info.Stride, nil
}

func (m *Model[R]) ConstantDtype(i int) (abi.Dtype, error) {
	info, err := m.constant(i)
	if err != nil {
		return 0, err
	}
	return info.Dtype, nil
}

func (m *Model[R]) ConstantStorageOffset(i int) (int64, error) {
	info, err := m.constant(i)
	if err != nil {
		return 0, err
	}
	return info.StorageOffset, nil
}

func (m *Model[R]) ConstantDataSize(i int) (int64, error) {
	info, err := m.constant(i)
	if err != nil {
		return 0, err
	}
	return info.DataSize, nil
}

func (m *Model[R]) InSpec() string  { return m.inSpec }
func (m *Model[R]) OutSpec() string { return m.outSpec }

// Constants returns the per-instance view array, parallel to the constant
// metadata table. Generated code indexes it on the hot path.
func (m *Model[R]) Constants() []ConstantView {
	return m.constants
}

// ConstantsMap returns the currently bound registry.
func (m *Model[R]) ConstantsMap() *ConstantMap {
	return m.constantsMap
}

// DeviceIndex returns the device captured at construction, -1 on host-only.
func (m *Model[R]) DeviceIndex() int32 {
	return m.deviceIdx
}
