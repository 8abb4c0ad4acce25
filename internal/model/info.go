package model

import "github.com/23skdu/longbow-bodkin/internal/abi"

// ParamInfo describes one input or output slot. Immutable once bound.
type ParamInfo struct {
	Name string
}

// ConstInfo describes one constant: how to slice it out of the packed
// payload and how to shape the tensor view over it. Built once from compiled
// metadata.
type ConstInfo struct {
	Name          string
	Shape         []int64
	Stride        []int64
	Dtype         abi.Dtype
	StorageOffset int64
	DataSize      int64
}
