package abi

import "fmt"

// Dtype is the scalar element type code carried across the ABI. The numeric
// values follow the torch scalar-type table so compiled metadata can be used
// verbatim.
type Dtype int32

const (
	DtypeUint8    Dtype = 0
	DtypeInt8     Dtype = 1
	DtypeInt16    Dtype = 2
	DtypeInt32    Dtype = 3
	DtypeInt64    Dtype = 4
	DtypeFloat16  Dtype = 5
	DtypeFloat32  Dtype = 6
	DtypeFloat64  Dtype = 7
	DtypeBool     Dtype = 11
	DtypeBFloat16 Dtype = 15
)

var dtypeNames = map[Dtype]string{
	DtypeUint8:    "uint8",
	DtypeInt8:     "int8",
	DtypeInt16:    "int16",
	DtypeInt32:    "int32",
	DtypeInt64:    "int64",
	DtypeFloat16:  "float16",
	DtypeFloat32:  "float32",
	DtypeFloat64:  "float64",
	DtypeBool:     "bool",
	DtypeBFloat16: "bfloat16",
}

func (d Dtype) String() string {
	if s, ok := dtypeNames[d]; ok {
		return s
	}
	return fmt.Sprintf("dtype(%d)", int32(d))
}

// ElementSize returns the width of one element in bytes, or 0 for an unknown
// code.
func (d Dtype) ElementSize() int64 {
	switch d {
	case DtypeUint8, DtypeInt8, DtypeBool:
		return 1
	case DtypeInt16, DtypeFloat16, DtypeBFloat16:
		return 2
	case DtypeInt32, DtypeFloat32:
		return 4
	case DtypeInt64, DtypeFloat64:
		return 8
	}
	return 0
}

// ParseDtype maps a manifest dtype name to its code.
func ParseDtype(name string) (Dtype, error) {
	for d, s := range dtypeNames {
		if s == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", name)
}
