package model

import (
	"fmt"
	"unsafe"

	"github.com/23skdu/longbow-bodkin/internal/device"
	"github.com/23skdu/longbow-bodkin/internal/metrics"
)

// BlobAlignment is the device-memory alignment of every constant inside the
// blob.
const BlobAlignment = 64

// PlanBlobLayout assigns each constant an alignment-padded offset in index
// order. Offsets are multiples of BlobAlignment and non-decreasing; the
// returned total is the blob allocation size.
func PlanBlobLayout(infos []ConstInfo) (offsets []int64, total int64) {
	offsets = make([]int64, len(infos))
	for i, info := range infos {
		size := info.DataSize
		if size%BlobAlignment != 0 {
			size = (size/BlobAlignment + 1) * BlobAlignment
		}
		offsets[i] = total
		total += size
	}
	return offsets, total
}

// ConstantBlob is one contiguous device allocation holding every constant.
// Owned by the model that allocated it until released to an external owner,
// who must then keep it alive as long as any tensor view references it.
type ConstantBlob struct {
	rt   device.Runtime
	ptr  unsafe.Pointer
	size int64
}

func allocConstantBlob(rt device.Runtime, infos []ConstInfo) (*ConstantBlob, []int64, error) {
	offsets, total := PlanBlobLayout(infos)
	if total == 0 {
		return &ConstantBlob{rt: rt}, offsets, nil
	}
	ptr, err := rt.Malloc(total)
	if err != nil {
		return nil, nil, fmt.Errorf("allocate constant blob (%d bytes): %w", total, err)
	}
	metrics.BlobBytes.Set(float64(total))
	return &ConstantBlob{rt: rt, ptr: ptr, size: total}, offsets, nil
}

func (b *ConstantBlob) Size() int64 {
	return b.size
}

// Ptr returns the device address at off inside the blob.
func (b *ConstantBlob) Ptr(off int64) unsafe.Pointer {
	if b.ptr == nil || off < 0 || off >= b.size {
		return nil
	}
	return unsafe.Add(b.ptr, off)
}

// Close frees the device allocation exactly once.
func (b *ConstantBlob) Close() error {
	if b == nil || b.ptr == nil {
		return nil
	}
	ptr := b.ptr
	b.ptr = nil
	b.size = 0
	return b.rt.Free(ptr)
}
