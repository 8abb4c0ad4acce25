//go:build !(linux && cuda)

package device

// NewCUDA is unavailable without the cuda build tag.
func NewCUDA(deviceIndex int32) (Runtime, error) {
	return nil, ErrNoAccelerator
}
