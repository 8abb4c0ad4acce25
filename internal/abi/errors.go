package abi

import (
	"fmt"
	"runtime"
)

// Check translates a non-success status into an error naming the failing
// call and the call site of the runtime code that issued it.
func Check(st Status, call string) error {
	if st == StatusSuccess {
		return nil
	}
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("%s ABI call failed", call)
	}
	return fmt.Errorf("%s ABI call failed at %s, line %d", call, file, line)
}
