// Package utils holds small helpers shared across the emulator
// packages.
package utils

import (
	"fmt"
)

// MakeError wraps err with formatted details, keeping it reachable
// through errors.Is/As.
func MakeError(err error, detailsBody string, args ...any) error {
	return fmt.Errorf("%w: "+detailsBody, append([]any{err}, args...)...)
}
