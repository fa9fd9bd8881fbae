package testkit

import "testing"

// Swap replaces a seam for one test and restores the original on cleanup.
// A seam is anything a test needs to pin down: a clock field, a sleep hook,
// a package-level variable. The target is a pointer, so unexported struct
// fields reachable from the test's package work the same as globals
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}
