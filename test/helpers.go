// Package test holds helpers shared by the package tests.
package test

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// MustBe fails the test if got and want differ. NaNs compare equal so
// padded datasets can be compared directly. Types with unexported fields
// need an Equal method.
func MustBe(t *testing.T, want, got interface{}, context ...string) {
	t.Helper()
	var ctx string
	if len(context) > 0 {
		ctx = context[0] + ": "
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs(), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("%vmismatch (-want +got):\n%s", ctx, diff)
	}
}

// ErrNil fails the test if err is not nil.
func ErrNil(t *testing.T, err error, ctx string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%v: %v", ctx, err)
	}
}

// TempDir makes a temporary directory which is removed when the test ends.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "echo-test")
	if err != nil {
		t.Fatalf("making temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}
