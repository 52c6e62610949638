package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/test"
	"github.com/pkg/errors"
)

func TestBucket(t *testing.T) {
	ctx := context.Background()
	fname := filepath.Join(test.TempDir(t), "objects.db")
	b, err := NewBucket(fname)
	test.ErrNil(t, err, "NewBucket")

	if _, err := b.Get(ctx, "a"); errors.Cause(err) != echo.ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	for _, k := range []string{"s/chunks/1", "s/chunks/0", "s/store.json", "t/store.json"} {
		test.ErrNil(t, b.Put(ctx, k, []byte(k)), "Put "+k)
	}
	keys, err := b.List(ctx, "s/")
	test.ErrNil(t, err, "List")
	test.MustBe(t, []string{"s/chunks/0", "s/chunks/1", "s/store.json"}, keys)

	test.ErrNil(t, b.Delete(ctx, "s/chunks/0"), "Delete")
	if err := b.Delete(ctx, "s/chunks/0"); errors.Cause(err) != echo.ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound deleting twice, got %v", err)
	}

	// Data survives a reopen.
	test.ErrNil(t, b.Close(), "Close")
	b, err = NewBucket(fname)
	test.ErrNil(t, err, "reopening")
	defer b.Close()
	data, err := b.Get(ctx, "t/store.json")
	test.ErrNil(t, err, "Get after reopen")
	test.MustBe(t, "t/store.json", string(data))
	ok, err := b.Exists(ctx, "s/chunks/0")
	test.ErrNil(t, err, "Exists")
	if ok {
		t.Fatalf("deleted key exists after reopen")
	}
}
