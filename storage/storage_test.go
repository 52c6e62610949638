package storage

import (
	"context"
	"path/filepath"
	"testing"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/boltdb"
	"github.com/ooi-data/rca-echo-tools/file"
	"github.com/ooi-data/rca-echo-tools/test"
)

func TestRequireCredentials(t *testing.T) {
	tests := []struct {
		creds Credentials
		uris  []string
		fail  bool
	}{
		{uris: []string{"/tmp/data", "file:///tmp/meta"}},
		{uris: []string{"/tmp/data", "s3://flow-process-bucket"}, fail: true},
		{creds: Credentials{Key: "k"}, uris: []string{"s3://ooi-data"}, fail: true},
		{creds: Credentials{Key: "k", Secret: "s"}, uris: []string{"s3://ooi-data", "s3://flow-process-bucket"}},
	}
	for i, tst := range tests {
		err := RequireCredentials(tst.creds, tst.uris...)
		if tst.fail {
			if _, ok := err.(*echo.ConfigError); !ok {
				t.Fatalf("test %d: expected ConfigError, got %v", i, err)
			}
		} else if err != nil {
			t.Fatalf("test %d: unexpected error: %v", i, err)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := test.TempDir(t)
	ctx := context.Background()

	plain, err := Open(filepath.Join(dir, "plain"), Credentials{})
	test.ErrNil(t, err, "Open plain path")
	if _, ok := plain.(*file.Bucket); !ok {
		t.Fatalf("expected file bucket for plain path, got %T", plain)
	}
	test.ErrNil(t, plain.Put(ctx, "k", []byte("v")), "Put")

	viaURI, err := Open("file://"+filepath.Join(dir, "plain"), Credentials{})
	test.ErrNil(t, err, "Open file uri")
	data, err := viaURI.Get(ctx, "k")
	test.ErrNil(t, err, "Get")
	test.MustBe(t, "v", string(data))

	bolt, err := Open("bolt://"+filepath.Join(dir, "store.db"), Credentials{})
	test.ErrNil(t, err, "Open bolt uri")
	defer bolt.Close()
	if _, ok := bolt.(*boltdb.Bucket); !ok {
		t.Fatalf("expected bolt bucket, got %T", bolt)
	}

	if _, err := Open("s3://ooi-data", Credentials{}); err == nil {
		t.Fatalf("expected error opening s3 without credentials")
	}
	if _, err := Open("gs://ooi-data", Credentials{}); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}
