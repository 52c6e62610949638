// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package s3

import (
	"context"
	"io/ioutil"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/test"
	"github.com/pkg/errors"
)

// fakeS3 implements the handful of S3 calls Bucket makes over a map.
type fakeS3 struct {
	s3iface.S3API
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: make(map[string][]byte)} }

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(strings.NewReader(string(data)))}, nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := ioutil.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, awserr.New("NotFound", "Not Found", nil)
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjectWithContext(ctx aws.Context, in *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2PagesWithContext(ctx aws.Context, in *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, opts ...request.Option) error {
	f.mu.Lock()
	var page []*s3.Object
	for k := range f.objects {
		if strings.HasPrefix(k, *in.Bucket+"/"+*in.Prefix) {
			page = append(page, &s3.Object{Key: aws.String(strings.TrimPrefix(k, *in.Bucket+"/"))})
		}
	}
	f.mu.Unlock()
	// Two pages, to check that every page is read.
	half := len(page) / 2
	if !fn(&s3.ListObjectsV2Output{Contents: page[:half]}, false) {
		return nil
	}
	fn(&s3.ListObjectsV2Output{Contents: page[half:]}, true)
	return nil
}

func TestBucket(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	b, err := NewBucket("flow-process-bucket", "harvest", OptBucketClient(fake))
	test.ErrNil(t, err, "NewBucket")
	if b.String() != "s3://flow-process-bucket/harvest/" {
		t.Fatalf("unexpected uri: %s", b)
	}

	_, err = b.Get(ctx, "missing")
	if errors.Cause(err) != echo.ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound for missing key, got %v", err)
	}
	ok, err := b.Exists(ctx, "missing")
	test.ErrNil(t, err, "Exists")
	if ok {
		t.Fatalf("missing key exists")
	}

	test.ErrNil(t, b.Put(ctx, "harvest-status/a/", []byte(`{"2025/01/01":{}}`)), "Put")
	test.ErrNil(t, b.Put(ctx, "store/chunks/1", []byte("c1")), "Put")
	test.ErrNil(t, b.Put(ctx, "store/chunks/0", []byte("c0")), "Put")
	if _, ok := fake.objects["flow-process-bucket/harvest/store/chunks/0"]; !ok {
		t.Fatalf("key not placed under the root: %v", fake.objects)
	}

	data, err := b.Get(ctx, "harvest-status/a/")
	test.ErrNil(t, err, "Get")
	test.MustBe(t, `{"2025/01/01":{}}`, string(data))

	keys, err := b.List(ctx, "store/")
	test.ErrNil(t, err, "List")
	test.MustBe(t, []string{"store/chunks/0", "store/chunks/1"}, keys)

	test.ErrNil(t, b.Delete(ctx, "store/chunks/0"), "Delete")
	ok, err = b.Exists(ctx, "store/chunks/0")
	test.ErrNil(t, err, "Exists")
	if ok {
		t.Fatalf("deleted key still exists")
	}
}
