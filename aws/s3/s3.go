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

// Package s3 provides an echo.ObjectStore backed by an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

// DefaultRegion is where the OOI buckets live.
const DefaultRegion = "us-west-2"

var _ echo.ObjectStore = &Bucket{}

// BucketOption is a functional option type for s3.Bucket.
type BucketOption func(b *Bucket)

// OptBucketRegion sets the AWS region.
func OptBucketRegion(region string) BucketOption {
	return func(b *Bucket) {
		b.region = region
	}
}

// OptBucketCredentials sets static credentials. Without them the SDK's
// default chain is used.
func OptBucketCredentials(key, secret string) BucketOption {
	return func(b *Bucket) {
		b.key, b.secret = key, secret
	}
}

// OptBucketEndpoint points the client at an S3 compatible service, using
// path style addressing.
func OptBucketEndpoint(endpoint string) BucketOption {
	return func(b *Bucket) {
		b.endpoint = endpoint
	}
}

// OptBucketClient uses client instead of building one from a session.
func OptBucketClient(client s3iface.S3API) BucketOption {
	return func(b *Bucket) {
		b.s3 = client
	}
}

// Bucket is an echo.ObjectStore over the keys of an S3 bucket under a root
// prefix. Keys passed to and returned from its methods are relative to the
// root.
type Bucket struct {
	bucket string
	root   string

	region   string
	key      string
	secret   string
	endpoint string

	s3 s3iface.S3API
}

// NewBucket returns a Bucket on bucket, rooted at root (which may be empty).
func NewBucket(bucket, root string, opts ...BucketOption) (*Bucket, error) {
	b := &Bucket{
		bucket: bucket,
		root:   strings.TrimPrefix(root, "/"),
		region: DefaultRegion,
	}
	if b.root != "" && !strings.HasSuffix(b.root, "/") {
		b.root += "/"
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.s3 != nil {
		return b, nil
	}
	cfg := &aws.Config{Region: aws.String(b.region)}
	if b.key != "" {
		cfg.Credentials = credentials.NewStaticCredentials(b.key, b.secret, "")
	}
	if b.endpoint != "" {
		cfg.Endpoint = aws.String(b.endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "getting new session")
	}
	b.s3 = s3.New(sess)
	return b, nil
}

// String is the s3:// URI of the bucket root.
func (b *Bucket) String() string { return "s3://" + b.bucket + "/" + b.root }

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

// Get implements echo.ObjectStore.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.root + key),
	})
	if isNotFound(err) {
		return nil, errors.Wrapf(echo.ErrObjectNotFound, "fetching %s", key)
	} else if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", key)
	}
	defer out.Body.Close()
	data, err := ioutil.ReadAll(out.Body)
	return data, errors.Wrapf(err, "reading %s", key)
}

// Put implements echo.ObjectStore.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	_, err := b.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.root + key),
		Body:   bytes.NewReader(data),
	})
	return errors.Wrapf(err, "putting %s", key)
}

// Exists implements echo.ObjectStore.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.root + key),
	})
	if isNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "checking %s", key)
	}
	return true, nil
}

// Delete implements echo.ObjectStore. S3 doesn't report deleting a missing
// key, so neither does Delete.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	_, err := b.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.root + key),
	})
	return errors.Wrapf(err, "deleting %s", key)
}

// List implements echo.ObjectStore.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.s3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.root + prefix),
	}, func(page *s3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, strings.TrimPrefix(aws.StringValue(obj.Key), b.root))
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", prefix)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close does nothing.
func (b *Bucket) Close() error { return nil }
