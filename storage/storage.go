// Package storage opens the object stores named by location URIs.
//
//    s3://bucket/optional/root
//    file:///some/dir or a plain path
//    bolt:///some/file.db
package storage

import (
	"net/url"
	"os"
	"strings"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/aws/s3"
	"github.com/ooi-data/rca-echo-tools/boltdb"
	"github.com/ooi-data/rca-echo-tools/file"
	"github.com/pkg/errors"
)

// Environment variables holding S3 credentials.
const (
	EnvKey      = "AWS_KEY"
	EnvSecret   = "AWS_SECRET"
	EnvRegion   = "AWS_REGION"
	EnvEndpoint = "AWS_ENDPOINT"
)

// Credentials for S3 locations.
type Credentials struct {
	Key      string
	Secret   string
	Region   string
	Endpoint string
}

// CredentialsFromEnv reads credentials from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		Key:      os.Getenv(EnvKey),
		Secret:   os.Getenv(EnvSecret),
		Region:   os.Getenv(EnvRegion),
		Endpoint: os.Getenv(EnvEndpoint),
	}
}

// IsS3 reports whether uri names an S3 location.
func IsS3(uri string) bool { return strings.HasPrefix(uri, "s3://") }

// RequireCredentials checks that creds are complete if any of uris is an S3
// location.
func RequireCredentials(creds Credentials, uris ...string) error {
	for _, uri := range uris {
		if !IsS3(uri) {
			continue
		}
		if creds.Key == "" || creds.Secret == "" {
			return &echo.ConfigError{Msg: "please set the " + EnvKey + " and " + EnvSecret + " environment variables to use " + uri}
		}
		return nil
	}
	return nil
}

// Open returns the object store for uri.
func Open(uri string, creds Credentials) (echo.ObjectStore, error) {
	if uri == "" {
		return nil, &echo.ConfigError{Msg: "empty storage location"}
	}
	if !strings.Contains(uri, "://") {
		return file.NewBucket(uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, &echo.ConfigError{Msg: "parsing storage location '" + uri + "': " + err.Error()}
	}
	switch u.Scheme {
	case "s3":
		if err := RequireCredentials(creds, uri); err != nil {
			return nil, err
		}
		opts := []s3.BucketOption{s3.OptBucketCredentials(creds.Key, creds.Secret)}
		if creds.Region != "" {
			opts = append(opts, s3.OptBucketRegion(creds.Region))
		}
		if creds.Endpoint != "" {
			opts = append(opts, s3.OptBucketEndpoint(creds.Endpoint))
		}
		b, err := s3.NewBucket(u.Host, u.Path, opts...)
		return b, errors.Wrapf(err, "opening %s", uri)
	case "file":
		b, err := file.NewBucket(u.Host + u.Path)
		return b, errors.Wrapf(err, "opening %s", uri)
	case "bolt":
		b, err := boltdb.NewBucket(u.Host + u.Path)
		return b, errors.Wrapf(err, "opening %s", uri)
	}
	return nil, &echo.ConfigError{Msg: "unsupported storage scheme '" + u.Scheme + "' in " + uri}
}
