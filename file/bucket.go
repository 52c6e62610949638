// Package file provides an echo.ObjectStore over a local directory, for
// running harvests without cloud storage.
package file

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

// dirObject is the file name holding the object for a key ending in a slash,
// since such a key also names a directory.
const dirObject = ".object"

const tmpPrefix = ".tmp-"

var _ echo.ObjectStore = &Bucket{}

// Bucket stores each object as a file under a root directory. Puts are
// atomic: data is written to a temporary file which is renamed into place.
type Bucket struct {
	root string
}

// NewBucket returns a Bucket rooted at dir, creating it if needed.
func NewBucket(dir string) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "making root directory")
	}
	return &Bucket{root: dir}, nil
}

// String is the root directory.
func (b *Bucket) String() string { return b.root }

func (b *Bucket) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", errors.Errorf("invalid key '%s'", key)
	}
	p := filepath.Join(b.root, filepath.FromSlash(key))
	if strings.HasSuffix(key, "/") {
		p = filepath.Join(p, dirObject)
	}
	return p, nil
}

// Get implements echo.ObjectStore.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(echo.ErrObjectNotFound, "reading %s", key)
	}
	return data, errors.Wrapf(err, "reading %s", key)
}

// Put implements echo.ObjectStore.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "making directory for %s", key)
	}
	f, err := ioutil.TempFile(dir, tmpPrefix)
	if err != nil {
		return errors.Wrapf(err, "creating temp file for %s", key)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", key)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", key)
	}
	return errors.Wrapf(os.Rename(f.Name(), p), "renaming %s into place", key)
}

// Exists implements echo.ObjectStore.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	p, err := b.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "statting %s", key)
	}
	return !info.IsDir(), nil
}

// Delete implements echo.ObjectStore.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return errors.Wrapf(echo.ErrObjectNotFound, "deleting %s", key)
	}
	return errors.Wrapf(err, "deleting %s", key)
}

// List implements echo.ObjectStore.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.Walk(b.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), tmpPrefix) {
			return nil
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if info.Name() == dirObject {
			key = strings.TrimSuffix(key, dirObject)
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", b.root)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close does nothing.
func (b *Bucket) Close() error { return nil }
