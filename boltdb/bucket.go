// Package boltdb provides an echo.ObjectStore kept in a single boltdb file.
// It suits small local stores and tests where a directory tree of chunk
// files is unwieldy.
package boltdb

import (
	"bytes"
	"context"
	"time"

	"github.com/boltdb/bolt"
	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

var objectsBucket = []byte("objects")

var _ echo.ObjectStore = &Bucket{}

// Bucket stores every object as a key of one bolt bucket.
type Bucket struct {
	Db *bolt.DB
}

// NewBucket opens or creates the bolt file at filename.
func NewBucket(filename string) (*Bucket, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(objectsBucket)
		return errors.Wrap(err, "creating objects bucket")
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Bucket{Db: db}, nil
}

// String is the path of the bolt file.
func (b *Bucket) String() string { return b.Db.Path() }

// Close syncs and closes the underlying boltdb.
func (b *Bucket) Close() error {
	if err := b.Db.Sync(); err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return b.Db.Close()
}

// Get implements echo.ObjectStore.
func (b *Bucket) Get(ctx context.Context, key string) (data []byte, err error) {
	err = b.Db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(objectsBucket).Get([]byte(key))
		if v == nil {
			return errors.Wrapf(echo.ErrObjectNotFound, "getting %s", key)
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Put implements echo.ObjectStore.
func (b *Bucket) Put(ctx context.Context, key string, data []byte) error {
	err := b.Db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(objectsBucket).Put([]byte(key), data)
	})
	return errors.Wrapf(err, "putting %s", key)
}

// Exists implements echo.ObjectStore.
func (b *Bucket) Exists(ctx context.Context, key string) (ok bool, err error) {
	err = b.Db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(objectsBucket).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}

// Delete implements echo.ObjectStore.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	return b.Db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(objectsBucket)
		if bkt.Get([]byte(key)) == nil {
			return errors.Wrapf(echo.ErrObjectNotFound, "deleting %s", key)
		}
		return errors.Wrapf(bkt.Delete([]byte(key)), "deleting %s", key)
	})
}

// List implements echo.ObjectStore. Keys come back in byte order, which is
// bolt's cursor order.
func (b *Bucket) List(ctx context.Context, prefix string) (keys []string, err error) {
	err = b.Db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(objectsBucket).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}
