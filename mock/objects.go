package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

var _ echo.ObjectStore = &Objects{}

// Objects is an in-memory echo.ObjectStore.
type Objects struct {
	mu   sync.Mutex
	data map[string][]byte

	// FailPut, if non-nil, is consulted before every Put; a non-nil return
	// fails the Put without storing anything.
	FailPut func(key string) error

	Puts    int
	Deletes int
}

// NewObjects returns an empty Objects.
func NewObjects() *Objects {
	return &Objects{data: make(map[string][]byte)}
}

// Get implements echo.ObjectStore.
func (o *Objects) Get(ctx context.Context, key string) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.data[key]
	if !ok {
		return nil, errors.Wrap(echo.ErrObjectNotFound, key)
	}
	return append([]byte(nil), v...), nil
}

// Put implements echo.ObjectStore.
func (o *Objects) Put(ctx context.Context, key string, data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.FailPut != nil {
		if err := o.FailPut(key); err != nil {
			return err
		}
	}
	o.Puts++
	o.data[key] = append([]byte(nil), data...)
	return nil
}

// Exists implements echo.ObjectStore.
func (o *Objects) Exists(ctx context.Context, key string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.data[key]
	return ok, nil
}

// Delete implements echo.ObjectStore.
func (o *Objects) Delete(ctx context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.data[key]; !ok {
		return errors.Wrap(echo.ErrObjectNotFound, key)
	}
	o.Deletes++
	delete(o.data, key)
	return nil
}

// List implements echo.ObjectStore.
func (o *Objects) List(ctx context.Context, prefix string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var keys []string
	for k := range o.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close does nothing.
func (o *Objects) Close() error { return nil }

// Keys returns every stored key in order.
func (o *Objects) Keys() []string {
	keys, _ := o.List(context.Background(), "")
	return keys
}
