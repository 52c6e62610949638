package mock

import (
	"context"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
)

// WriteCall records one ArrayStore.Write.
type WriteCall struct {
	Mode  echo.WriteMode
	Pings int
	Start time.Time
}

// CountingStore wraps an echo.ArrayStore, recording writes. If FailWrite is
// set, the Nth write (counting from 1) fails with it.
type CountingStore struct {
	echo.ArrayStore
	Writes []WriteCall

	FailWrite   error
	FailOnWrite int
}

// Write implements echo.ArrayStore.
func (c *CountingStore) Write(ctx context.Context, ds *echo.Dataset, mode echo.WriteMode) error {
	call := WriteCall{Mode: mode, Pings: ds.NumPings()}
	if ds.NumPings() > 0 {
		call.Start = ds.PingTime[0]
	}
	if c.FailWrite != nil && len(c.Writes)+1 == c.FailOnWrite {
		return c.FailWrite
	}
	c.Writes = append(c.Writes, call)
	return c.ArrayStore.Write(ctx, ds, mode)
}
