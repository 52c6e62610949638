package echo

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ListingStatus says what a directory listing found.
type ListingStatus int

const (
	// Found means the day holds at least one raw file.
	Found ListingStatus = iota
	// Empty means the listing succeeded but held no raw files.
	Empty
	// NotFound means the archive has no directory for the day.
	NotFound
	// Unreachable means the listing failed, e.g. on a network error. Err
	// holds the cause.
	Unreachable
)

func (s ListingStatus) String() string {
	switch s {
	case Found:
		return "found"
	case Empty:
		return "empty"
	case NotFound:
		return "not found"
	case Unreachable:
		return "unreachable"
	}
	return "unknown"
}

// Listing is the result of listing one day of one instrument.
type Listing struct {
	Day    Day
	URL    string
	Status ListingStatus
	Files  []string
	Err    error
}

// Lister enumerates the raw files for a day in lexicographic order, which is
// assumed to be chronological. Listing failures are reported in the Listing,
// never as an error, because days without data are expected.
type Lister interface {
	List(ctx context.Context, day Day, refdes Refdes) Listing
}

// Recording is a raw file opened by a Calibrator.
type Recording interface {
	Locator() string
	Close() error
}

// Calibrator turns raw files into calibrated Sv datasets.
type Calibrator interface {
	OpenRaw(ctx context.Context, locator, sonarModel string) (Recording, error)
	ComputeSv(ctx context.Context, rec Recording, waveformMode, encodeMode string) (*Dataset, error)
}

// WriteMode selects how ArrayStore.Write treats an existing store.
type WriteMode int

const (
	// Create replaces whatever is at the store path.
	Create WriteMode = iota
	// Append extends the store along ping_time.
	Append
)

func (m WriteMode) String() string {
	if m == Append {
		return "append"
	}
	return "create"
}

// ArrayStore is a chunked array store for one instrument. Appends extend
// the ping_time dimension; overlap with existing times is not checked.
type ArrayStore interface {
	Exists(ctx context.Context) (bool, error)
	Write(ctx context.Context, ds *Dataset, mode WriteMode) error
	// Read returns the pings with from <= ping_time < to in time order. Zero
	// bounds are unbounded.
	Read(ctx context.Context, from, to time.Time) (*Dataset, error)
}

// ErrObjectNotFound is returned by ObjectStore.Get and Delete for a key
// which does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is a flat key/value blob store such as an S3 bucket.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns the sorted keys beginning with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
