package echogram

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Renderer draws the daily echograms of one instrument into a local
// directory. It only reads the store.
type Renderer struct {
	Store  echo.ArrayStore
	Refdes echo.Refdes
	OutDir string

	PingTimeBin time.Duration
	RangeBin    float64
	Vmin, Vmax  float64
	// Workers bounds how many channels are rendered at once.
	Workers int

	Log echo.Logger
}

// NewRenderer gets a Renderer with the default bins and color scale.
func NewRenderer(store echo.ArrayStore, refdes echo.Refdes, outDir string) *Renderer {
	return &Renderer{
		Store:       store,
		Refdes:      refdes,
		OutDir:      outDir,
		PingTimeBin: DefaultPingTimeBin,
		RangeBin:    DefaultRangeBin,
		Vmin:        DefaultVmin,
		Vmax:        DefaultVmax,
		Workers:     4,
		Log:         echo.NopLogger{},
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9.]+`)

// FileName is the name of the echogram of one channel on one day.
func FileName(refdes echo.Refdes, day echo.Day, channel string) string {
	ch := strings.Trim(unsafeChars.ReplaceAllString(channel, "-"), "-")
	return refdes.String() + "_" + day.Compact() + "_" + ch + ".png"
}

// Daily renders every channel of day and returns the files written, in
// channel order. A day without pings renders nothing.
func (r *Renderer) Daily(ctx context.Context, day echo.Day) ([]string, error) {
	ds, err := r.Store.Read(ctx, day.Time(), day.Next().Time())
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", day)
	}
	if ds.NumPings() == 0 {
		r.Log.Printf("no pings for %s on %s", r.Refdes, day)
		return nil, nil
	}
	grids, err := MVBS(ds, r.PingTimeBin, r.RangeBin)
	if err != nil {
		return nil, errors.Wrap(err, "computing MVBS")
	}
	if err := os.MkdirAll(r.OutDir, 0755); err != nil {
		return nil, errors.Wrap(err, "making output directory")
	}

	files := make([]string, len(grids))
	sem := make(chan struct{}, workers(r.Workers))
	eg, ctx := errgroup.WithContext(ctx)
	for i, g := range grids {
		i, g := i, g
		files[i] = filepath.Join(r.OutDir, FileName(r.Refdes, day, g.Channel))
		eg.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()
			return r.write(files[i], g)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	r.Log.Printf("rendered %d echograms of %s for %s", len(files), r.Refdes, day)
	return files, nil
}

func (r *Renderer) write(name string, g *Grid) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "creating echogram file")
	}
	if err := Render(f, g, r.Vmin, r.Vmax); err != nil {
		f.Close()
		return errors.Wrapf(err, "rendering %s", name)
	}
	return errors.Wrapf(f.Close(), "closing %s", name)
}

func workers(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Sync uploads the echograms in dir belonging to refdes and day's year to
// viz under echograms/{year}/{refdes}/, returning the keys written.
func Sync(ctx context.Context, viz echo.ObjectStore, dir string, refdes echo.Refdes, day echo.Day, log echo.Logger) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*ZPLS*.png"))
	if err != nil {
		return nil, errors.Wrap(err, "listing echograms")
	}
	year := strconv.Itoa(day.Time().Year())
	var keys []string
	for _, m := range matches {
		name := filepath.Base(m)
		if !strings.Contains(name, refdes.String()) || !strings.Contains(name, year) {
			continue
		}
		data, err := ioutil.ReadFile(m)
		if err != nil {
			return keys, errors.Wrapf(err, "reading %s", m)
		}
		key := "echograms/" + year + "/" + refdes.String() + "/" + name
		if log != nil {
			log.Printf("uploading %s to %s", m, key)
		}
		if err := viz.Put(ctx, key, data); err != nil {
			return keys, errors.Wrapf(err, "uploading %s", name)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
