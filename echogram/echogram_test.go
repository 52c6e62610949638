package echogram

import (
	"context"
	"image/png"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/chunkstore"
	"github.com/ooi-data/rca-echo-tools/fake"
	"github.com/ooi-data/rca-echo-tools/mock"
	"github.com/ooi-data/rca-echo-tools/test"
)

var refdes = echo.MustParseRefdes("CE04OSPS-PC01B-05-ZPLSCA102")

func grid(pings []time.Time, sv, rng []float64, channels, samples int) *echo.Dataset {
	ds := echo.NewDataset()
	ds.PingTime = pings
	for c := 0; c < channels; c++ {
		ds.Coords[echo.Channel] = append(ds.Coords[echo.Channel], string(rune('a'+c)))
	}
	for s := 0; s < samples; s++ {
		ds.Coords[echo.RangeSample] = append(ds.Coords[echo.RangeSample], string(rune('0'+s)))
	}
	dims := []string{echo.PingTime, echo.Channel, echo.RangeSample}
	ds.Vars["Sv"] = &echo.Variable{Dims: dims, Values: sv}
	ds.Vars["echo_range"] = &echo.Variable{Dims: dims, Values: rng}
	return ds
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMVBS(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC)
	ds := grid(
		[]time.Time{t0, t0.Add(2 * time.Second), t0.Add(5 * time.Second)},
		[]float64{-60, -50, -70, math.NaN(), -40, -40},
		[]float64{0.05, 0.25, 0.05, 0.25, 0.05, 0.25},
		1, 2,
	)
	grids, err := MVBS(ds, 4*time.Second, 0.1)
	test.ErrNil(t, err, "MVBS")
	if len(grids) != 1 {
		t.Fatalf("expected one channel, got %d", len(grids))
	}
	g := grids[0]
	test.MustBe(t, []time.Time{t0.Add(-time.Second), t0.Add(3 * time.Second)}, g.Times, "time bins")
	if len(g.Ranges) != 3 {
		t.Fatalf("expected 3 range bins, got %v", g.Ranges)
	}
	// Pings 0 and 1 share the first time bin; their linear mean is taken.
	exp := 10 * math.Log10((1e-6+1e-7)/2)
	if !near(g.Sv[0][0], exp) {
		t.Fatalf("expected %v, got %v", exp, g.Sv[0][0])
	}
	if !math.IsNaN(g.Sv[0][1]) {
		t.Fatalf("expected empty range bin to be NaN, got %v", g.Sv[0][1])
	}
	if !near(g.Sv[0][2], -50) {
		t.Fatalf("NaN samples should not count toward the mean, got %v", g.Sv[0][2])
	}
	if !near(g.Sv[1][0], -40) || !near(g.Sv[1][2], -40) {
		t.Fatalf("unexpected second time bin %v", g.Sv[1])
	}

	if _, err := MVBS(ds, 0, 0.1); err == nil {
		t.Fatalf("expected error for zero bin")
	}
	delete(ds.Vars, "echo_range")
	if _, err := MVBS(ds, time.Second, 0.1); err == nil {
		t.Fatalf("expected error without echo_range")
	}
}

func TestColor(t *testing.T) {
	if c := Color(math.NaN(), -80, -30); c.A != 0 {
		t.Fatalf("NaN should be transparent, got %v", c)
	}
	test.MustBe(t, palette[0], Color(-100, -80, -30))
	test.MustBe(t, palette[len(palette)-1], Color(0, -80, -30))
	test.MustBe(t, palette[2], Color(-55, -80, -30))
}

func TestFileName(t *testing.T) {
	day := echo.MustParseDay("2025/01/02")
	got := FileName(refdes, day, "GPT  38 kHz 009072058c8d 1-1 ES38B")
	test.MustBe(t, "CE04OSPS-PC01B-05-ZPLSCA102_20250102_GPT-38-kHz-009072058c8d-1-1-ES38B.png", got)
}

func TestDailyAndSync(t *testing.T) {
	ctx := context.Background()
	day := echo.MustParseDay("2025/01/02")
	cal := fake.NewCalibrator(1)
	cal.Pings = 20
	store := chunkstore.New(mock.NewObjects(), echo.StorePrefix(refdes), chunkstore.OptChunkSize(7))
	for i, name := range []string{
		fake.RawName(refdes, day.Time().Add(-time.Hour)),
		fake.RawName(refdes, day.Time().Add(time.Hour)),
	} {
		rec, err := cal.OpenRaw(ctx, name, "EK60")
		test.ErrNil(t, err, "OpenRaw")
		ds, err := cal.ComputeSv(ctx, rec, "CW", "power")
		test.ErrNil(t, err, "ComputeSv")
		mode := echo.Append
		if i == 0 {
			mode = echo.Create
		}
		test.ErrNil(t, store.Write(ctx, ds, mode), "Write")
	}

	dir := test.TempDir(t)
	r := NewRenderer(store, refdes, dir)
	files, err := r.Daily(ctx, day)
	test.ErrNil(t, err, "Daily")
	if len(files) != len(fake.Channels) {
		t.Fatalf("expected one echogram per channel, got %v", files)
	}
	for _, f := range files {
		fh, err := os.Open(f)
		test.ErrNil(t, err, "opening echogram")
		img, err := png.Decode(fh)
		fh.Close()
		test.ErrNil(t, err, "decoding echogram")
		// Only the 20 pings after midnight are drawn, 4 seconds to a bin.
		if w := img.Bounds().Dx(); w != 5 {
			t.Fatalf("expected 5 time bins, got %d", w)
		}
	}

	files, err = r.Daily(ctx, echo.MustParseDay("2025/02/01"))
	test.ErrNil(t, err, "Daily without data")
	if len(files) != 0 {
		t.Fatalf("expected no echograms for an empty day, got %v", files)
	}

	// Echograms of other instruments are not synced.
	other := filepath.Join(dir, "RS01SBPS-PC01A-08-ZPLSCB101_20250102_x.png")
	test.ErrNil(t, ioutil.WriteFile(other, []byte("x"), 0644), "writing other echogram")
	viz := mock.NewObjects()
	keys, err := Sync(ctx, viz, dir, refdes, day, nil)
	test.ErrNil(t, err, "Sync")
	if len(keys) != len(fake.Channels) {
		t.Fatalf("unexpected synced keys %v", keys)
	}
	for _, k := range viz.Keys() {
		if filepath.Dir(k) != "echograms/2025/"+refdes.String() {
			t.Fatalf("unexpected key %s", k)
		}
	}
}
