package echogram

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/ooi-data/rca-echo-tools/chunkstore"
	"github.com/ooi-data/rca-echo-tools/fake"
	"github.com/ooi-data/rca-echo-tools/file"
	"github.com/ooi-data/rca-echo-tools/test"
)

func TestParseRangeBin(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		err  bool
	}{
		{in: "0.1m", want: 0.1},
		{in: "2", want: 2},
		{in: " 0.5m", want: 0.5},
		{in: "0m", err: true},
		{in: "-1m", err: true},
		{in: "tenm", err: true},
	}
	for _, tst := range tests {
		got, err := ParseRangeBin(tst.in)
		if tst.err {
			if err == nil {
				t.Fatalf("expected error parsing '%s'", tst.in)
			}
			continue
		}
		test.ErrNil(t, err, tst.in)
		if !near(got, tst.want) {
			t.Fatalf("ParseRangeBin(%s) = %v, want %v", tst.in, got, tst.want)
		}
	}
}

func TestMainRenderAndUpload(t *testing.T) {
	ctx := context.Background()
	dataDir, vizDir := test.TempDir(t), test.TempDir(t)
	objects, err := file.NewBucket(dataDir)
	test.ErrNil(t, err, "NewBucket")

	cal := fake.NewCalibrator(3)
	day := echo.MustParseDay("2025/01/01")
	rec, err := cal.OpenRaw(ctx, fake.RawName(refdes, day.Time().Add(time.Hour)), "EK60")
	test.ErrNil(t, err, "OpenRaw")
	ds, err := cal.ComputeSv(ctx, rec, "CW", "power")
	test.ErrNil(t, err, "ComputeSv")
	store := chunkstore.New(objects, echo.StorePrefix(refdes))
	test.ErrNil(t, store.Write(ctx, ds, echo.Create), "Write")

	m := NewMain()
	m.Date = "2025/01/01"
	m.Refdes = refdes.String()
	m.DataBucket = dataDir
	m.OutDir = test.TempDir(t)
	m.Upload = true
	m.VizBucket = "file://" + vizDir
	test.ErrNil(t, m.Run(ctx), "Run")

	if len(m.Files) != len(fake.Channels) {
		t.Fatalf("expected one echogram per channel, got %v", m.Files)
	}
	if len(m.Keys) != len(m.Files) {
		t.Fatalf("expected every echogram uploaded, got %v", m.Keys)
	}
	viz, err := file.NewBucket(vizDir)
	test.ErrNil(t, err, "NewBucket")
	for _, f := range m.Files {
		key := "echograms/2025/" + refdes.String() + "/" + filepath.Base(f)
		if ok, err := viz.Exists(ctx, key); err != nil || !ok {
			t.Fatalf("%s not uploaded: %v", key, err)
		}
	}
}

func TestMainRejectsBadConfig(t *testing.T) {
	for name, setup := range map[string]func(m *Main){
		"date":     func(m *Main) { m.Date = "2025-01-01" },
		"refdes":   func(m *Main) { m.Refdes = "x" },
		"ping bin": func(m *Main) { m.PingTimeBin = "-4s" },
		"range":    func(m *Main) { m.RangeBin = "0m" },
		"scale":    func(m *Main) { m.Vmin, m.Vmax = -30, -80 },
	} {
		m := NewMain()
		m.Date = "2025/01/01"
		m.Refdes = refdes.String()
		m.DataBucket = test.TempDir(t)
		setup(m)
		if _, ok := m.Run(context.Background()).(*echo.ConfigError); !ok {
			t.Fatalf("%s: expected ConfigError", name)
		}
	}
}
