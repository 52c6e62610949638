// Package fake provides a Calibrator which makes up plausible Sv datasets
// without reading raw files, for tests and dry runs.
package fake

import (
	"context"
	"fmt"
	"math/rand"
	"path"
	"regexp"
	"strconv"
	"sync"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

var stampRE = regexp.MustCompile(`D(\d{8})-T(\d{6})`)

// Channels are the channel labels of generated datasets.
var Channels = []string{"GPT  38 kHz 009072058c8d 1-1 ES38B", "GPT 120 kHz 00907205a6d0 2-1 ES120-7C"}

// Calibrator is an echo.Calibrator producing synthetic datasets. The first
// ping of a file is taken from a D20060102-T150405 stamp in its name.
type Calibrator struct {
	// Pings per file and the interval between them.
	Pings    int
	Interval time.Duration
	// Samples is the length of the range_sample dimension.
	Samples int
	// FailOn maps file names (the last path element) to the error OpenRaw
	// returns for them.
	FailOn map[string]error
	// Drop lists variables to leave out of generated datasets.
	Drop []string

	mu     sync.Mutex
	rng    *rand.Rand
	opened []string
}

// NewCalibrator returns a Calibrator generating 4 pings of 5 samples per
// file. seed drives the noise added to Sv.
func NewCalibrator(seed int64) *Calibrator {
	return &Calibrator{
		Pings:    4,
		Interval: time.Second,
		Samples:  5,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

type recording struct {
	locator string
	first   time.Time
	model   string
}

func (r *recording) Locator() string { return r.locator }
func (r *recording) Close() error    { return nil }

// Opened returns the locators passed to OpenRaw, in order.
func (c *Calibrator) Opened() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.opened...)
}

// OpenRaw implements echo.Calibrator.
func (c *Calibrator) OpenRaw(ctx context.Context, locator, sonarModel string) (echo.Recording, error) {
	c.mu.Lock()
	c.opened = append(c.opened, locator)
	c.mu.Unlock()
	name := path.Base(locator)
	if err, ok := c.FailOn[name]; ok {
		return nil, err
	}
	first, err := StampTime(name)
	if err != nil {
		return nil, err
	}
	return &recording{locator: locator, first: first, model: sonarModel}, nil
}

// StampTime parses the D20060102-T150405 stamp in a raw file name.
func StampTime(name string) (time.Time, error) {
	m := stampRE.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, errors.Errorf("no timestamp in file name %s", name)
	}
	t, err := time.Parse("20060102150405", m[1]+m[2])
	return t, errors.Wrapf(err, "parsing timestamp of %s", name)
}

// ComputeSv implements echo.Calibrator.
func (c *Calibrator) ComputeSv(ctx context.Context, rec echo.Recording, waveformMode, encodeMode string) (*echo.Dataset, error) {
	r, ok := rec.(*recording)
	if !ok {
		return nil, errors.Errorf("recording %s was not opened by this calibrator", rec.Locator())
	}
	ds := echo.NewDataset()
	ds.Attrs["sonar_model"] = r.model
	ds.Attrs["waveform_mode"] = waveformMode
	ds.Attrs["encode_mode"] = encodeMode
	for i := 0; i < c.Pings; i++ {
		ds.PingTime = append(ds.PingTime, r.first.Add(time.Duration(i)*c.Interval))
	}
	ds.Coords[echo.Channel] = append([]string(nil), Channels...)
	samples := make([]string, c.Samples)
	for i := range samples {
		samples[i] = strconv.Itoa(i)
	}
	ds.Coords[echo.RangeSample] = samples
	ds.Coords["filenames"] = []string{path.Base(r.locator)}

	np, nc, ns := c.Pings, len(Channels), c.Samples
	full := []string{echo.PingTime, echo.Channel, echo.RangeSample}
	sv := make([]float64, 0, np*nc*ns)
	rng := make([]float64, 0, np*nc*ns)
	c.mu.Lock()
	for p := 0; p < np; p++ {
		for ch := 0; ch < nc; ch++ {
			for s := 0; s < ns; s++ {
				noise := 0.0
				if c.rng != nil {
					noise = c.rng.Float64()
				}
				sv = append(sv, -50-float64(ch)*10-float64(s)*2+noise)
				rng = append(rng, 0.05+float64(s)*0.1)
			}
		}
	}
	c.mu.Unlock()
	ds.Vars["Sv"] = &echo.Variable{Dims: full, Values: sv, Attrs: map[string]string{"units": "dB re 1 m-1"}}
	ds.Vars["echo_range"] = &echo.Variable{Dims: full, Values: rng, Attrs: map[string]string{"units": "m"}}

	perChannel := func(base float64) *echo.Variable {
		v := &echo.Variable{Dims: []string{echo.Channel}}
		for ch := 0; ch < nc; ch++ {
			v.Values = append(v.Values, base+float64(ch))
		}
		return v
	}
	perPing := func(base float64) *echo.Variable {
		v := &echo.Variable{Dims: []string{echo.PingTime, echo.Channel}}
		for p := 0; p < np; p++ {
			for ch := 0; ch < nc; ch++ {
				v.Values = append(v.Values, base+float64(ch)/100)
			}
		}
		return v
	}
	ds.Vars["equivalent_beam_angle"] = perChannel(-20.6)
	ds.Vars["gain_correction"] = perChannel(26.5)
	ds.Vars["impedance_transceiver"] = perChannel(1000)
	ds.Vars["impedance_transducer"] = perChannel(75)
	ds.Vars["receiver_sampling_frequency"] = perChannel(1500)
	ds.Vars["frequency_nominal"] = &echo.Variable{Dims: []string{echo.Channel}, Values: []float64{38000, 120000}}
	ds.Vars["formula_absorption"] = &echo.Variable{Dims: []string{echo.Channel}, Strings: []string{"FG", "FG"}}
	ds.Vars["sound_absorption"] = perPing(0.01)
	ds.Vars["sound_speed"] = perPing(1490)
	ds.Vars["source_filenames"] = &echo.Variable{Dims: []string{"filenames"}, Strings: []string{r.locator}}
	ds.Vars["water_level"] = &echo.Variable{Values: []float64{0}}

	// Instrument specific variables a sanitizer is expected to drop.
	ds.Vars["angle_offset_alongship"] = perChannel(0)
	ds.Vars["beamwidth_alongship"] = perChannel(7)
	ds.Vars["pressure"] = &echo.Variable{Dims: []string{echo.PingTime}, Values: make([]float64, np)}
	ds.Vars["temperature"] = &echo.Variable{Values: []float64{8.5}}

	for _, name := range c.Drop {
		delete(ds.Vars, name)
	}
	return ds, nil
}

// RawName builds a raw file name in the archive's convention for an
// instrument and first ping time.
func RawName(refdes echo.Refdes, t time.Time) string {
	return fmt.Sprintf("%s_OOI-D%s-T%s.raw", refdes, t.Format("20060102"), t.Format("150405"))
}
