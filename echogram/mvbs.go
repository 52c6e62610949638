// Package echogram renders daily echograms from a harvested store.
package echogram

import (
	"math"
	"sort"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
)

// Default bin sizes.
const (
	DefaultPingTimeBin = 4 * time.Second
	DefaultRangeBin    = 0.1
)

// Grid is the mean volume backscattering strength (MVBS) of one channel on
// uniform time and range bins. Sv is indexed [time][range] in dB, NaN where
// a bin holds no samples.
type Grid struct {
	Channel string
	Times   []time.Time
	Ranges  []float64
	Sv      [][]float64
}

var svDims = []string{echo.PingTime, echo.Channel, echo.RangeSample}

// MVBS bins the Sv of ds by ping time and by echo_range, one Grid per
// channel. Means are taken in the linear domain.
func MVBS(ds *echo.Dataset, pingBin time.Duration, rangeBin float64) ([]*Grid, error) {
	if pingBin <= 0 || rangeBin <= 0 {
		return nil, errors.Errorf("bin sizes must be positive, got %v and %v", pingBin, rangeBin)
	}
	sv, rng := ds.Vars["Sv"], ds.Vars["echo_range"]
	for name, v := range map[string]*echo.Variable{"Sv": sv, "echo_range": rng} {
		if v == nil {
			return nil, errors.Errorf("dataset has no %s", name)
		}
		if !sameDims(v.Dims, svDims) || v.IsText() {
			return nil, errors.Errorf("%s has dimensions %v, need %v", name, v.Dims, svDims)
		}
	}
	if ds.NumPings() == 0 {
		return nil, nil
	}
	channels := ds.Coords[echo.Channel]
	nc, ns := len(channels), len(ds.Coords[echo.RangeSample])

	first := ds.PingTime[0]
	for _, t := range ds.PingTime {
		if t.Before(first) {
			first = t
		}
	}
	origin := first.Truncate(pingBin)
	timeBin := func(t time.Time) int { return int(t.Sub(origin) / pingBin) }
	nt := 0
	for _, t := range ds.PingTime {
		if b := timeBin(t) + 1; b > nt {
			nt = b
		}
	}

	grids := make([]*Grid, nc)
	for c := range channels {
		nr := 0
		for p := range ds.PingTime {
			for s := 0; s < ns; s++ {
				r := rng.Values[(p*nc+c)*ns+s]
				if math.IsNaN(r) || r < 0 {
					continue
				}
				if b := int(r/rangeBin) + 1; b > nr {
					nr = b
				}
			}
		}
		sum := make([][]float64, nt)
		count := make([][]int, nt)
		for i := range sum {
			sum[i] = make([]float64, nr)
			count[i] = make([]int, nr)
		}
		for p, t := range ds.PingTime {
			tb := timeBin(t)
			for s := 0; s < ns; s++ {
				at := (p*nc+c)*ns + s
				r, v := rng.Values[at], sv.Values[at]
				if math.IsNaN(r) || r < 0 || math.IsNaN(v) {
					continue
				}
				rb := int(r / rangeBin)
				sum[tb][rb] += math.Pow(10, v/10)
				count[tb][rb]++
			}
		}
		g := &Grid{Channel: channels[c], Times: make([]time.Time, nt), Ranges: make([]float64, nr), Sv: sum}
		for i := range g.Times {
			g.Times[i] = origin.Add(time.Duration(i) * pingBin)
		}
		for j := range g.Ranges {
			g.Ranges[j] = float64(j) * rangeBin
		}
		for i := range sum {
			for j := range sum[i] {
				if count[i][j] == 0 {
					sum[i][j] = math.NaN()
				} else {
					sum[i][j] = 10 * math.Log10(sum[i][j]/float64(count[i][j]))
				}
			}
		}
		grids[c] = g
	}
	sort.SliceStable(grids, func(i, j int) bool { return grids[i].Channel < grids[j].Channel })
	return grids, nil
}

func sameDims(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
