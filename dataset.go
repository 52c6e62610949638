package echo

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// Dimension names used by calibrated datasets.
const (
	PingTime    = "ping_time"
	Channel     = "channel"
	RangeSample = "range_sample"
)

// Variable is one named array of a Dataset. Data is stored row-major over
// Dims in exactly one of Values or Strings. Missing numeric values are NaN,
// missing text values are empty strings.
type Variable struct {
	Dims    []string
	Values  []float64
	Strings []string
	Attrs   map[string]string
}

// IsText reports whether the variable holds strings.
func (v *Variable) IsText() bool { return v.Strings != nil }

// Len is the number of elements held by the variable.
func (v *Variable) Len() int {
	if v.IsText() {
		return len(v.Strings)
	}
	return len(v.Values)
}

// HasDim reports whether the variable is indexed by dim.
func (v *Variable) HasDim(dim string) bool { return axis(v.Dims, dim) >= 0 }

// Dataset is a collection of labeled arrays sharing dimensions. PingTime
// labels the ping_time dimension; Coords labels every other dimension.
type Dataset struct {
	PingTime []time.Time
	Coords   map[string][]string
	Vars     map[string]*Variable
	Attrs    map[string]string
}

// NewDataset returns an empty Dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Coords: make(map[string][]string),
		Vars:   make(map[string]*Variable),
		Attrs:  make(map[string]string),
	}
}

// Size returns the length of dim, and false if the dataset has no labels for
// it.
func (ds *Dataset) Size(dim string) (int, bool) {
	if dim == PingTime {
		return len(ds.PingTime), true
	}
	labels, ok := ds.Coords[dim]
	return len(labels), ok
}

func (ds *Dataset) shape(dims []string) ([]int, error) {
	shape := make([]int, len(dims))
	for i, dim := range dims {
		n, ok := ds.Size(dim)
		if !ok {
			return nil, errors.Errorf("no coordinate for dimension %s", dim)
		}
		shape[i] = n
	}
	return shape, nil
}

// Has reports whether the dataset holds the named variable.
func (ds *Dataset) Has(name string) bool {
	_, ok := ds.Vars[name]
	return ok
}

// VarNames returns the sorted variable names.
func (ds *Dataset) VarNames() []string {
	names := make([]string, 0, len(ds.Vars))
	for name := range ds.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumPings is the length of the ping_time dimension.
func (ds *Dataset) NumPings() int { return len(ds.PingTime) }

// Validate checks that every variable's length agrees with its dimensions
// and that coordinate labels are unique.
func (ds *Dataset) Validate() error {
	for dim, labels := range ds.Coords {
		seen := make(map[string]struct{}, len(labels))
		for _, l := range labels {
			if _, ok := seen[l]; ok {
				return errors.Errorf("duplicate label '%s' in dimension %s", l, dim)
			}
			seen[l] = struct{}{}
		}
	}
	for _, name := range ds.VarNames() {
		v := ds.Vars[name]
		shape, err := ds.shape(v.Dims)
		if err != nil {
			return errors.Wrapf(err, "variable %s", name)
		}
		if n := product(shape); v.Len() != n {
			return errors.Errorf("variable %s has %d elements, dimensions %v need %d", name, v.Len(), v.Dims, n)
		}
	}
	return nil
}

// DropVars returns a view of ds without the named variables. Names which are
// absent are ignored. Variables are shared with ds, not copied.
func (ds *Dataset) DropVars(names ...string) *Dataset {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	out := &Dataset{
		PingTime: ds.PingTime,
		Coords:   ds.Coords,
		Vars:     make(map[string]*Variable, len(ds.Vars)),
		Attrs:    ds.Attrs,
	}
	for name, v := range ds.Vars {
		if _, ok := drop[name]; !ok {
			out.Vars[name] = v
		}
	}
	return out
}

// Split separates the variables indexed by ping_time from the static ones.
// Each part only carries the coordinates its variables use.
func (ds *Dataset) Split() (timed, static *Dataset) {
	timed = &Dataset{PingTime: ds.PingTime, Coords: make(map[string][]string), Vars: make(map[string]*Variable), Attrs: ds.Attrs}
	static = &Dataset{Coords: make(map[string][]string), Vars: make(map[string]*Variable), Attrs: ds.Attrs}
	for name, v := range ds.Vars {
		part := static
		if v.HasDim(PingTime) {
			part = timed
		}
		part.Vars[name] = v
		for _, dim := range v.Dims {
			if dim != PingTime {
				part.Coords[dim] = ds.Coords[dim]
			}
		}
	}
	return timed, static
}

// Merge adds the variables of other to a copy of ds. Dimensions ds labels
// keep its labels, and other's variables are joined onto them by label:
// cells for labels other lacks are missing and labels only other has are
// dropped. Dimensions only other labels keep other's labels. ping_time is
// matched by position. Variables present in both keep the values of ds.
func (ds *Dataset) Merge(other *Dataset) *Dataset {
	out := &Dataset{
		PingTime: ds.PingTime,
		Coords:   make(map[string][]string, len(ds.Coords)+len(other.Coords)),
		Vars:     make(map[string]*Variable, len(ds.Vars)+len(other.Vars)),
		Attrs:    make(map[string]string),
	}
	for _, src := range []*Dataset{other, ds} {
		for dim, labels := range src.Coords {
			out.Coords[dim] = labels
		}
		for k, v := range src.Attrs {
			out.Attrs[k] = v
		}
	}
	for name, v := range other.Vars {
		if _, ok := ds.Vars[name]; !ok {
			out.Vars[name] = other.reindex(v, len(out.PingTime), out.Coords)
		}
	}
	for name, v := range ds.Vars {
		out.Vars[name] = v
	}
	return out
}

// reindex lays v, a variable of ds, out over pings pings and the given
// labels. v is returned as is when the layout doesn't change.
func (ds *Dataset) reindex(v *Variable, pings int, coords map[string][]string) *Variable {
	maps := make([][]int, len(v.Dims))
	shape := make([]int, len(v.Dims))
	same := true
	for a, dim := range v.Dims {
		if dim == PingTime {
			shape[a] = pings
			maps[a] = make([]int, len(ds.PingTime))
			for p := range maps[a] {
				maps[a][p] = -1
				if p < pings {
					maps[a][p] = p
				}
			}
			same = same && pings == len(ds.PingTime)
			continue
		}
		to := coords[dim]
		shape[a] = len(to)
		pos := make(map[string]int, len(to))
		for j, l := range to {
			pos[l] = j
		}
		from := ds.Coords[dim]
		same = same && len(from) == len(to)
		maps[a] = make([]int, len(from))
		for j, l := range from {
			k, ok := pos[l]
			if !ok {
				k = -1
			}
			maps[a][j] = k
			same = same && k == j
		}
	}
	if same {
		return v
	}
	nv := &Variable{Dims: v.Dims, Attrs: v.Attrs}
	if v.IsText() {
		nv.Strings = make([]string, product(shape))
	} else {
		nv.Values = make([]float64, product(shape))
		for i := range nv.Values {
			nv.Values[i] = math.NaN()
		}
	}
	scatter(nv, v, maps, stridesOf(shape), false)
	return nv
}

// ISel returns pings [i, j) of ds.
func (ds *Dataset) ISel(i, j int) *Dataset {
	idx := make([]int, 0, j-i)
	for p := i; p < j; p++ {
		idx = append(idx, p)
	}
	return ds.take(idx)
}

// SelectTime returns the pings with from <= ping_time < to. A zero bound is
// unbounded.
func (ds *Dataset) SelectTime(from, to time.Time) *Dataset {
	var idx []int
	for p, t := range ds.PingTime {
		if !from.IsZero() && t.Before(from) {
			continue
		}
		if !to.IsZero() && !t.Before(to) {
			continue
		}
		idx = append(idx, p)
	}
	return ds.take(idx)
}

// SortByTime returns ds with its pings in non-decreasing time order. The
// sort is stable.
func (ds *Dataset) SortByTime() *Dataset {
	idx := make([]int, len(ds.PingTime))
	for p := range idx {
		idx[p] = p
	}
	sort.SliceStable(idx, func(a, b int) bool { return ds.PingTime[idx[a]].Before(ds.PingTime[idx[b]]) })
	return ds.take(idx)
}

// take gathers the given pings. Static variables are shared.
func (ds *Dataset) take(idx []int) *Dataset {
	out := &Dataset{
		PingTime: make([]time.Time, len(idx)),
		Coords:   ds.Coords,
		Vars:     make(map[string]*Variable, len(ds.Vars)),
		Attrs:    ds.Attrs,
	}
	for k, p := range idx {
		out.PingTime[k] = ds.PingTime[p]
	}
	n := len(ds.PingTime)
	for name, v := range ds.Vars {
		a := axis(v.Dims, PingTime)
		if a < 0 {
			out.Vars[name] = v
			continue
		}
		shape, _ := ds.shape(v.Dims)
		outer, inner := product(shape[:a]), product(shape[a+1:])
		nv := &Variable{Dims: v.Dims, Attrs: v.Attrs}
		if v.IsText() {
			nv.Strings = make([]string, outer*len(idx)*inner)
		} else {
			nv.Values = make([]float64, outer*len(idx)*inner)
		}
		for o := 0; o < outer; o++ {
			for k, p := range idx {
				src := (o*n + p) * inner
				dst := (o*len(idx) + k) * inner
				if v.IsText() {
					copy(nv.Strings[dst:dst+inner], v.Strings[src:src+inner])
				} else {
					copy(nv.Values[dst:dst+inner], v.Values[src:src+inner])
				}
			}
		}
		out.Vars[name] = nv
	}
	return out
}

// Concat joins datasets along ping_time in the order given. Every other
// dimension is outer joined: its labels are the union of all inputs in first
// seen order, and cells an input has no label for are padded with NaN (or
// the empty string). Variables without a ping_time dimension take, cell by
// cell, the first non-missing value.
func Concat(dss ...*Dataset) (*Dataset, error) {
	switch len(dss) {
	case 0:
		return nil, errors.New("nothing to concatenate")
	case 1:
		return dss[0], nil
	}
	out := NewDataset()
	index := make(map[string]map[string]int)
	offsets := make([]int, len(dss))
	for k, ds := range dss {
		if err := ds.Validate(); err != nil {
			return nil, errors.Wrapf(err, "dataset %d", k)
		}
		offsets[k] = len(out.PingTime)
		out.PingTime = append(out.PingTime, ds.PingTime...)
		for _, dim := range sortedKeys(ds.Coords) {
			if index[dim] == nil {
				index[dim] = make(map[string]int)
			}
			for _, l := range ds.Coords[dim] {
				if _, ok := index[dim][l]; !ok {
					index[dim][l] = len(out.Coords[dim])
					out.Coords[dim] = append(out.Coords[dim], l)
				}
			}
		}
		for key, val := range ds.Attrs {
			if _, ok := out.Attrs[key]; !ok {
				out.Attrs[key] = val
			}
		}
	}

	names := make(map[string]int)
	for k, ds := range dss {
		for name := range ds.Vars {
			if _, ok := names[name]; !ok {
				names[name] = k
			}
		}
	}
	for _, name := range sortedKeys(names) {
		first := dss[names[name]].Vars[name]
		shape, err := out.shape(first.Dims)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %s", name)
		}
		v := &Variable{Dims: first.Dims, Attrs: first.Attrs}
		if first.IsText() {
			v.Strings = make([]string, product(shape))
		} else {
			v.Values = make([]float64, product(shape))
			for i := range v.Values {
				v.Values[i] = math.NaN()
			}
		}
		strides := stridesOf(shape)
		timed := first.HasDim(PingTime)
		for k, ds := range dss {
			src, ok := ds.Vars[name]
			if !ok {
				continue
			}
			if !sameDims(src.Dims, first.Dims) || src.IsText() != first.IsText() {
				return nil, errors.Errorf("variable %s has dimensions %v in dataset %d, but %v in dataset %d", name, src.Dims, k, first.Dims, names[name])
			}
			maps := make([][]int, len(src.Dims))
			for a, dim := range src.Dims {
				if dim == PingTime {
					maps[a] = make([]int, len(ds.PingTime))
					for p := range ds.PingTime {
						maps[a][p] = offsets[k] + p
					}
					continue
				}
				maps[a] = make([]int, len(ds.Coords[dim]))
				for j, l := range ds.Coords[dim] {
					maps[a][j] = index[dim][l]
				}
			}
			scatter(v, src, maps, strides, !timed)
		}
		out.Vars[name] = v
	}
	return out, nil
}

// scatter copies src into dst through per-axis index maps. Cells mapped to
// a negative index are dropped. With firstWins, cells of dst which already
// hold a value are left alone.
func scatter(dst, src *Variable, maps [][]int, strides []int, firstWins bool) {
	counter := make([]int, len(maps))
	for flat, n := 0, src.Len(); flat < n; flat++ {
		at := 0
		for a := range maps {
			j := maps[a][counter[a]]
			if j < 0 {
				at = -1
				break
			}
			at += j * strides[a]
		}
		switch {
		case at < 0:
		case src.IsText():
			if !firstWins || dst.Strings[at] == "" {
				dst.Strings[at] = src.Strings[flat]
			}
		default:
			if !firstWins || math.IsNaN(dst.Values[at]) {
				dst.Values[at] = src.Values[flat]
			}
		}
		for a := len(counter) - 1; a >= 0; a-- {
			counter[a]++
			if counter[a] < len(maps[a]) {
				break
			}
			counter[a] = 0
		}
	}
}

func axis(dims []string, dim string) int {
	for i, d := range dims {
		if d == dim {
			return i
		}
	}
	return -1
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func stridesOf(shape []int) []int {
	strides := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		s *= shape[i]
	}
	return strides
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

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
