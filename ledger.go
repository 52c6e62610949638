package echo

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Suffix is appended to the reference designator to name both the store and
// the ledger of an instrument.
const Suffix = "streamed-zplsc_volume_scattering"

// Params are the processing parameters a day was harvested with.
type Params struct {
	WaveformMode string `json:"waveform_mode"`
	EncodeMode   string `json:"encode_mode"`
	SonarModel   string `json:"sonar_model"`
}

// NewParams normalizes and validates processing parameters. Waveform mode is
// CW or BB, encode mode is power or complex.
func NewParams(waveformMode, encodeMode, sonarModel string) (Params, error) {
	p := Params{
		WaveformMode: strings.ToUpper(waveformMode),
		EncodeMode:   strings.ToLower(encodeMode),
		SonarModel:   strings.ToUpper(sonarModel),
	}
	switch p.WaveformMode {
	case "CW", "BB":
	default:
		return Params{}, &ConfigError{Msg: "waveform mode must be CW or BB, got '" + waveformMode + "'"}
	}
	switch p.EncodeMode {
	case "power", "complex":
	default:
		return Params{}, &ConfigError{Msg: "encode mode must be power or complex, got '" + encodeMode + "'"}
	}
	if p.SonarModel == "" {
		return Params{}, &ConfigError{Msg: "sonar model is required"}
	}
	return p, nil
}

// Ledger records which days have been harvested into a store, and how.
//
// Each day is keyed individually. An earlier layout kept only a
// {start_date, end_date} pair, which is simpler but can't describe disjoint
// ranges or the parameters used per day, so repeated partial runs lost
// information.
type Ledger map[string]Params

// NewLedger records every day of r with p.
func NewLedger(r DayRange, p Params) Ledger {
	l := make(Ledger, r.Len())
	for _, d := range r.Days() {
		l[d.String()] = p
	}
	return l
}

// Has reports whether d is recorded.
func (l Ledger) Has(d Day) bool {
	_, ok := l[d.String()]
	return ok
}

// Days returns the recorded days in order. Keys which aren't days are
// skipped.
func (l Ledger) Days() []Day {
	days := make([]Day, 0, len(l))
	for k := range l {
		d, err := ParseDay(k)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// Overlap returns the days of r which are already recorded.
func (l Ledger) Overlap(r DayRange) []Day {
	var days []Day
	for _, d := range r.Days() {
		if l.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// Union returns a new ledger holding the entries of both; entries of other
// replace those of l.
func (l Ledger) Union(other Ledger) Ledger {
	out := make(Ledger, len(l)+len(other))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ErrNoLedger is returned by LedgerStore.Read when nothing has been
// harvested for an instrument yet.
var ErrNoLedger = errors.New("no ledger yet")

// LedgerStore persists a Ledger.
type LedgerStore interface {
	Read(ctx context.Context) (Ledger, error)
	// Write unions entries into the stored ledger and returns the result.
	Write(ctx context.Context, entries Ledger) (Ledger, error)
	Delete(ctx context.Context) error
}

// StorePrefix is the key prefix of an instrument's store within the data
// bucket.
func StorePrefix(refdes Refdes) string {
	return refdes.String() + "-" + Suffix + "/"
}

// LedgerKey is the key of an instrument's ledger within the metadata bucket.
func LedgerKey(refdes Refdes) string {
	return "harvest-status/" + refdes.String() + "-" + Suffix + "/"
}

// ObjectLedger is a LedgerStore keeping the ledger as one JSON document in
// an ObjectStore.
type ObjectLedger struct {
	objects ObjectStore
	key     string
}

// NewObjectLedger returns an ObjectLedger reading and writing key.
func NewObjectLedger(objects ObjectStore, key string) *ObjectLedger {
	return &ObjectLedger{objects: objects, key: key}
}

// Key is the key the ledger is stored at.
func (o *ObjectLedger) Key() string { return o.key }

// Read loads the ledger, returning ErrNoLedger if there is none.
func (o *ObjectLedger) Read(ctx context.Context) (Ledger, error) {
	data, err := o.objects.Get(ctx, o.key)
	if errors.Cause(err) == ErrObjectNotFound {
		return nil, ErrNoLedger
	} else if err != nil {
		return nil, errors.Wrapf(err, "reading ledger %s", o.key)
	}
	l := make(Ledger)
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrapf(err, "decoding ledger %s", o.key)
	}
	return l, nil
}

// Write merges entries with the stored ledger and overwrites the whole
// document.
func (o *ObjectLedger) Write(ctx context.Context, entries Ledger) (Ledger, error) {
	existing, err := o.Read(ctx)
	if err != nil && err != ErrNoLedger {
		return nil, err
	}
	final := existing.Union(entries)
	data, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding ledger")
	}
	if err := o.objects.Put(ctx, o.key, data); err != nil {
		return nil, errors.Wrapf(err, "writing ledger %s", o.key)
	}
	return final, nil
}

// Delete removes the ledger. Deleting a missing ledger is not an error.
func (o *ObjectLedger) Delete(ctx context.Context) error {
	err := o.objects.Delete(ctx, o.key)
	if err != nil && errors.Cause(err) != ErrObjectNotFound {
		return errors.Wrapf(err, "deleting ledger %s", o.key)
	}
	return nil
}
