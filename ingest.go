package echo

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// State is a step of a harvest.
type State int

const (
	StateBatchStart State = iota
	StateListing
	StateCalibrating
	StateSanitizing
	StateConcatenating
	StateCommitting
	StateDone
)

func (s State) String() string {
	switch s {
	case StateBatchStart:
		return "batch start"
	case StateListing:
		return "listing"
	case StateCalibrating:
		return "calibrating"
	case StateSanitizing:
		return "sanitizing"
	case StateConcatenating:
		return "concatenating"
	case StateCommitting:
		return "committing"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Request describes one harvest run.
type Request struct {
	Range         DayRange
	Refdes        Refdes
	Params        Params
	RunType       RunType
	BatchSizeDays int
}

// Report summarizes a run. It is returned alongside errors too, describing
// what was done before the failure.
type Report struct {
	Windows   []DayRange
	Committed []DayRange
	Skipped   []DayRange
	Files     int
	Pings     int
	Ledger    Ledger
}

// Harvester moves raw files into an ArrayStore one window of days at a
// time. It is not safe to run two Harvesters against the same store.
type Harvester struct {
	Lister     Lister
	Calibrator Calibrator
	Sanitizer  *Sanitizer
	Store      ArrayStore
	Ledger     LedgerStore

	Log   Logger
	Stats Statter

	// Observe, if non-nil, is called on every state transition.
	Observe func(s State, window DayRange)
}

// NewHarvester returns a Harvester with a strict Sanitizer and no logging.
func NewHarvester(lister Lister, calibrator Calibrator, store ArrayStore, ledger LedgerStore) *Harvester {
	return &Harvester{
		Lister:     lister,
		Calibrator: calibrator,
		Sanitizer:  NewSanitizer(),
		Store:      store,
		Ledger:     ledger,
		Log:        NopLogger{},
		Stats:      NopStatter{},
	}
}

// Run harvests req.Range. The run type is validated against the ledger and
// store before anything is written. Windows are committed in date order and
// the ledger is extended over the whole range once every window is done; a
// run which committed nothing leaves the ledger alone. Cancellation is only
// noticed between windows.
func (h *Harvester) Run(ctx context.Context, req Request) (*Report, error) {
	if req.Refdes.IsZero() {
		return nil, &ConfigError{Msg: "reference designator is required"}
	}
	windows, err := req.Range.Batches(req.BatchSizeDays)
	if err != nil {
		return nil, &ConfigError{Msg: err.Error()}
	}

	ledger, err := h.Ledger.Read(ctx)
	if err == ErrNoLedger {
		ledger = nil
	} else if err != nil {
		return nil, errors.Wrap(err, "reading ledger")
	}
	exists, err := h.Store.Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "checking store")
	}
	plan, err := Validate(req.RunType, req.Range, ledger, exists)
	if err != nil {
		return nil, err
	}
	if plan.ResetLedger {
		h.Log.Printf("wiping existing ledger for %s", req.Refdes)
		if err := h.Ledger.Delete(ctx); err != nil {
			return nil, errors.Wrap(err, "wiping ledger")
		}
	}

	rep := &Report{Windows: windows}
	mode := plan.Mode
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return rep, errors.Wrapf(err, "stopped before window %s", w)
		}
		start := time.Now()
		ok, err := h.runWindow(ctx, req, w, mode, rep)
		if err != nil {
			return rep, err
		}
		if !ok {
			rep.Skipped = append(rep.Skipped, w)
			h.Stats.Count("batches.skipped", 1, 1)
			continue
		}
		mode = Append
		rep.Committed = append(rep.Committed, w)
		h.Stats.Count("batches.committed", 1, 1)
		h.Stats.Timing("batches.duration", time.Since(start), 1)
	}

	if len(rep.Committed) == 0 {
		h.Log.Printf("no data found for %s in %s, ledger unchanged", req.Refdes, req.Range)
		h.observe(StateDone, req.Range)
		return rep, nil
	}
	h.Log.Printf("updating ledger for %s with %s", req.Refdes, req.Range)
	rep.Ledger, err = h.Ledger.Write(ctx, NewLedger(req.Range, req.Params))
	if err != nil {
		return rep, errors.Wrapf(err, "updating ledger after committing %d windows", len(rep.Committed))
	}
	h.Stats.Count("ledger.written", 1, 1)
	h.observe(StateDone, req.Range)
	return rep, nil
}

// runWindow processes one window. It reports false if the window held no
// files. Nothing is written unless every file calibrates and sanitizes. The
// window's datasets are only referenced from this frame, so they can be
// collected as soon as it returns.
func (h *Harvester) runWindow(ctx context.Context, req Request, w DayRange, mode WriteMode, rep *Report) (bool, error) {
	h.observe(StateBatchStart, w)
	h.Log.Printf("processing window %s", w)

	h.observe(StateListing, w)
	urls := h.list(ctx, req.Refdes, w)
	if len(urls) == 0 {
		h.Log.Printf("no data found for window %s, skipping", w)
		return false, nil
	}

	datasets := make([]*Dataset, 0, len(urls))
	for _, url := range urls {
		h.observe(StateCalibrating, w)
		ds, err := h.calibrate(ctx, url, req.Params)
		if err != nil {
			return false, err
		}
		h.observe(StateSanitizing, w)
		ds, err = h.Sanitizer.Sanitize(ds)
		if err != nil {
			return false, errors.Wrapf(err, "sanitizing %s", url)
		}
		datasets = append(datasets, ds)
	}

	h.observe(StateConcatenating, w)
	batch, err := Concat(datasets...)
	if err != nil {
		return false, errors.Wrapf(err, "concatenating window %s", w)
	}

	h.observe(StateCommitting, w)
	h.Log.Printf("writing %d pings from %d files to store (%s)", batch.NumPings(), len(urls), mode)
	if err := h.Store.Write(ctx, batch, mode); err != nil {
		return false, &StoreWriteError{Window: w, RunType: req.RunType, Err: err}
	}
	rep.Files += len(urls)
	rep.Pings += batch.NumPings()
	return true, nil
}

// list collects the raw files of every day in w, in day order then listing
// order.
func (h *Harvester) list(ctx context.Context, refdes Refdes, w DayRange) []string {
	var urls []string
	for _, day := range w.Days() {
		l := h.Lister.List(ctx, day, refdes)
		switch l.Status {
		case Found:
			h.Log.Printf("found %d raw files for %s at %s", len(l.Files), day, l.URL)
			urls = append(urls, l.Files...)
		case Unreachable:
			h.Log.Printf("no data for %s, listing %s failed: %v", day, l.URL, l.Err)
		default:
			h.Log.Printf("no data for %s (%s)", day, l.Status)
		}
		h.Stats.Count("listing."+statName(l.Status), 1, 1)
	}
	return urls
}

func (h *Harvester) calibrate(ctx context.Context, url string, p Params) (*Dataset, error) {
	h.Log.Printf("parsing raw data for %s", url)
	rec, err := h.Calibrator.OpenRaw(ctx, url, p.SonarModel)
	if err != nil {
		return nil, &CalibrationError{Locator: url, Err: errors.Wrap(err, "opening raw file")}
	}
	defer func() {
		if err := rec.Close(); err != nil {
			h.Log.Printf("closing %s: %v", url, err)
		}
	}()
	h.Log.Printf("computing Sv for %s", url)
	ds, err := h.Calibrator.ComputeSv(ctx, rec, p.WaveformMode, p.EncodeMode)
	if err != nil {
		return nil, &CalibrationError{Locator: url, Err: errors.Wrap(err, "computing Sv")}
	}
	if err := ds.Validate(); err != nil {
		return nil, &CalibrationError{Locator: url, Err: errors.Wrap(err, "validating Sv dataset")}
	}
	h.Stats.Count("files.calibrated", 1, 1)
	return ds, nil
}

func (h *Harvester) observe(s State, w DayRange) {
	if h.Observe != nil {
		h.Observe(s, w)
	}
}

func statName(s ListingStatus) string {
	switch s {
	case Found:
		return "found"
	case Empty:
		return "empty"
	case NotFound:
		return "notfound"
	}
	return "unreachable"
}
