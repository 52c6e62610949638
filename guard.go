package echo

import (
	"strings"
)

// RunType selects how a harvest relates to what is already stored.
type RunType int

const (
	// AppendRun adds days which are not yet in the ledger.
	AppendRun RunType = iota + 1
	// RefreshRun builds a new store from scratch. The store must not exist.
	RefreshRun
	// PrependRun adds days before the earliest recorded day.
	PrependRun
)

// ParseRunType parses append, refresh, or prepend.
func ParseRunType(s string) (RunType, error) {
	switch strings.ToLower(s) {
	case "append":
		return AppendRun, nil
	case "refresh":
		return RefreshRun, nil
	case "prepend":
		return PrependRun, nil
	}
	return 0, &ConfigError{Msg: "run type must be append, refresh, or prepend, got '" + s + "'"}
}

func (t RunType) String() string {
	switch t {
	case AppendRun:
		return "append"
	case RefreshRun:
		return "refresh"
	case PrependRun:
		return "prepend"
	}
	return "invalid"
}

// Plan is what the guard decided a run may do.
type Plan struct {
	// Mode is the write mode of the first committed window.
	Mode WriteMode
	// ResetLedger asks for the ledger to be deleted before processing.
	ResetLedger bool
}

// Validate checks a run against the current ledger and store. ledger is nil
// when no ledger exists yet. No I/O is done; a non-nil error means the run
// must not touch the store.
func Validate(t RunType, r DayRange, ledger Ledger, storeExists bool) (Plan, error) {
	switch t {
	case RefreshRun:
		if storeExists {
			return Plan{}, &LedgerConflict{
				Msg:    "refresh requested, but the store already exists",
				Remedy: "delete the store and refresh again, or use append to extend the existing store",
			}
		}
		return Plan{Mode: Create, ResetLedger: true}, nil
	case AppendRun:
		if ledger == nil {
			return Plan{}, &ConfigError{Msg: "append requested, but there is no ledger to append to; run refresh first"}
		}
		if overlap := ledger.Overlap(r); len(overlap) > 0 {
			return Plan{}, &LedgerConflict{
				Days:   overlap,
				Msg:    "dates already exist in the ledger",
				Remedy: "remove these dates from the ledger to reprocess them, adjust the date range, or delete the store and refresh",
			}
		}
		return Plan{Mode: modeFor(storeExists)}, nil
	case PrependRun:
		if ledger == nil {
			return Plan{}, &ConfigError{Msg: "prepend requested, but there is no ledger to prepend to; run refresh first"}
		}
		days := ledger.Days()
		if len(days) == 0 {
			return Plan{}, &ConfigError{Msg: "prepend requested, but the ledger records no days"}
		}
		if earliest := days[0]; !r.End.Before(earliest) {
			return Plan{}, &LedgerConflict{
				Days:   []Day{r.End, earliest},
				Msg:    "prepend end date must be before the earliest harvested date",
				Remedy: "adjust the date range",
			}
		}
		return Plan{Mode: modeFor(storeExists)}, nil
	}
	return Plan{}, &ConfigError{Msg: "invalid run type " + t.String()}
}

func modeFor(storeExists bool) WriteMode {
	if storeExists {
		return Append
	}
	return Create
}
