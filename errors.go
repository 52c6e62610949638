package echo

import (
	"fmt"
	"strings"
)

// ConfigError reports a configuration which can't be run, such as missing
// credentials or an append with nothing to append to. It is always raised
// before any remote I/O.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Msg }

// SchemaViolation reports a required variable missing from a calibrated
// dataset after sanitization.
type SchemaViolation struct {
	Variable string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("schema violation: expected variable %s not found in Sv dataset", e.Variable)
}

// CalibrationError reports a raw file which couldn't be opened or
// calibrated. It aborts the run.
type CalibrationError struct {
	Locator string
	Err     error
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("calibrating %s: %v", e.Locator, e.Err)
}

func (e *CalibrationError) Unwrap() error { return e.Err }

// LedgerConflict reports a run type which conflicts with what has already
// been harvested. Days lists the offending days, if any, and Remedy says what
// the operator should do.
type LedgerConflict struct {
	Days   []Day
	Msg    string
	Remedy string
}

func (e *LedgerConflict) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Msg)
	if len(e.Days) > 0 {
		days := make([]string, len(e.Days))
		for i, d := range e.Days {
			days[i] = d.String()
		}
		sb.WriteString(": ")
		sb.WriteString(strings.Join(days, ", "))
	}
	if e.Remedy != "" {
		sb.WriteString(". Please ")
		sb.WriteString(e.Remedy)
	}
	return sb.String()
}

// StoreWriteError reports a failed commit. Windows committed before Window
// are durable, but the ledger has not been extended for any of this run. A
// refresh removed the ledger before its first window, so it can't be
// resumed by another append or refresh.
type StoreWriteError struct {
	Window  DayRange
	RunType RunType
	Err     error
}

func (e *StoreWriteError) Error() string {
	msg := fmt.Sprintf("writing window %s to store: %v (earlier windows of this run are committed but not recorded in the ledger", e.Window, e.Err)
	if e.RunType == RefreshRun {
		return msg + "; the ledger was removed when the refresh started, so delete the store and refresh again, or rebuild the ledger for the committed windows)"
	}
	return fmt.Sprintf("%s; inspect the store and rerun from %s)", msg, e.Window.Start)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
