// Package echo harvests raw echosounder files into a chunked, appendable
// array store, one store per instrument.
//
// Of principal importance is the harvest pipeline. Interfaces for each stage
// are declared here, and implementations which rely on other software live
// in sub-packages.
//
// 1. Lister
//
//    A Lister enumerates the raw files the instrument archive holds for one
//    calendar day. Days without data are normal (instruments go offline), so
//    a Lister never fails: it returns a Listing whose Status says whether the
//    day was found, empty, missing, or unreachable.
//
// 2. Calibrator
//
//    The Calibrator opens a raw file and computes volume backscattering
//    strength (Sv) from it, returning a labeled Dataset keyed by ping_time.
//    The heavy lifting is done by an external instrument-processing tool.
//
// 3. Sanitizer
//
//    The Sanitizer drops variables which are specific to one sonar vendor
//    and, in strict mode, checks that every required output variable is
//    present.
//
// 4. ArrayStore
//
//    The ArrayStore persists Datasets. The first write creates the store and
//    every later write appends along ping_time. Each write is a durability
//    boundary.
//
// The Harvester drives these stages over a date range in fixed size day
// windows so that at most one window of calibrated data is held in memory.
// Before any work it validates the requested RunType against the metadata
// Ledger and the store, and after the last window it extends the Ledger.
package echo
