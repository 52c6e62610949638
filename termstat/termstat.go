// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package termstat provides a stats implementation which periodically prints
// harvest counters to the given writer. It is meant for watching a run at
// the terminal in lieu of an actual collector writing to an external tool
// like graphite or datadog.
package termstat

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
)

// Collector collects stats and prints them to the terminal.
type Collector struct {
	lock    sync.Mutex
	counts  map[string]int64
	gauges  map[string]float64
	timings map[string]*timing
	changed bool
	out     io.Writer

	done chan struct{}
	wg   sync.WaitGroup
}

type timing struct {
	n     int64
	total time.Duration
}

// NewCollector initializes a Collector printing every two seconds.
func NewCollector(out io.Writer) *Collector {
	return newCollector(out, 2*time.Second)
}

func newCollector(out io.Writer, every time.Duration) *Collector {
	ts := &Collector{
		counts:  make(map[string]int64),
		gauges:  make(map[string]float64),
		timings: make(map[string]*timing),
		out:     out,
		done:    make(chan struct{}),
	}
	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()
		tick := time.NewTicker(every)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				ts.write(false)
			case <-ts.done:
				return
			}
		}
	}()
	return ts
}

// Close stops printing and writes the final values on their own line.
func (t *Collector) Close() error {
	close(t.done)
	t.wg.Wait()
	t.write(true)
	return nil
}

// Count adds value to the named stat at the specified rate.
func (t *Collector) Count(name string, value int64, rate float64, tags ...string) {
	if rate < 1 && rand.Float64() > rate {
		return
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.changed = true
	t.counts[name] += value
}

// Gauge records the latest value of the named stat.
func (t *Collector) Gauge(name string, value float64, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.changed = true
	t.gauges[name] = value
}

// Histogram does nothing.
func (t *Collector) Histogram(name string, value float64, rate float64, tags ...string) {}

// Set does nothing.
func (t *Collector) Set(name string, value string, rate float64, tags ...string) {}

// Timing keeps the mean of the named durations.
func (t *Collector) Timing(name string, value time.Duration, rate float64, tags ...string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.changed = true
	tm, ok := t.timings[name]
	if !ok {
		tm = &timing{}
		t.timings[name] = tm
	}
	tm.n++
	tm.total += value
}

// String formats every stat, sorted by name.
func (t *Collector) String() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.format()
}

func (t *Collector) format() string {
	var parts []string
	for name, v := range t.counts {
		parts = append(parts, fmt.Sprintf("%s: %d", name, v))
	}
	for name, v := range t.gauges {
		parts = append(parts, fmt.Sprintf("%s: %g", name, v))
	}
	for name, tm := range t.timings {
		parts = append(parts, fmt.Sprintf("%s: %v", name, (tm.total / time.Duration(tm.n)).Round(time.Millisecond)))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func (t *Collector) write(final bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if !t.changed && !final {
		return
	}
	t.changed = false
	end := ""
	if final {
		end = "\n"
	}
	fmt.Fprintf(t.out, "\r%s%s", t.format(), end)
}
