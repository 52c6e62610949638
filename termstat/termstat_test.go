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

package termstat

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCollector(t *testing.T) {
	out := &syncBuffer{}
	c := newCollector(out, time.Hour)
	c.Count("files.calibrated", 2, 1)
	c.Count("files.calibrated", 3, 1)
	c.Count("batches.committed", 1, 1)
	c.Gauge("pings", 12, 1)
	c.Timing("batches.duration", time.Second, 1)
	c.Timing("batches.duration", 3*time.Second, 1)

	want := "batches.committed: 1 batches.duration: 2s files.calibrated: 5 pings: 12"
	if got := c.String(); got != want {
		t.Fatalf("unexpected stats\n got: %s\nwant: %s", got, want)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("closing: %v", err)
	}
	if got := out.String(); got != "\r"+want+"\n" {
		t.Fatalf("unexpected final output: %q", got)
	}
}

func TestCollectorSkipsUnchanged(t *testing.T) {
	out := &syncBuffer{}
	c := newCollector(out, time.Hour)
	c.write(false)
	if out.String() != "" {
		t.Fatalf("wrote without changes: %q", out.String())
	}
	c.Count("x", 1, 1)
	c.write(false)
	c.write(false)
	if n := strings.Count(out.String(), "\r"); n != 1 {
		t.Fatalf("expected one write, got %d: %q", n, out.String())
	}
	_ = c.Close()
}
