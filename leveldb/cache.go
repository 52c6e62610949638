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

// Package leveldb caches directory listings in a leveldb database so that
// reharvesting old days doesn't list the archive again.
package leveldb

import (
	"context"
	"encoding/json"
	"os"
	"time"

	echo "github.com/ooi-data/rca-echo-tools"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ echo.Lister = &ListingCache{}

// ListingCache is an echo.Lister which remembers Found listings of days
// before the current UTC day. Today's directory may still be growing, and
// absent or failed listings may appear later, so those always go through.
type ListingCache struct {
	next echo.Lister
	db   *leveldb.DB
	log  echo.Logger

	now func() time.Time
}

type entry struct {
	URL   string   `json:"url"`
	Files []string `json:"files"`
}

// NewListingCache opens (or creates) the cache in dirname in front of next.
func NewListingCache(dirname string, next echo.Lister, log echo.Logger) (*ListingCache, error) {
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	db, err := leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname)
	}
	if log == nil {
		log = echo.NopLogger{}
	}
	return &ListingCache{next: next, db: db, log: log, now: time.Now}, nil
}

// Close closes the underlying leveldb.
func (c *ListingCache) Close() error {
	return errors.Wrap(c.db.Close(), "closing listing cache")
}

func key(day echo.Day, refdes echo.Refdes) []byte {
	return []byte(refdes.String() + "|" + day.String())
}

// List implements echo.Lister.
func (c *ListingCache) List(ctx context.Context, day echo.Day, refdes echo.Refdes) echo.Listing {
	k := key(day, refdes)
	if data, err := c.db.Get(k, nil); err == nil {
		var e entry
		if err := json.Unmarshal(data, &e); err == nil {
			c.log.Debugf("listing of %s for %s from cache", day, refdes)
			return echo.Listing{Day: day, URL: e.URL, Status: echo.Found, Files: e.Files}
		}
		c.log.Printf("dropping undecodable cache entry %s", k)
	} else if err != leveldb.ErrNotFound {
		c.log.Printf("reading listing cache: %v", err)
	}

	res := c.next.List(ctx, day, refdes)
	if res.Status != echo.Found || !day.Before(echo.DayOf(c.now().UTC())) {
		return res
	}
	data, err := json.Marshal(entry{URL: res.URL, Files: res.Files})
	if err == nil {
		err = c.db.Put(k, data, nil)
	}
	if err != nil {
		c.log.Printf("caching listing of %s: %v", day, err)
	}
	return res
}
